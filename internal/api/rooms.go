package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ActiveRooms lists the rooms currently open.
func (c *Client) ActiveRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.call(ctx, http.MethodGet, "/classroom/active", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom opens a new room hosted by the current user.
func (c *Client) CreateRoom(ctx context.Context, name, language string) (*Room, error) {
	var r Room
	err := c.call(ctx, http.MethodPost, "/classroom/", map[string]string{
		"name":     name,
		"language": language,
	}, &r)
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		r.Name = name
	}
	if r.Language == "" {
		r.Language = language
	}
	return &r, nil
}

// Room fetches one room's metadata.
func (c *Client) Room(ctx context.Context, id string) (*Room, error) {
	var r Room
	if err := c.call(ctx, http.MethodGet, "/classroom/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	if r.UID == "" {
		r.UID = id
	}
	return &r, nil
}

// Transcript returns a room's finalized lines ordered by creation time.
func (c *Client) Transcript(ctx context.Context, roomID string) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	if err := c.call(ctx, http.MethodGet, "/transcriptions/classroom/"+url.PathEscape(roomID), nil, &entries); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt.Time)
	})
	return entries, nil
}

// PostTranscript persists one finalized line for the current user.
func (c *Client) PostTranscript(ctx context.Context, roomID, text string) error {
	if text == "" {
		return fmt.Errorf("empty transcript line")
	}
	return c.call(ctx, http.MethodPost, "/transcriptions/classroom/"+url.PathEscape(roomID), map[string]string{
		"transcripted_text": text,
	}, nil)
}

// Snapshot is a room's metadata and history fetched together. Either half may
// fail without affecting the other.
type Snapshot struct {
	Room       *Room
	RoomErr    error
	History    []TranscriptEntry
	HistoryErr error
}

// RoomSnapshot fetches room metadata and transcript history in parallel.
func (c *Client) RoomSnapshot(ctx context.Context, roomID string) Snapshot {
	var s Snapshot
	var g errgroup.Group
	g.Go(func() error {
		s.Room, s.RoomErr = c.Room(ctx, roomID)
		return nil
	})
	g.Go(func() error {
		s.History, s.HistoryErr = c.Transcript(ctx, roomID)
		return nil
	})
	g.Wait()
	return s
}

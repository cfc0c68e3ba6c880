package api

import (
	"encoding/json"
	"strings"
	"time"
)

// User is the identity record returned by /auth/me and /auth/login.
type User struct {
	UID        string `json:"uid"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
	Role       string `json:"role"`
	CreatedAt  Time   `json:"created_at"`
}

// Room is a classroom as listed by the backend.
type Room struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	CreatedBy   string `json:"created_by"`
	CreatorName string `json:"creator_name,omitempty"`
}

// UnmarshalJSON accepts either "uid" or "id" for the room identifier and
// "creator_name" or "creater_name" for the host display name.
func (r *Room) UnmarshalJSON(data []byte) error {
	type plain Room
	var aux struct {
		plain
		ID          string `json:"id"`
		CreaterName string `json:"creater_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Room(aux.plain)
	if r.UID == "" {
		r.UID = aux.ID
	}
	if r.CreatorName == "" {
		r.CreatorName = aux.CreaterName
	}
	return nil
}

// TranscriptEntry is one finalized line from a room's transcript history.
type TranscriptEntry struct {
	CreatedAt Time    `json:"created_at"`
	UserUID   *string `json:"user_uid"`
	Username  string  `json:"username"`
	Text      string  `json:"transcripted_text"`
}

// SpeakerID returns the speaker uid, or "" when the backend sent null.
func (e TranscriptEntry) SpeakerID() string {
	if e.UserUID == nil {
		return ""
	}
	return *e.UserUID
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// SignupRequest is the body of /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
}

// Time decodes the backend's timestamps, which may or may not carry a zone.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON parses the first matching layout. Zone-less values are UTC.
// Unparseable or null values leave the zero time.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON writes RFC 3339.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

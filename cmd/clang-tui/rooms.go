package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/validate"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List active rooms",
	RunE:  runRooms,
}

var createRoomCmd = &cobra.Command{
	Use:   "create-room",
	Short: "Create a room",
	RunE:  runCreateRoom,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <room-id>",
	Short: "Print a room's finalized transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscript,
}

func init() {
	createRoomCmd.Flags().String("name", "", "Room name (prompted when empty)")
	createRoomCmd.Flags().String("language", "", "Source language: en or ko (prompted when empty)")
}

func runRooms(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := e.requestContext()
	defer cancel()
	rooms, err := e.client.ActiveRooms(ctx)
	if err != nil {
		return errors.New(api.Message(err))
	}
	if len(rooms) == 0 {
		fmt.Println("No active rooms.")
		return nil
	}
	writeRoomsTable(os.Stdout, rooms)
	return nil
}

func writeRoomsTable(w io.Writer, rooms []api.Room) {
	table := newTable(w)
	table.SetHeader([]string{"ID", "Name", "Language", "Host"})
	for _, r := range rooms {
		host := r.CreatorName
		if host == "" {
			host = r.CreatedBy
		}
		table.Append([]string{r.UID, r.Name, validate.LanguageLabel(r.Language), host})
	}
	table.Render()
}

func runCreateRoom(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	language, _ := cmd.Flags().GetString("language")

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if name == "" || language == "" {
		if language == "" {
			language = validate.Languages[0].Tag
		}
		langs := make([]huh.Option[string], len(validate.Languages))
		for i, l := range validate.Languages {
			langs[i] = huh.NewOption(l.Label, l.Tag)
		}
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Classroom name").
					CharLimit(validate.MaxRoomNameLen+1).
					Value(&name).
					Validate(func(s string) error {
						_, err := validate.RoomName(s)
						return err
					}),
				huh.NewSelect[string]().
					Title("Original language").
					Options(langs...).
					Value(&language),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("create room form: %w", err)
		}
	}

	name, err = validate.Room(name, language)
	if err != nil {
		return err
	}

	ctx, cancel := e.requestContext()
	defer cancel()
	room, err := e.client.CreateRoom(ctx, name, language)
	if err != nil {
		return errors.New(api.Message(err))
	}
	fmt.Printf("Created %q (%s). Join it from the room list with `clang-tui`.\n", room.Name, room.UID)
	return nil
}

func runTranscript(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := e.requestContext()
	defer cancel()
	snap := e.client.RoomSnapshot(ctx, args[0])
	if errors.Is(snap.RoomErr, api.ErrUnauthenticated) || errors.Is(snap.HistoryErr, api.ErrUnauthenticated) {
		return errors.New("not logged in, run `clang-tui login`")
	}
	if snap.HistoryErr != nil {
		return fmt.Errorf("transcript: %s", api.Message(snap.HistoryErr))
	}

	if snap.Room != nil {
		fmt.Printf("%s (%s)\n\n", snap.Room.Name, validate.LanguageLabel(snap.Room.Language))
	} else {
		e.logger.Warn("room details unavailable", "room", args[0], "err", snap.RoomErr)
	}
	if len(snap.History) == 0 {
		fmt.Println("No transcript yet.")
		return nil
	}
	writeTranscriptTable(os.Stdout, snap.History)
	return nil
}

func writeTranscriptTable(w io.Writer, entries []api.TranscriptEntry) {
	table := newTable(w)
	table.SetHeader([]string{"Time", "Speaker", "Text"})
	for _, t := range entries {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		at := ""
		if !t.CreatedAt.IsZero() {
			at = t.CreatedAt.Local().Format("15:04:05")
		}
		speaker := t.Username
		if speaker == "" {
			speaker = t.SpeakerID()
		}
		table.Append([]string{at, speaker, t.Text})
	}
	table.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

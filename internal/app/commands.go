package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/stream"

	tea "github.com/charmbracelet/bubbletea"
)

// expiredOr returns AuthExpiredMsg when err means the session is gone, and
// msg otherwise.
func expiredOr(err error, msg tea.Msg) tea.Msg {
	if errors.Is(err, api.ErrUnauthenticated) {
		return AuthExpiredMsg{}
	}
	return msg
}

// initSessionCmd resolves the current user once.
func initSessionCmd(d Deps) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		d.Session.Init(ctx)
		return SessionReadyMsg{}
	}
}

func loginCmd(d Deps, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		u, err := d.Backend.Login(ctx, email, password)
		return LoginResultMsg{User: u, Err: err}
	}
}

func logoutCmd(d Deps) tea.Cmd {
	return func() tea.Msg {
		return LogoutDoneMsg{Err: d.Backend.Logout()}
	}
}

func fetchRoomsCmd(d Deps) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		rooms, err := d.Backend.ActiveRooms(ctx)
		return expiredOr(err, RoomsLoadedMsg{Rooms: rooms, Err: err})
	}
}

func createRoomCmd(d Deps, name, language string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		r, err := d.Backend.CreateRoom(ctx, name, language)
		return expiredOr(err, RoomCreatedMsg{Room: r, Err: err})
	}
}

// snapshotCmd fetches room metadata and history. Neither failure blocks the
// socket.
func snapshotCmd(d Deps, roomID string, visit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		s := d.Backend.RoomSnapshot(ctx, roomID)
		if errors.Is(s.RoomErr, api.ErrUnauthenticated) || errors.Is(s.HistoryErr, api.ErrUnauthenticated) {
			return AuthExpiredMsg{}
		}
		return SnapshotMsg{RoomID: roomID, Visit: visit, Snapshot: s}
	}
}

func persistCmd(d Deps, roomID, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := d.requestContext()
		defer cancel()
		err := d.Backend.PostTranscript(ctx, roomID, text)
		return expiredOr(err, PersistDoneMsg{Err: err})
	}
}

// dialCmd opens the room socket. gen tags the result so a dial that finishes
// after the visit moved on can be closed instead of adopted.
func dialCmd(ctx context.Context, dial Dialer, roomID, userID string, gen int) tea.Cmd {
	return func() tea.Msg {
		conn, err := dial(ctx, roomID, userID)
		if err != nil {
			return ConnFailedMsg{Err: err, Gen: gen}
		}
		return ConnOpenedMsg{Conn: conn, Gen: gen}
	}
}

// readEnvelopeCmd reads the next envelope. Update re-issues it after each
// envelope so they are applied in arrival order.
func readEnvelopeCmd(conn Conn, gen int) tea.Cmd {
	return func() tea.Msg {
		env, err := conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, stream.ErrClosed) {
				return ConnClosedMsg{Gen: gen}
			}
			return ConnClosedMsg{Err: err, Gen: gen}
		}
		return EnvelopeMsg{Env: env, Gen: gen}
	}
}

// forwardAudioCmd sends every slice of one capture, in order, until the
// recorder closes the channel.
// audioForward tracks one forward loop so stopping a capture can wait for its
// last slice to reach the socket.
type audioForward struct {
	started atomic.Bool
	done    chan struct{}
}

func newAudioForward() *audioForward {
	return &audioForward{done: make(chan struct{})}
}

// wait blocks until the loop has drained its channel or d passes. A loop that
// never started has nothing to wait for.
func (f *audioForward) wait(d time.Duration) bool {
	if f == nil || !f.started.Load() {
		return true
	}
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}

func forwardAudioCmd(conn Conn, audio <-chan []byte, fwd *audioForward, capture int, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		if fwd != nil {
			fwd.started.Store(true)
			defer close(fwd.done)
		}
		var failed bool
		for slice := range audio {
			if conn == nil || failed {
				continue
			}
			if err := conn.SendAudio(slice); err != nil {
				logger.Warn("send audio", "err", err)
				failed = true
			}
		}
		return AudioDoneMsg{Capture: capture}
	}
}

func leaveAfterCmd(after time.Duration, visit int) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return LeaveRoomMsg{Visit: visit}
	})
}

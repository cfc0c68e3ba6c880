package app

import (
	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/stream"
)

// SessionReadyMsg is sent once the session provider has resolved the user.
type SessionReadyMsg struct{}

// AuthExpiredMsg is sent when a request finds the credentials unusable.
type AuthExpiredMsg struct{}

// LoginResultMsg carries the outcome of a login attempt.
type LoginResultMsg struct {
	User *api.User
	Err  error
}

// LogoutDoneMsg is sent after credentials are cleared.
type LogoutDoneMsg struct {
	Err error
}

// RoomsLoadedMsg carries the active room directory.
type RoomsLoadedMsg struct {
	Rooms []api.Room
	Err   error
}

// RoomCreatedMsg carries the outcome of a room creation.
type RoomCreatedMsg struct {
	Room *api.Room
	Err  error
}

// SnapshotMsg carries a room's metadata and history. Visit is the room visit
// that asked for it; a snapshot for an earlier visit is dropped.
type SnapshotMsg struct {
	RoomID   string
	Visit    int
	Snapshot api.Snapshot
}

// ConnOpenedMsg is sent when a room socket dial succeeds. Gen identifies the
// dial so late results can be told apart; it is unique across room visits.
type ConnOpenedMsg struct {
	Conn Conn
	Gen  int
}

// ConnFailedMsg is sent when a room socket dial fails.
type ConnFailedMsg struct {
	Err error
	Gen int
}

// EnvelopeMsg wraps one inbound envelope from the room socket.
type EnvelopeMsg struct {
	Env stream.Envelope
	Gen int
}

// ConnClosedMsg is sent when the room socket read loop ends. Err is nil for a
// clean close.
type ConnClosedMsg struct {
	Err error
	Gen int
}

// AudioDoneMsg is sent when a capture's slice channel closes.
type AudioDoneMsg struct {
	Capture int
}

// PersistDoneMsg carries the outcome of saving a finalized line.
type PersistDoneMsg struct {
	Err error
}

// LeaveRoomMsg navigates from the room screen back to the directory. Visit
// names the room visit that scheduled it.
type LeaveRoomMsg struct {
	Visit int
}

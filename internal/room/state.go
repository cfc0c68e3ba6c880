// Package room is the transcription session for one room visit, written as a
// pure transition function. The caller feeds events in and performs the
// returned effects; nothing in here does I/O.
package room

import (
	"time"

	"github.com/Clang-dev/clang-tui/internal/stream"
)

// Phase is where the session is in its connection and floor lifecycle.
type Phase int

const (
	Idle Phase = iota
	Connecting
	Connected
	Requesting
	Speaking
	Disconnected
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Requesting:
		return "requesting"
	case Speaking:
		return "speaking"
	case Disconnected:
		return "disconnected"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Status lines shown under the transcript.
const (
	StatusIdle          = "Click to start transcription"
	StatusConnecting    = "Connecting..."
	StatusReady         = "Connected. Ready to record."
	StatusRequesting    = "Requesting to speak..."
	StatusStarting      = "Starting microphone..."
	StatusRecording     = "Recording..."
	StatusConnError     = "Connection error. Please try again."
	StatusCaptureFailed = "Failed to start recording."
	StatusDenied        = "Someone else is speaking."
	StatusClosing       = "The host has left. This room is closing."
)

// Line is one finalized transcript line.
type Line struct {
	SpeakerID   string
	SpeakerName string
	Text        string
	CreatedAt   time.Time
	TurnID      string
}

// LiveLine is the growing, not yet finalized text of one speaker's turn.
type LiveLine struct {
	SpeakerID   string
	SpeakerName string
	Text        string
	TurnID      string
}

// State is everything the room screen renders. Treat it as a value: Transition
// never mutates the State it is given.
type State struct {
	RoomID   string
	RoomName string
	HostID   string
	UserID   string
	UserName string

	Phase        Phase
	Status       string
	Notice       string
	Floor        string
	FloorName    string
	Participants int

	Lines []Line
	Live  []LiveLine

	// TurnID is this user's current or pending speaking turn.
	TurnID string
	// AutoRequest asks for the floor as soon as the connection opens.
	AutoRequest bool
	ExitPending bool

	ClosingDelay time.Duration

	finalized map[string]struct{}
}

// DefaultClosingDelay is how long a closing notice shows before leaving.
const DefaultClosingDelay = 2 * time.Second

// New returns the idle state for a visit to roomID by the given user. name is
// a display hint until the room metadata arrives.
func New(roomID, name, userID, userName string) State {
	return State{
		RoomID:       roomID,
		RoomName:     name,
		UserID:       userID,
		UserName:     userName,
		Phase:        Idle,
		Status:       StatusIdle,
		ClosingDelay: DefaultClosingDelay,
	}
}

// IsHost reports whether the current user created the room.
func (s State) IsHost() bool {
	return s.HostID != "" && s.HostID == s.UserID
}

// HoldsFloor reports whether the current user is the speaker.
func (s State) HoldsFloor() bool {
	return s.Floor != "" && s.Floor == s.UserID
}

// FloorTaken reports whether someone other than the current user speaks.
func (s State) FloorTaken() bool {
	return s.Floor != "" && s.Floor != s.UserID
}

// CanRecord reports whether the record control is enabled.
func (s State) CanRecord() bool {
	if s.ExitPending {
		return false
	}
	switch s.Phase {
	case Speaking:
		return true
	case Idle, Connected, Disconnected:
		return !s.FloorTaken()
	default:
		return false
	}
}

// CanExit reports whether leaving needs no confirmation. The host leaving ends
// the room for everyone, so the host is asked first.
func (s State) CanExit() bool {
	return !s.IsHost() || s.Phase == Terminated
}

// LiveFor returns the live line for speaker, if any.
func (s State) LiveFor(speaker string) (LiveLine, bool) {
	for _, l := range s.Live {
		if l.SpeakerID == speaker {
			return l, true
		}
	}
	return LiveLine{}, false
}

// Effect is work the caller performs after a transition.
type Effect interface{ effect() }

// OpenConn dials the room socket.
type OpenConn struct{}

// CloseConn closes the room socket. Closing an absent socket is fine.
type CloseConn struct{}

// Send writes one envelope on the room socket.
type Send struct{ Env stream.Envelope }

// StartCapture opens the microphone and starts forwarding slices.
type StartCapture struct{}

// StopCapture stops the microphone. Stopping an idle recorder is fine.
type StopCapture struct{}

// Persist saves a finalized line through the REST API.
type Persist struct{ Line Line }

// Leave navigates back to the room directory after a delay.
type Leave struct{ After time.Duration }

// Alert surfaces a non-blocking notice.
type Alert struct{ Message string }

func (OpenConn) effect()     {}
func (CloseConn) effect()    {}
func (Send) effect()         {}
func (StartCapture) effect() {}
func (StopCapture) effect()  {}
func (Persist) effect()      {}
func (Leave) effect()        {}
func (Alert) effect()        {}

// Event is an input to Transition.
type Event interface{ event() }

// Connect opens the session on entering the room.
type Connect struct{}

// Opened reports the socket is open.
type Opened struct{}

// Closed reports the socket closed. Err is nil for a clean close.
type Closed struct {
	Err error
	At  time.Time
}

// ToggleRecord is the record control. Turn is a fresh id for the turn it may
// start; At is the capture timestamp used if it stops one.
type ToggleRecord struct {
	At   time.Time
	Turn string
}

// CaptureStarted reports the microphone is live.
type CaptureStarted struct{}

// CaptureFailed reports the microphone could not start or died.
type CaptureFailed struct {
	Err error
	At  time.Time
}

// Received is one inbound envelope.
type Received struct {
	Env stream.Envelope
	At  time.Time
}

// HistoryLoaded carries the room's finalized history.
type HistoryLoaded struct{ Lines []Line }

// RoomLoaded carries the room metadata.
type RoomLoaded struct {
	Name   string
	HostID string
}

// FetchFailed reports a metadata or history fetch error.
type FetchFailed struct {
	What string
	Err  error
}

// ExitRequested is a back/quit action.
type ExitRequested struct{ At time.Time }

// ExitConfirmed answers yes to the host exit prompt.
type ExitConfirmed struct{ At time.Time }

// ExitCanceled answers no to the host exit prompt.
type ExitCanceled struct{}

// Teardown releases everything; sent when the screen goes away.
type Teardown struct{ At time.Time }

func (Connect) event()        {}
func (Opened) event()         {}
func (Closed) event()         {}
func (ToggleRecord) event()   {}
func (CaptureStarted) event() {}
func (CaptureFailed) event()  {}
func (Received) event()       {}
func (HistoryLoaded) event()  {}
func (RoomLoaded) event()     {}
func (FetchFailed) event()    {}
func (ExitRequested) event()  {}
func (ExitConfirmed) event()  {}
func (ExitCanceled) event()   {}
func (Teardown) event()       {}

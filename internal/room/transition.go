package room

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Clang-dev/clang-tui/internal/stream"
)

// Transition applies ev to s. It returns the next state and the effects to
// perform, in order.
func Transition(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Connect:
		return s.connect()
	case Opened:
		return s.opened()
	case Closed:
		return s.closed(ev)
	case ToggleRecord:
		return s.toggle(ev)
	case CaptureStarted:
		if s.Phase == Speaking {
			s.Status = StatusRecording
		}
		return s, nil
	case CaptureFailed:
		return s.captureFailed(ev)
	case Received:
		return s.received(ev)
	case HistoryLoaded:
		lines := make([]Line, 0, len(ev.Lines)+len(s.Lines))
		lines = append(lines, ev.Lines...)
		s.Lines = append(lines, s.Lines...)
		return s, nil
	case RoomLoaded:
		if ev.Name != "" {
			s.RoomName = ev.Name
		}
		s.HostID = ev.HostID
		return s, nil
	case FetchFailed:
		s.Notice = fmt.Sprintf("Could not load %s.", ev.What)
		return s, []Effect{Alert{Message: s.Notice}}
	case ExitRequested:
		if s.ExitPending {
			return s, nil
		}
		if !s.CanExit() {
			s.ExitPending = true
			return s, nil
		}
		return s.leave(ev.At)
	case ExitConfirmed:
		if !s.ExitPending {
			return s, nil
		}
		return s.leave(ev.At)
	case ExitCanceled:
		s.ExitPending = false
		return s, nil
	case Teardown:
		return s.teardown(ev.At)
	}
	return s, nil
}

func (s State) connect() (State, []Effect) {
	switch s.Phase {
	case Idle, Disconnected:
		s.Phase = Connecting
		s.Status = StatusConnecting
		s.Notice = ""
		return s, []Effect{OpenConn{}}
	}
	return s, nil
}

func (s State) opened() (State, []Effect) {
	if s.Phase != Connecting {
		// The dial finished after the session moved on.
		return s, []Effect{CloseConn{}}
	}
	s.Phase = Connected
	s.Status = StatusReady
	if !s.AutoRequest {
		return s, nil
	}
	s.AutoRequest = false
	if s.FloorTaken() {
		s.TurnID = ""
		s.Status = speakingStatus(s.FloorName)
		return s, nil
	}
	return s.request()
}

func (s State) request() (State, []Effect) {
	s.Phase = Requesting
	s.Status = StatusRequesting
	return s, []Effect{Send{Env: stream.RequestSpeaker()}}
}

func (s State) closed(ev Closed) (State, []Effect) {
	switch s.Phase {
	case Idle, Disconnected, Terminated:
		return s, nil
	}

	var fx []Effect
	if s.Phase == Speaking {
		fx = append(fx, StopCapture{})
		fx = append(fx, s.finalizeOwn(ev.At, false)...)
	}
	fx = append(fx, CloseConn{})

	s.Phase = Disconnected
	s.Floor, s.FloorName = "", ""
	s.Live = nil
	s.AutoRequest = false
	s.TurnID = ""
	if ev.Err != nil {
		s.Status = StatusConnError
	} else {
		s.Status = StatusIdle
	}
	return s, fx
}

func (s State) toggle(ev ToggleRecord) (State, []Effect) {
	if s.ExitPending {
		return s, nil
	}
	switch s.Phase {
	case Speaking:
		return s.stopSpeaking(ev.At, true)
	case Connected:
		if s.FloorTaken() {
			return s, nil
		}
		s.TurnID = ev.Turn
		return s.request()
	case Idle, Disconnected:
		if s.FloorTaken() {
			return s, nil
		}
		s.AutoRequest = true
		s.TurnID = ev.Turn
		return s.connect()
	}
	// Connecting and Requesting are in flight; Terminated is final.
	return s, nil
}

// stopSpeaking ends this user's turn. release sends release_speaker; it is
// false when the backend already took the floor away.
func (s State) stopSpeaking(at time.Time, release bool) (State, []Effect) {
	fx := []Effect{StopCapture{}}
	if release {
		fx = append(fx, Send{Env: stream.ReleaseSpeaker()})
	}
	fx = append(fx, s.finalizeOwn(at, true)...)

	s.Phase = Connected
	s.Status = StatusReady
	if s.HoldsFloor() {
		s.Floor, s.FloorName = "", ""
	}
	s.TurnID = ""
	return s, fx
}

func (s State) captureFailed(ev CaptureFailed) (State, []Effect) {
	if s.Phase != Speaking {
		return s, nil
	}
	s, fx := s.stopSpeaking(ev.At, true)
	s.Status = StatusCaptureFailed
	return s, fx
}

// finalizeOwn turns this user's live text into one line. Empty text produces
// nothing. broadcast also sends transcription_final to the room.
func (s *State) finalizeOwn(at time.Time, broadcast bool) []Effect {
	live, ok := s.LiveFor(s.UserID)
	if !ok {
		return nil
	}
	text := strings.TrimSpace(live.Text)
	if text == "" {
		s.Live = withoutLive(s.Live, s.UserID)
		return nil
	}

	turn := live.TurnID
	if turn == "" {
		turn = s.TurnID
	}
	if s.isFinalized(turn) {
		turn = fmt.Sprintf("%s/%d", turn, len(s.Lines))
	}
	line := Line{
		SpeakerID:   s.UserID,
		SpeakerName: s.UserName,
		Text:        text,
		CreatedAt:   at,
		TurnID:      turn,
	}
	s.appendLine(line)
	s.markFinalized(turn)
	s.Live = withoutLive(s.Live, s.UserID)

	fx := []Effect{Persist{Line: line}}
	if broadcast {
		fx = append(fx, Send{Env: stream.Envelope{
			Type:        stream.TypeTranscriptionFinal,
			Text:        text,
			SpeakerID:   s.UserID,
			SpeakerName: s.UserName,
			TurnID:      turn,
			CreatedAt:   at.UTC().Format(time.RFC3339Nano),
		}})
	}
	return fx
}

func (s State) received(ev Received) (State, []Effect) {
	switch s.Phase {
	case Idle, Disconnected, Terminated:
		return s, nil
	}

	env := ev.Env
	switch env.Type {
	case stream.TypeRoomJoined:
		if n := env.Count(); n >= 0 {
			s.Participants = n
		}
		if env.CurrentSpeaker != "" {
			return s.floorTaken(env.CurrentSpeaker, env.CurrentSpeakerName, ev.At)
		}
		return s, nil

	case stream.TypeParticipantJoined, stream.TypeParticipantLeft:
		if n := env.Count(); n >= 0 {
			s.Participants = n
		}
		return s, nil

	case stream.TypeSpeakerGranted:
		speaker := first(env.SpeakerID, env.CurrentSpeaker)
		if speaker != "" && speaker != s.UserID {
			return s.floorTaken(speaker, first(env.SpeakerName, env.CurrentSpeakerName), ev.At)
		}
		switch s.Phase {
		case Requesting:
			s.Phase = Speaking
			s.Floor, s.FloorName = s.UserID, s.UserName
			s.Status = StatusStarting
			s.Live = append(withoutLive(s.Live, s.UserID), LiveLine{
				SpeakerID:   s.UserID,
				SpeakerName: s.UserName,
				TurnID:      s.TurnID,
			})
			return s, []Effect{StartCapture{}}
		case Speaking:
			return s, nil
		default:
			// Granted after we stopped wanting it.
			return s, []Effect{Send{Env: stream.ReleaseSpeaker()}}
		}

	case stream.TypeSpeakerDenied:
		if s.Phase == Requesting {
			s.Phase = Connected
			s.TurnID = ""
			s.Status = first(env.Message, StatusDenied)
		}
		if env.CurrentSpeaker != "" && env.CurrentSpeaker != s.UserID {
			s.Floor = env.CurrentSpeaker
			s.FloorName = env.CurrentSpeakerName
		}
		return s, nil

	case stream.TypeSpeakerChanged:
		speaker := first(env.CurrentSpeaker, env.SpeakerID)
		name := first(env.CurrentSpeakerName, env.SpeakerName)
		switch speaker {
		case "":
			return s.floorReleased("", ev.At)
		case s.UserID:
			s.Floor, s.FloorName = s.UserID, s.UserName
			return s, nil
		}
		return s.floorTaken(speaker, name, ev.At)

	case stream.TypeSpeakerReleased:
		return s.floorReleased(env.SpeakerID, ev.At)

	case stream.TypeTranscription:
		return s.transcription(env), nil

	case stream.TypeTranscriptionFinal:
		return s.final(env, ev.At)

	case stream.TypeRoomClosing:
		var fx []Effect
		if s.Phase == Speaking {
			fx = append(fx, StopCapture{})
			fx = append(fx, s.finalizeOwn(ev.At, false)...)
		}
		s.Phase = Terminated
		s.Notice = first(env.Message, StatusClosing)
		s.Status = s.Notice
		s.Floor, s.FloorName = "", ""
		s.Live = nil
		s.TurnID = ""
		s.AutoRequest = false
		s.ExitPending = false
		return s, append(fx, CloseConn{}, Alert{Message: s.Notice}, Leave{After: s.ClosingDelay})

	case stream.TypeError:
		s.Status = first(env.Message, "Server error.")
		if s.Phase == Requesting {
			s.Phase = Connected
			s.TurnID = ""
		}
		return s, nil
	}
	return s, nil
}

// floorTaken records that speaker holds the floor. If this user was speaking,
// the turn ends without a release since the floor is already gone.
func (s State) floorTaken(speaker, name string, at time.Time) (State, []Effect) {
	if speaker == s.UserID {
		s.Floor, s.FloorName = s.UserID, s.UserName
		return s, nil
	}
	var fx []Effect
	if s.Phase == Speaking {
		s, fx = s.stopSpeaking(at, false)
	}
	if s.Floor != "" && s.Floor != speaker && s.Floor != s.UserID {
		s.Live = withoutLive(s.Live, s.Floor)
	}
	s.Floor, s.FloorName = speaker, name
	return s, fx
}

func (s State) floorReleased(speaker string, at time.Time) (State, []Effect) {
	if s.Phase == Speaking && (speaker == "" || speaker == s.UserID) {
		return s.stopSpeaking(at, false)
	}
	// A turn that ends without a final leaves no live text behind.
	switch {
	case speaker == "":
		s.Live = onlyLive(s.Live, s.UserID)
	case speaker != s.UserID:
		s.Live = withoutLive(s.Live, speaker)
	}
	if speaker == "" || speaker == s.Floor {
		s.Floor, s.FloorName = "", ""
	}
	return s, nil
}

func (s State) transcription(env stream.Envelope) State {
	speaker := first(env.SpeakerID, s.Floor)
	text := strings.TrimSpace(env.Text)
	if speaker == "" || text == "" {
		return s
	}
	if env.TurnID != "" && s.isFinalized(env.TurnID) {
		return s
	}
	// Trailing text for a turn this user already ended.
	if speaker == s.UserID && s.Phase != Speaking {
		return s
	}

	live, ok := s.LiveFor(speaker)
	if ok && speaker != s.UserID && env.TurnID != "" && env.TurnID != live.TurnID {
		ok = false
	}
	if !ok {
		live = LiveLine{SpeakerID: speaker, TurnID: env.TurnID}
		if speaker == s.Floor {
			live.SpeakerName = s.FloorName
		}
	}
	if env.SpeakerName != "" {
		live.SpeakerName = env.SpeakerName
	}
	if live.Text != "" {
		live.Text += " "
	}
	live.Text += text
	s.Live = withLive(s.Live, live)
	return s
}

func (s State) final(env stream.Envelope, at time.Time) (State, []Effect) {
	speaker := first(env.SpeakerID, s.Floor)
	if env.TurnID != "" && s.isFinalized(env.TurnID) {
		return s, nil
	}

	live, _ := s.LiveFor(speaker)
	s.Live = withoutLive(s.Live, speaker)

	text := strings.TrimSpace(first(env.Text, live.Text))
	if text == "" {
		return s, nil
	}
	name := first(env.SpeakerName, live.SpeakerName)
	if speaker == s.UserID {
		name = first(name, s.UserName)
	}
	line := Line{
		SpeakerID:   speaker,
		SpeakerName: name,
		Text:        text,
		CreatedAt:   parseTime(env.CreatedAt, at),
		TurnID:      first(env.TurnID, live.TurnID),
	}
	s.appendLine(line)
	s.markFinalized(line.TurnID)

	if speaker == s.UserID {
		return s, []Effect{Persist{Line: line}}
	}
	return s, nil
}

func (s State) leave(at time.Time) (State, []Effect) {
	s, fx := s.teardown(at)
	return s, append(fx, Leave{})
}

// teardown always stops capture and closes the connection, whether or not
// either was ever acquired.
func (s State) teardown(at time.Time) (State, []Effect) {
	fx := []Effect{StopCapture{}}
	if s.Phase == Speaking {
		fx = append(fx, Send{Env: stream.ReleaseSpeaker()})
		fx = append(fx, s.finalizeOwn(at, true)...)
	}
	fx = append(fx, CloseConn{})

	s.Phase = Idle
	s.Status = StatusIdle
	s.Floor, s.FloorName = "", ""
	s.Live = nil
	s.TurnID = ""
	s.AutoRequest = false
	s.ExitPending = false
	return s, fx
}

func (s *State) appendLine(l Line) {
	s.Lines = append(slices.Clip(s.Lines), l)
}

func (s *State) markFinalized(turn string) {
	if turn == "" {
		return
	}
	m := maps.Clone(s.finalized)
	if m == nil {
		m = make(map[string]struct{})
	}
	m[turn] = struct{}{}
	s.finalized = m
}

func (s State) isFinalized(turn string) bool {
	_, ok := s.finalized[turn]
	return ok
}

func withoutLive(live []LiveLine, speaker string) []LiveLine {
	out := make([]LiveLine, 0, len(live))
	for _, l := range live {
		if l.SpeakerID != speaker {
			out = append(out, l)
		}
	}
	return out
}

// withLive replaces the line for l.SpeakerID, or appends it.
func onlyLive(live []LiveLine, speaker string) []LiveLine {
	out := make([]LiveLine, 0, 1)
	for _, l := range live {
		if l.SpeakerID == speaker {
			out = append(out, l)
		}
	}
	return out
}

func withLive(live []LiveLine, l LiveLine) []LiveLine {
	out := slices.Clone(live)
	for i := range out {
		if out[i].SpeakerID == l.SpeakerID {
			out[i] = l
			return out
		}
	}
	return append(out, l)
}

func speakingStatus(name string) string {
	if name == "" {
		return StatusDenied
	}
	return name + " is speaking."
}

func parseTime(v string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return fallback
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

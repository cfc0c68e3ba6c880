package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/logging"
	"github.com/Clang-dev/clang-tui/internal/room"
	"github.com/Clang-dev/clang-tui/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var errCaptureEnded = errors.New("microphone stopped unexpectedly")

const forwardDrainTimeout = time.Second

// roomScreen drives one room visit. State changes go through room.Transition;
// the screen only performs the effects it returns. It is held by pointer so
// the socket and recorder stay shared across model copies.
type roomScreen struct {
	deps  Deps
	log   *log.Logger
	seq   *int
	visit int
	state room.State

	ctx    context.Context
	cancel context.CancelFunc

	conn    Conn
	gen     int
	rec     Recorder
	capture int
	forward *audioForward

	viewport viewport.Model
	follow   bool
	width    int
	height   int

	// saveErr is the last failed transcript save, shown under the transcript.
	saveErr string
	left    bool
	closed  bool
}

func newRoomScreen(d Deps, seq *int, roomID, name string, u *api.User) *roomScreen {
	ctx, cancel := context.WithCancel(context.Background())
	st := room.New(roomID, name, u.UID, u.Username)
	if d.ClosingDelay > 0 {
		st.ClosingDelay = d.ClosingDelay
	}
	r := &roomScreen{
		deps:     d,
		log:      d.Logger.WithPrefix(logging.PrefixRoom).With("room", roomID),
		seq:      seq,
		state:    st,
		ctx:      ctx,
		cancel:   cancel,
		rec:      d.NewRecorder(),
		viewport: viewport.New(80, 10),
		follow:   true,
	}
	r.visit = r.next()
	return r
}

func (r *roomScreen) next() int {
	*r.seq++
	return *r.seq
}

// start opens the connection for the visit.
func (r *roomScreen) start() tea.Cmd {
	return tea.Batch(r.apply(room.Connect{})...)
}

// shutdown tears the visit down. It is safe to call more than once. The
// returned commands save any line finalized by the teardown.
func (r *roomScreen) shutdown() []tea.Cmd {
	if r.closed {
		return nil
	}
	cmds := r.apply(room.Teardown{At: r.deps.Now()})
	r.closed = true
	r.cancel()
	r.log.Info("left room")
	return cmds
}

// apply runs ev through the state machine and performs the effects. Effects
// that report back synchronously, like a capture start, are fed in as
// further events before returning.
func (r *roomScreen) apply(ev room.Event) []tea.Cmd {
	var cmds []tea.Cmd
	queue := []room.Event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		before := r.state.Phase
		next, effects := room.Transition(r.state, ev)
		r.state = next
		if before != next.Phase {
			r.log.Debug("phase", "from", before, "to", next.Phase, "event", fmt.Sprintf("%T", ev))
		}

		for _, e := range effects {
			switch e := e.(type) {
			case room.OpenConn:
				r.gen = r.next()
				cmds = append(cmds, dialCmd(r.ctx, r.deps.Dial, r.state.RoomID, r.state.UserID, r.gen))
			case room.CloseConn:
				r.closeConn()
			case room.Send:
				r.send(e)
			case room.StartCapture:
				audio, err := r.rec.Start(r.ctx)
				if err != nil {
					r.log.Error("start capture", "err", err)
					queue = append(queue, room.CaptureFailed{Err: err, At: r.deps.Now()})
					continue
				}
				r.capture = r.next()
				r.forward = newAudioForward()
				queue = append(queue, room.CaptureStarted{})
				cmds = append(cmds, forwardAudioCmd(r.conn, audio, r.forward, r.capture, r.log))
			case room.StopCapture:
				if err := r.rec.Stop(); err != nil {
					r.log.Warn("stop capture", "err", err)
				}
				// The last slice goes out before anything that follows the stop,
				// such as release_speaker.
				if !r.forward.wait(forwardDrainTimeout) {
					r.log.Warn("audio still sending after stop")
				}
				r.forward = nil
			case room.Persist:
				cmds = append(cmds, persistCmd(r.deps, r.state.RoomID, e.Line.Text))
			case room.Leave:
				if e.After <= 0 {
					r.left = true
				} else {
					cmds = append(cmds, leaveAfterCmd(e.After, r.visit))
				}
			case room.Alert:
				r.log.Warn(e.Message)
			}
		}
	}
	r.refresh()
	return cmds
}

func (r *roomScreen) send(e room.Send) {
	if r.conn == nil {
		r.log.Debug("dropping envelope without a connection", "type", e.Env.Type)
		return
	}
	if err := r.conn.Send(e.Env); err != nil {
		r.log.Warn("send envelope", "type", e.Env.Type, "err", err)
	}
}

// closeConn closes the socket and retires its generation so the read loop's
// final message is ignored.
func (r *roomScreen) closeConn() {
	if r.conn == nil {
		return
	}
	if err := r.conn.Close(); err != nil {
		r.log.Debug("close connection", "err", err)
	}
	r.conn = nil
	r.gen = r.next()
}

func (r *roomScreen) update(msg tea.Msg) tea.Cmd {
	if r.closed {
		if opened, ok := msg.(ConnOpenedMsg); ok {
			opened.Conn.Close()
		}
		return nil
	}
	now := r.deps.Now()

	switch msg := msg.(type) {
	case SnapshotMsg:
		if msg.Visit != r.visit || msg.RoomID != r.state.RoomID {
			r.log.Debug("dropping stale snapshot", "room", msg.RoomID, "visit", msg.Visit)
			return nil
		}
		return tea.Batch(r.snapshot(msg.Snapshot)...)

	case ConnOpenedMsg:
		if msg.Gen != r.gen || r.state.Phase != room.Connecting {
			r.log.Debug("closing late connection", "gen", msg.Gen)
			msg.Conn.Close()
			return nil
		}
		r.conn = msg.Conn
		r.log.Info("connected")
		cmds := r.apply(room.Opened{})
		return tea.Batch(append(cmds, readEnvelopeCmd(msg.Conn, msg.Gen))...)

	case ConnFailedMsg:
		if msg.Gen != r.gen {
			return nil
		}
		r.log.Warn("connect", "err", msg.Err)
		return tea.Batch(r.apply(room.Closed{Err: msg.Err, At: now})...)

	case EnvelopeMsg:
		if msg.Gen != r.gen || r.conn == nil {
			return nil
		}
		conn := r.conn
		cmds := r.apply(room.Received{Env: msg.Env, At: now})
		if r.conn == conn && msg.Gen == r.gen {
			cmds = append(cmds, readEnvelopeCmd(conn, msg.Gen))
		}
		return tea.Batch(cmds...)

	case ConnClosedMsg:
		if msg.Gen != r.gen {
			return nil
		}
		if msg.Err != nil {
			r.log.Warn("connection lost", "err", msg.Err)
		} else {
			r.log.Info("connection closed")
		}
		return tea.Batch(r.apply(room.Closed{Err: msg.Err, At: now})...)

	case AudioDoneMsg:
		if msg.Capture != r.capture || r.state.Phase != room.Speaking {
			return nil
		}
		err := r.rec.Err()
		if err == nil {
			err = errCaptureEnded
		}
		r.log.Error("capture ended while speaking", "err", err)
		return tea.Batch(r.apply(room.CaptureFailed{Err: err, At: now})...)

	case PersistDoneMsg:
		if msg.Err != nil {
			r.log.Error("save transcript line", "err", msg.Err)
			r.saveErr = "Could not save the last line: " + api.Message(msg.Err)
		} else {
			r.saveErr = ""
		}
		return nil
	}
	return nil
}

func (r *roomScreen) snapshot(s api.Snapshot) []tea.Cmd {
	var cmds []tea.Cmd
	if s.RoomErr != nil {
		r.log.Warn("fetch room", "err", s.RoomErr)
		cmds = append(cmds, r.apply(room.FetchFailed{What: "room details", Err: s.RoomErr})...)
	} else if s.Room != nil {
		cmds = append(cmds, r.apply(room.RoomLoaded{Name: s.Room.Name, HostID: s.Room.CreatedBy})...)
	}
	if s.HistoryErr != nil {
		r.log.Warn("fetch transcript", "err", s.HistoryErr)
		cmds = append(cmds, r.apply(room.FetchFailed{What: "transcript history", Err: s.HistoryErr})...)
	} else {
		cmds = append(cmds, r.apply(room.HistoryLoaded{Lines: historyLines(s.History)})...)
	}
	return cmds
}

func historyLines(entries []api.TranscriptEntry) []room.Line {
	lines := make([]room.Line, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		lines = append(lines, room.Line{
			SpeakerID:   e.SpeakerID(),
			SpeakerName: e.Username,
			Text:        e.Text,
			CreatedAt:   e.CreatedAt.Time,
		})
	}
	return lines
}

func (r *roomScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	now := r.deps.Now()
	key := msg.String()

	if r.state.ExitPending {
		switch key {
		case KeyYes, "Y", KeyEnter:
			return tea.Batch(r.apply(room.ExitConfirmed{At: now})...)
		case KeyNo, "N", KeyEsc:
			return tea.Batch(r.apply(room.ExitCanceled{})...)
		}
		return nil
	}

	switch key {
	case KeySpace:
		if !r.state.CanRecord() {
			return nil
		}
		return tea.Batch(r.apply(room.ToggleRecord{At: now, Turn: r.deps.NewTurnID()})...)

	case KeyEsc, KeyQuit, KeyQuitUpper, KeyCtrlC:
		return tea.Batch(r.apply(room.ExitRequested{At: now})...)

	case KeyEnd:
		r.follow = true
		r.viewport.GotoBottom()
		return nil

	case KeyUp, KeyDown, KeyPgUp, KeyPgDown, KeyJ, KeyK:
		var cmd tea.Cmd
		r.viewport, cmd = r.viewport.Update(msg)
		r.follow = r.viewport.AtBottom()
		return cmd
	}
	return nil
}

func (r *roomScreen) resize(width, height int) {
	r.width = width
	r.height = height
	r.viewport.Width = max(20, width)
	r.refresh()
}

// refresh re-renders the transcript into the viewport.
func (r *roomScreen) refresh() {
	if r.height > 0 {
		// header, status, two dividers, notice line, footer
		reserved := 6
		if r.state.ExitPending {
			reserved += 3
		}
		r.viewport.Height = max(3, r.height-reserved)
	}
	r.viewport.SetContent(r.renderTranscript(r.viewport.Width))
	if r.follow {
		r.viewport.GotoBottom()
	}
}

func (r *roomScreen) view() string {
	var sections []string

	sections = append(sections, r.renderHeader())
	sections = append(sections, r.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", r.width)))
	sections = append(sections, r.viewport.View())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", r.width)))
	sections = append(sections, r.renderNotice())
	if r.state.ExitPending {
		sections = append(sections, ui.PromptStyle.Render("Leaving ends this room for everyone. Leave? (y/n)"))
	}
	sections = append(sections, r.renderFooter())

	return strings.Join(sections, "\n")
}

func (r *roomScreen) renderHeader() string {
	title := ui.TitleStyle.Render("CLANG") + " " + ui.LabelStyle.Render(r.state.RoomName)
	if r.state.IsHost() {
		title += " " + ui.HostBadgeStyle.Render("HOST")
	}
	if n := r.state.Participants; n > 0 {
		noun := "participants"
		if n == 1 {
			noun = "participant"
		}
		title += ui.DimStyle.Render(fmt.Sprintf(" · %d %s", n, noun))
	}
	return title
}

func (r *roomScreen) renderStatusBar() string {
	var dot string
	switch r.state.Phase {
	case room.Speaking:
		dot = ui.RecordingDotStyle.Render("● REC")
	case room.Connected, room.Requesting:
		dot = ui.ConnectedDotStyle.Render("● LIVE")
	default:
		dot = ui.IdleDotStyle.Render("○ OFF")
	}

	var badge string
	if r.follow {
		badge = ui.FollowBadgeStyle.Render(" FOLLOW")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}

	line := dot + badge + "  " + ui.StatusStyle.Render(r.state.Status)
	if r.state.FloorTaken() && r.state.Phase != room.Terminated {
		name := r.state.FloorName
		if name == "" {
			name = "Someone"
		}
		line += ui.DimStyle.Render("  · " + name + " has the floor")
	}
	return line
}

func (r *roomScreen) renderNotice() string {
	var parts []string
	if r.state.Notice != "" {
		parts = append(parts, ui.NoticeStyle.Render(r.state.Notice))
	}
	if r.saveErr != "" {
		parts = append(parts, ui.ErrorTextStyle.Render(r.saveErr))
	}
	return strings.Join(parts, "  ")
}

func (r *roomScreen) renderFooter() string {
	if r.state.ExitPending {
		return renderKeys("y", "End room", "n", "Stay")
	}

	var record string
	switch {
	case r.state.Phase == room.Speaking:
		record = ui.FooterKeyStyle.Render("Space") + ui.FooterDescStyle.Render(" Stop")
	case r.state.CanRecord():
		record = ui.FooterKeyStyle.Render("Space") + ui.FooterDescStyle.Render(" Speak")
	default:
		record = ui.FooterKeyDisabledStyle.Render("Space") + ui.FooterDescStyle.Render(" Speak")
	}
	return record + "  " + renderKeys("↑↓", "Scroll", "G", "Follow", "esc", "Leave")
}

// renderTranscript lays out finalized lines then live lines, wrapping text
// under its speaker tag.
func (r *roomScreen) renderTranscript(width int) string {
	if len(r.state.Lines) == 0 && len(r.state.Live) == 0 {
		return ui.DimStyle.Render("  No transcript yet. Press Space to speak.")
	}

	var out []string
	add := func(prefix, text string, style func(string) string) {
		indent := strings.Repeat(" ", lipgloss.Width(prefix))
		wrapped := wrapText(text, max(10, width-lipgloss.Width(prefix)-2))
		out = append(out, "  "+prefix+style(wrapped[0]))
		for _, wl := range wrapped[1:] {
			out = append(out, "  "+indent+style(wl))
		}
	}
	plain := func(s string) string { return s }
	partial := func(s string) string { return ui.PartialTextStyle.Render(s) }

	for _, l := range r.state.Lines {
		ts := strings.Repeat(" ", 10)
		if !l.CreatedAt.IsZero() {
			ts = ui.TimestampStyle.Render(l.CreatedAt.Local().Format("[15:04:05]"))
		}
		tag := ui.SpeakerStyle(l.SpeakerID != "" && l.SpeakerID == r.state.UserID).Render(speakerName(l.SpeakerName) + ":")
		add(ts+" "+tag+" ", l.Text, plain)
	}
	for _, l := range r.state.Live {
		ts := ui.PartialTextStyle.Render("[  live  ]")
		tag := ui.SpeakerStyle(l.SpeakerID == r.state.UserID).Render(speakerName(l.SpeakerName) + ":")
		add(ts+" "+tag+" ", l.Text+"▌", partial)
	}
	return strings.Join(out, "\n")
}

func speakerName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

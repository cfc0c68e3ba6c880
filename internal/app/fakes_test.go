package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/session"
	"github.com/Clang-dev/clang-tui/internal/stream"

	tea "github.com/charmbracelet/bubbletea"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu sync.Mutex

	me        *api.User
	loginUser *api.User
	loginErr  error
	logins    int
	logouts   int

	rooms    []api.Room
	roomsErr error

	created     *api.Room
	createErr   error
	createdWith [][2]string

	snapshot api.Snapshot
	posted   []string
	postErr  error
}

func (f *fakeBackend) Me(ctx context.Context) (*api.User, error) {
	if f.me == nil {
		return nil, api.ErrUnauthenticated
	}
	return f.me, nil
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginUser, f.loginErr
}

func (f *fakeBackend) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeBackend) ActiveRooms(ctx context.Context) ([]api.Room, error) {
	return f.rooms, f.roomsErr
}

func (f *fakeBackend) CreateRoom(ctx context.Context, name, language string) (*api.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdWith = append(f.createdWith, [2]string{name, language})
	return f.created, f.createErr
}

func (f *fakeBackend) RoomSnapshot(ctx context.Context, roomID string) api.Snapshot {
	return f.snapshot
}

func (f *fakeBackend) PostTranscript(ctx context.Context, roomID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, text)
	return f.postErr
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []stream.Envelope
	audio  [][]byte
	closes int
	inbox  chan stream.Envelope
	// order records envelope types and "audio" in write order.
	order []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan stream.Envelope, 16)}
}

func (c *fakeConn) Send(env stream.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	c.order = append(c.order, env.Type)
	return nil
}

func (c *fakeConn) SendAudio(slice []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = append(c.audio, slice)
	c.order = append(c.order, "audio")
	return nil
}

func (c *fakeConn) ReadEnvelope() (stream.Envelope, error) {
	env, ok := <-c.inbox
	if !ok {
		return stream.Envelope{}, stream.ErrClosed
	}
	return env, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeConn) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.sent {
		out = append(out, e.Type)
	}
	return out
}

type fakeRecorder struct {
	starts   int
	stops    int
	startErr error
	err      error
	audio    chan []byte
	// tail is emitted as the last slice when the capture stops.
	tail []byte
}

func (r *fakeRecorder) Start(ctx context.Context) (<-chan []byte, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.starts++
	r.audio = make(chan []byte, 4)
	return r.audio, nil
}

func (r *fakeRecorder) Stop() error {
	r.stops++
	if r.audio != nil {
		if r.tail != nil {
			r.audio <- r.tail
		}
		close(r.audio)
		r.audio = nil
	}
	return nil
}

func (r *fakeRecorder) Err() error {
	return r.err
}

type fixture struct {
	backend *fakeBackend
	rec     *fakeRecorder
	dials   int
}

var alice = &api.User{UID: "u-alice", Username: "Alice", Email: "alice@kaist.ac.kr"}

// newTestModel builds a sized model whose session resolved to user, which may
// be nil.
func newTestModel(t *testing.T, user *api.User) (Model, *fixture) {
	t.Helper()
	f := &fixture{backend: &fakeBackend{me: user}, rec: &fakeRecorder{}}

	p := session.NewProvider(f.backend, nil)
	p.Init(context.Background())

	turns := 0
	m := New(Deps{
		Backend: f.backend,
		Session: p,
		Dial: func(ctx context.Context, roomID, userID string) (Conn, error) {
			f.dials++
			return nil, errors.New("dial not wired in tests")
		},
		NewRecorder:  func() Recorder { return f.rec },
		ClosingDelay: 10 * time.Millisecond,
		Now:          func() time.Time { return t0 },
		NewTurnID: func() string {
			turns++
			return fmt.Sprintf("turn-%d", turns)
		},
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(m, SessionReadyMsg{})
	return m, f
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case KeyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case KeyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case KeyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case KeyCtrlC:
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case KeyUp:
		return tea.KeyMsg{Type: tea.KeyUp}
	case KeyDown:
		return tea.KeyMsg{Type: tea.KeyDown}
	case KeyLeft:
		return tea.KeyMsg{Type: tea.KeyLeft}
	case KeyRight:
		return tea.KeyMsg{Type: tea.KeyRight}
	case KeyShiftTab:
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// messages runs cmd and any batch it expands to, returning the messages. Only
// use it on commands that do not block.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, messages(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

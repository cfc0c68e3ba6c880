package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/logging"
	"github.com/Clang-dev/clang-tui/internal/session"
	"github.com/Clang-dev/clang-tui/internal/stream"
	"github.com/Clang-dev/clang-tui/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Route names a screen.
type Route int

const (
	RouteLogin Route = iota
	RouteHome
	RouteRooms
	RouteNoRoom
	RouteCreate
	RouteRoom
)

func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "login"
	case RouteHome:
		return "home"
	case RouteRooms:
		return "rooms"
	case RouteNoRoom:
		return "no-room"
	case RouteCreate:
		return "create-room"
	case RouteRoom:
		return "room"
	default:
		return "unknown"
	}
}

// Protected reports whether the route needs a logged-in user.
func (r Route) Protected() bool {
	return r != RouteLogin
}

// Backend is the REST surface the screens use. *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.User, error)
	Logout() error
	ActiveRooms(ctx context.Context) ([]api.Room, error)
	CreateRoom(ctx context.Context, name, language string) (*api.Room, error)
	RoomSnapshot(ctx context.Context, roomID string) api.Snapshot
	PostTranscript(ctx context.Context, roomID, text string) error
}

// Conn is a live room socket. *stream.Client implements it.
type Conn interface {
	Send(env stream.Envelope) error
	SendAudio(slice []byte) error
	ReadEnvelope() (stream.Envelope, error)
	Close() error
}

// Dialer opens the room socket for a user.
type Dialer func(ctx context.Context, roomID, userID string) (Conn, error)

// StreamDialer dials the transcription socket under base.
func StreamDialer(base string, opts stream.Options) Dialer {
	return func(ctx context.Context, roomID, userID string) (Conn, error) {
		c, err := stream.Dial(ctx, base, roomID, userID, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Recorder is the microphone. *capture.Recorder implements it.
type Recorder interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Stop() error
	Err() error
}

// Deps wires the model to the outside world.
type Deps struct {
	Backend     Backend
	Session     *session.Provider
	Dial        Dialer
	NewRecorder func() Recorder
	Logger      *log.Logger

	RequestTimeout time.Duration
	// ClosingDelay overrides how long the room-closing notice shows. Zero
	// keeps the default.
	ClosingDelay time.Duration

	Now       func() time.Time
	NewTurnID func() string
}

func (d Deps) withDefaults() Deps {
	d.Logger = logging.OrDiscard(d.Logger).WithPrefix(logging.PrefixApp)
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewTurnID == nil {
		d.NewTurnID = uuid.NewString
	}
	return d
}

func (d Deps) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.RequestTimeout)
}

// Model is the root bubbletea model. It routes between the screens and gates
// protected routes on the session.
type Model struct {
	deps Deps
	log  *log.Logger

	route   Route
	loading bool
	spinner spinner.Model

	login  loginScreen
	home   homeScreen
	rooms  roomsScreen
	create createScreen
	room   *roomScreen

	// seq hands out ids for room visits, dials, and captures. It is shared by
	// every copy of the model.
	seq *int

	width  int
	height int
}

// New creates the root model. The session is resolved by Init.
func New(deps Deps) Model {
	deps = deps.withDefaults()
	return Model{
		deps:    deps,
		log:     deps.Logger,
		route:   RouteLogin,
		loading: true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle)),
		login:   newLoginScreen(),
		create:  newCreateScreen(),
		seq:     new(int),
	}
}

// Init resolves the session and starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, initSessionCmd(m.deps))
}

// Route returns the current screen.
func (m Model) Route() Route {
	return m.route
}

// Shutdown tears down a live room visit. main calls it after the program
// exits so the microphone and socket never outlive the process. Pending
// transcript saves run synchronously.
func (m Model) Shutdown() {
	if m.room == nil {
		return
	}
	for _, cmd := range m.room.shutdown() {
		if cmd != nil {
			cmd()
		}
	}
}

// Update handles incoming messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.room != nil {
			m.room.resize(m.width, m.height)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionReadyMsg:
		m.loading = false
		if m.deps.Session.Authenticated() {
			return m.navigate(RouteHome)
		}
		return m.navigate(RouteLogin)

	case AuthExpiredMsg:
		return m.expire()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LoginResultMsg:
		m.login.submitting = false
		if msg.Err != nil {
			m.log.Warn("login failed", "err", msg.Err)
			m.login.err = api.Message(msg.Err)
			return m, nil
		}
		m.deps.Session.SetUser(msg.User)
		m.log.Info("logged in", "user", msg.User.UID)
		m.login = newLoginScreen()
		return m.navigate(RouteHome)

	case LogoutDoneMsg:
		if msg.Err != nil {
			m.log.Error("logout", "err", msg.Err)
		}
		m.deps.Session.SetUser(nil)
		m.home = homeScreen{}
		return m.navigate(RouteLogin)

	case RoomsLoadedMsg:
		return m.roomsLoaded(msg)

	case RoomCreatedMsg:
		m.create.submitting = false
		if msg.Err != nil {
			m.log.Warn("create room failed", "err", msg.Err)
			m.create.err = api.Message(msg.Err)
			return m, nil
		}
		m.log.Info("room created", "room", msg.Room.UID)
		m.create = newCreateScreen()
		return m.enterRoom(msg.Room.UID, msg.Room.Name)

	case LeaveRoomMsg:
		if m.room == nil || m.room.visit != msg.Visit {
			return m, nil
		}
		return m.navigate(RouteRooms)

	case SnapshotMsg, ConnOpenedMsg, ConnFailedMsg, EnvelopeMsg, ConnClosedMsg, AudioDoneMsg, PersistDoneMsg:
		if m.room == nil {
			if opened, ok := msg.(ConnOpenedMsg); ok {
				opened.Conn.Close()
			}
			return m, nil
		}
		return m.afterRoom(m.room.update(msg))
	}

	return m.updateInputs(msg)
}

// updateInputs forwards other messages, such as cursor blinks, to the focused
// text input.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case RouteLogin:
		i := m.login.focused
		m.login.inputs[i], cmd = m.login.inputs[i].Update(msg)
	case RouteCreate:
		m.create.name, cmd = m.create.name.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		switch msg.String() {
		case KeyCtrlC, KeyQuit, KeyQuitUpper:
			return m, tea.Quit
		}
		return m, nil
	}

	switch m.route {
	case RouteLogin:
		return m.loginKey(msg)
	case RouteHome:
		return m.homeKey(msg)
	case RouteRooms:
		return m.roomsKey(msg)
	case RouteNoRoom:
		return m.noRoomKey(msg)
	case RouteCreate:
		return m.createKey(msg)
	case RouteRoom:
		if m.room == nil {
			return m.navigate(RouteRooms)
		}
		return m.afterRoom(m.room.handleKey(msg))
	}
	return m, nil
}

// afterRoom follows a room screen update, leaving the room when it asked to.
func (m Model) afterRoom(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.room != nil && m.room.left {
		next, nav := m.navigate(RouteRooms)
		return next, tea.Batch(cmd, nav)
	}
	return m, cmd
}

// navigate switches screens. Protected routes without a user land on login.
// Leaving the room screen always tears the visit down.
func (m Model) navigate(to Route) (Model, tea.Cmd) {
	if to.Protected() && !m.deps.Session.Authenticated() {
		m.log.Debug("redirecting to login", "route", to)
		to = RouteLogin
	}

	var cmds []tea.Cmd
	if to != RouteRoom && m.room != nil {
		cmds = append(cmds, m.room.shutdown()...)
		m.room = nil
	}

	m.route = to
	switch to {
	case RouteLogin:
		cmds = append(cmds, m.login.focus())
	case RouteRooms:
		m.rooms.loading = true
		cmds = append(cmds, fetchRoomsCmd(m.deps))
	case RouteCreate:
		cmds = append(cmds, m.create.focus())
	}
	return m, tea.Batch(cmds...)
}

// enterRoom opens the room screen for id. name is shown until the room
// metadata arrives.
func (m Model) enterRoom(id, name string) (Model, tea.Cmd) {
	user := m.deps.Session.User()
	if user == nil {
		return m.navigate(RouteLogin)
	}
	var cmds []tea.Cmd
	if m.room != nil {
		cmds = append(cmds, m.room.shutdown()...)
	}

	r := newRoomScreen(m.deps, m.seq, id, name, user)
	r.resize(m.width, m.height)
	m.room = r
	m.route = RouteRoom
	m.log.Info("entering room", "room", id, "user", user.UID)
	cmds = append(cmds, snapshotCmd(m.deps, id, r.visit), r.start())
	return m, tea.Batch(cmds...)
}

// expire drops the session after the credentials were rejected.
func (m Model) expire() (Model, tea.Cmd) {
	m.log.Warn("session expired")
	m.deps.Session.SetUser(nil)
	m.login = newLoginScreen()
	m.login.err = api.Message(api.ErrUnauthenticated)
	return m.navigate(RouteLogin)
}

// View renders the current screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.loading {
		return m.spinner.View() + " " + ui.DimStyle.Render("Loading session...")
	}

	switch m.route {
	case RouteLogin:
		return m.viewLogin()
	case RouteHome:
		return m.viewHome()
	case RouteRooms:
		return m.viewRooms()
	case RouteNoRoom:
		return m.viewNoRoom()
	case RouteCreate:
		return m.viewCreate()
	case RouteRoom:
		if m.room != nil {
			return m.room.view()
		}
	}
	return ""
}

func (m Model) renderHeader(subtitle string) string {
	title := ui.TitleStyle.Render("CLANG")
	if subtitle != "" {
		title += ui.DimStyle.Render(" · " + subtitle)
	}
	if u := m.deps.Session.User(); u != nil {
		who := ui.DimStyle.Render(u.Username)
		return padRight(title, m.width-lipgloss.Width(who)) + who
	}
	return title
}

func (m Model) divider() string {
	return ui.DividerStyle.Render(strings.Repeat("─", m.width))
}

func renderKeys(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, ui.FooterKeyStyle.Render(pairs[i])+ui.FooterDescStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

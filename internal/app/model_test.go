package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/validate"
)

func TestViewWithoutSize(t *testing.T) {
	m := New(Deps{})
	view := m.View()
	if view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}

func TestSessionReadyRoutesByUser(t *testing.T) {
	m, _ := newTestModel(t, alice)
	if m.Route() != RouteHome {
		t.Errorf("route = %v, want home", m.Route())
	}
	if !strings.Contains(m.View(), "Welcome, Alice.") {
		t.Errorf("home view missing greeting:\n%s", m.View())
	}

	m, _ = newTestModel(t, nil)
	if m.Route() != RouteLogin {
		t.Errorf("route = %v, want login", m.Route())
	}
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	m, _ := newTestModel(t, nil)

	for _, r := range []Route{RouteHome, RouteRooms, RouteNoRoom, RouteCreate} {
		got, _ := m.navigate(r)
		if got.Route() != RouteLogin {
			t.Errorf("navigate(%v) route = %v, want login", r, got.Route())
		}
	}

	got, _ := m.enterRoom("r1", "Algebra II")
	if got.Route() != RouteLogin {
		t.Errorf("enterRoom route = %v, want login", got.Route())
	}
	if got.room != nil {
		t.Error("room screen opened without a user")
	}
}

func TestLoginValidationBlocksRequest(t *testing.T) {
	m, f := newTestModel(t, nil)

	m, _ = update(m, key(KeyEnter)) // to the password field
	if m.login.focused != loginPassword {
		t.Fatalf("focused = %d, want password", m.login.focused)
	}
	m, cmd := update(m, key(KeyEnter))
	if cmd != nil {
		t.Error("empty login should not issue a request")
	}
	if m.login.err != validate.ErrEmailRequired.Error() {
		t.Errorf("err = %q, want %q", m.login.err, validate.ErrEmailRequired.Error())
	}
	if f.backend.logins != 0 {
		t.Errorf("logins = %d, want 0", f.backend.logins)
	}
}

func TestLoginSubmitsAndGoesHome(t *testing.T) {
	m, f := newTestModel(t, nil)
	f.backend.loginUser = alice

	m.login.inputs[loginEmail].SetValue(" alice@kaist.ac.kr ")
	m.login.inputs[loginPassword].SetValue("secret1")
	m.login.focused = loginPassword

	m, cmd := update(m, key(KeyEnter))
	if !m.login.submitting {
		t.Error("login should be submitting")
	}
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want one login result", msgs)
	}
	if f.backend.logins != 1 {
		t.Errorf("logins = %d, want 1", f.backend.logins)
	}

	m, _ = update(m, msgs[0])
	if m.Route() != RouteHome {
		t.Errorf("route = %v, want home", m.Route())
	}
	if u := m.deps.Session.User(); u == nil || u.UID != alice.UID {
		t.Errorf("session user = %+v, want alice", u)
	}
}

func TestLoginErrorShowsDetail(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m.login.submitting = true

	m, _ = update(m, LoginResultMsg{Err: &api.Error{Status: 400, Detail: "Invalid credentials"}})
	if m.login.err != "Invalid credentials" {
		t.Errorf("err = %q, want backend detail", m.login.err)
	}
	if m.login.submitting {
		t.Error("still submitting after a result")
	}
	if m.Route() != RouteLogin {
		t.Errorf("route = %v, want login", m.Route())
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	m, f := newTestModel(t, alice)

	m, _ = update(m, key(KeyJ))
	m, _ = update(m, key(KeyJ))
	m, cmd := update(m, key(KeyEnter))
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want logout result", msgs)
	}
	if f.backend.logouts != 1 {
		t.Errorf("logouts = %d, want 1", f.backend.logouts)
	}

	m, _ = update(m, msgs[0])
	if m.Route() != RouteLogin {
		t.Errorf("route = %v, want login", m.Route())
	}
	if m.deps.Session.Authenticated() {
		t.Error("session still authenticated after logout")
	}
}

func TestEmptyDirectoryShowsNoRoom(t *testing.T) {
	m, _ := newTestModel(t, alice)

	m, cmd := m.navigate(RouteRooms)
	if !m.rooms.loading {
		t.Error("directory should be loading")
	}
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want rooms result", msgs)
	}

	m, _ = update(m, msgs[0])
	if m.Route() != RouteNoRoom {
		t.Errorf("route = %v, want no-room", m.Route())
	}
	if m.rooms.failed {
		t.Error("empty result flagged as a failure")
	}
}

func TestDirectoryFailureDegradesToEmpty(t *testing.T) {
	m, _ := newTestModel(t, alice)
	m, _ = m.navigate(RouteRooms)

	m, _ = update(m, RoomsLoadedMsg{Err: errors.New("connection refused")})
	if m.Route() != RouteNoRoom {
		t.Errorf("route = %v, want no-room", m.Route())
	}
	if !strings.Contains(m.View(), "last refresh failed") {
		t.Errorf("view missing failure hint:\n%s", m.View())
	}

	// Retry goes back to loading.
	m, cmd := update(m, key(KeyRefresh))
	if m.Route() != RouteRooms || !m.rooms.loading || cmd == nil {
		t.Errorf("retry route = %v loading = %v", m.Route(), m.rooms.loading)
	}
}

func TestDirectorySelectEntersRoom(t *testing.T) {
	m, _ := newTestModel(t, alice)
	m, _ = m.navigate(RouteRooms)
	m, _ = update(m, RoomsLoadedMsg{Rooms: []api.Room{
		{UID: "r1", Name: "Algebra II", Language: "en", CreatorName: "Bob"},
		{UID: "r2", Name: "Physics", Language: "ko"},
	}})
	if m.Route() != RouteRooms {
		t.Fatalf("route = %v, want rooms", m.Route())
	}
	view := m.View()
	for _, want := range []string{"Algebra II", "hosted by Bob", "Korean"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = update(m, key(KeyDown))
	m, cmd := update(m, key(KeyEnter))
	if m.Route() != RouteRoom {
		t.Fatalf("route = %v, want room", m.Route())
	}
	if cmd == nil {
		t.Error("entering a room should fetch and dial")
	}
	if m.room.state.RoomID != "r2" || m.room.state.RoomName != "Physics" {
		t.Errorf("room = %q %q, want r2 Physics", m.room.state.RoomID, m.room.state.RoomName)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	m, f := newTestModel(t, alice)
	m, _ = m.navigate(RouteCreate)

	m, cmd := update(m, key(KeyEnter))
	if cmd != nil {
		t.Error("blank name should not issue a request")
	}
	if m.create.err != validate.ErrRoomNameRequired.Error() {
		t.Errorf("err = %q", m.create.err)
	}

	m.create.name.SetValue(strings.Repeat("x", validate.MaxRoomNameLen+1))
	m, cmd = update(m, key(KeyEnter))
	if cmd != nil || m.create.err != validate.ErrRoomNameTooLong.Error() {
		t.Errorf("long name err = %q", m.create.err)
	}
	if len(f.backend.createdWith) != 0 {
		t.Errorf("created = %v, want none", f.backend.createdWith)
	}
}

func TestCreateRoomPostsNameAndLanguage(t *testing.T) {
	m, f := newTestModel(t, alice)
	f.backend.created = &api.Room{UID: "r9", Name: "Algebra II", Language: "en", CreatedBy: alice.UID}
	m, _ = m.navigate(RouteCreate)

	m.create.name.SetValue("  Algebra II ")
	m, cmd := update(m, key(KeyEnter))
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v, want create result", msgs)
	}
	want := [2]string{"Algebra II", "en"}
	if len(f.backend.createdWith) != 1 || f.backend.createdWith[0] != want {
		t.Errorf("created = %v, want %v", f.backend.createdWith, want)
	}

	m, _ = update(m, msgs[0])
	if m.Route() != RouteRoom || m.room.state.RoomID != "r9" {
		t.Errorf("route = %v, want room r9", m.Route())
	}
}

func TestCreateRoomLanguageToggle(t *testing.T) {
	m, f := newTestModel(t, alice)
	m, _ = m.navigate(RouteCreate)

	m, _ = update(m, key(KeyTab))
	if m.create.language().Tag != "ko" {
		t.Errorf("language = %q, want ko", m.create.language().Tag)
	}
	m.create.name.SetValue("Physics")
	_, cmd := update(m, key(KeyEnter))
	messages(cmd)
	if len(f.backend.createdWith) != 1 || f.backend.createdWith[0][1] != "ko" {
		t.Errorf("created = %v, want ko", f.backend.createdWith)
	}
}

func TestCreateRoomArrowsEditName(t *testing.T) {
	m, _ := newTestModel(t, alice)
	m, _ = m.navigate(RouteCreate)

	for _, r := range "Algebra" {
		m, _ = update(m, key(string(r)))
	}
	m, _ = update(m, key(KeyLeft))
	m, _ = update(m, key(KeyLeft))
	if got := m.create.name.Position(); got != len("Algebra")-2 {
		t.Errorf("cursor = %d, want %d", got, len("Algebra")-2)
	}
	if m.create.language().Tag != "en" {
		t.Errorf("language = %q after left, want en", m.create.language().Tag)
	}

	m, _ = update(m, key("X"))
	if got := m.create.name.Value(); got != "AlgebXra" {
		t.Errorf("name = %q, want the insert at the cursor", got)
	}
	m, _ = update(m, key(KeyRight))
	if m.create.language().Tag != "en" {
		t.Errorf("language = %q after right, want en", m.create.language().Tag)
	}

	m, _ = update(m, key(KeyShiftTab))
	if m.create.language().Tag != "ko" {
		t.Errorf("language = %q after shift+tab, want ko", m.create.language().Tag)
	}
}

func TestCreateRoomFailureShowsDetail(t *testing.T) {
	m, _ := newTestModel(t, alice)
	m, _ = m.navigate(RouteCreate)

	m, _ = update(m, RoomCreatedMsg{Err: &api.Error{Status: 400, Detail: "Classroom name already exists"}})
	if m.create.err != "Classroom name already exists" {
		t.Errorf("err = %q", m.create.err)
	}
	if m.Route() != RouteCreate {
		t.Errorf("route = %v, want create", m.Route())
	}
}

func TestAuthExpiredReturnsToLogin(t *testing.T) {
	m, f := newTestModel(t, alice)
	m, conn := joinRoom(t, m, "r1", "u-bob")

	m, _ = update(m, AuthExpiredMsg{})
	if m.Route() != RouteLogin {
		t.Errorf("route = %v, want login", m.Route())
	}
	if m.deps.Session.Authenticated() {
		t.Error("session still authenticated")
	}
	if m.login.err == "" {
		t.Error("login screen should explain the expiry")
	}
	if conn.closes != 1 || f.rec.stops == 0 {
		t.Errorf("closes = %d stops = %d, want the room torn down", conn.closes, f.rec.stops)
	}
}

func TestExpiredCommandsMapToAuthExpired(t *testing.T) {
	m, f := newTestModel(t, alice)
	f.backend.roomsErr = api.ErrUnauthenticated

	msg := fetchRoomsCmd(m.deps)()
	if _, ok := msg.(AuthExpiredMsg); !ok {
		t.Errorf("msg = %T, want AuthExpiredMsg", msg)
	}
}

func TestDialCommandTagsGeneration(t *testing.T) {
	m, f := newTestModel(t, alice)

	msg := dialCmd(context.Background(), m.deps.Dial, "r1", alice.UID, 7)()
	failed, ok := msg.(ConnFailedMsg)
	if !ok || failed.Gen != 7 {
		t.Errorf("msg = %#v, want ConnFailedMsg gen 7", msg)
	}
	if f.dials != 1 {
		t.Errorf("dials = %d, want 1", f.dials)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the derivative of x squared", 10)
	want := []string{"the", "derivative", "of x", "squared"}
	if len(got) != len(want) {
		t.Fatalf("wrap = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if got := wrapText("", 10); len(got) != 1 || got[0] != "" {
		t.Errorf("wrap empty = %q", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := truncateToWidth("Algebra", 10); got != "Algebra" {
		t.Errorf("short = %q", got)
	}
	if got := truncateToWidth("Linear Algebra", 8); got != "Linear …" {
		t.Errorf("long = %q, want %q", got, "Linear …")
	}
	if got := truncateToWidth("선형대수학", 5); got != "선형…" {
		t.Errorf("wide = %q, want %q", got, "선형…")
	}
}

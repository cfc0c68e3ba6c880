package app

import (
	"strings"

	"github.com/Clang-dev/clang-tui/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

type homeItem struct {
	label string
	route Route
}

// homeItems are the home menu entries. The login route stands for log out.
var homeItems = []homeItem{
	{label: "Join a room", route: RouteRooms},
	{label: "Create a room", route: RouteCreate},
	{label: "Log out", route: RouteLogin},
}

type homeScreen struct {
	cursor     int
	loggingOut bool
}

func (m Model) homeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	case KeyUp, KeyK:
		if m.home.cursor > 0 {
			m.home.cursor--
		}
	case KeyDown, KeyJ:
		if m.home.cursor < len(homeItems)-1 {
			m.home.cursor++
		}
	case KeyCreate:
		return m.navigate(RouteCreate)
	case KeyEnter:
		item := homeItems[m.home.cursor]
		if item.route == RouteLogin {
			if m.home.loggingOut {
				return m, nil
			}
			m.home.loggingOut = true
			return m, logoutCmd(m.deps)
		}
		return m.navigate(item.route)
	}
	return m, nil
}

func (m Model) viewHome() string {
	var sections []string
	sections = append(sections, m.renderHeader("Home"))
	sections = append(sections, m.divider())
	sections = append(sections, "")

	name := "there"
	if u := m.deps.Session.User(); u != nil && u.Username != "" {
		name = u.Username
	}
	sections = append(sections, "  "+ui.LabelStyle.Render("Welcome, "+name+"."))
	sections = append(sections, "")

	for i, item := range homeItems {
		if i == m.home.cursor {
			sections = append(sections, ui.SelectedStyle.Render("  > "+item.label))
		} else {
			sections = append(sections, "    "+item.label)
		}
	}
	sections = append(sections, "")
	sections = append(sections, m.divider())
	sections = append(sections, renderKeys("j/k", "Move", "Enter", "Select", "q", "Quit"))

	return strings.Join(sections, "\n")
}

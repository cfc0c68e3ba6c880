package app

import (
	"fmt"
	"strings"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/ui"
	"github.com/Clang-dev/clang-tui/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

// roomsScreen is the active room directory. A failed fetch shows as an empty
// directory with a hint, so the user can still create a room.
type roomsScreen struct {
	list    []api.Room
	cursor  int
	loading bool
	failed  bool
}

func (m Model) roomsLoaded(msg RoomsLoadedMsg) (tea.Model, tea.Cmd) {
	m.rooms.loading = false
	if msg.Err != nil {
		m.log.Warn("fetch active rooms", "err", msg.Err)
		m.rooms.list = nil
		m.rooms.failed = true
	} else {
		m.rooms.list = msg.Rooms
		m.rooms.failed = false
	}
	m.rooms.cursor = min(m.rooms.cursor, max(0, len(m.rooms.list)-1))

	if m.route == RouteRooms && len(m.rooms.list) == 0 {
		m.route = RouteNoRoom
	}
	return m, nil
}

func (m Model) roomsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	case KeyEsc:
		return m.navigate(RouteHome)
	case KeyUp, KeyK:
		if m.rooms.cursor > 0 {
			m.rooms.cursor--
		}
	case KeyDown, KeyJ:
		if m.rooms.cursor < len(m.rooms.list)-1 {
			m.rooms.cursor++
		}
	case KeyRefresh:
		if m.rooms.loading {
			return m, nil
		}
		return m.navigate(RouteRooms)
	case KeyCreate:
		return m.navigate(RouteCreate)
	case KeyEnter:
		if m.rooms.loading || len(m.rooms.list) == 0 {
			return m, nil
		}
		r := m.rooms.list[m.rooms.cursor]
		return m.enterRoom(r.UID, r.Name)
	}
	return m, nil
}

func (m Model) noRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	case KeyEsc:
		return m.navigate(RouteHome)
	case KeyRefresh, KeyEnter:
		return m.navigate(RouteRooms)
	case KeyCreate:
		return m.navigate(RouteCreate)
	}
	return m, nil
}

func (m Model) viewRooms() string {
	var sections []string
	sections = append(sections, m.renderHeader("Join a room"))
	sections = append(sections, m.divider())

	if m.rooms.loading {
		sections = append(sections, "  "+m.spinner.View()+" "+ui.DimStyle.Render("Loading rooms..."))
	} else {
		sections = append(sections, ui.PanelTitleStyle.Render(fmt.Sprintf("ACTIVE ROOMS (%d)", len(m.rooms.list))))
		for i, r := range m.rooms.list {
			line := fmt.Sprintf("%s  %s", padRight(truncateToWidth(r.Name, validate.MaxRoomNameLen), validate.MaxRoomNameLen), ui.DimStyle.Render(validate.LanguageLabel(r.Language)))
			if r.CreatorName != "" {
				line += ui.DimStyle.Render(" · hosted by " + r.CreatorName)
			}
			if i == m.rooms.cursor {
				sections = append(sections, ui.SelectedStyle.Render("> ")+line)
			} else {
				sections = append(sections, "  "+line)
			}
		}
	}
	if m.rooms.failed {
		sections = append(sections, ui.DimStyle.Render("  last refresh failed"))
	}

	sections = append(sections, m.divider())
	sections = append(sections, renderKeys("Enter", "Join", "r", "Refresh", "c", "Create", "esc", "Back"))
	return strings.Join(sections, "\n")
}

func (m Model) viewNoRoom() string {
	var sections []string
	sections = append(sections, m.renderHeader("Join a room"))
	sections = append(sections, m.divider())
	sections = append(sections, "")
	sections = append(sections, "  "+ui.LabelStyle.Render("No active rooms right now."))
	sections = append(sections, "  "+ui.DimStyle.Render("Create one, or check again in a moment."))
	if m.rooms.failed {
		sections = append(sections, ui.DimStyle.Render("  last refresh failed"))
	}
	sections = append(sections, "")
	sections = append(sections, m.divider())
	sections = append(sections, renderKeys("r", "Retry", "c", "Create", "esc", "Back"))
	return strings.Join(sections, "\n")
}

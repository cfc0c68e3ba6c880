package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/Clang-dev/clang-tui/internal/ui"
	"github.com/Clang-dev/clang-tui/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

type createScreen struct {
	name       textinput.Model
	lang       int
	err        string
	submitting bool
}

func newCreateScreen() createScreen {
	name := textinput.New()
	name.Prompt = "Name "
	name.Placeholder = "e.g. Algebra II"
	// One past the cap so an overlong name reaches validation.
	name.CharLimit = validate.MaxRoomNameLen + 1
	return createScreen{name: name}
}

func (s *createScreen) focus() tea.Cmd {
	return s.name.Focus()
}

func (s createScreen) language() validate.Language {
	return validate.Languages[s.lang]
}

func (m Model) createKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.create
	n := len(validate.Languages)

	switch msg.String() {
	case KeyCtrlC:
		return m, tea.Quit
	case KeyEsc:
		return m.navigate(RouteHome)
	// Arrows belong to the name input.
	case KeyTab:
		s.lang = (s.lang + 1) % n
		return m, nil
	case KeyShiftTab:
		s.lang = (s.lang + n - 1) % n
		return m, nil
	case KeyEnter:
		if s.submitting {
			return m, nil
		}
		name, err := validate.Room(s.name.Value(), s.language().Tag)
		if err != nil {
			s.err = err.Error()
			return m, nil
		}
		s.err = ""
		s.submitting = true
		return m, createRoomCmd(m.deps, name, s.language().Tag)
	}

	var cmd tea.Cmd
	s.name, cmd = s.name.Update(msg)
	return m, cmd
}

func (m Model) viewCreate() string {
	s := m.create
	var sections []string
	sections = append(sections, m.renderHeader("Create a room"))
	sections = append(sections, m.divider())
	sections = append(sections, "")

	count := fmt.Sprintf(" %d/%d", utf8.RuneCountInString(strings.TrimSpace(s.name.Value())), validate.MaxRoomNameLen)
	sections = append(sections, "  "+s.name.View()+ui.DimStyle.Render(count))

	var langs []string
	for i, l := range validate.Languages {
		if i == s.lang {
			langs = append(langs, ui.SelectedStyle.Render("["+l.Label+"]"))
		} else {
			langs = append(langs, ui.DimStyle.Render(" "+l.Label+" "))
		}
	}
	sections = append(sections, "  Language "+strings.Join(langs, " "))
	sections = append(sections, "")

	switch {
	case s.submitting:
		sections = append(sections, "  "+m.spinner.View()+" "+ui.DimStyle.Render("Creating room..."))
	case s.err != "":
		sections = append(sections, "  "+ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(s.err))
	default:
		sections = append(sections, "")
	}

	sections = append(sections, m.divider())
	sections = append(sections, renderKeys("Enter", "Create", "Tab", "Language", "esc", "Back"))
	return strings.Join(sections, "\n")
}

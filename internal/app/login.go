package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/Clang-dev/clang-tui/internal/ui"
	"github.com/Clang-dev/clang-tui/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	loginEmail = iota
	loginPassword
)

type loginScreen struct {
	inputs     []textinput.Model
	focused    int
	err        string
	submitting bool
}

func newLoginScreen() loginScreen {
	email := textinput.New()
	email.Prompt = "Email    "
	email.Placeholder = "you@kaist.ac.kr"
	email.CharLimit = 254

	password := textinput.New()
	password.Prompt = "Password "
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 64

	return loginScreen{inputs: []textinput.Model{email, password}}
}

// focus moves the cursor to the focused input.
func (s *loginScreen) focus() tea.Cmd {
	var cmd tea.Cmd
	for i := range s.inputs {
		if i == s.focused {
			cmd = s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
	return cmd
}

func (m Model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.login
	n := len(s.inputs)

	switch msg.String() {
	case KeyCtrlC:
		return m, tea.Quit
	case KeyTab, KeyDown:
		s.focused = (s.focused + 1) % n
		return m, s.focus()
	case KeyShiftTab, KeyUp:
		s.focused = (s.focused + n - 1) % n
		return m, s.focus()
	case KeyEnter:
		if s.submitting {
			return m, nil
		}
		if s.focused < n-1 {
			s.focused++
			return m, s.focus()
		}
		email := strings.TrimSpace(s.inputs[loginEmail].Value())
		password := s.inputs[loginPassword].Value()
		if err := validate.Login(email, password); err != nil {
			s.err = err.Error()
			return m, nil
		}
		s.err = ""
		s.submitting = true
		return m, loginCmd(m.deps, email, password)
	}

	var cmd tea.Cmd
	s.inputs[s.focused], cmd = s.inputs[s.focused].Update(msg)
	return m, cmd
}

func (m Model) viewLogin() string {
	s := m.login
	var sections []string

	sections = append(sections, m.renderHeader("Log in"))
	sections = append(sections, m.divider())
	sections = append(sections, "")
	for _, in := range s.inputs {
		sections = append(sections, "  "+in.View())
	}
	sections = append(sections, "")

	switch {
	case s.submitting:
		sections = append(sections, "  "+m.spinner.View()+" "+ui.DimStyle.Render("Logging in..."))
	case s.err != "":
		sections = append(sections, "  "+ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(s.err))
	default:
		sections = append(sections, "")
	}
	sections = append(sections, "  "+ui.DimStyle.Render("New here? Run `clang-tui signup` to create an account."))
	sections = append(sections, m.divider())
	sections = append(sections, renderKeys("Enter", "Log in", "Tab", "Next field", "ctrl+c", "Quit"))

	return strings.Join(sections, "\n")
}

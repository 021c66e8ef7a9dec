package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/byway-lms/byway-admin/pkg/session"
)

type loginField int

const (
	loginEmail loginField = iota
	loginPassword
	numLoginFields
)

type loginResultMsg struct {
	user session.User
	err  error
}

type loginModel struct {
	auth       Authenticator
	fields     [numLoginFields]string
	focus      loginField
	submitting bool
	err        string
	width      int
}

func newLoginModel(a Authenticator) loginModel {
	return loginModel{auth: a}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = errText(msg.err)
			m.fields[loginPassword] = ""
			m.focus = loginPassword
		}

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		m.focus = (m.focus + 1) % numLoginFields
	case "enter":
		if m.focus == loginEmail {
			m.focus = loginPassword
			return m, nil
		}
		return m.submit()
	case "ctrl+s":
		return m.submit()
	default:
		f := &m.fields[m.focus]
		*f = editRune(*f, msg.String())
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[loginEmail])
	password := m.fields[loginPassword]
	if email == "" || password == "" {
		m.err = "Email and password are required"
		return m, nil
	}
	m.err = ""
	m.submitting = true
	a := m.auth
	return m, func() tea.Msg {
		u, err := a.Login(context.Background(), email, password)
		return loginResultMsg{user: u, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + selectedStyle.Render("Sign in") + "  " + dimStyle.Render("administrators only") + "\n\n")
	b.WriteString(renderField("email", m.fields[loginEmail], m.focus == loginEmail, false, ""))
	b.WriteString(renderField("password", m.fields[loginPassword], m.focus == loginPassword, true, ""))
	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(" " + dimStyle.Render("signing in...") + "\n")
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n " + metaStyle.Render("Google sign-in: run `byway-admin google-login` in another terminal.") + "\n")
	return b.String()
}

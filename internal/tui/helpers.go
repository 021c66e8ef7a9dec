package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/byway-lms/byway-admin/internal/auth"
	"github.com/byway-lms/byway-admin/internal/browser"
	"github.com/byway-lms/byway-admin/pkg/client"
	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/session"
)

// Side effects, swapped out in tests.
var (
	writeClipboard = clipboard.WriteAll
	openURL        = browser.Open
)

// navigateMsg asks the App to route to path.
type navigateMsg struct{ path string }

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

// toastMsg shows a transient line in the status bar.
type toastMsg struct {
	text  string
	isErr bool
}

func toast(text string) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text} }
}

func toastErr(prefix string, err error) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: prefix + ": " + errText(err), isErr: true} }
}

type copyResultMsg struct {
	what string
	err  error
}

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{what: what, err: writeClipboard(text)}
	}
}

type openResultMsg struct{ err error }

func openCmd(url string) tea.Cmd {
	return func() tea.Msg {
		return openResultMsg{err: openURL(url)}
	}
}

// errText turns an error into a short message for toasts and forms.
func errText(err error) string {
	var httpErr *client.HTTPError
	var fields domain.FieldErrors
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrMissingRole):
		return "Unauthorized: admin access required"
	case errors.Is(err, auth.ErrInvalidTokenFormat):
		return "Invalid token format"
	case errors.Is(err, auth.ErrEmptyCredentials):
		return "Email and password are required"
	case client.IsUnauthorized(err):
		return "the API rejected the session (401); sign in again"
	case client.IsForbidden(err):
		errors.As(err, &httpErr)
		return "forbidden (403): " + httpErr.Message
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &fields):
		return fields.Error()
	}
	return err.Error()
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces to width runes, truncating when longer.
func padRight(s string, width int) string {
	s = truncStr(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// oneLine collapses newlines and runs of whitespace.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatPrice renders a price as dollars; zero is "Free".
func formatPrice(p decimal.Decimal) string {
	if p.IsZero() {
		return "Free"
	}
	return "$" + p.StringFixed(2)
}

// formatDate renders the API's timestamps as "Jan 2, 2006". Unparseable input
// is shown as-is.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}

// formatHours renders a duration like 1.5 as "1.5h".
func formatHours(h float64) string {
	return decimal.NewFromFloat(h).Round(1).String() + "h"
}

// pageLine renders "page 2 of 5 · 41 total".
func pageLine(index, last, total int) string {
	return fmt.Sprintf("page %d of %d · %d total", index, last, total)
}

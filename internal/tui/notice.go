package tui

import (
	"strings"

	"github.com/byway-lms/byway-admin/pkg/session"
)

func unauthorizedView(u session.User, known bool) string {
	var b strings.Builder
	b.WriteString("\n " + warnStyle.Render("Unauthorized") + "\n\n")
	if known && u.Email != "" {
		b.WriteString(" " + normalStyle.Render("Signed in as "+u.Email))
		if u.Role != "" {
			b.WriteString(normalStyle.Render(" (" + u.Role + ")"))
		}
		b.WriteString("\n")
	}
	b.WriteString(" " + dimStyle.Render("This dashboard requires an administrator account.") + "\n")
	b.WriteString(" " + dimStyle.Render("Sign out and sign in again with an admin account.") + "\n")
	return b.String()
}

func notFoundView(path string) string {
	var b strings.Builder
	b.WriteString("\n " + warnStyle.Render("404") + "  " + normalStyle.Render("Page not found") + "\n\n")
	b.WriteString(" " + dimStyle.Render("Nothing lives at "+path+".") + "\n")
	return b.String()
}

package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// Shimmer animation for the BYWAY logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "BYWAY" as a slow wave of blue light.
// Deep navy (#1e2a4a) -> bright sky (#60a5fa).
func renderShimmerLogo(frame int) string {
	const text = "BYWAY"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(30 + b*(96-30))
		g := clampByte(42 + b*(165-42))
		bl := clampByte(74 + b*(250-74))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out + "  " + metaStyle.Render("admin")
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Search / accent
	searchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa")).
			Bold(true)

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3b82f6"))

	// Toasts and form feedback
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844"))

	borderColor = lipgloss.Color("#1e293b")

	// Selected row background
	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e293b"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878")).
				Bold(true)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3b82f6")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Dashboard stat card
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 2)

	cardValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	// Level colors
	levelColors = map[domain.Level]lipgloss.Color{
		domain.LevelBeginner:     lipgloss.Color("#4ade80"),
		domain.LevelIntermediate: lipgloss.Color("#fbbf24"),
		domain.LevelAdvanced:     lipgloss.Color("#f87171"),
	}

	// Distribution bar colors, in dashboard order
	barColors = []lipgloss.Color{
		lipgloss.Color("#3b82f6"),
		lipgloss.Color("#a78bfa"),
		lipgloss.Color("#22d3ee"),
	}
)

// LevelStyle returns a bold style colored for the given course level.
func LevelStyle(l domain.Level) lipgloss.Style {
	if c, ok := levelColors[l]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#606878")).Bold(true)
}

// ratingStars renders a 0..5 rating as filled and empty stars.
func ratingStars(r float64) string {
	n := int(math.Round(r))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return goldStyle.Render(strings.Repeat("★", n)) + metaStyle.Render(strings.Repeat("☆", 5-n))
}

// bar renders pct (0..100) as a width-cell bar.
func bar(pct, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		metaStyle.Render(strings.Repeat("░", width-filled))
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins entries into a help line.
func helpBar(entries ...string) string {
	return " " + strings.Join(entries, "  ")
}

// helpView renders the help overlay.
func helpView(version string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#60a5fa")).
		Bold(true).
		Render("B Y W A Y   A D M I N")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	keys := []struct{ key, desc string }{
		{"1 / 2 / 3", "Dashboard, courses, instructors"},
		{"/", "Search the current list"},
		{"s / f", "Cycle course sort / category"},
		{"[ / ]", "Previous / next page"},
		{"n / e / d", "New, edit, delete"},
		{"c / o", "Copy id / open picture"},
		{"L", "Sign out"},
		{"q", "Quit"},
	}
	commands := []struct{ cmd, desc string }{
		{"byway-admin", "Open the dashboard"},
		{"byway-admin login", "Sign in with email and password"},
		{"byway-admin google-login", "Sign in with Google"},
		{"byway-admin logout", "Clear the session"},
		{"byway-admin whoami", "Show the signed-in admin"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", title, metaStyle.Render(version))

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-12s", k.key)), descStyle.Render(k.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc))
	}
	return b.String()
}

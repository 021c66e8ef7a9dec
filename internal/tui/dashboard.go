package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
)

// -- messages --

type statsLoadedMsg struct {
	stats domain.DashboardStats
	err   error
}

// -- model --

type dashboardModel struct {
	api     API
	stats   domain.DashboardStats
	loaded  bool
	loading bool
	err     string
	width   int
	height  int
}

func newDashboardModel(api API) dashboardModel {
	return dashboardModel{api: api, loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load()
}

func (m dashboardModel) load() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		s, err := api.DashboardStats(context.Background())
		return statsLoadedMsg{stats: s, err: err}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case statsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.stats = msg.stats
		m.loaded = true
		m.err = ""

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.load()
		case "c":
			return m, navigate(routes.Courses)
		case "i":
			return m, navigate(routes.Instructors)
		case "n":
			return m, navigate(routes.CourseNew)
		}
	}
	return m, nil
}

func (m dashboardModel) helpKeys() string {
	return strings.Join([]string{
		helpEntry("n", "new course"),
		helpEntry("c", "courses"),
		helpEntry("i", "instructors"),
		helpEntry("r", "refresh"),
	}, "  ")
}

func (m dashboardModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("OVERVIEW"))
	if m.loading && m.loaded {
		b.WriteString("  " + dimStyle.Render("refreshing..."))
	}
	b.WriteString("\n\n")

	if m.loading && !m.loaded {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" && !m.loaded {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		b.WriteString(" " + metaStyle.Render("press r to retry") + "\n")
		return b.String()
	}

	s := m.stats
	cards := []string{
		statCard("Instructors", strconv.Itoa(s.InstructorsCount)),
		statCard("Categories", strconv.Itoa(s.CategoriesCount)),
		statCard("Courses", strconv.Itoa(s.CoursesCount)),
		statCard("Revenue", "$"+s.TotalRevenue.StringFixed(2)),
	}
	if m.width > 0 && m.width < 80 {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	b.WriteString("\n\n " + sectionHeaderStyle.Render("DISTRIBUTION") + "\n\n")

	width := 30
	if m.width > 60 {
		width = min(m.width-30, 50)
	}
	rows := []struct {
		name string
		pct  int
	}{
		{"Instructors", s.Distribution.Instructors},
		{"Categories", s.Distribution.Categories},
		{"Courses", s.Distribution.Courses},
	}
	for i, r := range rows {
		fmt.Fprintf(&b, " %s %s %s\n",
			normalStyle.Render(padRight(r.name, 12)),
			bar(r.pct, width, barColors[i%len(barColors)]),
			metaStyle.Render(fmt.Sprintf("%3d%%", r.pct)))
	}
	if m.err != "" {
		b.WriteString("\n " + errorStyle.Render("refresh failed: "+m.err) + "\n")
	}
	return b.String()
}

func statCard(label, value string) string {
	return cardStyle.Render(metaStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
)

type instructorsLoadedMsg struct {
	gen  int
	page domain.Page[domain.Instructor]
	err  error
}

type instructorDeletedMsg struct {
	id      int
	message string
	err     error
}

// instructorCoursesMsg opens the course list filtered to one instructor.
type instructorCoursesMsg struct {
	id   int
	name string
}

type instructorsModel struct {
	api     API
	filters domain.InstructorFilters
	page    domain.Page[domain.Instructor]

	gen     int
	cursor  int
	loading bool
	loaded  bool
	err     string

	searching   bool
	searchInput string
	confirming  bool
	deleting    bool

	width  int
	height int
}

func newInstructorsModel(api API) instructorsModel {
	return instructorsModel{api: api, filters: domain.DefaultInstructorFilters()}
}

func (m instructorsModel) open() (instructorsModel, tea.Cmd) {
	m.searching = false
	m.confirming = false
	return m.reload()
}

func (m instructorsModel) reload() (instructorsModel, tea.Cmd) {
	m.gen++
	m.loading = true
	api, f, gen := m.api, m.filters, m.gen
	return m, func() tea.Msg {
		p, err := api.ListInstructors(context.Background(), f)
		return instructorsLoadedMsg{gen: gen, page: p, err: err}
	}
}

func (m instructorsModel) setFilters(f domain.InstructorFilters) (instructorsModel, tea.Cmd) {
	m.filters = f
	m.cursor = 0
	return m.reload()
}

func (m instructorsModel) selected() (domain.Instructor, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Items) {
		return domain.Instructor{}, false
	}
	return m.page.Items[m.cursor], true
}

func (m instructorsModel) Update(msg tea.Msg) (instructorsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case instructorsLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.loaded = true
		m.page = msg.page
		if m.cursor >= len(m.page.Items) {
			m.cursor = max(len(m.page.Items)-1, 0)
		}

	case instructorDeletedMsg:
		m.deleting = false
		if msg.err != nil {
			return m, toastErr("delete failed", msg.err)
		}
		text := msg.message
		if text == "" {
			text = "Instructor deleted"
		}
		f := m.filters
		if len(m.page.Items) <= 1 && f.PageIndex > 1 {
			f = f.WithPage(f.PageIndex - 1)
		}
		var cmd tea.Cmd
		m, cmd = m.setFilters(f)
		return m, tea.Batch(cmd, toast(text))

	case tea.KeyMsg:
		switch {
		case m.searching:
			return m.updateSearch(msg)
		case m.confirming:
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m instructorsModel) updateSearch(msg tea.KeyMsg) (instructorsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput = m.filters.Search
	case "enter":
		m.searching = false
		term := strings.TrimSpace(m.searchInput)
		m.searchInput = term
		if term != m.filters.Search {
			return m.setFilters(m.filters.WithSearch(term))
		}
	default:
		m.searchInput = editRune(m.searchInput, msg.String())
	}
	return m, nil
}

func (m instructorsModel) updateConfirm(msg tea.KeyMsg) (instructorsModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		in, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.deleting = true
		api := m.api
		return m, func() tea.Msg {
			text, err := api.DeleteInstructor(context.Background(), in.ID)
			return instructorDeletedMsg{id: in.ID, message: text, err: err}
		}
	case "n", "N", "esc":
		m.confirming = false
	}
	return m, nil
}

func (m instructorsModel) handleKey(msg tea.KeyMsg) (instructorsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.page.Items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if in, ok := m.selected(); ok {
			return m, func() tea.Msg { return instructorCoursesMsg{id: in.ID, name: in.Name} }
		}
	case "e":
		if in, ok := m.selected(); ok {
			return m, navigate(routes.WithID(routes.InstructorEdit, in.ID))
		}
	case "n":
		return m, navigate(routes.InstructorNew)
	case "/":
		m.searching = true
		m.searchInput = m.filters.Search
	case "x":
		m.searchInput = ""
		return m.setFilters(domain.DefaultInstructorFilters())
	case "]", "right":
		if m.page.HasNext() {
			return m.setFilters(m.filters.WithPage(m.page.PageIndex + 1))
		}
	case "[", "left":
		if m.page.HasPrev() {
			return m.setFilters(m.filters.WithPage(m.page.PageIndex - 1))
		}
	case "d":
		if _, ok := m.selected(); ok && !m.deleting {
			m.confirming = true
		}
	case "c":
		if in, ok := m.selected(); ok {
			return m, copyCmd("instructor id", strconv.Itoa(in.ID))
		}
	case "o":
		if in, ok := m.selected(); ok {
			if in.ProfilePictureURL == "" {
				return m, toast("No profile picture")
			}
			return m, openCmd(m.api.ResolveURL(in.ProfilePictureURL))
		}
	case "r":
		return m.reload()
	}
	return m, nil
}

func (m instructorsModel) helpKeys() string {
	switch {
	case m.searching:
		return strings.Join([]string{helpEntry("enter", "search"), helpEntry("esc", "cancel")}, "  ")
	case m.confirming:
		return strings.Join([]string{helpEntry("y", "delete"), helpEntry("n", "keep")}, "  ")
	}
	return strings.Join([]string{
		helpEntry("enter", "courses"),
		helpEntry("n", "new"),
		helpEntry("e", "edit"),
		helpEntry("d", "delete"),
		helpEntry("/", "search"),
		helpEntry("[ ]", "page"),
		helpEntry("o", "picture"),
		helpEntry("?", "help"),
	}, "  ")
}

func (m instructorsModel) View() string {
	var b strings.Builder
	head := searchStyle.Render("INSTRUCTORS")
	if m.loading && m.loaded {
		head += dimStyle.Render(" · ") + metaStyle.Render("loading...")
	}
	b.WriteString(" " + head + "\n")
	b.WriteString(renderSearch(m.searchInput, m.searching))
	b.WriteString("\n")

	if m.loading && !m.loaded {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		if !m.loaded {
			return b.String()
		}
	}
	if len(m.page.Items) == 0 {
		if m.filters.Search != "" {
			b.WriteString(" " + dimStyle.Render("no instructors match, press x to clear") + "\n")
		} else {
			b.WriteString(" " + dimStyle.Render("no instructors yet, press n to add one") + "\n")
		}
		return b.String()
	}

	nameW := 24
	if m.width > 110 {
		nameW = 32
	}
	header := fmt.Sprintf("   %s %s %s %s %s", padRight("NAME", nameW), padRight("JOB TITLE", 24),
		padRight("COURSES", 8), padRight("STUDENTS", 9), "RATING")
	b.WriteString(metaStyle.Render(header) + "\n")

	for i, in := range m.page.Items {
		active := i == m.cursor
		cursor := " "
		nameStyle := normalStyle
		if active {
			cursor = accentStyle.Render("›")
			nameStyle = selectedStyle
		}
		rating := in.AverageRating
		if rating == 0 {
			rating = in.Rating
		}
		row := fmt.Sprintf(" %s %s %s %s %s %s",
			cursor,
			nameStyle.Render(padRight(in.Name, nameW)),
			dimStyle.Render(padRight(in.JobTitle, 24)),
			normalStyle.Render(padRight(strconv.Itoa(in.CoursesCount), 8)),
			normalStyle.Render(padRight(strconv.Itoa(in.StudentsCount), 9)),
			ratingStars(rating))
		if active {
			row = selectedRowBg.Render(row)
		}
		b.WriteString(row + "\n")
	}

	b.WriteString("\n " + metaStyle.Render(pageLine(m.page.PageIndex, m.page.LastPage, m.page.Total)) + "\n")
	if in, ok := m.selected(); ok && !m.confirming && in.About != "" {
		b.WriteString("\n " + dimStyle.Render(truncStr(oneLine(in.About), max(m.width-2, 40))) + "\n")
	}
	if m.confirming {
		if in, ok := m.selected(); ok {
			b.WriteString("\n " + warnStyle.Render(fmt.Sprintf("Delete %s? Their courses may be removed too. (y/n)", in.Name)) + "\n")
		}
	}
	return b.String()
}

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

// -- messages --

type coursesLoadedMsg struct {
	gen  int
	page domain.Page[domain.Course]
	err  error
}

type categoriesLoadedMsg struct {
	categories []domain.Category
	err        error
}

type courseDeletedMsg struct {
	id      int
	message string
	err     error
}

// -- model --

// coursesModel is the course list. It lives on the App so its filters survive
// leaving and re-entering the list.
type coursesModel struct {
	api        API
	filters    domain.CourseFilters
	page       domain.Page[domain.Course]
	categories []domain.Category
	catCycle   int // 0 = all, else categories[catCycle-1]
	instructor string

	gen     int // bumped per request; older responses are dropped
	cursor  int
	loading bool
	loaded  bool
	err     string

	searching   bool
	searchInput string

	confirming bool
	deleting   bool

	width  int
	height int
}

func newCoursesModel(api API) coursesModel {
	return coursesModel{api: api, filters: domain.DefaultCourseFilters()}
}

// open is called each time the list becomes visible.
func (m coursesModel) open() (coursesModel, tea.Cmd) {
	m.searching = false
	m.confirming = false
	var cmds []tea.Cmd
	if len(m.categories) == 0 {
		cmds = append(cmds, m.loadCategories())
	}
	var load tea.Cmd
	m, load = m.reload()
	cmds = append(cmds, load)
	return m, tea.Batch(cmds...)
}

// withInstructor narrows the list to one instructor's courses.
func (m coursesModel) withInstructor(id int, name string) coursesModel {
	m.filters = m.filters.WithInstructor(id)
	m.instructor = name
	m.cursor = 0
	return m
}

func (m coursesModel) reload() (coursesModel, tea.Cmd) {
	m.gen++
	m.loading = true
	api, f, gen := m.api, m.filters, m.gen
	return m, func() tea.Msg {
		p, err := api.ListCourses(context.Background(), f)
		return coursesLoadedMsg{gen: gen, page: p, err: err}
	}
}

func (m coursesModel) loadCategories() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		cs, err := api.ListCategories(context.Background())
		return categoriesLoadedMsg{categories: cs, err: err}
	}
}

func (m coursesModel) setFilters(f domain.CourseFilters) (coursesModel, tea.Cmd) {
	m.filters = f
	m.cursor = 0
	return m.reload()
}

func (m coursesModel) selected() (domain.Course, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Items) {
		return domain.Course{}, false
	}
	return m.page.Items[m.cursor], true
}

func (m coursesModel) Update(msg tea.Msg) (coursesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case coursesLoadedMsg:
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

	case categoriesLoadedMsg:
		if msg.err == nil {
			m.categories = msg.categories
		}

	case courseDeletedMsg:
		m.deleting = false
		if msg.err != nil {
			return m, toastErr("delete failed", msg.err)
		}
		text := msg.message
		if text == "" {
			text = "Course deleted"
		}
		f := m.filters
		if len(m.page.Items) <= 1 && f.PageIndex > 1 {
			f = f.WithPage(f.PageIndex - 1)
		}
		var cmd tea.Cmd
		m, cmd = m.setFilters(f)
		return m, tea.Batch(cmd, toast(text))

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.confirming {
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m coursesModel) updateSearch(msg tea.KeyMsg) (coursesModel, tea.Cmd) {
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

func (m coursesModel) updateConfirm(msg tea.KeyMsg) (coursesModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.deleting = true
		api := m.api
		return m, func() tea.Msg {
			text, err := api.DeleteCourse(context.Background(), c.ID)
			return courseDeletedMsg{id: c.ID, message: text, err: err}
		}
	case "n", "N", "esc":
		m.confirming = false
	}
	return m, nil
}

func (m coursesModel) handleKey(msg tea.KeyMsg) (coursesModel, tea.Cmd) {
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
		if c, ok := m.selected(); ok {
			return m, navigate(routes.WithID(routes.CourseDetail, c.ID))
		}
	case "e":
		if c, ok := m.selected(); ok {
			return m, navigate(routes.WithID(routes.CourseEdit, c.ID))
		}
	case "n":
		return m, navigate(routes.CourseNew)
	case "/":
		m.searching = true
		m.searchInput = m.filters.Search
	case "s":
		return m.setFilters(m.filters.WithSort(m.filters.Sort.Next()))
	case "f":
		if len(m.categories) == 0 {
			return m, m.loadCategories()
		}
		m.catCycle = cycle(m.catCycle, 1, len(m.categories)+1)
		if m.catCycle == 0 {
			return m.setFilters(m.filters.WithCategories())
		}
		return m.setFilters(m.filters.WithCategories(m.categories[m.catCycle-1].ID))
	case "x":
		m.catCycle = 0
		m.searchInput = ""
		m.instructor = ""
		return m.setFilters(domain.DefaultCourseFilters())
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
		if c, ok := m.selected(); ok {
			return m, copyCmd("course id", strconv.Itoa(c.ID))
		}
	case "o":
		if c, ok := m.selected(); ok {
			if c.CoverPictureURL == "" {
				return m, toast("No cover picture")
			}
			return m, openCmd(m.api.ResolveURL(c.CoverPictureURL))
		}
	case "r":
		return m.reload()
	}
	return m, nil
}

func (m coursesModel) categoryName() string {
	if m.catCycle == 0 || m.catCycle > len(m.categories) {
		return ""
	}
	return m.categories[m.catCycle-1].Name
}

func (m coursesModel) helpKeys() string {
	switch {
	case m.searching:
		return strings.Join([]string{helpEntry("enter", "search"), helpEntry("esc", "cancel")}, "  ")
	case m.confirming:
		return strings.Join([]string{helpEntry("y", "delete"), helpEntry("n", "keep")}, "  ")
	}
	return strings.Join([]string{
		helpEntry("enter", "view"),
		helpEntry("n", "new"),
		helpEntry("e", "edit"),
		helpEntry("d", "delete"),
		helpEntry("/", "search"),
		helpEntry("s", "sort"),
		helpEntry("f", "category"),
		helpEntry("[ ]", "page"),
		helpEntry("x", "clear"),
		helpEntry("?", "help"),
	}, "  ")
}

func (m coursesModel) View() string {
	var b strings.Builder

	filters := []string{searchStyle.Render("COURSES"), dimStyle.Render("sort: " + m.filters.Sort.String())}
	if name := m.categoryName(); name != "" {
		filters = append(filters, dimStyle.Render("category: "+name))
	}
	if m.filters.InstructorID != 0 {
		who := m.instructor
		if who == "" {
			who = "#" + strconv.Itoa(m.filters.InstructorID)
		}
		filters = append(filters, dimStyle.Render("instructor: "+who))
	}
	if m.loading && m.loaded {
		filters = append(filters, metaStyle.Render("loading..."))
	}
	b.WriteString(" " + strings.Join(filters, dimStyle.Render(" · ")) + "\n")
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
		if m.filters.Search != "" || len(m.filters.Categories) > 0 || m.filters.InstructorID != 0 {
			b.WriteString(" " + dimStyle.Render("no courses match these filters, press x to clear") + "\n")
		} else {
			b.WriteString(" " + dimStyle.Render("no courses yet, press n to create one") + "\n")
		}
		return b.String()
	}

	titleW := 32
	if m.width > 100 {
		titleW = m.width - 68
	}
	header := fmt.Sprintf("   %s %s %s %s %s %s",
		padRight("TITLE", titleW), padRight("CATEGORY", 14), padRight("INSTRUCTOR", 16),
		padRight("LEVEL", 12), padRight("PRICE", 9), "RATING")
	b.WriteString(metaStyle.Render(header) + "\n")

	for i, c := range m.page.Items {
		active := i == m.cursor
		cursor := " "
		titleStyle := normalStyle
		if active {
			cursor = accentStyle.Render("›")
			titleStyle = selectedStyle
		}
		row := fmt.Sprintf(" %s %s %s %s %s %s %s",
			cursor,
			titleStyle.Render(padRight(oneLine(c.Title), titleW)),
			dimStyle.Render(padRight(c.CategoryName, 14)),
			dimStyle.Render(padRight(c.InstructorName, 16)),
			LevelStyle(c.CourseLevel).Render(padRight(levelName(c.CourseLevel), 12)),
			normalStyle.Render(padRight(formatPrice(c.Price), 9)),
			ratingStars(c.Rating))
		if active {
			row = selectedRowBg.Render(row)
		}
		b.WriteString(row + "\n")
	}

	b.WriteString("\n " + metaStyle.Render(pageLine(m.page.PageIndex, m.page.LastPage, m.page.Total)) + "\n")
	if m.confirming {
		if c, ok := m.selected(); ok {
			b.WriteString("\n " + warnStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone. (y/n)", c.Title)) + "\n")
		}
	}
	return b.String()
}

// levelName is the level label, or empty for an unset level.
func levelName(l domain.Level) string {
	if l == 0 {
		return ""
	}
	return l.String()
}

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

type courseLoadedMsg struct {
	id     int
	course *domain.Course
	err    error
}

type courseDetailModel struct {
	api        API
	id         int
	course     *domain.Course
	loading    bool
	err        string
	confirming bool
	deleting   bool
	scroll     int
	width      int
	height     int
}

func newCourseDetailModel(api API, id int) courseDetailModel {
	return courseDetailModel{api: api, id: id, loading: true}
}

func (m courseDetailModel) Init() tea.Cmd {
	api, id := m.api, m.id
	return func() tea.Msg {
		c, err := api.GetCourse(context.Background(), id)
		return courseLoadedMsg{id: id, course: c, err: err}
	}
}

func (m courseDetailModel) Update(msg tea.Msg) (courseDetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case courseLoadedMsg:
		// A response for a course opened earlier must not land on this one.
		if msg.id != m.id {
			return m, nil
		}
		m.loading = false
		switch {
		case msg.err != nil:
			m.err = errText(msg.err)
		case msg.course == nil:
			m.err = "course not found"
		default:
			m.course = msg.course
			m.err = ""
		}

	case courseDeletedMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.deleting = false
		if msg.err != nil {
			return m, toastErr("delete failed", msg.err)
		}
		text := msg.message
		if text == "" {
			text = "Course deleted"
		}
		return m, tea.Batch(toast(text), navigate(routes.Courses))

	case tea.KeyMsg:
		if m.confirming {
			switch msg.String() {
			case "y", "Y":
				m.confirming = false
				m.deleting = true
				api, id := m.api, m.id
				return m, func() tea.Msg {
					text, err := api.DeleteCourse(context.Background(), id)
					return courseDeletedMsg{id: id, message: text, err: err}
				}
			case "n", "N", "esc":
				m.confirming = false
			}
			return m, nil
		}
		switch msg.String() {
		case "esc", "backspace":
			return m, navigate(routes.Courses)
		case "e":
			return m, navigate(routes.WithID(routes.CourseEdit, m.id))
		case "d":
			if m.course != nil && !m.deleting {
				m.confirming = true
			}
		case "c":
			return m, copyCmd("course id", strconv.Itoa(m.id))
		case "o":
			if m.course != nil && m.course.CoverPictureURL != "" {
				return m, openCmd(m.api.ResolveURL(m.course.CoverPictureURL))
			}
			return m, toast("No cover picture")
		case "j", "down":
			m.scroll++
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m courseDetailModel) helpKeys() string {
	if m.confirming {
		return strings.Join([]string{helpEntry("y", "delete"), helpEntry("n", "keep")}, "  ")
	}
	return strings.Join([]string{
		helpEntry("esc", "back"),
		helpEntry("e", "edit"),
		helpEntry("d", "delete"),
		helpEntry("c", "copy id"),
		helpEntry("o", "open cover"),
		helpEntry("?", "help"),
	}, "  ")
}

func (m courseDetailModel) View() string {
	if m.loading && m.course == nil {
		return "\n " + dimStyle.Render("loading...") + "\n"
	}
	if m.course == nil {
		return "\n " + errorStyle.Render("error: "+m.err) + "\n " + metaStyle.Render("press esc to go back") + "\n"
	}
	c := m.course

	var b strings.Builder
	b.WriteString("\n " + selectedStyle.Render(oneLine(c.Title)) + "\n")
	meta := []string{metaStyle.Render("#" + strconv.Itoa(c.ID))}
	if c.CategoryName != "" {
		meta = append(meta, dimStyle.Render(c.CategoryName))
	}
	if c.CourseLevel != 0 {
		meta = append(meta, LevelStyle(c.CourseLevel).Render(c.CourseLevel.String()))
	}
	meta = append(meta, normalStyle.Render(formatPrice(c.Price)), ratingStars(c.Rating))
	b.WriteString(" " + strings.Join(meta, dimStyle.Render(" · ")) + "\n")
	if c.InstructorName != "" {
		b.WriteString(" " + dimStyle.Render("by "+c.InstructorName) + "\n")
	}
	if d := formatDate(c.CreatedAt); d != "" {
		b.WriteString(" " + metaStyle.Render("created "+d) + "\n")
	}
	if c.CoverPictureURL != "" {
		b.WriteString(" " + metaStyle.Render("cover "+m.api.ResolveURL(c.CoverPictureURL)) + "\n")
	}

	textW := 76
	if m.width > 4 && m.width-4 < textW {
		textW = m.width - 4
	}
	b.WriteString("\n " + sectionHeaderStyle.Render("DESCRIPTION") + "\n")
	desc := lipgloss.NewStyle().Width(textW).Render(normalStyle.Render(c.Description))
	for _, line := range strings.Split(desc, "\n") {
		b.WriteString(" " + line + "\n")
	}

	b.WriteString("\n " + sectionHeaderStyle.Render("CONTENT") + "\n")
	if len(c.Contents) == 0 {
		b.WriteString(" " + dimStyle.Render("no sections") + "\n")
	}
	var lectures int
	var hours float64
	for i, s := range c.Contents {
		lectures += s.LecturesCount
		hours += s.DurationInHours
		fmt.Fprintf(&b, " %s %s %s %s\n",
			metaStyle.Render(fmt.Sprintf("%2d.", i+1)),
			normalStyle.Render(padRight(s.Name, 40)),
			dimStyle.Render(padRight(strconv.Itoa(s.LecturesCount)+" lectures", 14)),
			dimStyle.Render(formatHours(s.DurationInHours)))
	}
	if len(c.Contents) > 0 {
		fmt.Fprintf(&b, " %s\n", metaStyle.Render(fmt.Sprintf("%d sections · %d lectures · %s",
			len(c.Contents), lectures, formatHours(hours))))
	}

	if m.confirming {
		b.WriteString("\n " + warnStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone. (y/n)", c.Title)) + "\n")
	}

	out := b.String()
	if m.scroll > 0 {
		lines := strings.Split(out, "\n")
		skip := min(m.scroll, max(len(lines)-1, 0))
		out = strings.Join(lines[skip:], "\n")
	}
	return out
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
)

type instructorFormLoadedMsg struct {
	id         int
	titles     []domain.JobTitle
	instructor *domain.Instructor
	err        error
}

type instructorSavedMsg struct {
	id         int
	instructor *domain.Instructor
	err        error
}

type instructorField int

const (
	instName instructorField = iota
	instJobTitle
	instAbout
	instRating
	instPicture
	numInstructorFields
)

var instructorKeys = [numInstructorFields]string{
	instName:     "name",
	instJobTitle: "jobTitle",
	instAbout:    "about",
	instRating:   "rating",
	instPicture:  "profilePicture",
}

type instructorFormModel struct {
	api API
	id  int

	name       string
	titleIdx   int
	about      string
	rating     string
	picture    string
	pictureURL string
	focus      instructorField

	titles []domain.JobTitle

	fieldErrs  domain.FieldErrors
	err        string
	loading    bool
	submitting bool
	width      int
	height     int
}

func newInstructorFormModel(api API, id int) instructorFormModel {
	return instructorFormModel{api: api, id: id, titleIdx: -1, loading: true}
}

func (m instructorFormModel) editing() bool { return m.id != 0 }

func (m instructorFormModel) Init() tea.Cmd {
	api, id := m.api, m.id
	return func() tea.Msg {
		out := instructorFormLoadedMsg{id: id}
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			ts, err := api.ListJobTitles(ctx)
			if err != nil {
				return fmt.Errorf("job titles: %w", err)
			}
			out.titles = ts
			return nil
		})
		if id != 0 {
			g.Go(func() error {
				in, err := api.GetInstructor(ctx, id)
				if err != nil {
					return fmt.Errorf("instructor: %w", err)
				}
				if in == nil {
					return errors.New("instructor not found")
				}
				out.instructor = in
				return nil
			})
		}
		out.err = g.Wait()
		return out
	}
}

func (m instructorFormModel) Update(msg tea.Msg) (instructorFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case instructorFormLoadedMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.titles = msg.titles
		if in := msg.instructor; in != nil {
			m.name = in.Name
			m.about = in.About
			m.pictureURL = in.ProfilePictureURL
			rating := in.Rating
			if rating == 0 {
				rating = in.AverageRating
			}
			if rating > 0 {
				m.rating = strconv.FormatFloat(rating, 'f', -1, 64)
			}
			if jt, ok := domain.MatchJobTitle(m.titles, in.JobTitle); ok {
				for i, t := range m.titles {
					if t == jt {
						m.titleIdx = i
					}
				}
			}
		}

	case instructorSavedMsg:
		if msg.id != m.id {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			var fe domain.FieldErrors
			if errors.As(msg.err, &fe) {
				m.fieldErrs = fe
			}
			m.err = errText(msg.err)
			return m, nil
		}
		text := "Instructor added"
		if m.editing() {
			text = "Instructor updated"
		}
		return m, tea.Batch(toast(text), navigate(routes.Instructors))

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		key := msg.String()
		if key == "esc" {
			return m, navigate(routes.Instructors)
		}
		if m.loading {
			return m, nil
		}
		switch key {
		case "tab", "down":
			m.focus = instructorField(cycle(int(m.focus), 1, int(numInstructorFields)))
			return m, nil
		case "shift+tab", "up":
			m.focus = instructorField(cycle(int(m.focus), -1, int(numInstructorFields)))
			return m, nil
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.focus == numInstructorFields-1 {
				return m.submit()
			}
			m.focus++
			return m, nil
		}
		switch m.focus {
		case instName:
			m.name = editRune(m.name, key)
		case instAbout:
			m.about = editRune(m.about, key)
		case instRating:
			m.rating = editNumber(m.rating, key, true)
		case instPicture:
			m.picture = editRune(m.picture, key)
		case instJobTitle:
			switch key {
			case "right", "l", " ":
				m.titleIdx = cycle(m.titleIdx, 1, len(m.titles))
			case "left", "h":
				m.titleIdx = cycle(m.titleIdx, -1, len(m.titles))
			}
		}
	}
	return m, nil
}

func (m instructorFormModel) input() (domain.InstructorInput, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	in := domain.InstructorInput{
		ID:             m.id,
		Name:           strings.TrimSpace(m.name),
		About:          strings.TrimSpace(m.about),
		ProfilePicture: strings.TrimSpace(m.picture),
	}
	if m.titleIdx >= 0 && m.titleIdx < len(m.titles) {
		in.JobTitle = m.titles[m.titleIdx].Code()
	}
	if m.rating != "" {
		r, err := strconv.ParseFloat(m.rating, 64)
		if err != nil {
			errs["rating"] = "rating must be a number"
		}
		in.Rating = r
	}
	if in.ProfilePicture != "" {
		if st, err := os.Stat(in.ProfilePicture); err != nil || st.IsDir() {
			errs["profilePicture"] = "profilePicture must be an image file"
		}
	}
	return in, errs
}

func (m instructorFormModel) submit() (instructorFormModel, tea.Cmd) {
	in, errs := m.input()
	errs = merge(errs, domain.ValidateInstructor(in))
	if len(errs) > 0 {
		m.fieldErrs = errs
		m.err = "fix the highlighted fields"
		for f := instName; f < numInstructorFields; f++ {
			if _, ok := errs[instructorKeys[f]]; ok {
				m.focus = f
				break
			}
		}
		return m, nil
	}
	m.fieldErrs = nil
	m.err = ""
	m.submitting = true
	api, id := m.api, m.id
	return m, func() tea.Msg {
		var out *domain.Instructor
		var err error
		if id != 0 {
			out, err = api.UpdateInstructor(context.Background(), id, in)
		} else {
			out, err = api.CreateInstructor(context.Background(), in)
		}
		return instructorSavedMsg{id: id, instructor: out, err: err}
	}
}

func (m instructorFormModel) helpKeys() string {
	return strings.Join([]string{
		helpEntry("tab", "next field"),
		helpEntry("← →", "job title"),
		helpEntry("ctrl+s", "save"),
		helpEntry("esc", "cancel"),
	}, "  ")
}

func (m instructorFormModel) View() string {
	var b strings.Builder
	title := "New instructor"
	if m.editing() {
		title = "Edit instructor #" + strconv.Itoa(m.id)
	}
	b.WriteString("\n " + selectedStyle.Render(title) + "\n\n")
	if m.loading {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}

	fe := m.fieldErrs
	b.WriteString(renderField("name", m.name, m.focus == instName, false, fe[instructorKeys[instName]]))
	jobTitle := ""
	if m.titleIdx >= 0 && m.titleIdx < len(m.titles) {
		jobTitle = m.titles[m.titleIdx].Title
	}
	b.WriteString(renderSelect("job title", jobTitle, m.focus == instJobTitle, fe[instructorKeys[instJobTitle]]))
	about := m.about
	if m.focus != instAbout {
		about = truncStr(oneLine(about), 60)
	}
	b.WriteString(renderField("about", about, m.focus == instAbout, false, fe[instructorKeys[instAbout]]))
	b.WriteString(renderField("rating", m.rating, m.focus == instRating, false, fe[instructorKeys[instRating]]))
	b.WriteString(renderField("picture file", m.picture, m.focus == instPicture, false, fe[instructorKeys[instPicture]]))
	if m.pictureURL != "" && m.picture == "" {
		b.WriteString("   " + padRight("", 14) + " " + metaStyle.Render("keeping "+m.pictureURL) + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(" " + dimStyle.Render("saving...") + "\n")
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
)

// -- messages --

type courseFormLoadedMsg struct {
	id          int
	categories  []domain.Category
	instructors []domain.Instructor
	levels      []domain.LevelOption
	course      *domain.Course
	err         error
}

type courseSavedMsg struct {
	id     int
	course *domain.Course
	err    error
}

// -- fields --

type detailField int

const (
	fieldTitle detailField = iota
	fieldDescription
	fieldPrice
	fieldCategory
	fieldInstructor
	fieldLevel
	fieldRating
	fieldCover
	numDetailFields
)

// detailKeys maps each field to the name validation errors use.
var detailKeys = [numDetailFields]string{
	fieldTitle:       "title",
	fieldDescription: "description",
	fieldPrice:       "price",
	fieldCategory:    "categoryId",
	fieldInstructor:  "instructorId",
	fieldLevel:       "courseLevel",
	fieldRating:      "rating",
	fieldCover:       "coverPicture",
}

type sectionField int

const (
	sectionName sectionField = iota
	sectionLectures
	sectionHours
	numSectionFields
)

var sectionKeys = [numSectionFields]string{"name", "lecturesCount", "durationInHours"}

// sectionRow is a section being edited; numbers stay as typed until submit.
type sectionRow struct {
	id       int
	name     string
	lectures string
	hours    string
}

// instructorPickerSize is how many instructors the wizard offers.
const instructorPickerSize = 100

// -- model --

// courseFormModel is the two-step course wizard: details, then sections.
type courseFormModel struct {
	api API
	id  int // 0 when creating

	// step one
	title       string
	description string
	price       string
	cover       string
	coverURL    string
	categoryIdx int
	instructIdx int
	levelIdx    int
	rating      int
	focus       detailField

	// step two
	sections   []sectionRow
	sectionIdx int
	sectionCol sectionField

	step int // 1 or 2

	categories  []domain.Category
	instructors []domain.Instructor
	levels      []domain.LevelOption

	fieldErrs  domain.FieldErrors
	err        string
	loading    bool
	submitting bool
	width      int
	height     int
}

func newCourseFormModel(api API, id int) courseFormModel {
	return courseFormModel{
		api:         api,
		id:          id,
		step:        1,
		rating:      5,
		categoryIdx: -1,
		instructIdx: -1,
		levelIdx:    0,
		sections:    []sectionRow{{}},
		levels:      domain.DefaultLevels,
		loading:     true,
	}
}

func (m courseFormModel) editing() bool { return m.id != 0 }

// Init loads the pick lists, and the course when editing, in parallel.
func (m courseFormModel) Init() tea.Cmd {
	api, id := m.api, m.id
	return func() tea.Msg {
		out := courseFormLoadedMsg{id: id}
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			cs, err := api.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("categories: %w", err)
			}
			out.categories = cs
			return nil
		})
		g.Go(func() error {
			f := domain.DefaultInstructorFilters()
			f.PageSize = instructorPickerSize
			p, err := api.ListInstructors(ctx, f)
			if err != nil {
				return fmt.Errorf("instructors: %w", err)
			}
			out.instructors = p.Items
			return nil
		})
		g.Go(func() error {
			// The level list is optional; the defaults cover the API's values.
			if ls, err := api.ListLevels(ctx); err == nil && len(ls) > 0 {
				out.levels = ls
			}
			return nil
		})
		if id != 0 {
			g.Go(func() error {
				c, err := api.GetCourse(ctx, id)
				if err != nil {
					return fmt.Errorf("course: %w", err)
				}
				if c == nil {
					return errors.New("course not found")
				}
				out.course = c
				return nil
			})
		}
		out.err = g.Wait()
		return out
	}
}

func (m courseFormModel) Update(msg tea.Msg) (courseFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case courseFormLoadedMsg:
		// Drop what a form for another course asked for.
		if msg.id != m.id {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.categories = msg.categories
		m.instructors = msg.instructors
		if len(msg.levels) > 0 {
			m.levels = msg.levels
		}
		if msg.course != nil {
			m = m.prefill(*msg.course)
		}

	case courseSavedMsg:
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
		text := "Course created"
		if m.editing() {
			text = "Course updated"
		}
		target := routes.Courses
		if msg.course != nil && msg.course.ID != 0 {
			target = routes.WithID(routes.CourseDetail, msg.course.ID)
		} else if m.editing() {
			target = routes.WithID(routes.CourseDetail, m.id)
		}
		return m, tea.Batch(toast(text), navigate(target))

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		if m.loading {
			if msg.String() == "esc" {
				return m, m.cancel()
			}
			return m, nil
		}
		if m.step == 2 {
			return m.updateSections(msg)
		}
		return m.updateDetails(msg)
	}
	return m, nil
}

func (m courseFormModel) prefill(c domain.Course) courseFormModel {
	d := domain.DetailsFromCourse(c)
	m.title = d.Title
	m.description = d.Description
	m.price = d.Price.String()
	m.coverURL = d.CoverPictureURL
	m.rating = d.Rating
	m.categoryIdx = -1
	for i, cat := range m.categories {
		if cat.ID == d.CategoryID {
			m.categoryIdx = i
		}
	}
	m.instructIdx = -1
	for i, in := range m.instructors {
		if in.ID == d.InstructorID {
			m.instructIdx = i
		}
	}
	// Keep a course's instructor selectable even when it falls outside the
	// first page of instructors.
	if m.instructIdx < 0 && d.InstructorID != 0 {
		m.instructors = append(m.instructors, domain.Instructor{ID: d.InstructorID, Name: c.InstructorName})
		m.instructIdx = len(m.instructors) - 1
	}
	for i, l := range m.levels {
		if l.Value == d.CourseLevel {
			m.levelIdx = i
		}
	}
	if len(c.Contents) > 0 {
		m.sections = make([]sectionRow, len(c.Contents))
		for i, s := range c.Contents {
			m.sections[i] = sectionRow{
				id:       s.ID,
				name:     s.Name,
				lectures: strconv.Itoa(s.LecturesCount),
				hours:    strconv.FormatFloat(s.DurationInHours, 'f', -1, 64),
			}
		}
	}
	return m
}

func (m courseFormModel) cancel() tea.Cmd {
	if m.editing() {
		return navigate(routes.WithID(routes.CourseDetail, m.id))
	}
	return navigate(routes.Courses)
}

func (m courseFormModel) updateDetails(msg tea.KeyMsg) (courseFormModel, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		return m, m.cancel()
	case "tab", "down":
		m.focus = detailField(cycle(int(m.focus), 1, int(numDetailFields)))
		return m, nil
	case "shift+tab", "up":
		m.focus = detailField(cycle(int(m.focus), -1, int(numDetailFields)))
		return m, nil
	case "enter", "ctrl+n":
		return m.next()
	case "ctrl+s":
		return m.submit()
	}

	switch m.focus {
	case fieldTitle:
		m.title = editRune(m.title, key)
	case fieldDescription:
		m.description = editRune(m.description, key)
	case fieldPrice:
		m.price = editNumber(m.price, key, true)
	case fieldCover:
		m.cover = editRune(m.cover, key)
	case fieldCategory, fieldInstructor, fieldLevel, fieldRating:
		delta := 0
		switch key {
		case "right", "l", " ":
			delta = 1
		case "left", "h":
			delta = -1
		}
		if delta != 0 {
			m = m.cycleSelect(delta)
		}
	}
	return m, nil
}

func (m courseFormModel) cycleSelect(delta int) courseFormModel {
	switch m.focus {
	case fieldCategory:
		m.categoryIdx = cycle(m.categoryIdx, delta, len(m.categories))
	case fieldInstructor:
		m.instructIdx = cycle(m.instructIdx, delta, len(m.instructors))
	case fieldLevel:
		m.levelIdx = cycle(m.levelIdx, delta, len(m.levels))
	case fieldRating:
		m.rating = cycle(m.rating-1, delta, 5) + 1
	}
	return m
}

func (m courseFormModel) updateSections(msg tea.KeyMsg) (courseFormModel, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "ctrl+b":
		m.step = 1
		return m, nil
	case "ctrl+s":
		return m.submit()
	case "ctrl+a":
		m.sections = append(m.sections, sectionRow{})
		m.sectionIdx = len(m.sections) - 1
		m.sectionCol = sectionName
		return m, nil
	case "ctrl+d":
		if len(m.sections) == 0 {
			return m, nil
		}
		m.sections = append(m.sections[:m.sectionIdx:m.sectionIdx], m.sections[m.sectionIdx+1:]...)
		if m.sectionIdx >= len(m.sections) {
			m.sectionIdx = max(len(m.sections)-1, 0)
		}
		m.fieldErrs = nil
		return m, nil
	case "tab", "enter":
		m.sectionCol++
		if m.sectionCol >= numSectionFields {
			m.sectionCol = sectionName
			m.sectionIdx = cycle(m.sectionIdx, 1, len(m.sections))
		}
		return m, nil
	case "shift+tab":
		if m.sectionCol == sectionName {
			m.sectionCol = numSectionFields - 1
			m.sectionIdx = cycle(m.sectionIdx, -1, len(m.sections))
		} else {
			m.sectionCol--
		}
		return m, nil
	case "down":
		m.sectionIdx = cycle(m.sectionIdx, 1, len(m.sections))
		return m, nil
	case "up":
		m.sectionIdx = cycle(m.sectionIdx, -1, len(m.sections))
		return m, nil
	}

	if m.sectionIdx >= len(m.sections) {
		return m, nil
	}
	row := &m.sections[m.sectionIdx]
	switch m.sectionCol {
	case sectionName:
		row.name = editRune(row.name, key)
	case sectionLectures:
		row.lectures = editNumber(row.lectures, key, false)
	case sectionHours:
		row.hours = editNumber(row.hours, key, true)
	}
	return m, nil
}

// details builds step one; parse problems come back as field errors.
func (m courseFormModel) details() (domain.CourseDetails, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	d := domain.CourseDetails{
		ID:              m.id,
		Title:           strings.TrimSpace(m.title),
		Description:     strings.TrimSpace(m.description),
		Rating:          m.rating,
		CoverPicture:    strings.TrimSpace(m.cover),
		CoverPictureURL: m.coverURL,
	}
	if s := strings.TrimSpace(m.price); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil {
			errs["price"] = "price must be a number"
		}
		d.Price = p
	}
	if m.categoryIdx >= 0 && m.categoryIdx < len(m.categories) {
		d.CategoryID = m.categories[m.categoryIdx].ID
	}
	if m.instructIdx >= 0 && m.instructIdx < len(m.instructors) {
		d.InstructorID = m.instructors[m.instructIdx].ID
	}
	if m.levelIdx >= 0 && m.levelIdx < len(m.levels) {
		d.CourseLevel = m.levels[m.levelIdx].Value
	}
	if d.CoverPicture != "" {
		if st, err := os.Stat(d.CoverPicture); err != nil || st.IsDir() {
			errs["coverPicture"] = "coverPicture must be an image file"
		}
	}
	return d, errs
}

func (m courseFormModel) sectionsInput() ([]domain.CourseSection, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	out := make([]domain.CourseSection, len(m.sections))
	for i, r := range m.sections {
		s := domain.CourseSection{ID: r.id, Name: strings.TrimSpace(r.name)}
		if r.lectures != "" {
			n, err := strconv.Atoi(r.lectures)
			if err != nil {
				errs[fmt.Sprintf("contents[%d].lecturesCount", i)] = "lecturesCount must be a whole number"
			}
			s.LecturesCount = n
		}
		if r.hours != "" {
			h, err := strconv.ParseFloat(r.hours, 64)
			if err != nil {
				errs[fmt.Sprintf("contents[%d].durationInHours", i)] = "durationInHours must be a number"
			}
			s.DurationInHours = h
		}
		out[i] = s
	}
	return out, errs
}

// merge folds validation errors into parse errors; parse errors win.
func merge(dst domain.FieldErrors, err error) domain.FieldErrors {
	var fe domain.FieldErrors
	if errors.As(err, &fe) {
		for k, v := range fe {
			if _, ok := dst[k]; !ok {
				dst[k] = v
			}
		}
	}
	return dst
}

// next validates the details and moves to the sections step.
func (m courseFormModel) next() (courseFormModel, tea.Cmd) {
	d, errs := m.details()
	errs = merge(errs, domain.ValidateCourseDetails(d))
	m.fieldErrs = errs
	if len(errs) > 0 {
		m.err = "fix the highlighted fields"
		return m.focusFirstError(), nil
	}
	m.err = ""
	m.step = 2
	return m, nil
}

func (m courseFormModel) focusFirstError() courseFormModel {
	for f := fieldTitle; f < numDetailFields; f++ {
		if _, ok := m.fieldErrs[detailKeys[f]]; ok {
			m.focus = f
			return m
		}
	}
	return m
}

func (m courseFormModel) submit() (courseFormModel, tea.Cmd) {
	d, errs := m.details()
	errs = merge(errs, domain.ValidateCourseDetails(d))
	if len(errs) > 0 {
		m.fieldErrs = errs
		m.step = 1
		m.err = "fix the highlighted fields"
		return m.focusFirstError(), nil
	}
	sections, serrs := m.sectionsInput()
	serrs = merge(serrs, domain.ValidateCourseSections(sections))
	if len(serrs) > 0 {
		m.fieldErrs = serrs
		m.step = 2
		m.err = "fix the highlighted sections"
		if _, ok := serrs["contents"]; ok && len(m.sections) == 0 {
			m.err = "add at least one section (ctrl+a)"
		}
		return m, nil
	}

	m.fieldErrs = nil
	m.err = ""
	m.submitting = true
	api, id := m.api, m.id
	return m, func() tea.Msg {
		var c *domain.Course
		var err error
		if id != 0 {
			c, err = api.UpdateCourse(context.Background(), id, d, sections)
		} else {
			c, err = api.CreateCourse(context.Background(), d, sections)
		}
		return courseSavedMsg{id: id, course: c, err: err}
	}
}

func (m courseFormModel) helpKeys() string {
	if m.step == 2 {
		return strings.Join([]string{
			helpEntry("tab", "next"),
			helpEntry("ctrl+a", "add section"),
			helpEntry("ctrl+d", "remove"),
			helpEntry("ctrl+b", "back"),
			helpEntry("ctrl+s", "save"),
		}, "  ")
	}
	return strings.Join([]string{
		helpEntry("tab", "next field"),
		helpEntry("← →", "choose"),
		helpEntry("enter", "continue"),
		helpEntry("ctrl+s", "save"),
		helpEntry("esc", "cancel"),
	}, "  ")
}

func (m courseFormModel) View() string {
	var b strings.Builder
	title := "New course"
	if m.editing() {
		title = "Edit course #" + strconv.Itoa(m.id)
	}
	steps := dimStyle.Render("1 details") + metaStyle.Render(" › ") + metaStyle.Render("2 content")
	if m.step == 2 {
		steps = metaStyle.Render("1 details") + metaStyle.Render(" › ") + dimStyle.Render("2 content")
	}
	b.WriteString("\n " + selectedStyle.Render(title) + "   " + steps + "\n\n")

	if m.loading {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.step == 2 {
		b.WriteString(m.sectionsView())
	} else {
		b.WriteString(m.detailsView())
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

func (m courseFormModel) detailsView() string {
	var b strings.Builder
	fe := m.fieldErrs
	b.WriteString(renderField("title", m.title, m.focus == fieldTitle, false, fe[detailKeys[fieldTitle]]))
	desc := m.description
	if m.focus != fieldDescription {
		desc = truncStr(oneLine(desc), 60)
	}
	descLabel := fmt.Sprintf("description %d", len([]rune(m.description)))
	b.WriteString(renderField(descLabel, desc, m.focus == fieldDescription, false, fe[detailKeys[fieldDescription]]))
	b.WriteString(renderField("price", m.price, m.focus == fieldPrice, false, fe[detailKeys[fieldPrice]]))

	category := ""
	if m.categoryIdx >= 0 && m.categoryIdx < len(m.categories) {
		category = m.categories[m.categoryIdx].Name
	}
	b.WriteString(renderSelect("category", category, m.focus == fieldCategory, fe[detailKeys[fieldCategory]]))
	instructor := ""
	if m.instructIdx >= 0 && m.instructIdx < len(m.instructors) {
		instructor = m.instructors[m.instructIdx].Name
	}
	b.WriteString(renderSelect("instructor", instructor, m.focus == fieldInstructor, fe[detailKeys[fieldInstructor]]))
	level := ""
	if m.levelIdx >= 0 && m.levelIdx < len(m.levels) {
		level = m.levels[m.levelIdx].Name
	}
	b.WriteString(renderSelect("level", level, m.focus == fieldLevel, fe[detailKeys[fieldLevel]]))
	b.WriteString(renderSelect("rating", strings.Repeat("★", m.rating), m.focus == fieldRating, fe[detailKeys[fieldRating]]))

	b.WriteString(renderField("cover file", m.cover, m.focus == fieldCover, false, fe[detailKeys[fieldCover]]))
	if m.coverURL != "" && m.cover == "" {
		b.WriteString("   " + padRight("", 14) + " " + metaStyle.Render("keeping "+m.coverURL) + "\n")
	}
	return b.String()
}

func (m courseFormModel) sectionsView() string {
	var b strings.Builder
	b.WriteString(metaStyle.Render(fmt.Sprintf("    %s %s %s", padRight("SECTION", 36), padRight("LECTURES", 10), "HOURS")) + "\n")
	if len(m.sections) == 0 {
		b.WriteString(" " + dimStyle.Render("no sections, press ctrl+a to add one") + "\n")
	}
	if msg, ok := m.fieldErrs["contents"]; ok {
		b.WriteString(" " + errorStyle.Render(msg) + "\n")
	}
	for i, r := range m.sections {
		active := i == m.sectionIdx
		cursor := " "
		if active {
			cursor = inputPromptStyle.Render(">")
		}
		cell := func(col sectionField, v string, w int) string {
			if active && m.sectionCol == col {
				return selectedStyle.Render(v) + accentStyle.Render("█") + strings.Repeat(" ", max(w-len([]rune(v))-1, 1))
			}
			if v == "" {
				return inputPlaceholderStyle.Render(padRight("—", w))
			}
			return normalStyle.Render(padRight(v, w))
		}
		fmt.Fprintf(&b, " %s %s %s %s %s\n", cursor,
			metaStyle.Render(fmt.Sprintf("%d.", i+1)),
			cell(sectionName, r.name, 34),
			cell(sectionLectures, r.lectures, 10),
			cell(sectionHours, r.hours, 8))
		for c := sectionName; c < numSectionFields; c++ {
			if msg, ok := m.fieldErrs[fmt.Sprintf("contents[%d].%s", i, sectionKeys[c])]; ok {
				b.WriteString("      " + errorStyle.Render(msg) + "\n")
			}
		}
	}
	return b.String()
}

package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// send feeds keys to a sub-model and returns the last command.
func send[M interface{ Update(tea.Msg) (M, tea.Cmd) }](m M, keys ...string) (M, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(key(k))
	}
	return m, cmd
}

// sendText types text one rune at a time.
func sendText[M interface{ Update(tea.Msg) (M, tea.Cmd) }](m M, text string) M {
	for _, r := range text {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func loadedCourseForm(t *testing.T, api *fakeAPI, id int) courseFormModel {
	t.Helper()
	m := newCourseFormModel(api, id)
	msgs := runCmd(m.Init())
	if len(msgs) != 1 {
		t.Fatalf("Init produced %d messages", len(msgs))
	}
	m, _ = m.Update(msgs[0])
	if m.loading {
		t.Fatal("still loading")
	}
	return m
}

func imageFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(p, []byte("\x89PNG"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

var longDescription = strings.Repeat("Learn Go by building real services. ", 4)

func TestCourseFormLoadsOptions(t *testing.T) {
	api := sampleAPI()
	api.levelsErr = errBoom
	m := loadedCourseForm(t, api, 0)

	if len(m.categories) != 2 || len(m.instructors) != 2 {
		t.Errorf("categories=%d instructors=%d", len(m.categories), len(m.instructors))
	}
	if len(m.levels) != len(domain.DefaultLevels) {
		t.Errorf("levels = %v, want the defaults", m.levels)
	}
	if got := api.instructorQueries[0].PageSize; got != instructorPickerSize {
		t.Errorf("instructor PageSize = %d, want %d", got, instructorPickerSize)
	}
	if m.rating != 5 || len(m.sections) != 1 {
		t.Errorf("rating=%d sections=%d, want 5 and one empty row", m.rating, len(m.sections))
	}
}

func TestCourseFormPublishedLevels(t *testing.T) {
	api := sampleAPI()
	api.levels = []domain.LevelOption{{Value: domain.LevelAdvanced, Name: "Expert"}}
	m := loadedCourseForm(t, api, 0)
	if len(m.levels) != 1 || m.levels[0].Name != "Expert" {
		t.Errorf("levels = %v", m.levels)
	}
}

func TestCourseFormValidationBlocksSecondStep(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.focus = fieldCover
	m, _ = send(m, "enter")

	if m.step != 1 {
		t.Fatalf("step = %d, want 1", m.step)
	}
	for _, k := range []string{"title", "description", "categoryId", "instructorId", "coverPicture"} {
		if _, ok := m.fieldErrs[k]; !ok {
			t.Errorf("missing error for %s: %v", k, m.fieldErrs)
		}
	}
	if _, ok := m.fieldErrs["price"]; ok {
		t.Error("empty price should count as free")
	}
	if m.focus != fieldTitle {
		t.Errorf("focus = %d, want the first invalid field", m.focus)
	}
	if !strings.Contains(m.View(), "title is required") {
		t.Errorf("view does not show field errors:\n%s", m.View())
	}
}

func TestCourseFormDescriptionLength(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m = sendText(m, "Go")
	m, _ = send(m, "tab")
	m = sendText(m, "too short")
	m, _ = send(m, "ctrl+n")
	if got := m.fieldErrs["description"]; got != "description must be at least 100 characters" {
		t.Errorf("description error = %q", got)
	}
	if _, ok := m.fieldErrs["title"]; ok {
		t.Error("title should be valid")
	}
}

func TestCourseFormCoverMustExist(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.cover = filepath.Join(t.TempDir(), "missing.png")
	m, _ = m.next()
	if got := m.fieldErrs["coverPicture"]; got != "coverPicture must be an image file" {
		t.Errorf("coverPicture error = %q", got)
	}
}

func TestCourseFormCreate(t *testing.T) {
	api := sampleAPI()
	cover := imageFile(t)
	m := loadedCourseForm(t, api, 0)

	m = sendText(m, "Go in Practice")
	m, _ = send(m, "tab")
	m = sendText(m, longDescription)
	m, _ = send(m, "tab")
	m = sendText(m, "19.x5")
	m, _ = send(m, "tab", "l", "tab", "l", "tab", "l", "tab", "h", "tab")
	m = sendText(m, cover)
	m, _ = send(m, "enter")
	if m.step != 2 {
		t.Fatalf("step = %d, errors %v", m.step, m.fieldErrs)
	}

	m = sendText(m, "Basics")
	m, _ = send(m, "tab")
	m = sendText(m, "3")
	m, _ = send(m, "tab")
	m = sendText(m, "1.5")
	m, _ = send(m, "ctrl+a")
	m = sendText(m, "Concurrency")
	m, _ = send(m, "tab")
	m = sendText(m, "x4")
	m, _ = send(m, "tab")
	m = sendText(m, "2")

	m, cmd := send(m, "ctrl+s")
	if !m.submitting {
		t.Fatalf("not submitting: %s %v", m.err, m.fieldErrs)
	}
	saved, ok := collect[courseSavedMsg](cmd)
	if !ok {
		t.Fatal("no save result")
	}
	m, cmd = m.Update(saved)

	d := api.createdCourse
	if d == nil {
		t.Fatal("CreateCourse not called")
	}
	if d.Title != "Go in Practice" || !d.Price.Equal(decimal.RequireFromString("19.5")) {
		t.Errorf("details = %+v", d)
	}
	if d.CategoryID != 1 || d.InstructorID != 10 || d.CourseLevel != domain.LevelIntermediate || d.Rating != 4 {
		t.Errorf("selections = category %d instructor %d level %d rating %d", d.CategoryID, d.InstructorID, d.CourseLevel, d.Rating)
	}
	if d.CoverPicture != cover {
		t.Errorf("CoverPicture = %q", d.CoverPicture)
	}
	want := []domain.CourseSection{
		{Name: "Basics", LecturesCount: 3, DurationInHours: 1.5},
		{Name: "Concurrency", LecturesCount: 4, DurationInHours: 2},
	}
	if len(api.savedSections) != len(want) {
		t.Fatalf("sections = %+v", api.savedSections)
	}
	for i := range want {
		if api.savedSections[i] != want[i] {
			t.Errorf("section %d = %+v, want %+v", i, api.savedSections[i], want[i])
		}
	}

	if tm, _ := collect[toastMsg](cmd); tm.text != "Course created" {
		t.Errorf("toast = %+v", tm)
	}
	if nav, _ := collect[navigateMsg](cmd); nav.path != "/courses/42" {
		t.Errorf("navigated to %q", nav.path)
	}
}

func TestCourseFormBackKeepsDetails(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.title = "Kept"
	m.step = 2
	m, _ = send(m, "ctrl+b")
	if m.step != 1 || m.title != "Kept" {
		t.Errorf("step=%d title=%q", m.step, m.title)
	}
}

func TestCourseFormSectionErrors(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.title = "Go"
	m.description = longDescription
	m.categoryIdx, m.instructIdx = 0, 0
	m.cover = imageFile(t)
	m.step = 2

	m, cmd := send(m, "ctrl+s")
	if cmd != nil || m.step != 2 {
		t.Fatalf("step=%d cmd=%v", m.step, cmd)
	}
	for _, k := range []string{"contents[0].name", "contents[0].lecturesCount", "contents[0].durationInHours"} {
		if _, ok := m.fieldErrs[k]; !ok {
			t.Errorf("missing %s in %v", k, m.fieldErrs)
		}
	}

	m, _ = send(m, "ctrl+d", "ctrl+s")
	if len(m.sections) != 0 {
		t.Fatalf("sections = %d", len(m.sections))
	}
	if m.err != "add at least one section (ctrl+a)" {
		t.Errorf("err = %q", m.err)
	}
	if !strings.Contains(m.View(), "no sections") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestCourseFormDetailErrorsReturnToFirstStep(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.step = 2
	m, _ = send(m, "ctrl+s")
	if m.step != 1 || m.err != "fix the highlighted fields" {
		t.Errorf("step=%d err=%q", m.step, m.err)
	}
}

func TestCourseFormEdit(t *testing.T) {
	api := sampleAPI()
	api.course = &domain.Course{
		ID: 1, Title: "Go in Practice", Description: longDescription,
		Price: decimal.RequireFromString("25"), CategoryID: 2,
		InstructorID: 99, InstructorName: "Guest Lecturer",
		CourseLevel: domain.LevelAdvanced, Rating: 4.4,
		CoverPictureURL: "/images/go.png",
		Contents:        []domain.CourseContent{{ID: 7, Name: "Intro", LecturesCount: 2, DurationInHours: 0.5}},
	}
	m := loadedCourseForm(t, api, 1)

	if m.categoryIdx != 1 || m.levelIdx != 2 || m.rating != 4 || m.price != "25" {
		t.Errorf("prefill: category=%d level=%d rating=%d price=%q", m.categoryIdx, m.levelIdx, m.rating, m.price)
	}
	if len(m.instructors) != 3 || m.instructors[m.instructIdx].ID != 99 {
		t.Errorf("instructor not kept selectable: %+v idx=%d", m.instructors, m.instructIdx)
	}
	if !strings.Contains(m.View(), "keeping /images/go.png") {
		t.Errorf("view:\n%s", m.View())
	}

	m, cmd := send(m, "ctrl+s")
	saved, ok := collect[courseSavedMsg](cmd)
	if !ok {
		t.Fatalf("no save: %s %v", m.err, m.fieldErrs)
	}
	_, cmd = m.Update(saved)

	d := api.updatedCourse
	if d == nil || d.ID != 1 || d.CoverPicture != "" || d.CoverPictureURL != "/images/go.png" || d.InstructorID != 99 {
		t.Fatalf("update = %+v", d)
	}
	if len(api.savedSections) != 1 || api.savedSections[0].ID != 7 {
		t.Errorf("sections = %+v", api.savedSections)
	}
	if tm, _ := collect[toastMsg](cmd); tm.text != "Course updated" {
		t.Errorf("toast = %+v", tm)
	}
	if nav, _ := collect[navigateMsg](cmd); nav.path != "/courses/1" {
		t.Errorf("navigated to %q", nav.path)
	}
}

func TestCourseFormEditMissingCourse(t *testing.T) {
	m := newCourseFormModel(sampleAPI(), 5)
	m, _ = m.Update(runCmd(m.Init())[0])
	if m.err != "course not found" {
		t.Errorf("err = %q", m.err)
	}
	_, cmd := send(m, "esc")
	if nav, _ := collect[navigateMsg](cmd); nav.path != "/courses/5" {
		t.Errorf("esc navigated to %q", nav.path)
	}
}

func TestCourseFormServerRejection(t *testing.T) {
	m := loadedCourseForm(t, sampleAPI(), 0)
	m.submitting = true
	m, _ = m.Update(courseSavedMsg{err: domain.FieldErrors{"title": "title already exists"}})
	if m.submitting || m.fieldErrs["title"] != "title already exists" {
		t.Errorf("submitting=%v errs=%v", m.submitting, m.fieldErrs)
	}
	if !strings.Contains(m.err, "title already exists") {
		t.Errorf("err = %q", m.err)
	}
}

func TestCourseFormIgnoresAnotherCoursesResponses(t *testing.T) {
	m := newCourseFormModel(sampleAPI(), 7)
	m, _ = m.Update(courseFormLoadedMsg{
		id:         5,
		categories: []domain.Category{{ID: 1, Name: "Backend"}},
		course:     &domain.Course{ID: 5, Title: "Course Five", Contents: []domain.CourseContent{{ID: 55, Name: "Five intro"}}},
	})
	if !m.loading || m.title != "" || m.sections[0].id != 0 {
		t.Fatalf("course 5 applied to course 7: loading=%v title=%q sections=%+v", m.loading, m.title, m.sections)
	}

	m.loading = false
	m.submitting = true
	m, cmd := m.Update(courseSavedMsg{id: 5, course: &domain.Course{ID: 5}})
	if cmd != nil || !m.submitting {
		t.Errorf("save of course 5 finished course 7's submit: submitting=%v", m.submitting)
	}
}

func TestCourseFormLateLoadAfterSwitchingCourse(t *testing.T) {
	e, a := adminApp(t, "/courses")
	e.api.course = &domain.Course{
		ID: 5, Title: "Course Five", CategoryID: 1, InstructorID: 10,
		Contents: []domain.CourseContent{{ID: 55, Name: "Five intro", LecturesCount: 2, DurationInHours: 1}},
	}
	a, cmd := a.navigate("/courses/5/edit")
	late, ok := collect[courseFormLoadedMsg](cmd)
	if !ok {
		t.Fatal("no load for course 5")
	}

	e.api.course = &domain.Course{
		ID: 7, Title: "Course Seven", CategoryID: 2, InstructorID: 11,
		Contents: []domain.CourseContent{{ID: 77, Name: "Seven intro", LecturesCount: 1, DurationInHours: 2}},
	}
	a = goTo(t, a, "/courses/7/edit")
	m, _ := a.Update(late)
	form := m.(App).courseForm
	if form.id != 7 || form.title != "Course Seven" || len(form.sections) != 1 || form.sections[0].id != 77 {
		t.Errorf("form id=%d title=%q sections=%+v, want course 7", form.id, form.title, form.sections)
	}
}

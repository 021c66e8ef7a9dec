package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/byway-lms/byway-admin/pkg/domain"
	"github.com/byway-lms/byway-admin/pkg/routes"
	"github.com/byway-lms/byway-admin/pkg/session"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  "Ada",
		"email": "ada@byway.dev",
		"role":  role,
		"exp":   exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// fakeAPI is an in-memory API. Only the fields a test sets matter.
type fakeAPI struct {
	mu sync.Mutex

	stats    domain.DashboardStats
	statsErr error

	courses     []domain.Course
	courseLast  int
	coursesErr  error
	course      *domain.Course
	categories  []domain.Category
	levels      []domain.LevelOption
	levelsErr   error
	instructors []domain.Instructor
	instructor  *domain.Instructor
	jobTitles   []domain.JobTitle

	saveErr   error
	deleteMsg string

	courseQueries     []domain.CourseFilters
	instructorQueries []domain.InstructorFilters
	createdCourse     *domain.CourseDetails
	updatedCourse     *domain.CourseDetails
	savedSections     []domain.CourseSection
	savedInstructor   *domain.InstructorInput
	deleted           []int
}

func (f *fakeAPI) DashboardStats(context.Context) (domain.DashboardStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeAPI) ListCourses(_ context.Context, q domain.CourseFilters) (domain.Page[domain.Course], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courseQueries = append(f.courseQueries, q)
	if f.coursesErr != nil {
		return domain.Page[domain.Course]{}, f.coursesErr
	}
	last := max(f.courseLast, 1)
	return domain.Page[domain.Course]{
		Items:     append([]domain.Course(nil), f.courses...),
		PageIndex: q.PageIndex,
		PageSize:  q.EffectivePageSize(),
		Total:     len(f.courses),
		LastPage:  last,
	}, nil
}

func (f *fakeAPI) lastCourseQuery() domain.CourseFilters {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.courseQueries) == 0 {
		return domain.CourseFilters{}
	}
	return f.courseQueries[len(f.courseQueries)-1]
}

func (f *fakeAPI) GetCourse(context.Context, int) (*domain.Course, error) {
	return f.course, nil
}

func (f *fakeAPI) CreateCourse(_ context.Context, d domain.CourseDetails, s []domain.CourseSection) (*domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.createdCourse = &d
	f.savedSections = s
	return &domain.Course{ID: 42, Title: d.Title}, nil
}

func (f *fakeAPI) UpdateCourse(_ context.Context, id int, d domain.CourseDetails, s []domain.CourseSection) (*domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.updatedCourse = &d
	f.savedSections = s
	return &domain.Course{ID: id, Title: d.Title}, nil
}

func (f *fakeAPI) DeleteCourse(_ context.Context, id int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteMsg, nil
}

func (f *fakeAPI) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeAPI) ListLevels(context.Context) ([]domain.LevelOption, error) {
	return f.levels, f.levelsErr
}

func (f *fakeAPI) ListInstructors(_ context.Context, q domain.InstructorFilters) (domain.Page[domain.Instructor], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instructorQueries = append(f.instructorQueries, q)
	return domain.Page[domain.Instructor]{
		Items:     append([]domain.Instructor(nil), f.instructors...),
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
		Total:     len(f.instructors),
		LastPage:  1,
	}, nil
}

func (f *fakeAPI) GetInstructor(context.Context, int) (*domain.Instructor, error) {
	return f.instructor, nil
}

func (f *fakeAPI) CreateInstructor(_ context.Context, in domain.InstructorInput) (*domain.Instructor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.savedInstructor = &in
	return &domain.Instructor{ID: 7, Name: in.Name}, nil
}

func (f *fakeAPI) UpdateInstructor(_ context.Context, id int, in domain.InstructorInput) (*domain.Instructor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.savedInstructor = &in
	return &domain.Instructor{ID: id, Name: in.Name}, nil
}

func (f *fakeAPI) DeleteInstructor(_ context.Context, id int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteMsg, nil
}

func (f *fakeAPI) ListJobTitles(context.Context) ([]domain.JobTitle, error) {
	return f.jobTitles, nil
}

func (f *fakeAPI) ResolveURL(p string) string {
	if strings.HasPrefix(p, "http") {
		return p
	}
	return "https://api.byway.test" + p
}

// fakeAuth signs in by storing token in the guard's store.
type fakeAuth struct {
	store   session.Store
	token   string
	err     error
	calls   int
	logouts int
}

func (a *fakeAuth) Login(_ context.Context, email, password string) (session.User, error) {
	a.calls++
	if a.err != nil {
		return session.User{}, a.err
	}
	if err := a.store.Set(a.token); err != nil {
		return session.User{}, err
	}
	return session.User{Name: "Ada", Email: email, Role: "admin"}, nil
}

func (a *fakeAuth) Logout() error {
	a.logouts++
	return a.store.Remove()
}

// testEnv is an App wired to fakes with a controllable clock.
type testEnv struct {
	api   *fakeAPI
	auth  *fakeAuth
	store *session.MemoryStore
	guard *session.Guard
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{api: sampleAPI(), store: session.NewMemoryStore(), now: fixedNow}
	e.guard = session.NewGuard(e.store, session.WithClock(func() time.Time { return e.now }))
	e.auth = &fakeAuth{store: e.store, token: signToken(t, "Admin", fixedNow.Add(time.Hour))}
	return e
}

func (e *testEnv) signIn(t *testing.T, role string) {
	t.Helper()
	if err := e.store.Set(signToken(t, role, e.now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) app(opts ...routes.Option) App {
	var router *routes.Router
	if len(opts) > 0 {
		router = routes.New(e.guard, opts...)
	}
	a := NewApp(Deps{API: e.api, Auth: e.auth, Guard: e.guard, Router: router, Version: "test"})
	a.width = 120
	a.height = 40
	return a
}

func sampleAPI() *fakeAPI {
	return &fakeAPI{
		stats: domain.DashboardStats{
			InstructorsCount: 4, CoursesCount: 12, CategoriesCount: 4,
			TotalRevenue: decimal.RequireFromString("1234.5"),
			Distribution: domain.Distribution{Instructors: 20, Categories: 20, Courses: 60},
		},
		courses: []domain.Course{
			{ID: 1, Title: "Go in Practice", Price: decimal.RequireFromString("19.99"), CategoryName: "Backend", InstructorName: "Rob", CourseLevel: domain.LevelIntermediate, Rating: 4.5, CoverPictureURL: "/images/go.png"},
			{ID: 2, Title: "Intro to Design", Price: decimal.Zero, CategoryName: "Design", InstructorName: "Dee", CourseLevel: domain.LevelBeginner, Rating: 3},
		},
		categories: []domain.Category{{ID: 1, Name: "Backend"}, {ID: 2, Name: "Design"}},
		instructors: []domain.Instructor{
			{ID: 10, Name: "Rob Pike", JobTitle: "Backend Developer", CoursesCount: 3, ProfilePictureURL: "/images/rob.png"},
			{ID: 11, Name: "Dee Rams", JobTitle: "UI/UX Designer", CoursesCount: 1},
		},
		jobTitles: []domain.JobTitle{
			{ID: 1, Title: "Fullstack Developer"},
			{ID: 2, Title: "Backend Developer"},
			{ID: 3, Title: "UI/UX Designer", Value: 9},
		},
	}
}

// key builds the KeyMsg bubbletea delivers for s.
func key(s string) tea.KeyMsg {
	named := map[string]tea.KeyType{
		"enter":     tea.KeyEnter,
		"esc":       tea.KeyEsc,
		"tab":       tea.KeyTab,
		"shift+tab": tea.KeyShiftTab,
		"backspace": tea.KeyBackspace,
		"up":        tea.KeyUp,
		"down":      tea.KeyDown,
		"left":      tea.KeyLeft,
		"right":     tea.KeyRight,
		"ctrl+a":    tea.KeyCtrlA,
		"ctrl+b":    tea.KeyCtrlB,
		"ctrl+c":    tea.KeyCtrlC,
		"ctrl+d":    tea.KeyCtrlD,
		"ctrl+n":    tea.KeyCtrlN,
		"ctrl+s":    tea.KeyCtrlS,
	}
	if k, ok := named[s]; ok {
		return tea.KeyMsg{Type: k}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText sends one key per rune.
func typeText(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

// runCmd executes cmd and flattens batches.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// settle feeds cmd's messages back into m until no work is left. Animation
// ticks and toast expiry are dropped so the loop ends.
func settle(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	queue := runCmd(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("model did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case shimmerTickMsg, toastExpiredMsg, tea.QuitMsg:
			continue
		}
		var next tea.Cmd
		m, next = m.Update(msg)
		queue = append(queue, runCmd(next)...)
	}
	return m
}

// press sends k to m and settles the result.
func press(t *testing.T, m tea.Model, keys ...string) tea.Model {
	t.Helper()
	for _, k := range keys {
		var cmd tea.Cmd
		m, cmd = m.Update(key(k))
		m = settle(t, m, cmd)
	}
	return m
}

// goTo routes a to path and settles.
func goTo(t *testing.T, a App, path string) App {
	t.Helper()
	return settle(t, a, navigate(path)).(App)
}

// collect runs cmd and returns the first message of type T.
func collect[T tea.Msg](cmd tea.Cmd) (T, bool) {
	for _, msg := range runCmd(cmd) {
		if m, ok := msg.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

var errBoom = errors.New("boom")

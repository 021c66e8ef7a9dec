package tui

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/byway-lms/byway-admin/pkg/routes"
	"github.com/byway-lms/byway-admin/pkg/session"
)

func TestMain(m *testing.M) {
	toastTTL = time.Millisecond
	os.Exit(m.Run())
}

func TestAppGuardsEveryNavigation(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		path     string
		wantView view
		wantPath string
	}{
		{"no session goes to login", "", routes.Courses, viewLogin, routes.Login},
		{"non-admin is refused", "Student", routes.Courses, viewUnauthorized, routes.Unauthorized},
		{"admin sees courses", "admin", routes.Courses, viewCourses, routes.Courses},
		{"admin role is case-insensitive", "ADMIN", routes.Instructors, viewInstructors, routes.Instructors},
		{"root is the dashboard", "admin", "/", viewDashboard, routes.Dashboard},
		{"unknown path is not found", "admin", "/reports", viewNotFound, "/reports"},
		{"unknown path still needs login", "", "/reports", viewLogin, routes.Login},
		{"login page stays public", "", routes.Login, viewLogin, routes.Login},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			if tt.role != "" {
				e.signIn(t, tt.role)
			}
			a := goTo(t, e.app(), tt.path)
			if a.view != tt.wantView {
				t.Errorf("view = %d, want %d", a.view, tt.wantView)
			}
			if a.path != tt.wantPath {
				t.Errorf("path = %q, want %q", a.path, tt.wantPath)
			}
		})
	}
}

func TestAppLoginReturnsToRequestedPage(t *testing.T) {
	e := newTestEnv(t)
	a := goTo(t, e.app(), routes.Instructors)
	if a.view != viewLogin || a.from != routes.Instructors {
		t.Fatalf("view=%d from=%q, want login with from=/instructors", a.view, a.from)
	}

	m := typeText(a, "ada@byway.dev")
	m = press(t, m, "tab")
	m = typeText(m, "secret")
	m = press(t, m, "enter")
	a = m.(App)

	if e.auth.calls != 1 {
		t.Fatalf("Login called %d times, want 1", e.auth.calls)
	}
	if a.view != viewInstructors {
		t.Errorf("view = %d, want instructors", a.view)
	}
	if !a.hasUser || a.user.Email != "ada@byway.dev" {
		t.Errorf("user = %+v", a.user)
	}
	if !strings.Contains(a.toast.text, "Welcome back, Ada") {
		t.Errorf("toast = %q", a.toast.text)
	}
}

func TestAppLoginErrorsStayOnForm(t *testing.T) {
	e := newTestEnv(t)
	e.auth.err = session.ErrMissingRole
	a := goTo(t, e.app(), routes.Dashboard)

	// Blank credentials never reach the API.
	m := press(t, a, "ctrl+s")
	if e.auth.calls != 0 {
		t.Fatalf("Login called with blank credentials")
	}
	if !strings.Contains(m.View(), "Email and password are required") {
		t.Errorf("missing blank-credentials message:\n%s", m.View())
	}

	m = typeText(m, "ada@byway.dev")
	m = press(t, m, "enter")
	m = typeText(m, "secret")
	m = press(t, m, "enter")
	a = m.(App)
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login", a.view)
	}
	if !strings.Contains(a.View(), "Unauthorized: admin access required") {
		t.Errorf("missing role error:\n%s", a.View())
	}
	if a.login.fields[loginPassword] != "" {
		t.Error("password kept after a failed attempt")
	}
}

func TestAppSessionExpiryNoticedOnKeypress(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Courses)
	if a.view != viewCourses {
		t.Fatalf("view = %d, want courses", a.view)
	}

	e.now = e.now.Add(2 * time.Hour)
	a = press(t, a, "j").(App)
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login after expiry", a.view)
	}
	if a.from != routes.Courses {
		t.Errorf("from = %q, want /courses", a.from)
	}
	if !strings.Contains(a.toast.text, "Session ended") {
		t.Errorf("toast = %q", a.toast.text)
	}
}

func TestAppTokenChangeFromAnotherTerminal(t *testing.T) {
	e := newTestEnv(t)
	a := goTo(t, e.app(), routes.Courses)
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login", a.view)
	}

	e.signIn(t, "admin")
	a = settle(t, a, func() tea.Msg { return tokenChangedMsg{} }).(App)
	if a.view != viewCourses {
		t.Errorf("view = %d, want courses after external sign-in", a.view)
	}

	if err := e.store.Remove(); err != nil {
		t.Fatal(err)
	}
	a = settle(t, a, func() tea.Msg { return tokenChangedMsg{} }).(App)
	if a.view != viewLogin {
		t.Errorf("view = %d, want login after external sign-out", a.view)
	}
}

func TestAppWaitsOnTokenChanges(t *testing.T) {
	e := newTestEnv(t)
	ch := make(chan struct{}, 1)
	a := NewApp(Deps{API: e.api, Auth: e.auth, Guard: e.guard, TokenChanges: ch})

	ch <- struct{}{}
	if _, ok := a.waitForToken()().(tokenChangedMsg); !ok {
		t.Error("expected tokenChangedMsg after a change")
	}
	close(ch)
	if msg := a.waitForToken()(); msg != nil {
		t.Errorf("closed channel produced %T, want nil", msg)
	}
	if (App{}).waitForToken() != nil {
		t.Error("expected no command without a channel")
	}
}

func TestAppLogout(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Dashboard)

	a = press(t, a, "L").(App)
	if e.auth.logouts != 1 {
		t.Errorf("logouts = %d, want 1", e.auth.logouts)
	}
	if a.view != viewLogin || a.hasUser {
		t.Errorf("view=%d hasUser=%v, want login without user", a.view, a.hasUser)
	}
}

func TestAppUnauthorizedOffersSignOut(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "Instructor")
	a := goTo(t, e.app(), routes.Dashboard)
	if !strings.Contains(a.View(), "administrator account") {
		t.Errorf("unauthorized view:\n%s", a.View())
	}
	a = press(t, a, "l").(App)
	if a.view != viewLogin {
		t.Errorf("view = %d, want login", a.view)
	}
	if _, ok := e.store.Get(); ok {
		t.Error("token kept after sign out")
	}
}

func TestAppDevBypass(t *testing.T) {
	e := newTestEnv(t)
	a := goTo(t, e.app(routes.WithDevBypass()), routes.Courses)
	if a.view != viewCourses {
		t.Errorf("view = %d, want courses with the guard bypassed", a.view)
	}
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key      string
		wantView view
	}{
		{"1", viewDashboard},
		{"2", viewCourses},
		{"3", viewInstructors},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			e := newTestEnv(t)
			e.signIn(t, "admin")
			a := goTo(t, e.app(), "/nowhere")
			a = press(t, a, tc.key).(App)
			if a.view != tc.wantView {
				t.Errorf("after key %q: view=%d, want %d", tc.key, a.view, tc.wantView)
			}
		})
	}
}

func TestAppEditingSwallowsGlobalKeys(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Courses)
	a = press(t, a, "/").(App)
	if !a.isEditing() {
		t.Fatal("expected search to count as editing")
	}

	_, cmd := a.Update(key("q"))
	if _, quit := collect[tea.QuitMsg](cmd); quit {
		t.Error("q quit while typing a search")
	}
	a = press(t, a, "2", "q").(App)
	if a.courses.searchInput != "2q" {
		t.Errorf("searchInput = %q, want %q", a.courses.searchInput, "2q")
	}
}

func TestAppQuit(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Dashboard)
	_, cmd := a.Update(key("q"))
	if _, ok := collect[tea.QuitMsg](cmd); !ok {
		t.Error("expected quit on q")
	}
	_, cmd = a.Update(key("ctrl+c"))
	if _, ok := collect[tea.QuitMsg](cmd); !ok {
		t.Error("expected quit on ctrl+c")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Dashboard)
	a = press(t, a, "?").(App)
	if !a.helpOpen || !strings.Contains(a.View(), "google-login") {
		t.Fatal("help overlay not shown")
	}
	a = press(t, a, "esc").(App)
	if a.helpOpen {
		t.Error("help overlay still open after esc")
	}
}

func TestAppToastExpiry(t *testing.T) {
	a := newTestEnv(t).app()
	m, _ := a.Update(toastMsg{text: "first"})
	m, _ = m.Update(toastMsg{text: "second"})
	a = m.(App)

	// The first toast's timer must not clear the second.
	m, _ = a.Update(toastExpiredMsg{seq: a.toastSeq - 1})
	if m.(App).toast.text != "second" {
		t.Errorf("stale expiry cleared the toast")
	}
	m, _ = m.Update(toastExpiredMsg{seq: a.toastSeq})
	if m.(App).toast.text != "" {
		t.Errorf("toast = %q, want cleared", m.(App).toast.text)
	}
}

func TestAppInstructorCoursesFiltersList(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Instructors)
	a = press(t, a, "enter").(App)
	if a.view != viewCourses {
		t.Fatalf("view = %d, want courses", a.view)
	}
	if got := e.api.lastCourseQuery().InstructorID; got != 10 {
		t.Errorf("InstructorID = %d, want 10", got)
	}
	if !strings.Contains(a.View(), "instructor: Rob Pike") {
		t.Errorf("filter not shown:\n%s", a.View())
	}
}

func TestAppViewShowsUserAndNav(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, "admin")
	a := goTo(t, e.app(), routes.Dashboard)
	v := a.View()
	for _, want := range []string{"Ada", "Dashboard", "Courses", "Instructors", "Revenue", "$1234.50"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

package routes

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSession struct {
	authenticated bool
	admin         bool
}

func (f fakeSession) IsAuthenticated() bool { return f.authenticated }
func (f fakeSession) IsAdmin() bool         { return f.authenticated && f.admin }

var (
	signedOut = fakeSession{}
	nonAdmin  = fakeSession{authenticated: true}
	admin     = fakeSession{authenticated: true, admin: true}
)

func TestDecideDashboard(t *testing.T) {
	tests := []struct {
		name    string
		session fakeSession
		want    Decision
	}{
		{"no token", signedOut, RedirectToLogin},
		{"valid non-admin", nonAdmin, RedirectToUnauthorized},
		{"valid admin", admin, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.session).Decide(Dashboard); got != tt.want {
				t.Errorf("Decide(%q) = %v, want %v", Dashboard, got, tt.want)
			}
		})
	}
}

func TestPublicPathsAlwaysAllowed(t *testing.T) {
	for _, s := range []fakeSession{signedOut, nonAdmin, admin} {
		r := New(s)
		for _, p := range []string{Login, Unauthorized, "/login/", "/login?from=/courses"} {
			if got := r.Decide(p); got != Allow {
				t.Errorf("session %+v: Decide(%q) = %v, want allow", s, p, got)
			}
		}
	}
}

func TestDecideTable(t *testing.T) {
	tests := []struct {
		path    string
		session fakeSession
		want    Decision
	}{
		{"/", signedOut, RedirectToLogin},
		{"/", admin, Allow},
		{"/courses", nonAdmin, RedirectToUnauthorized},
		{"/courses/new", admin, Allow},
		{"/courses/12", nonAdmin, RedirectToUnauthorized},
		{"/courses/12/edit", admin, Allow},
		{"/instructors", signedOut, RedirectToLogin},
		{"/instructors/new", nonAdmin, RedirectToUnauthorized},
		{"/instructors/4/edit", admin, Allow},
		{"/no/such/page", signedOut, RedirectToLogin},
		{"/no/such/page", nonAdmin, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := New(tt.session).Decide(tt.path); got != tt.want {
				t.Errorf("Decide(%q) with %+v = %v, want %v", tt.path, tt.session, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	r := New(admin)
	tests := []struct {
		path    string
		pattern string
		id      int
	}{
		{"/", Dashboard, 0},
		{"", Dashboard, 0},
		{"/dashboard/", Dashboard, 0},
		{"/courses/new", CourseNew, 0},
		{"/courses/7", CourseDetail, 7},
		{"/courses/7/edit", CourseEdit, 7},
		{"/instructors/31/edit", InstructorEdit, 31},
		{"/instructors/31", NotFound, 0},
		{"/settings", NotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m := r.Match(tt.path)
			if m.Route.Pattern != tt.pattern {
				t.Errorf("Match(%q).Route.Pattern = %q, want %q", tt.path, m.Route.Pattern, tt.pattern)
			}
			id, ok := m.ID()
			if tt.id == 0 && ok {
				t.Errorf("Match(%q).ID() = %d, want none", tt.path, id)
			}
			if tt.id != 0 && id != tt.id {
				t.Errorf("Match(%q).ID() = %d, want %d", tt.path, id, tt.id)
			}
		})
	}
}

func TestNonNumericIDHasNoID(t *testing.T) {
	m := New(admin).Match("/courses/abc")
	if m.Route.Pattern != CourseDetail {
		t.Fatalf("pattern = %q, want %q", m.Route.Pattern, CourseDetail)
	}
	if _, ok := m.ID(); ok {
		t.Error("ID() ok = true for non-numeric id")
	}
	if got := m.Param("id"); got != "abc" {
		t.Errorf("Param(id) = %q, want abc", got)
	}
}

func TestDevBypass(t *testing.T) {
	var buf bytes.Buffer
	r := New(signedOut, WithDevBypass(), WithLogger(zerolog.New(&buf)))

	if !r.DevBypass() {
		t.Fatal("DevBypass() = false")
	}
	if got := r.Decide(Dashboard); got != Allow {
		t.Errorf("Decide(%q) = %v, want allow", Dashboard, got)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected a warning when the guard is bypassed, got log %q", buf.String())
	}
}

func TestBypassIsOffByDefault(t *testing.T) {
	r := New(signedOut)
	if r.DevBypass() {
		t.Error("DevBypass() = true by default")
	}
}

func TestCustomRoutes(t *testing.T) {
	r := New(nonAdmin, WithRoutes(Route{Pattern: "/reports", RequireAdmin: false}))
	if got := r.Decide("/reports"); got != Allow {
		t.Errorf("Decide(/reports) = %v, want allow", got)
	}
	if got := r.Match(Login).Route.Pattern; got != NotFound {
		t.Errorf("replaced table still matched %q", got)
	}
}

func TestDecisionTarget(t *testing.T) {
	if got := RedirectToLogin.Target(); got != Login {
		t.Errorf("RedirectToLogin.Target() = %q", got)
	}
	if got := RedirectToUnauthorized.Target(); got != Unauthorized {
		t.Errorf("RedirectToUnauthorized.Target() = %q", got)
	}
	if got := Allow.Target(); got != "" {
		t.Errorf("Allow.Target() = %q", got)
	}
}

func TestWithID(t *testing.T) {
	if got := WithID(CourseEdit, 42); got != "/courses/42/edit" {
		t.Errorf("WithID = %q", got)
	}
}

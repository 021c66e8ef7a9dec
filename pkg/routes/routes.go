// Package routes holds the dashboard's navigation table and decides whether a
// path may be shown for the current session.
package routes

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Navigation paths. Patterns with {id} take a numeric record id.
const (
	Root           = "/"
	Login          = "/login"
	Unauthorized   = "/unauthorized"
	Dashboard      = "/dashboard"
	Courses        = "/courses"
	CourseNew      = "/courses/new"
	CourseDetail   = "/courses/{id}"
	CourseEdit     = "/courses/{id}/edit"
	Instructors    = "/instructors"
	InstructorNew  = "/instructors/new"
	InstructorEdit = "/instructors/{id}/edit"
	NotFound       = "*"
)

// Decision is the outcome of guarding a path.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToUnauthorized:
		return "redirect-to-unauthorized"
	}
	return "Decision(" + strconv.Itoa(int(d)) + ")"
}

// Target returns the path a redirect decision lands on, or "" for Allow.
func (d Decision) Target() string {
	switch d {
	case RedirectToLogin:
		return Login
	case RedirectToUnauthorized:
		return Unauthorized
	}
	return ""
}

// Route is one entry of the static navigation table.
type Route struct {
	Pattern      string
	Title        string
	Public       bool
	RequireAdmin bool
}

// DefaultRoutes returns the admin dashboard's table.
func DefaultRoutes() []Route {
	return []Route{
		{Pattern: Login, Title: "Sign in", Public: true},
		{Pattern: Unauthorized, Title: "Unauthorized", Public: true},
		{Pattern: Dashboard, Title: "Dashboard", RequireAdmin: true},
		{Pattern: Courses, Title: "Courses", RequireAdmin: true},
		{Pattern: CourseNew, Title: "New course", RequireAdmin: true},
		{Pattern: CourseDetail, Title: "Course", RequireAdmin: true},
		{Pattern: CourseEdit, Title: "Edit course", RequireAdmin: true},
		{Pattern: Instructors, Title: "Instructors", RequireAdmin: true},
		{Pattern: InstructorNew, Title: "New instructor", RequireAdmin: true},
		{Pattern: InstructorEdit, Title: "Edit instructor", RequireAdmin: true},
	}
}

// notFoundRoute catches everything outside the table. It still needs a login.
var notFoundRoute = Route{Pattern: NotFound, Title: "Not found"}

// Session is the part of the session guard the router consults.
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Match is a path resolved against the table.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Param returns a path parameter, or "" when absent.
func (m Match) Param(name string) string {
	return m.Params[name]
}

// ID returns the numeric {id} parameter.
func (m Match) ID() (int, bool) {
	n, err := strconv.Atoi(m.Params["id"])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Router guards navigation with a Session.
type Router struct {
	mux       *chi.Mux
	routes    map[string]Route
	session   Session
	devBypass bool
	log       zerolog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithRoutes replaces the default table.
func WithRoutes(rs ...Route) Option {
	return func(r *Router) {
		r.routes = make(map[string]Route, len(rs))
		for _, rt := range rs {
			r.routes[rt.Pattern] = rt
		}
	}
}

// WithDevBypass allows every path regardless of the session. Debug use only.
func WithDevBypass() Option {
	return func(r *Router) { r.devBypass = true }
}

// WithLogger sets the logger used for bypass warnings and decisions.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.log = l }
}

// New builds a router over session using DefaultRoutes unless overridden.
func New(session Session, opts ...Option) *Router {
	r := &Router{session: session, log: zerolog.Nop()}
	WithRoutes(DefaultRoutes()...)(r)
	for _, o := range opts {
		o(r)
	}

	r.mux = chi.NewRouter()
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for pattern := range r.routes {
		r.mux.Method(http.MethodGet, pattern, noop)
	}

	if r.devBypass {
		r.log.Warn().Msg("route guard bypassed: every path is allowed without a session")
	}
	return r
}

// DevBypass reports whether the guard is disabled.
func (r *Router) DevBypass() bool {
	return r.devBypass
}

// Match resolves p against the table. The root path aliases the dashboard and
// unknown paths resolve to the not-found route.
func (r *Router) Match(p string) Match {
	p = Clean(p)
	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, p) {
		return Match{Route: notFoundRoute, Path: p}
	}
	m := Match{Route: r.routes[rctx.RoutePattern()], Path: p}
	if len(rctx.URLParams.Keys) > 0 {
		m.Params = make(map[string]string, len(rctx.URLParams.Keys))
		for i, k := range rctx.URLParams.Keys {
			m.Params[k] = rctx.URLParams.Values[i]
		}
	}
	return m
}

// Decide guards p against the current session. Public paths are always
// allowed, everything else needs a login, and admin routes need the admin role.
func (r *Router) Decide(p string) Decision {
	d, _ := r.Resolve(p)
	return d
}

// Resolve is Decide plus the matched route.
func (r *Router) Resolve(p string) (Decision, Match) {
	m := r.Match(p)
	d := r.decide(m.Route)
	if r.devBypass && d != Allow {
		r.log.Debug().Str("path", m.Path).Stringer("decision", d).Msg("route guard bypassed")
		return Allow, m
	}
	return d, m
}

func (r *Router) decide(rt Route) Decision {
	if rt.Public {
		return Allow
	}
	if !r.session.IsAuthenticated() {
		return RedirectToLogin
	}
	if rt.RequireAdmin && !r.session.IsAdmin() {
		return RedirectToUnauthorized
	}
	return Allow
}

// Clean normalizes a navigation path: query and fragment are dropped, the
// result is rooted and slash-trimmed, and "/" becomes the dashboard.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = path.Clean("/" + p)
	if p == Root {
		return Dashboard
	}
	return p
}

// WithID fills the {id} parameter of pattern.
func WithID(pattern string, id int) string {
	return strings.Replace(pattern, "{id}", strconv.Itoa(id), 1)
}

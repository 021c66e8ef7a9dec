package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/byway-lms/byway-admin/pkg/routes"
	"github.com/byway-lms/byway-admin/pkg/session"
)

type view int

const (
	viewLogin view = iota
	viewUnauthorized
	viewNotFound
	viewDashboard
	viewCourses
	viewCourseDetail
	viewCourseForm
	viewInstructors
	viewInstructorForm
)

// toastTTL is how long a toast stays on the status line.
var toastTTL = 3 * time.Second

type toastExpiredMsg struct{ seq int }

// tokenChangedMsg means the token file changed outside the dashboard.
type tokenChangedMsg struct{}

type logoutMsg struct{ err error }

// Deps wires the dashboard to the rest of the program.
type Deps struct {
	API    API
	Auth   Authenticator
	Guard  *session.Guard
	Router *routes.Router
	Log    zerolog.Logger
	// TokenChanges, when set, re-checks the session each time it fires.
	TokenChanges <-chan struct{}
	// StartPath is the first route shown; the dashboard when empty.
	StartPath string
	Version   string
}

// App is the root Bubbletea model. Every screen change goes through the route
// guard, so a session that expires or loses its role is noticed on the next
// navigation or keypress.
type App struct {
	api          API
	auth         Authenticator
	guard        *session.Guard
	router       *routes.Router
	log          zerolog.Logger
	tokenChanges <-chan struct{}
	version      string

	path  string
	from  string
	view  view
	start string

	login          loginModel
	dashboard      dashboardModel
	courses        coursesModel
	detail         courseDetailModel
	courseForm     courseFormModel
	instructors    instructorsModel
	instructorForm instructorFormModel

	user     session.User
	hasUser  bool
	toast    toastMsg
	toastSeq int
	helpOpen bool
	width    int
	height   int
	frame    int
}

// NewApp creates the dashboard.
func NewApp(d Deps) App {
	router := d.Router
	if router == nil {
		router = routes.New(d.Guard, routes.WithLogger(d.Log))
	}
	start := d.StartPath
	if start == "" {
		start = routes.Dashboard
	}
	return App{
		api:          d.API,
		auth:         d.Auth,
		guard:        d.Guard,
		router:       router,
		log:          d.Log,
		tokenChanges: d.TokenChanges,
		version:      d.Version,
		start:        start,
		path:         start,
		courses:      newCoursesModel(d.API),
		instructors:  newInstructorsModel(d.API),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), navigate(a.start), a.waitForToken())
}

// waitForToken blocks on the next token file change.
func (a App) waitForToken() tea.Cmd {
	ch := a.tokenChanges
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return tokenChangedMsg{}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a = a.resize()
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case navigateMsg:
		return a.navigate(msg.path)

	case tokenChangedMsg:
		a.log.Debug().Str("path", a.path).Msg("token changed, re-checking session")
		next, cmd := a.recheck()
		return next, tea.Batch(cmd, next.waitForToken())

	case loginResultMsg:
		if msg.err != nil {
			a.login, _ = a.login.Update(msg)
			return a, nil
		}
		a.user, a.hasUser = msg.user, true
		target := a.from
		a.from = ""
		if target == "" || target == routes.Login || target == routes.Unauthorized {
			target = routes.Dashboard
		}
		greeting := "Signed in"
		if msg.user.Name != "" {
			greeting = "Welcome back, " + msg.user.Name
		}
		next, cmd := a.navigate(target)
		return next, tea.Batch(cmd, toast(greeting))

	case logoutMsg:
		if msg.err != nil {
			return a, toastErr("sign out failed", msg.err)
		}
		a.user, a.hasUser = session.User{}, false
		next, cmd := a.navigate(routes.Login)
		return next, tea.Batch(cmd, toast("Signed out"))

	case toastMsg:
		a.toastSeq++
		a.toast = msg
		seq := a.toastSeq
		return a, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })

	case toastExpiredMsg:
		if msg.seq == a.toastSeq {
			a.toast = toastMsg{}
		}
		return a, nil

	case copyResultMsg:
		if msg.err != nil {
			return a, toastErr("copy failed", msg.err)
		}
		return a, toast("Copied " + msg.what)

	case openResultMsg:
		if msg.err != nil {
			return a, toastErr("could not open browser", msg.err)
		}
		return a, nil

	case instructorCoursesMsg:
		a.courses = a.courses.withInstructor(msg.id, msg.name)
		return a.navigate(routes.Courses)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.helpOpen {
			switch msg.String() {
			case "?", "esc":
				a.helpOpen = false
			case "q":
				return a, tea.Quit
			}
			return a, nil
		}

		// The token may have expired or been replaced since the last screen.
		if next, cmd, moved := a.recheckOnKey(); moved {
			return next, cmd
		}

		if !a.isEditing() {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "?":
				a.helpOpen = true
				return a, nil
			case "1":
				if a.view != viewDashboard {
					return a.navigate(routes.Dashboard)
				}
				return a, nil
			case "2":
				if a.view != viewCourses {
					return a.navigate(routes.Courses)
				}
				return a, nil
			case "3":
				if a.view != viewInstructors {
					return a.navigate(routes.Instructors)
				}
				return a, nil
			case "L":
				return a, a.logout()
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewUnauthorized:
		if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "l" || k.String() == "enter") {
			cmd = a.logout()
		}
	case viewNotFound:
		if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "enter" || k.String() == "esc") {
			cmd = navigate(routes.Dashboard)
		}
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewCourses:
		a.courses, cmd = a.courses.Update(msg)
	case viewCourseDetail:
		a.detail, cmd = a.detail.Update(msg)
	case viewCourseForm:
		a.courseForm, cmd = a.courseForm.Update(msg)
	case viewInstructors:
		a.instructors, cmd = a.instructors.Update(msg)
	case viewInstructorForm:
		a.instructorForm, cmd = a.instructorForm.Update(msg)
	}
	return a, cmd
}

// navigate routes to p, or to the page the guard redirects it to.
func (a App) navigate(p string) (App, tea.Cmd) {
	p = routes.Clean(p)
	decision, match := a.router.Resolve(p)
	a.helpOpen = false

	switch decision {
	case routes.RedirectToLogin:
		if p != routes.Login {
			a.from = p
		}
		a.log.Debug().Str("path", p).Msg("no session, redirecting to login")
		a.path = routes.Login
		a.view = viewLogin
		a.login = newLoginModel(a.auth)
		a.user, a.hasUser = session.User{}, false
		return a.resize(), nil
	case routes.RedirectToUnauthorized:
		a.log.Debug().Str("path", p).Msg("not an admin, redirecting")
		a.path = routes.Unauthorized
		a.view = viewUnauthorized
		a.user, a.hasUser = a.guard.CurrentUser()
		return a.resize(), nil
	}

	a.path = p
	a.user, a.hasUser = a.guard.CurrentUser()

	var cmd tea.Cmd
	switch match.Route.Pattern {
	case routes.Login:
		a.view = viewLogin
		a.login = newLoginModel(a.auth)
	case routes.Unauthorized:
		a.view = viewUnauthorized
	case routes.Dashboard:
		a.view = viewDashboard
		a.dashboard = newDashboardModel(a.api)
		cmd = a.dashboard.Init()
	case routes.Courses:
		a.view = viewCourses
		a.courses, cmd = a.courses.open()
	case routes.CourseNew:
		a.view = viewCourseForm
		a.courseForm = newCourseFormModel(a.api, 0)
		cmd = a.courseForm.Init()
	case routes.CourseDetail, routes.CourseEdit:
		id, ok := match.ID()
		if !ok {
			a.view = viewNotFound
			break
		}
		if match.Route.Pattern == routes.CourseDetail {
			a.view = viewCourseDetail
			a.detail = newCourseDetailModel(a.api, id)
			cmd = a.detail.Init()
		} else {
			a.view = viewCourseForm
			a.courseForm = newCourseFormModel(a.api, id)
			cmd = a.courseForm.Init()
		}
	case routes.Instructors:
		a.view = viewInstructors
		a.instructors, cmd = a.instructors.open()
	case routes.InstructorNew:
		a.view = viewInstructorForm
		a.instructorForm = newInstructorFormModel(a.api, 0)
		cmd = a.instructorForm.Init()
	case routes.InstructorEdit:
		id, ok := match.ID()
		if !ok {
			a.view = viewNotFound
			break
		}
		a.view = viewInstructorForm
		a.instructorForm = newInstructorFormModel(a.api, id)
		cmd = a.instructorForm.Init()
	default:
		a.view = viewNotFound
	}
	return a.resize(), cmd
}

// recheck re-evaluates the current path against the session.
func (a App) recheck() (App, tea.Cmd) {
	if a.view == viewLogin {
		if a.guard.IsAdmin() {
			// Signed in from another terminal.
			target := a.from
			a.from = ""
			if target == "" {
				target = routes.Dashboard
			}
			return a.navigate(target)
		}
		return a, nil
	}
	if a.router.Decide(a.path) == routes.Allow {
		a.user, a.hasUser = a.guard.CurrentUser()
		return a, nil
	}
	return a.navigate(a.path)
}

// recheckOnKey is recheck limited to protected screens. moved reports a redirect.
func (a App) recheckOnKey() (App, tea.Cmd, bool) {
	if a.view == viewLogin || a.view == viewUnauthorized {
		return a, nil, false
	}
	if a.router.Decide(a.path) == routes.Allow {
		return a, nil, false
	}
	next, cmd := a.navigate(a.path)
	return next, tea.Batch(cmd, toast("Session ended, please sign in again")), true
}

func (a App) logout() tea.Cmd {
	authn := a.auth
	return func() tea.Msg {
		return logoutMsg{err: authn.Logout()}
	}
}

func (a App) isEditing() bool {
	switch a.view {
	case viewLogin, viewCourseForm, viewInstructorForm:
		return true
	case viewCourses:
		return a.courses.searching || a.courses.confirming
	case viewInstructors:
		return a.instructors.searching || a.instructors.confirming
	case viewCourseDetail:
		return a.detail.confirming
	}
	return false
}

// chromeHeight is header(2) + nav(1) + status(1) + help(1).
const chromeHeight = 5

func (a App) resize() App {
	body := tea.WindowSizeMsg{Width: a.width, Height: a.height - chromeHeight}
	a.login, _ = a.login.Update(body)
	a.dashboard, _ = a.dashboard.Update(body)
	a.courses, _ = a.courses.Update(body)
	a.detail, _ = a.detail.Update(body)
	a.courseForm, _ = a.courseForm.Update(body)
	a.instructors, _ = a.instructors.Update(body)
	a.instructorForm, _ = a.instructorForm.Update(body)
	return a
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	userLine := ""
	if a.hasUser {
		who := a.user.Name
		if who == "" {
			who = a.user.Email
		}
		userLine = metaStyle.Render(who)
		if a.user.Role != "" {
			userLine += metaStyle.Render(" · " + a.user.Role)
		}
	}
	header := " " + logo
	if userLine != "" {
		pad := a.width - lipgloss.Width(header) - lipgloss.Width(userLine) - 1
		if pad < 2 {
			pad = 2
		}
		header += strings.Repeat(" ", pad) + userLine
	}
	header += "\n"

	nav := a.navBar()

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = helpBar(helpEntry("tab", "next field"), helpEntry("enter", "sign in"), helpEntry("ctrl+c", "quit"))
	case viewUnauthorized:
		body = unauthorizedView(a.user, a.hasUser)
		help = helpBar(helpEntry("l", "sign out"), helpEntry("q", "quit"))
	case viewNotFound:
		body = notFoundView(a.path)
		help = helpBar(helpEntry("enter", "dashboard"), helpEntry("1-3", "sections"), helpEntry("q", "quit"))
	case viewDashboard:
		body = a.dashboard.View()
		help = helpBar(helpEntry("1-3", "sections"), a.dashboard.helpKeys(), helpEntry("?", "help"), helpEntry("q", "quit"))
	case viewCourses:
		body = a.courses.View()
		help = " " + a.courses.helpKeys()
	case viewCourseDetail:
		body = a.detail.View()
		help = " " + a.detail.helpKeys()
	case viewCourseForm:
		body = a.courseForm.View()
		help = " " + a.courseForm.helpKeys()
	case viewInstructors:
		body = a.instructors.View()
		help = " " + a.instructors.helpKeys()
	case viewInstructorForm:
		body = a.instructorForm.View()
		help = " " + a.instructorForm.helpKeys()
	}

	if a.helpOpen {
		body = helpView(a.version)
		help = helpBar(helpEntry("esc", "close"))
	}

	status := ""
	if a.toast.text != "" {
		if a.toast.isErr {
			status = " " + errorStyle.Render(a.toast.text)
		} else {
			status = " " + successStyle.Render(a.toast.text)
		}
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-chromeHeight), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, nav, body, status, help)
}

// navBar renders the section tabs, shown only to signed-in admins.
func (a App) navBar() string {
	switch a.view {
	case viewLogin, viewUnauthorized:
		return ""
	}
	type tabEntry struct {
		key   string
		name  string
		views []view
	}
	tabs := []tabEntry{
		{"1", "Dashboard", []view{viewDashboard}},
		{"2", "Courses", []view{viewCourses, viewCourseDetail, viewCourseForm}},
		{"3", "Instructors", []view{viewInstructors, viewInstructorForm}},
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		active := false
		for _, v := range t.views {
			active = active || v == a.view
		}
		if active {
			parts = append(parts, accentStyle.Render(t.key)+" "+selectedStyle.Underline(true).Render(t.name))
		} else {
			parts = append(parts, metaStyle.Render(t.key)+" "+dimStyle.Render(t.name))
		}
	}
	return " " + strings.Join(parts, "    ") + "   " + metaStyle.Render(a.path)
}

// Package router holds the console's screen table, the navigation guard that
// gates every screen change and the history that applies its decisions.
package router

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"mergealert/utils"
)

// AppTitle is appended to every screen title.
const AppTitle = "GitLab Merge Alert"

// Meta describes who may open a screen.
type Meta struct {
	Title         string
	RequiresAuth  bool
	RequiresAdmin bool
}

// Route is one console screen.
type Route struct {
	Name string
	Path string
	Meta Meta
}

// Table matches console paths to routes.
type Table struct {
	mux    *mux.Router
	routes map[string]*Route
	order  []*Route
}

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// DefaultRoutes is the screen table of the console.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "Login", Path: utils.LoginPath, Meta: Meta{Title: "Login"}},
		{Name: "Register", Path: utils.RegisterPath, Meta: Meta{Title: "Register"}},
		{Name: "SetupAdmin", Path: utils.SetupAdminPath, Meta: Meta{Title: "Administrator Setup"}},
		{Name: "Dashboard", Path: utils.HomePath, Meta: Meta{Title: "Dashboard", RequiresAuth: true}},
		{Name: "Users", Path: "/users", Meta: Meta{Title: "Users", RequiresAuth: true}},
		{Name: "Projects", Path: "/projects", Meta: Meta{Title: "Projects", RequiresAuth: true}},
		{Name: "Webhooks", Path: "/webhooks", Meta: Meta{Title: "Webhooks", RequiresAuth: true}},
		{Name: "Notifications", Path: "/notifications", Meta: Meta{Title: "Notifications", RequiresAuth: true}},
		{Name: "Profile", Path: "/profile", Meta: Meta{Title: "Profile", RequiresAuth: true}},
		{Name: "Accounts", Path: "/accounts", Meta: Meta{Title: "Accounts", RequiresAuth: true, RequiresAdmin: true}},
		{Name: "ResourceManagers", Path: "/resource-managers", Meta: Meta{Title: "Resource Managers", RequiresAuth: true, RequiresAdmin: true}},
	}
}

// NewTable registers routes in order; the first match wins.
func NewTable(routes []Route) *Table {
	t := &Table{mux: mux.NewRouter(), routes: make(map[string]*Route, len(routes))}
	for i := range routes {
		r := routes[i]
		t.mux.Path(r.Path).Name(r.Name).Handler(noop)
		t.routes[r.Name] = &r
		t.order = append(t.order, &r)
	}
	return t
}

// Match finds the route for a console target such as "/users?page=2".
func (t *Table) Match(target string) (*Route, bool) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: utils.PathOnly(target)}}
	var m mux.RouteMatch
	if !t.mux.Match(req, &m) || m.Route == nil {
		return nil, false
	}
	r, ok := t.routes[m.Route.GetName()]
	return r, ok
}

// Routes lists the table in registration order.
func (t *Table) Routes() []*Route {
	return t.order
}

// Title is the window title for the route.
func (r *Route) Title() string {
	if r == nil || r.Meta.Title == "" {
		return AppTitle
	}
	return r.Meta.Title + " - " + AppTitle
}

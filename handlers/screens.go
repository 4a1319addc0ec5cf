// Package handlers renders console screens. Each screen loads its data
// through the REST client and prints it as a table, json or yaml.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"mergealert/router"
)

// ErrNoScreen is returned for a route with no registered screen.
var ErrNoScreen = errors.New("no screen for route")

// Screen renders one console route.
type Screen interface {
	Render(ctx context.Context, p *Printer, q url.Values) error
}

// API is everything the screens read from the server.
type API interface {
	statsService
	userService
	projectService
	webhookService
	accountService
	resourceManagerService
}

// Screens maps route names to screens.
type Screens struct {
	byName   map[string]Screen
	Accounts *AccountsHandler
}

// NewScreens wires a screen for every route in router.DefaultRoutes.
func NewScreens(api API, session sessionView) *Screens {
	accounts := NewAccountsHandler(api)
	return &Screens{
		Accounts: accounts,
		byName: map[string]Screen{
			"Login":            NewAuthScreenHandler("Login", "login"),
			"Register":         NewAuthScreenHandler("Register", "register"),
			"SetupAdmin":       NewAuthScreenHandler("Administrator Setup", "setup-admin"),
			"Dashboard":        NewDashboardHandler(api),
			"Users":            NewUsersHandler(api),
			"Projects":         NewProjectsHandler(api),
			"Webhooks":         NewWebhooksHandler(api),
			"Notifications":    NewNotificationsHandler(api),
			"Profile":          NewProfileHandler(session),
			"Accounts":         accounts,
			"ResourceManagers": NewResourceManagersHandler(api),
		},
	}
}

// Register adds or replaces the screen for a route name.
func (s *Screens) Register(name string, screen Screen) {
	s.byName[name] = screen
}

// Render prints route with the query parameters of target.
func (s *Screens) Render(ctx context.Context, route *router.Route, target string, p *Printer) error {
	if route == nil {
		return ErrNoScreen
	}
	screen, ok := s.byName[route.Name]
	if !ok {
		return fmt.Errorf("%w %q", ErrNoScreen, route.Name)
	}
	var q url.Values
	if u, err := url.Parse(target); err == nil {
		q = u.Query()
	}
	p.Message("== %s ==", route.Title())
	return screen.Render(ctx, p, q)
}

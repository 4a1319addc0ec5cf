package router

import (
	"context"
	"log/slog"

	"mergealert/utils"
)

// Session is what the guard needs to know about the signed-in account.
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
	HasProfile() bool
	CheckTokenExpiry(ctx context.Context) bool
	FetchProfile(ctx context.Context) error
	ClearSession(ctx context.Context)
}

// Bootstrap reports whether the one-time administrator setup is pending.
type Bootstrap interface {
	CheckAdminSetup(ctx context.Context, force bool) bool
}

// Decision is the outcome of one guard run. Exactly one of Allow, Redirect
// or NotFound is set.
type Decision struct {
	Allow    bool
	Redirect string
	NotFound bool
	Route    *Route
	Reason   string
}

// Guard decides whether a screen change may proceed.
type Guard struct {
	table     *Table
	session   Session
	bootstrap Bootstrap
	log       *slog.Logger
}

func NewGuard(table *Table, session Session, bootstrap Bootstrap) *Guard {
	return &Guard{
		table:     table,
		session:   session,
		bootstrap: bootstrap,
		log:       slog.Default().With("component", "guard"),
	}
}

func redirect(target, reason string) Decision {
	return Decision{Redirect: target, Reason: reason}
}

// Resolve runs the checks in order; the first redirect ends the run.
func (g *Guard) Resolve(ctx context.Context, target string) Decision {
	path := utils.PathOnly(target)

	setupRequired := g.bootstrap.CheckAdminSetup(ctx, false)
	if setupRequired && path != utils.SetupAdminPath {
		return redirect(utils.WithRedirect(utils.SetupAdminPath, target), "admin setup required")
	}
	if !setupRequired && path == utils.SetupAdminPath {
		return redirect(utils.SafeRedirect(utils.RedirectParam(target)), "admin setup already completed")
	}

	route, ok := g.table.Match(target)
	if !ok {
		return Decision{NotFound: true, Reason: "no such screen"}
	}

	if route.Meta.RequiresAuth {
		login := utils.WithRedirect(utils.LoginPath, target)
		if !g.session.IsAuthenticated() {
			return redirect(login, "not signed in")
		}
		if !g.session.CheckTokenExpiry(ctx) {
			return redirect(login, "session expired after inactivity")
		}
		if !g.session.HasProfile() {
			if err := g.session.FetchProfile(ctx); err != nil {
				g.log.Warn("profile fetch failed during navigation", "target", target, "error", err)
				// An authenticated session without a profile would bounce
				// between the login and home screens forever.
				g.session.ClearSession(ctx)
				return redirect(login, "profile unavailable")
			}
		}
		if route.Meta.RequiresAdmin && !g.session.IsAdmin() {
			return redirect(utils.HomePath, "administrator role required")
		}
	}

	if utils.IsAuthScreen(path) && g.session.IsAuthenticated() {
		return redirect(utils.HomePath, "already signed in")
	}

	return Decision{Allow: true, Route: route}
}

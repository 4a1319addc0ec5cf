package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// maxRedirects bounds one navigation; a longer chain is a guard loop.
const maxRedirects = 10

var ErrRedirectLoop = errors.New("too many redirects")

// History is the console's navigator: it remembers the current screen and
// applies guard decisions, following redirects until a screen is allowed.
type History struct {
	guard *Guard

	mu      sync.Mutex
	current string
	route   *Route
	pending string
}

func NewHistory(guard *Guard) *History {
	return &History{guard: guard}
}

// CurrentPath returns the full target of the screen on display.
func (h *History) CurrentPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Route returns the route on display, or nil before the first navigation.
func (h *History) Route() *Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.route
}

// Title is the window title of the current screen.
func (h *History) Title() string {
	return h.Route().Title()
}

// Redirect queues target as the next screen. The console consumes it with TakePending.
func (h *History) Redirect(target string) {
	h.mu.Lock()
	h.pending = target
	h.mu.Unlock()
}

// TakePending returns and clears the queued redirect.
func (h *History) TakePending() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pending
	h.pending = ""
	return p, p != ""
}

// Navigate resolves target through the guard, following redirects. On
// success the final screen becomes current and its decision is returned.
func (h *History) Navigate(ctx context.Context, target string) (Decision, error) {
	for hop := 0; hop <= maxRedirects; hop++ {
		d := h.guard.Resolve(ctx, target)
		switch {
		case d.Allow:
			h.mu.Lock()
			h.current = target
			h.route = d.Route
			h.mu.Unlock()
			return d, nil
		case d.NotFound:
			return d, nil
		default:
			target = d.Redirect
		}
	}
	return Decision{}, fmt.Errorf("navigate: %w", ErrRedirectLoop)
}

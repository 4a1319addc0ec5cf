// Package system tracks whether the one-time administrator setup is still pending.
package system

import (
	"context"
	"log/slog"
	"sync"

	"mergealert/models"
)

// API is the pair of bootstrap endpoints.
type API interface {
	Bootstrap(ctx context.Context) (*models.BootstrapStatus, error)
	SetupAdmin(ctx context.Context, req models.SetupAdminRequest) error
}

// Bootstrap caches the server's admin-setup flag for the life of the process.
// A nil value means the server has not been asked yet.
type Bootstrap struct {
	api API
	log *slog.Logger

	mu       sync.Mutex
	required *bool
}

func NewBootstrap(api API) *Bootstrap {
	return &Bootstrap{api: api, log: slog.Default().With("component", "bootstrap")}
}

// CheckAdminSetup returns the cached flag, asking the server on first use or
// when force is set. A failed check is cached as "not required" so the
// console stays usable while the server misbehaves.
func (b *Bootstrap) CheckAdminSetup(ctx context.Context, force bool) bool {
	if !force {
		if v, ok := b.Cached(); ok {
			return v
		}
	}

	required := false
	status, err := b.api.Bootstrap(ctx)
	if err != nil {
		b.log.Warn("failed to fetch bootstrap status", "error", err)
	} else {
		required = status.AdminSetupRequired
	}
	b.store(required)
	return required
}

// SetupAdmin completes the bootstrap and marks setup as done.
func (b *Bootstrap) SetupAdmin(ctx context.Context, req models.SetupAdminRequest) error {
	if err := b.api.SetupAdmin(ctx, req); err != nil {
		return err
	}
	b.store(false)
	b.log.Info("administrator setup completed", "email", req.Email)
	return nil
}

// MarkAdminSetupRequired forces the flag back to true, e.g. after the server
// reports that setup was reset.
func (b *Bootstrap) MarkAdminSetupRequired() {
	b.store(true)
}

// Cached returns the cached flag and whether one is known.
func (b *Bootstrap) Cached() (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.required == nil {
		return false, false
	}
	return *b.required, true
}

func (b *Bootstrap) store(v bool) {
	b.mu.Lock()
	b.required = &v
	b.mu.Unlock()
}

// Package app wires the console: storage, token store, gateway, session
// manager, navigation guard and screens.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"mergealert/config"
	"mergealert/handlers"
	"mergealert/internal/metrics"
	"mergealert/internal/storage"
	filestore "mergealert/internal/storage/file"
	"mergealert/internal/storage/memory"
	redisstore "mergealert/internal/storage/redis"
	sqlitestore "mergealert/internal/storage/sqlite"
	"mergealert/router"
	"mergealert/services/alertapi"
	"mergealert/services/favicon"
	"mergealert/services/gateway"
	"mergealert/services/notify"
	"mergealert/services/sessions"
	"mergealert/services/system"
	"mergealert/services/tokenstore"
)

// App is one console process.
type App struct {
	Config    *config.Config
	Fs        afero.Fs
	Store     storage.Store
	Tokens    *tokenstore.Store
	Metrics   *metrics.Metrics
	Notifier  notify.Notifier
	Gateway   *gateway.Client
	API       *alertapi.Client
	Session   *sessions.Manager
	Bootstrap *system.Bootstrap
	Routes    *router.Table
	Guard     *router.Guard
	History   *router.History
	Favicon   *favicon.Renderer
	Screens   *handlers.Screens

	out io.Writer
	log *slog.Logger
}

// Deps overrides collaborators in tests. Zero values mean production defaults.
type Deps struct {
	Fs       afero.Fs
	Store    storage.Store
	Notifier notify.Notifier
	Out      io.Writer
}

// New builds the console from cfg.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	a := &App{
		Config:   cfg,
		Fs:       deps.Fs,
		Store:    deps.Store,
		Notifier: deps.Notifier,
		Metrics:  metrics.New(),
		out:      deps.Out,
		log:      slog.Default().With("component", "app"),
	}
	if a.Fs == nil {
		a.Fs = afero.NewOsFs()
	}
	if a.out == nil {
		a.out = io.Discard
	}
	if a.Notifier == nil {
		a.Notifier = notify.Discard{}
	}

	if a.Store == nil {
		store, err := OpenStore(ctx, cfg, a.Fs)
		if err != nil {
			return nil, err
		}
		a.Store = store
	}

	tokens, err := tokenstore.New(ctx, a.Store)
	if err != nil {
		a.Store.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	a.Tokens = tokens

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	gw, err := gateway.New(gateway.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		RateLimit: limit,
		Burst:     cfg.RateBurst,
		Tokens:    tokens,
		Notifier:  a.Notifier,
		Metrics:   a.Metrics,
	})
	if err != nil {
		a.Store.Close()
		return nil, err
	}
	a.Gateway = gw
	a.API = alertapi.New(gw)

	a.Favicon = favicon.New(favicon.Options{
		BaseURL:  cfg.BaseURL,
		IconPath: cfg.IconPath,
		Fs:       a.Fs,
	})

	// The manager redirects through History, which is built from a guard that
	// needs the manager; nav breaks the cycle.
	nav := &navigator{}
	a.Session, err = sessions.NewManager(sessions.Options{
		API:              a.API,
		Tokens:           tokens,
		Navigator:        nav,
		Favicon:          a.Favicon,
		Metrics:          a.Metrics,
		InactivityWindow: cfg.InactivityWindow,
	})
	if err != nil {
		a.Store.Close()
		return nil, err
	}
	a.Session.Attach(gw)

	a.Bootstrap = system.NewBootstrap(a.API)
	gw.OnSetupRequired(a.Bootstrap.MarkAdminSetupRequired)

	a.Routes = router.NewTable(router.DefaultRoutes())
	a.Guard = router.NewGuard(a.Routes, a.Session, a.Bootstrap)
	a.History = router.NewHistory(a.Guard)
	nav.history = a.History

	a.Screens = handlers.NewScreens(a.API, a.Session)
	return a, nil
}

// OpenStore opens the storage backend named by cfg, sealed when a key is set.
func OpenStore(ctx context.Context, cfg *config.Config, fs afero.Fs) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.StorageBackend {
	case config.BackendFile:
		store, err = filestore.New(fs, cfg.StoragePath)
	case config.BackendSQLite:
		store, err = sqlitestore.Open(ctx, cfg.StoragePath)
	case config.BackendRedis:
		store, err = redisstore.New(ctx, cfg.RedisURL, cfg.RedisProfile)
	case config.BackendMemory:
		store = memory.New()
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageBackend, err)
	}

	if cfg.SealKey == "" {
		return store, nil
	}
	key, err := storage.ParseKey(cfg.SealKey)
	if err != nil {
		store.Close()
		return nil, err
	}
	sealed, err := storage.Sealed(store, key)
	if err != nil {
		store.Close()
		return nil, err
	}
	return sealed, nil
}

// Close waits for pending icon renders, writes metrics and closes storage.
func (a *App) Close() error {
	a.Favicon.Wait()
	var errs []error
	if path := a.Config.MetricsTextfile; path != "" {
		if err := a.Metrics.WriteTextfile(filepath.Clean(path)); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

type navigator struct {
	history *router.History
}

func (n *navigator) CurrentPath() string {
	if n.history == nil {
		return ""
	}
	return n.history.CurrentPath()
}

func (n *navigator) Redirect(target string) {
	if n.history != nil {
		n.history.Redirect(target)
	}
}

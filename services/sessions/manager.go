// Package sessions owns the console's login state: tokens, the account
// snapshot, the inactivity window and recovery from expired tokens.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"mergealert/internal/metrics"
	"mergealert/models"
	"mergealert/services/gateway"
	"mergealert/utils"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrAlreadyRetried   = errors.New("request already retried after refresh")
	ErrMissingToken     = errors.New("server response carried no access token")
)

// DefaultInactivityWindow is how long a session may sit idle before it expires.
const DefaultInactivityWindow = 30 * time.Minute

// State is the coarse session state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateProfileLoaded
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateProfileLoaded:
		return "profile-loaded"
	default:
		return "anonymous"
	}
}

//go:generate mockgen -destination=mock_sessions/mock_sessions.go -package=mock_sessions mergealert/services/sessions Navigator,Favicon

// Navigator moves the console to another screen.
type Navigator interface {
	CurrentPath() string
	Redirect(target string)
}

// Favicon reflects the account avatar in the console's window icon. Apply must not block.
type Favicon interface {
	Apply(ctx context.Context, avatar string)
	Reset()
}

// API is the set of auth endpoints the manager calls.
type API interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	Profile(ctx context.Context) (*models.Account, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.Account, error)
	UploadAvatar(ctx context.Context, filename string, data []byte) (string, error)
}

// Tokens is the durable credential store.
type Tokens interface {
	Get() models.Session
	AccessToken() string
	RefreshToken() string
	Set(ctx context.Context, access string, refresh *string) error
	Clear(ctx context.Context) error
	Touch(ctx context.Context) error
}

// EventSource is the gateway side of the activity and auth failure events.
type EventSource interface {
	OnActivity(fn func(context.Context))
	OnAuthFailure(fn gateway.AuthFailureHandler)
}

type Options struct {
	API              API
	Tokens           Tokens
	Navigator        Navigator
	Favicon          Favicon
	Metrics          metrics.Recorder
	Clock            func() time.Time
	InactivityWindow time.Duration
}

// Manager is the single owner of session state. Collaborators receive it
// explicitly; nothing reaches it through package globals.
type Manager struct {
	api       API
	tokens    Tokens
	navigator Navigator
	favicon   Favicon
	metrics   metrics.Recorder
	now       func() time.Time
	window    time.Duration
	log       *slog.Logger

	mu      sync.RWMutex
	account *models.Account

	refreshGroup singleflight.Group
}

func NewManager(opts Options) (*Manager, error) {
	if opts.API == nil || opts.Tokens == nil {
		return nil, errors.New("sessions: api and token store are required")
	}
	m := &Manager{
		api:       opts.API,
		tokens:    opts.Tokens,
		navigator: opts.Navigator,
		favicon:   opts.Favicon,
		metrics:   opts.Metrics,
		now:       opts.Clock,
		window:    opts.InactivityWindow,
		log:       slog.Default().With("component", "sessions"),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.window <= 0 {
		m.window = DefaultInactivityWindow
	}
	if m.metrics == nil {
		m.metrics = (*metrics.Metrics)(nil)
	}
	return m, nil
}

// Attach subscribes the manager to the gateway's activity and 401 events.
func (m *Manager) Attach(events EventSource) {
	events.OnActivity(func(ctx context.Context) { m.UpdateLastActivity(ctx) })
	events.OnAuthFailure(m.HandleAuthFailure)
}

// State reports anonymous, authenticated or profile-loaded.
func (m *Manager) State() State {
	if !m.IsAuthenticated() {
		return StateAnonymous
	}
	if m.Account() == nil {
		return StateAuthenticated
	}
	return StateProfileLoaded
}

// Login exchanges credentials, stores the token and hydrates the profile.
// Any failure leaves the session cleared.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	resp, err := m.api.Login(ctx, models.LoginRequest{Username: username, Password: password})
	if err != nil {
		m.clear(ctx)
		return err
	}
	return m.establish(ctx, resp)
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) error {
	resp, err := m.api.Register(ctx, req)
	if err != nil {
		m.clear(ctx)
		return err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp *models.LoginResponse) error {
	if resp == nil || resp.Token == "" {
		m.clear(ctx)
		return ErrMissingToken
	}
	var refresh *string
	if resp.RefreshToken != "" {
		refresh = &resp.RefreshToken
	}
	if err := m.tokens.Set(ctx, resp.Token, refresh); err != nil {
		m.clear(ctx)
		return err
	}
	m.setAccount(resp.User)

	if err := m.FetchProfile(ctx); err != nil {
		m.clear(ctx)
		return err
	}
	m.log.Info("signed in", "username", m.Username())
	return nil
}

// Logout tells the server (best effort) and always clears local state.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn("logout request failed", "error", err)
	}
	m.clear(ctx)
	if m.favicon != nil {
		m.favicon.Reset()
	}
}

// FetchProfile replaces the account snapshot with the server's copy.
func (m *Manager) FetchProfile(ctx context.Context) error {
	if m.tokens.AccessToken() == "" {
		return ErrNotAuthenticated
	}
	account, err := m.api.Profile(ctx)
	if err != nil {
		if gateway.IsStatus(err, 401) {
			m.clear(ctx)
		}
		return fmt.Errorf("fetch profile: %w", err)
	}
	m.setAccount(account)
	if account.Avatar != "" && m.favicon != nil {
		m.favicon.Apply(ctx, account.Avatar)
	}
	return nil
}

// RefreshAccessToken swaps the refresh token for a new access token.
// Concurrent callers share one in-flight exchange.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	v, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	current := m.tokens.RefreshToken()
	if current == "" {
		return "", ErrNoRefreshToken
	}
	resp, err := m.api.Refresh(ctx, current)
	if err == nil && (resp == nil || resp.Token == "") {
		err = ErrMissingToken
	}
	if err != nil {
		m.metrics.IncRefresh(false)
		m.clear(ctx)
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	// Keep the old refresh token when the server does not rotate it.
	next := current
	if resp.RefreshToken != "" {
		next = resp.RefreshToken
	}
	if err := m.tokens.Set(ctx, resp.Token, &next); err != nil {
		m.metrics.IncRefresh(false)
		m.clear(ctx)
		return "", err
	}
	if resp.User != nil {
		m.setAccount(resp.User)
	}
	m.metrics.IncRefresh(true)
	return resp.Token, nil
}

// HandleAuthFailure is the gateway's 401 handler. It returns a fresh token for
// one replay, or tears the session down and redirects to the login screen.
func (m *Manager) HandleAuthFailure(ctx context.Context, failure gateway.AuthFailure) (string, error) {
	if !failure.Retried && failure.Token != "" {
		// Another request already refreshed while this one was in flight.
		if current := m.tokens.AccessToken(); current != "" && current != failure.Token {
			return current, nil
		}
	}

	var err error
	switch {
	case failure.Retried:
		err = ErrAlreadyRetried
	case m.tokens.RefreshToken() == "":
		err = ErrNoRefreshToken
	default:
		var token string
		token, err = m.RefreshAccessToken(ctx)
		if err == nil {
			return token, nil
		}
	}

	m.log.Info("session ended after auth failure", "method", failure.Method, "path", failure.Path, "reason", err)
	m.teardown(ctx)
	return "", err
}

// CheckTokenExpiry clears the session and returns false once the inactivity
// window has elapsed. Exactly the window length is still valid.
func (m *Manager) CheckTokenExpiry(ctx context.Context) bool {
	idle := m.tokens.Get().IdleFor(m.now())
	if idle > m.window {
		m.log.Info("session expired after inactivity", "idle", idle.Round(time.Second))
		m.clear(ctx)
		return false
	}
	return true
}

// UpdateLastActivity resets the inactivity clock.
func (m *Manager) UpdateLastActivity(ctx context.Context) {
	if err := m.tokens.Touch(ctx); err != nil {
		m.log.Warn("record activity failed", "error", err)
	}
}

// ChangePassword changes the signed-in account's own password.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !m.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return m.api.ChangePassword(ctx, models.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
}

// UpdateProfile saves profile fields and replaces the snapshot with the result.
func (m *Manager) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.Account, error) {
	if !m.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	account, err := m.api.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	m.setAccount(account)
	if m.favicon != nil {
		if account.Avatar != "" {
			m.favicon.Apply(ctx, account.Avatar)
		} else {
			m.favicon.Reset()
		}
	}
	return m.Account(), nil
}

// UploadAvatar uploads an image and refreshes the profile so the snapshot
// carries the new avatar.
func (m *Manager) UploadAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	if !m.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	avatar, err := m.api.UploadAvatar(ctx, filename, data)
	if err != nil {
		return "", err
	}
	if err := m.FetchProfile(ctx); err != nil {
		return avatar, err
	}
	return avatar, nil
}

func (m *Manager) IsAuthenticated() bool {
	return m.tokens.AccessToken() != ""
}

func (m *Manager) IsAdmin() bool {
	return m.Account().IsAdmin()
}

// Account returns a copy of the snapshot, or nil before the profile is known.
func (m *Manager) Account() *models.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.account == nil {
		return nil
	}
	cp := *m.account
	return &cp
}

// HasProfile reports whether an account snapshot is cached.
func (m *Manager) HasProfile() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account != nil
}

func (m *Manager) Username() string {
	if a := m.Account(); a != nil {
		return a.Username
	}
	return ""
}

func (m *Manager) Email() string {
	if a := m.Account(); a != nil {
		return a.Email
	}
	return ""
}

func (m *Manager) HasGitLabToken() bool {
	a := m.Account()
	return a != nil && a.HasGitLabToken
}

// LastActivity returns the time of the last recorded request.
func (m *Manager) LastActivity() time.Time {
	return m.tokens.Get().LastActivityAt
}

// TokenExpiresAt reads the exp claim of the access token without verifying
// it. The zero time means unknown.
func (m *Manager) TokenExpiresAt() time.Time {
	token := m.tokens.AccessToken()
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (m *Manager) setAccount(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account == nil {
		m.account = nil
		return
	}
	cp := *account
	m.account = &cp
}

// ClearSession drops the local session without telling the server.
func (m *Manager) ClearSession(ctx context.Context) {
	m.clear(ctx)
}

// clear drops tokens and the account snapshot.
func (m *Manager) clear(ctx context.Context) {
	m.setAccount(nil)
	if err := m.tokens.Clear(ctx); err != nil {
		m.log.Warn("clear session storage failed", "error", err)
	}
}

// teardown clears the session and sends the console to the login screen,
// remembering where it was.
func (m *Manager) teardown(ctx context.Context) {
	m.clear(ctx)
	if m.navigator == nil {
		return
	}
	current := m.navigator.CurrentPath()
	if utils.IsAuthScreen(current) {
		return
	}
	m.navigator.Redirect(utils.WithRedirect(utils.LoginPath, current))
}

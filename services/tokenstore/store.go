package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"mergealert/internal/storage"
	"mergealert/models"
)

// Persisted key names.
const (
	KeyAccessToken    = "token"
	KeyRefreshToken   = "refreshToken"
	KeyLastActivityAt = "lastActivityAt"
)

var ErrStorageRequired = errors.New("token storage not provided")

// Store holds the current credentials in memory and mirrors every change to
// durable storage. Reads never touch storage.
type Store struct {
	mu      sync.RWMutex
	backend storage.Store
	now     func() time.Time
	session models.Session
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New loads the persisted session from backend.
func New(ctx context.Context, backend storage.Store, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrStorageRequired
	}
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current session.
func (s *Store) Get() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// AccessToken returns the current access token, or "" when anonymous.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

// RefreshToken returns the current refresh token, or "" when none is held.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RefreshToken
}

// Set stores a new access token and resets the activity clock. A nil refresh
// token removes any stored one. The stale refresh token is removed before the
// new access token is written, so a failed write never pairs a new access
// token with an old refresh token.
func (s *Store) Set(ctx context.Context, access string, refresh *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	values := map[string]string{
		KeyAccessToken:    access,
		KeyLastActivityAt: formatTime(now),
	}
	if refresh != nil && *refresh != "" {
		values[KeyRefreshToken] = *refresh
	} else {
		if err := s.backend.Delete(ctx, KeyRefreshToken); err != nil {
			return fmt.Errorf("remove refresh token: %w", err)
		}
		s.session.RefreshToken = ""
	}
	if err := s.backend.SetMany(ctx, values); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.session.AccessToken = access
	s.session.RefreshToken = values[KeyRefreshToken]
	s.session.LastActivityAt = now
	return nil
}

// Clear drops both tokens in one storage operation. The in-memory session is
// cleared even when storage fails, so the process never keeps acting on a
// session it was told to forget.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.AccessToken = ""
	s.session.RefreshToken = ""
	if err := s.backend.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Touch records activity now.
func (s *Store) Touch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.session.LastActivityAt = now
	if err := s.backend.SetMany(ctx, map[string]string{KeyLastActivityAt: formatTime(now)}); err != nil {
		return fmt.Errorf("persist activity: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	access, _, err := s.backend.Get(ctx, KeyAccessToken)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := s.backend.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	raw, ok, err := s.backend.Get(ctx, KeyLastActivityAt)
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}

	last := s.now()
	if ok {
		if t, perr := parseTime(raw); perr == nil {
			last = t
		}
	}
	s.session = models.Session{AccessToken: access, RefreshToken: refresh, LastActivityAt: last}
	return nil
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTime(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

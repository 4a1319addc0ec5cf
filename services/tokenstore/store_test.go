package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergealert/internal/storage"
	"mergealert/internal/storage/file"
	"mergealert/internal/storage/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock                   { return &fakeClock{t: time.UnixMilli(1_700_000_000_000)} }
func strPtr(s string) *string                { return &s }

func newTestStore(t *testing.T, backend storage.Store, clock *fakeClock) *Store {
	t.Helper()
	s, err := New(context.Background(), backend, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.ErrorIs(t, err, ErrStorageRequired)
}

func TestNew_EmptyStorageIsAnonymous(t *testing.T) {
	clock := newClock()
	s := newTestStore(t, memory.New(), clock)

	got := s.Get()
	assert.False(t, got.IsAuthenticated())
	assert.Empty(t, got.RefreshToken)
	assert.True(t, got.LastActivityAt.Equal(clock.t))
}

func TestSet_UpdatesActivityAndPersists(t *testing.T) {
	clock := newClock()
	backend := memory.New()
	s := newTestStore(t, backend, clock)

	clock.Advance(5 * time.Minute)
	require.NoError(t, s.Set(context.Background(), "access-1", nil))

	got := s.Get()
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Empty(t, got.RefreshToken)
	assert.True(t, got.LastActivityAt.Equal(clock.t))

	v, ok, err := backend.Get(context.Background(), KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "access-1", v)
	_, ok, err = backend.Get(context.Background(), KeyRefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSet_NilRefreshRemovesStoredRefresh(t *testing.T) {
	clock := newClock()
	backend := memory.New()
	s := newTestStore(t, backend, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", strPtr("r")))
	assert.Equal(t, "r", s.RefreshToken())

	require.NoError(t, s.Set(ctx, "b", nil))
	assert.Empty(t, s.RefreshToken())
	_, ok, err := backend.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear_RemovesBothTokens(t *testing.T) {
	clock := newClock()
	backend := memory.New()
	s := newTestStore(t, backend, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", strPtr("r")))
	require.NoError(t, s.Clear(ctx))

	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
	for _, k := range []string{KeyAccessToken, KeyRefreshToken} {
		_, ok, err := backend.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
}

func TestSurvivesRestart(t *testing.T) {
	fs := afero.NewMemMapFs()
	clock := newClock()
	ctx := context.Background()

	backend, err := file.New(fs, "/cfg/session.json")
	require.NoError(t, err)
	s := newTestStore(t, backend, clock)
	require.NoError(t, s.Set(ctx, "persisted", strPtr("refresh")))
	setAt := clock.t

	clock.Advance(time.Hour)
	backend, err = file.New(fs, "/cfg/session.json")
	require.NoError(t, err)
	restarted := newTestStore(t, backend, clock)

	got := restarted.Get()
	assert.Equal(t, "persisted", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, got.LastActivityAt.Equal(setAt), "activity timestamp must survive restart")
}

func TestTouch(t *testing.T) {
	clock := newClock()
	s := newTestStore(t, memory.New(), clock)
	require.NoError(t, s.Set(context.Background(), "a", nil))

	clock.Advance(10 * time.Minute)
	require.NoError(t, s.Touch(context.Background()))
	assert.True(t, s.Get().LastActivityAt.Equal(clock.t))
	assert.Equal(t, "a", s.AccessToken())
}

type failingStore struct {
	storage.Store
}

func (failingStore) Delete(context.Context, ...string) error { return errors.New("disk gone") }

func TestClear_StorageFailureStillForgetsInMemory(t *testing.T) {
	clock := newClock()
	inner := memory.New()
	s := newTestStore(t, failingStore{Store: inner}, clock)
	require.NoError(t, inner.SetMany(context.Background(), map[string]string{KeyAccessToken: "x"}))
	s.session.AccessToken = "x"

	err := s.Clear(context.Background())
	require.Error(t, err)
	assert.Empty(t, s.AccessToken())
}

func TestSet_FailedRefreshRemovalKeepsPreviousSession(t *testing.T) {
	clock := newClock()
	ctx := context.Background()
	inner := memory.New()
	require.NoError(t, inner.SetMany(ctx, map[string]string{KeyAccessToken: "old", KeyRefreshToken: "old-refresh"}))
	s := newTestStore(t, failingStore{Store: inner}, clock)

	err := s.Set(ctx, "new", nil)
	require.Error(t, err)

	assert.Equal(t, "old", s.AccessToken())
	assert.Equal(t, "old-refresh", s.RefreshToken())
	v, _, err := inner.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "old", v, "storage must not pair a new access token with the old refresh token")
}

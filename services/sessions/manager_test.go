package sessions

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mergealert/internal/storage/memory"
	"mergealert/models"
	"mergealert/services/gateway"
	"mergealert/services/sessions/mock_sessions"
	"mergealert/services/tokenstore"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeAPI answers each endpoint with the matching function field.
type fakeAPI struct {
	login          func(models.LoginRequest) (*models.LoginResponse, error)
	register       func(models.RegisterRequest) (*models.LoginResponse, error)
	logout         func() error
	refresh        func(string) (*models.LoginResponse, error)
	profile        func() (*models.Account, error)
	changePassword func(models.ChangePasswordRequest) error
	updateProfile  func(models.UpdateProfileRequest) (*models.Account, error)
	uploadAvatar   func(string, []byte) (string, error)
}

func (f *fakeAPI) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return f.login(req)
}

func (f *fakeAPI) Register(_ context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	return f.register(req)
}

func (f *fakeAPI) Logout(context.Context) error {
	if f.logout == nil {
		return nil
	}
	return f.logout()
}

func (f *fakeAPI) Refresh(_ context.Context, token string) (*models.LoginResponse, error) {
	return f.refresh(token)
}

func (f *fakeAPI) Profile(context.Context) (*models.Account, error) {
	return f.profile()
}

func (f *fakeAPI) ChangePassword(_ context.Context, req models.ChangePasswordRequest) error {
	return f.changePassword(req)
}

func (f *fakeAPI) UpdateProfile(_ context.Context, req models.UpdateProfileRequest) (*models.Account, error) {
	return f.updateProfile(req)
}

func (f *fakeAPI) UploadAvatar(_ context.Context, name string, data []byte) (string, error) {
	return f.uploadAvatar(name, data)
}

type harness struct {
	mgr    *Manager
	api    *fakeAPI
	tokens *tokenstore.Store
	clock  *fakeClock
	nav    *mock_sessions.MockNavigator
	icon   *mock_sessions.MockFavicon
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := tokenstore.New(context.Background(), memory.New(), tokenstore.WithClock(clock.Now))
	require.NoError(t, err)

	h := &harness{
		api:    &fakeAPI{},
		tokens: tokens,
		clock:  clock,
		nav:    mock_sessions.NewMockNavigator(ctrl),
		icon:   mock_sessions.NewMockFavicon(ctrl),
	}
	h.mgr, err = NewManager(Options{
		API:       h.api,
		Tokens:    tokens,
		Navigator: h.nav,
		Favicon:   h.icon,
		Clock:     clock.Now,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) signIn(t *testing.T, access, refresh string, account *models.Account) {
	t.Helper()
	var r *string
	if refresh != "" {
		r = &refresh
	}
	require.NoError(t, h.tokens.Set(context.Background(), access, r))
	h.mgr.setAccount(account)
}

var alice = &models.Account{ID: 1, Username: "alice", Email: "alice@example.com", Role: models.RoleUser}

func unauthorized() error {
	return &gateway.APIError{Method: http.MethodGet, Path: "/auth/profile", Status: http.StatusUnauthorized, Message: "invalid token"}
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(Options{})
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(45 * time.Minute)
	h.api.login = func(req models.LoginRequest) (*models.LoginResponse, error) {
		assert.Equal(t, "alice", req.Username)
		return &models.LoginResponse{Token: "access-1", User: &models.Account{Username: "alice"}}, nil
	}
	h.api.profile = func() (*models.Account, error) {
		a := *alice
		a.Avatar = "🐱"
		return &a, nil
	}
	h.icon.EXPECT().Apply(gomock.Any(), "🐱")

	require.NoError(t, h.mgr.Login(context.Background(), "alice", "secret"))

	assert.Equal(t, "access-1", h.tokens.AccessToken())
	assert.Empty(t, h.tokens.RefreshToken(), "server issues no refresh token")
	assert.True(t, h.mgr.LastActivity().Equal(h.clock.Now()))
	assert.Equal(t, StateProfileLoaded, h.mgr.State())
	assert.Equal(t, "alice@example.com", h.mgr.Email())
	assert.True(t, h.mgr.CheckTokenExpiry(context.Background()))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	wantErr := &gateway.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	h.api.login = func(models.LoginRequest) (*models.LoginResponse, error) { return nil, wantErr }

	err := h.mgr.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, wantErr)
	assert.Empty(t, h.tokens.AccessToken())
	assert.Nil(t, h.mgr.Account())
	assert.Equal(t, StateAnonymous, h.mgr.State())
}

func TestLogin_ProfileFailureClearsSession(t *testing.T) {
	h := newHarness(t)
	h.api.login = func(models.LoginRequest) (*models.LoginResponse, error) {
		return &models.LoginResponse{Token: "access-1", User: alice}, nil
	}
	h.api.profile = func() (*models.Account, error) { return nil, errors.New("boom") }

	require.Error(t, h.mgr.Login(context.Background(), "alice", "secret"))
	assert.Empty(t, h.tokens.AccessToken())
	assert.Nil(t, h.mgr.Account())
}

func TestLogin_MissingToken(t *testing.T) {
	h := newHarness(t)
	h.api.login = func(models.LoginRequest) (*models.LoginResponse, error) {
		return &models.LoginResponse{}, nil
	}
	require.ErrorIs(t, h.mgr.Login(context.Background(), "alice", "secret"), ErrMissingToken)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	h.api.register = func(req models.RegisterRequest) (*models.LoginResponse, error) {
		assert.Equal(t, "bob@example.com", req.Email)
		return &models.LoginResponse{Token: "access-2", User: &models.Account{Username: "bob"}}, nil
	}
	h.api.profile = func() (*models.Account, error) {
		return &models.Account{Username: "bob", Role: models.RoleUser}, nil
	}

	require.NoError(t, h.mgr.Register(context.Background(), models.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "pw"}))
	assert.Equal(t, "bob", h.mgr.Username())
	assert.Equal(t, "access-2", h.tokens.AccessToken())
}

func TestLogout_AlwaysClears(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.api.logout = func() error { return errors.New("server down") }
	h.icon.EXPECT().Reset()

	h.mgr.Logout(context.Background())
	assert.False(t, h.mgr.IsAuthenticated())
	assert.Nil(t, h.mgr.Account())
}

func TestFetchProfile_RequiresToken(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.mgr.FetchProfile(context.Background()), ErrNotAuthenticated)
}

func TestFetchProfile_ReplacesWholesale(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", &models.Account{Username: "alice", Avatar: "old.png", HasGitLabToken: true})
	h.api.profile = func() (*models.Account, error) { return &models.Account{Username: "alice"}, nil }

	require.NoError(t, h.mgr.FetchProfile(context.Background()))
	assert.Empty(t, h.mgr.Account().Avatar)
	assert.False(t, h.mgr.HasGitLabToken())
}

func TestFetchProfile_401ClearsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.api.profile = func() (*models.Account, error) { return nil, unauthorized() }

	err := h.mgr.FetchProfile(context.Background())
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestFetchProfile_OtherErrorKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.api.profile = func() (*models.Account, error) {
		return nil, &gateway.APIError{Status: http.StatusInternalServerError, Message: "db"}
	}

	require.Error(t, h.mgr.FetchProfile(context.Background()))
	assert.True(t, h.mgr.IsAuthenticated())
}

func TestRefreshAccessToken_NoRefreshToken(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	_, err := h.mgr.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestRefreshAccessToken_KeepsRefreshWhenNotRotated(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "old-access", "refresh-1", alice)
	h.api.refresh = func(token string) (*models.LoginResponse, error) {
		assert.Equal(t, "refresh-1", token)
		return &models.LoginResponse{Token: "new-access"}, nil
	}

	token, err := h.mgr.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.Equal(t, "new-access", h.tokens.AccessToken())
	assert.Equal(t, "refresh-1", h.tokens.RefreshToken())
	assert.NotNil(t, h.mgr.Account(), "account survives a refresh without user payload")
}

func TestRefreshAccessToken_FailureClears(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "old-access", "refresh-1", alice)
	h.api.refresh = func(string) (*models.LoginResponse, error) { return nil, errors.New("expired") }

	_, err := h.mgr.RefreshAccessToken(context.Background())
	require.Error(t, err)
	assert.False(t, h.mgr.IsAuthenticated())
	assert.Empty(t, h.tokens.RefreshToken())
}

func TestRefreshAccessToken_SingleFlight(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "old-access", "refresh-1", alice)

	var calls atomic.Int32
	release := make(chan struct{})
	h.api.refresh = func(string) (*models.LoginResponse, error) {
		calls.Add(1)
		<-release
		return &models.LoginResponse{Token: "new-access"}, nil
	}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := h.mgr.RefreshAccessToken(context.Background())
			assert.NoError(t, err)
			results[i] = token
		}(i)
	}
	// Let every caller join the in-flight exchange before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "new-access", r)
	}
}

func TestCheckTokenExpiry(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)

	h.clock.Advance(DefaultInactivityWindow)
	assert.True(t, h.mgr.CheckTokenExpiry(context.Background()), "exactly 30 minutes is still valid")
	assert.True(t, h.mgr.IsAuthenticated())

	h.clock.Advance(time.Millisecond)
	assert.False(t, h.mgr.CheckTokenExpiry(context.Background()))
	assert.False(t, h.mgr.IsAuthenticated())
	assert.Nil(t, h.mgr.Account())
}

func TestUpdateLastActivity(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.clock.Advance(29 * time.Minute)
	h.mgr.UpdateLastActivity(context.Background())
	h.clock.Advance(29 * time.Minute)
	assert.True(t, h.mgr.CheckTokenExpiry(context.Background()))
}

func TestHasPermission(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.mgr.HasPermission("projects", ActionView), "no account, no permission")

	h.signIn(t, "access", "", alice)
	tests := []struct {
		resource string
		action   string
		want     bool
	}{
		{"projects", ActionDelete, true},
		{"webhooks", ActionCreate, true},
		{"users", ActionUpdate, true},
		{"notifications", ActionView, true},
		{"notifications", ActionDelete, false},
		{"profile", ActionUpdate, true},
		{"profile", ActionDelete, false},
		{"accounts", ActionView, false},
		{"resource-managers", ActionView, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.mgr.HasPermission(tt.resource, tt.action), "%s:%s", tt.resource, tt.action)
	}
	assert.False(t, h.mgr.CanAccessResource("accounts"))
	assert.True(t, h.mgr.CanAccessResource("projects"))

	h.mgr.setAccount(&models.Account{Username: "root", Role: models.RoleAdmin})
	assert.True(t, h.mgr.HasPermission("accounts", ActionView))
	assert.True(t, h.mgr.HasPermission("anything", "whatever"))
}

func TestHandleAuthFailure_NoRefreshTokenTearsDown(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.nav.EXPECT().CurrentPath().Return("/users")
	h.nav.EXPECT().Redirect("/login?redirect=%2Fusers")

	_, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Path: "/users", Token: "access"})
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestHandleAuthFailure_AlreadyRetried(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "refresh", alice)
	h.nav.EXPECT().CurrentPath().Return("/projects")
	h.nav.EXPECT().Redirect("/login?redirect=%2Fprojects")

	_, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Retried: true, Token: "access"})
	require.ErrorIs(t, err, ErrAlreadyRetried)
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestHandleAuthFailure_OnLoginScreenDoesNotRedirect(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.nav.EXPECT().CurrentPath().Return("/login?redirect=%2Fusers")

	_, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Token: "access"})
	require.Error(t, err)
}

func TestHandleAuthFailure_RefreshSucceeds(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "refresh", alice)
	h.api.refresh = func(string) (*models.LoginResponse, error) {
		return &models.LoginResponse{Token: "fresh"}, nil
	}

	token, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Token: "access"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestHandleAuthFailure_RefreshFailsTearsDown(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "refresh", alice)
	h.api.refresh = func(string) (*models.LoginResponse, error) { return nil, errors.New("revoked") }
	h.nav.EXPECT().CurrentPath().Return("/")
	h.nav.EXPECT().Redirect("/login?redirect=%2F")

	_, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Token: "access"})
	require.Error(t, err)
	assert.False(t, h.mgr.IsAuthenticated())
}

func TestHandleAuthFailure_TokenAlreadyRotated(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "rotated", "refresh", alice)
	h.api.refresh = func(string) (*models.LoginResponse, error) {
		t.Fatal("no second refresh expected")
		return nil, nil
	}

	token, err := h.mgr.HandleAuthFailure(context.Background(), gateway.AuthFailure{Token: "stale"})
	require.NoError(t, err)
	assert.Equal(t, "rotated", token)
}

func TestTokenExpiresAt(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.mgr.TokenExpiresAt().IsZero())

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	h.signIn(t, signed, "", alice)
	assert.True(t, h.mgr.TokenExpiresAt().Equal(exp))

	h.signIn(t, "not-a-jwt", "", alice)
	assert.True(t, h.mgr.TokenExpiresAt().IsZero())
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "access", "", alice)
	h.api.updateProfile = func(req models.UpdateProfileRequest) (*models.Account, error) {
		return &models.Account{Username: "alice", Email: req.Email, Avatar: "https://cdn.example/a.png"}, nil
	}
	h.icon.EXPECT().Apply(gomock.Any(), "https://cdn.example/a.png")

	account, err := h.mgr.UpdateProfile(context.Background(), models.UpdateProfileRequest{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", account.Email)
	assert.Equal(t, "new@example.com", h.mgr.Email())
}

func TestChangePassword_RequiresSession(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.mgr.ChangePassword(context.Background(), "a", "b"), ErrNotAuthenticated)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "profile-loaded", StateProfileLoaded.String())
}

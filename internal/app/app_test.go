package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergealert/config"
	"mergealert/internal/storage"
	"mergealert/internal/storage/memory"
	"mergealert/models"
)

// fakeServer is a minimal merge alert backend.
type fakeServer struct {
	mu            sync.Mutex
	setupRequired bool
	token         string
	role          string
	resets        map[string]string

	// calls records requests that fell through to the catch-all route;
	// replies holds canned data for them keyed by "METHOD /path".
	calls   []call
	replies map[string]any
}

type call struct {
	Method string
	Path   string
	Body   map[string]any
}

func (s *fakeServer) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *fakeServer) handler(t *testing.T) http.Handler {
	envelope := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "message": "ok", "data": data})
	}
	fail := func(w http.ResponseWriter, status int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	}
	authorized := func(r *http.Request) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.token != "" && r.Header.Get("Authorization") == "Bearer "+s.token
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/system/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]bool{"admin_setup_required": s.setupRequired})
	})
	mux.HandleFunc("POST /api/v1/system/setup-admin", func(w http.ResponseWriter, r *http.Request) {
		var req models.SetupAdminRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Token != "setup-token" {
			fail(w, http.StatusUnauthorized, "invalid setup token")
			return
		}
		s.mu.Lock()
		s.setupRequired = false
		s.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "alice" || req.Password != "secret" {
			fail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.mu.Lock()
		s.token = "tok-1"
		s.mu.Unlock()
		envelope(w, models.LoginResponse{Token: "tok-1", User: &models.Account{ID: 1, Username: "alice"}})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, nil)
	})
	mux.HandleFunc("GET /api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.mu.Lock()
		role := s.role
		s.mu.Unlock()
		envelope(w, models.Account{ID: 1, Username: "alice", Email: "alice@example.com", Role: role, IsActive: true})
	})
	mux.HandleFunc("GET /api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		envelope(w, []models.User{{ID: 9, Name: "Bob", Email: "bob@example.com", Phone: "13812345678"}})
	})
	mux.HandleFunc("PUT /api/v1/accounts/{id}/password", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.resets[r.PathValue("id")] = body["new_password"]
		s.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")
		key := r.Method + " " + path
		s.mu.Lock()
		reply, ok := s.replies[key]
		s.mu.Unlock()
		if !ok && r.Method == http.MethodGet {
			fail(w, http.StatusNotFound, "not found")
			return
		}
		c := call{Method: r.Method, Path: path}
		if r.ContentLength != 0 {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&c.Body))
		}
		s.mu.Lock()
		s.calls = append(s.calls, c)
		s.mu.Unlock()
		if !ok {
			reply = map[string]any{"id": 42}
		}
		envelope(w, reply)
	})
	return mux
}

func (s *fakeServer) revoke() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func newTestApp(t *testing.T, srv *fakeServer) (*App, *bytes.Buffer) {
	t.Helper()
	return newTestAppWithStore(t, srv, memory.New())
}

func newTestAppWithStore(t *testing.T, srv *fakeServer, store storage.Store) (*App, *bytes.Buffer) {
	t.Helper()
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		BaseURL:          ts.URL + "/api/v1",
		Timeout:          5 * time.Second,
		InactivityWindow: 30 * time.Minute,
		StorageBackend:   config.BackendMemory,
		IconPath:         "/icons/favicon.png",
		Output:           "json",
	}
	var out bytes.Buffer
	a, err := New(context.Background(), cfg, Deps{Fs: afero.NewMemMapFs(), Store: store, Out: &out})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, &out
}

func TestApp_LoginThenOpenScreen(t *testing.T) {
	srv := &fakeServer{role: models.RoleUser}
	a, out := newTestApp(t, srv)
	ctx := context.Background()

	require.NoError(t, a.Login(ctx, "alice", "secret", ""))
	assert.True(t, a.Session.IsAuthenticated())
	assert.Equal(t, "alice@example.com", a.Session.Email())

	require.NoError(t, a.Open(ctx, "/users"))
	var users []models.User
	require.NoError(t, json.Unmarshal(out.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].Name)
	assert.Equal(t, "/users", a.History.CurrentPath())
	assert.Equal(t, "Users - GitLab Merge Alert", a.History.Title())
}

func TestApp_LoginFailureLeavesSessionCleared(t *testing.T) {
	a, _ := newTestApp(t, &fakeServer{})

	err := a.Login(context.Background(), "alice", "wrong", "")
	require.Error(t, err)
	assert.False(t, a.Session.IsAuthenticated())
	assert.Empty(t, a.Tokens.AccessToken())
}

func TestApp_ProtectedScreenWhileSignedOut(t *testing.T) {
	a, out := newTestApp(t, &fakeServer{})

	require.NoError(t, a.Open(context.Background(), "/users"))
	assert.JSONEq(t, `{"screen":"Login","command":"login","redirect":"/users"}`, out.String())
	assert.Equal(t, "/login?redirect=%2Fusers", a.History.CurrentPath())
}

func TestApp_AdminScreenForMember(t *testing.T) {
	a, out := newTestApp(t, &fakeServer{role: models.RoleUser})
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "alice", "secret", ""))

	d, err := a.History.Navigate(ctx, "/accounts")
	require.NoError(t, err)
	assert.Equal(t, "Dashboard", d.Route.Name)
	assert.Empty(t, out.String())
}

func TestApp_SessionRevokedDuringRender(t *testing.T) {
	srv := &fakeServer{role: models.RoleUser}
	a, out := newTestApp(t, srv)
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "alice", "secret", ""))

	srv.revoke()
	err := a.Open(ctx, "/users")
	require.Error(t, err)

	assert.False(t, a.Session.IsAuthenticated())
	assert.Empty(t, a.Tokens.AccessToken())
	assert.Contains(t, out.String(), `"redirect": "/users"`)
	assert.True(t, strings.HasPrefix(a.History.CurrentPath(), "/login"))
}

func TestApp_SetupRequired(t *testing.T) {
	srv := &fakeServer{setupRequired: true}
	a, out := newTestApp(t, srv)
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, "/"))
	assert.Contains(t, out.String(), `"command": "setup-admin"`)
	assert.ErrorIs(t, a.Login(ctx, "alice", "secret", ""), ErrSetupRequired)

	err := a.SetupAdmin(ctx, models.SetupAdminRequest{Token: "bad", Email: "root@example.com", Password: "secret1"})
	require.Error(t, err)

	require.NoError(t, a.SetupAdmin(ctx, models.SetupAdminRequest{Token: "setup-token", Email: "root@example.com", Password: "secret1"}))
	required, known := a.Bootstrap.Cached()
	assert.True(t, known)
	assert.False(t, required)
	assert.ErrorIs(t, a.SetupAdmin(ctx, models.SetupAdminRequest{Token: "setup-token"}), ErrSetupDone)
}

func TestApp_ResetPassword(t *testing.T) {
	srv := &fakeServer{role: models.RoleAdmin, resets: map[string]string{}}
	a, out := newTestApp(t, srv)
	ctx := context.Background()

	assert.ErrorIs(t, a.ResetPassword(ctx, 3, ""), ErrNotSignedIn)

	require.NoError(t, a.Login(ctx, "alice", "secret", ""))
	require.NoError(t, a.ResetPassword(ctx, 3, ""))

	var printed struct {
		AccountID uint   `json:"account_id"`
		Password  string `json:"password"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, uint(3), printed.AccountID)
	assert.Equal(t, srv.resets["3"], printed.Password)
	assert.Len(t, printed.Password, 16)
}

func TestApp_Logout(t *testing.T) {
	a, _ := newTestApp(t, &fakeServer{role: models.RoleUser})
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "alice", "secret", ""))

	a.Logout(ctx)
	assert.False(t, a.Session.IsAuthenticated())
	assert.ErrorIs(t, a.Whoami(ctx), ErrNotSignedIn)
}

func TestOpenStore_SealedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.Config{
		StorageBackend: config.BackendFile,
		StoragePath:    "/state/session.json",
		SealKey:        strings.Repeat("ab", 32),
	}
	ctx := context.Background()

	store, err := OpenStore(ctx, cfg, fs)
	require.NoError(t, err)
	require.NoError(t, store.SetMany(ctx, map[string]string{"token": "tok-1"}))
	require.NoError(t, store.Close())

	raw, err := afero.ReadFile(fs, "/state/session.json")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok-1")

	store, err = OpenStore(ctx, cfg, fs)
	require.NoError(t, err)
	defer store.Close()
	v, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)
}

func TestOpenStore_BadKey(t *testing.T) {
	cfg := &config.Config{StorageBackend: config.BackendMemory, SealKey: "nothex"}
	_, err := OpenStore(context.Background(), cfg, afero.NewMemMapFs())
	assert.Error(t, err)
}

func seedSession(t *testing.T, idle time.Duration) storage.Store {
	t.Helper()
	store := memory.New()
	last := time.Now().Add(-idle).UnixMilli()
	require.NoError(t, store.SetMany(context.Background(), map[string]string{
		"token":          "tok-1",
		"lastActivityAt": strconv.FormatInt(last, 10),
	}))
	return store
}

func TestApp_IdleSessionExpiresOnNextCommand(t *testing.T) {
	srv := &fakeServer{role: models.RoleUser, token: "tok-1"}
	store := seedSession(t, 31*time.Minute)
	a, out := newTestAppWithStore(t, srv, store)
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, "/users"))

	assert.Equal(t, "/login?redirect=%2Fusers", a.History.CurrentPath())
	assert.JSONEq(t, `{"screen":"Login","command":"login","redirect":"/users"}`, out.String())
	assert.False(t, a.Session.IsAuthenticated())
	_, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApp_RecentSessionSurvivesNextCommand(t *testing.T) {
	srv := &fakeServer{role: models.RoleUser, token: "tok-1"}
	store := seedSession(t, 5*time.Minute)
	a, out := newTestAppWithStore(t, srv, store)
	ctx := context.Background()
	before := time.Now()

	require.NoError(t, a.Open(ctx, "/users"))

	assert.Equal(t, "/users", a.History.CurrentPath())
	var users []models.User
	require.NoError(t, json.Unmarshal(out.Bytes(), &users))
	assert.Len(t, users, 1)
	assert.False(t, a.Tokens.Get().LastActivityAt.Before(before.Truncate(time.Millisecond)))
}

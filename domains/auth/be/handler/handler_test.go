package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/clubportal/domains/auth/be/service"
	themes "github.com/zenGate-Global/clubportal/domains/themes/be/service"
	users "github.com/zenGate-Global/clubportal/domains/users/be/service"
	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/session"
)

const testProfile = "profile-test-1"

type mockGate struct {
	authenticateFn func(ctx context.Context, profile, username, password string) (service.Result, error)
	logoutFn       func(ctx context.Context, profile string) error
	currentFn      func(ctx context.Context, profile string) (session.View, error)
	themeFn        func(ctx context.Context, profile string) json.RawMessage
}

func (m *mockGate) Authenticate(ctx context.Context, profile, username, password string) (service.Result, error) {
	if m.authenticateFn == nil {
		panic("authenticateFn not configured")
	}
	return m.authenticateFn(ctx, profile, username, password)
}

func (m *mockGate) Logout(ctx context.Context, profile string) error {
	if m.logoutFn == nil {
		panic("logoutFn not configured")
	}
	return m.logoutFn(ctx, profile)
}

func (m *mockGate) Current(ctx context.Context, profile string) (session.View, error) {
	if m.currentFn == nil {
		panic("currentFn not configured")
	}
	return m.currentFn(ctx, profile)
}

func (m *mockGate) Theme(ctx context.Context, profile string) json.RawMessage {
	if m.themeFn == nil {
		panic("themeFn not configured")
	}
	return m.themeFn(ctx, profile)
}

func newRouter(t *testing.T, gate Gate, sync Subscriber) http.Handler {
	t.Helper()
	h := New(gate, sync, zaptest.NewLogger(t))
	r := chi.NewRouter()
	r.Use(session.ProfileMiddleware(false))
	r.Route("/auth", h.AuthRoutes)
	r.Route("/session", func(r chi.Router) {
		h.StreamRoutes(r)
		h.SessionRoutes(r)
	})
	return r
}

func newSync(t *testing.T, manager *session.Manager) *session.Synchronizer {
	t.Helper()
	s, err := session.NewSynchronizer(manager, session.MinPollInterval, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return s
}

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	raw, err := json.Marshal(themes.DefaultSnapshot())
	require.NoError(t, err)
	return session.NewManager(session.NewMemoryStore(), raw)
}

// downSessionStore fails every read the way an unreachable Redis does.
type downSessionStore struct{ *session.MemoryStore }

func (downSessionStore) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(session.ProfileHeader, testProfile)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	gate := &mockGate{authenticateFn: func(_ context.Context, profile, username, password string) (service.Result, error) {
		require.Equal(t, testProfile, profile)
		require.Equal(t, "coach", username)
		require.Equal(t, "pw", password)
		return service.Result{
			User:      &users.User{ID: "u1", Username: "coach", Role: platformauth.RoleTenantStaff, TenantID: "t1", Status: "active", CreatedAt: now, UpdatedAt: now},
			Route:     service.RouteStaff,
			Theme:     themes.DefaultSnapshot(),
			Token:     "signed",
			ExpiresAt: now.Add(time.Hour),
		}, nil
	}}
	router := newRouter(t, gate, newSync(t, newManager(t)))

	rec := do(router, http.MethodPost, "/auth/login", `{"username":"coach","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User  map[string]any `json:"user"`
		Route string         `json:"route"`
		Token string         `json:"token"`
		Theme map[string]any `json:"theme"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/staff", body.Route)
	require.Equal(t, "signed", body.Token)
	require.Equal(t, "t1", body.User["clientId"])
	require.NotContains(t, body.User, "password")
	require.Equal(t, themes.KeyDefault, body.Theme["key"])
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	t.Parallel()

	for _, kind := range []service.FailureKind{service.FailureInvalidCredentials, service.FailureInactiveAccount, service.FailureInactiveTenant} {
		gate := &mockGate{authenticateFn: func(context.Context, string, string, string) (service.Result, error) {
			return service.Result{Failure: kind}, nil
		}}
		router := newRouter(t, gate, newSync(t, newManager(t)))

		rec := do(router, http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, kind)
		require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), service.PublicFailureMessage)
		require.NotContains(t, rec.Body.String(), string(kind))
	}
}

func TestLoginStoreUnavailable(t *testing.T) {
	t.Parallel()

	gate := &mockGate{authenticateFn: func(context.Context, string, string, string) (service.Result, error) {
		return service.Result{}, docstore.ErrUnavailable
	}}
	router := newRouter(t, gate, newSync(t, newManager(t)))

	rec := do(router, http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	router := newRouter(t, &mockGate{}, newSync(t, newManager(t)))
	rec := do(router, http.MethodPost, "/auth/login", `{"username":"x","password":"y","remember":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsProfile(t *testing.T) {
	t.Parallel()

	var cleared string
	gate := &mockGate{logoutFn: func(_ context.Context, profile string) error {
		cleared = profile
		return nil
	}}
	router := newRouter(t, gate, newSync(t, newManager(t)))

	rec := do(router, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, testProfile, cleared)
}

func TestSessionThemeReturnsStoredTheme(t *testing.T) {
	t.Parallel()

	gate := &mockGate{
		currentFn: func(context.Context, string) (session.View, error) {
			return session.View{Theme: json.RawMessage(`{"key":"penarol"}`)}, nil
		},
		themeFn: func(_ context.Context, profile string) json.RawMessage {
			require.Equal(t, testProfile, profile)
			return json.RawMessage(`{"key":"penarol"}`)
		},
	}
	router := newRouter(t, gate, newSync(t, newManager(t)))

	rec := do(router, http.MethodGet, "/session/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"key":"penarol"}`, rec.Body.String())

	rec = do(router, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user":null,"theme":{"key":"penarol"}}`, rec.Body.String())
}

func TestSessionThemeServesDefaultWhenSessionStoreIsDown(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(themes.DefaultSnapshot())
	require.NoError(t, err)
	manager := session.NewManager(downSessionStore{session.NewMemoryStore()}, raw, session.WithLogger(zaptest.NewLogger(t)))
	gate := &mockGate{
		themeFn: func(ctx context.Context, profile string) json.RawMessage {
			return manager.For(profile).Theme(ctx)
		},
		currentFn: func(ctx context.Context, profile string) (session.View, error) {
			return manager.For(profile).View(ctx)
		},
	}
	router := newRouter(t, gate, newSync(t, manager))

	rec := do(router, http.MethodGet, "/session/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, string(raw), rec.Body.String())
}

func TestSessionEventsStreamsChanges(t *testing.T) {
	t.Parallel()

	manager := newManager(t)
	router := newRouter(t, &mockGate{}, newSync(t, manager))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/session/events", nil)
	require.NoError(t, err)
	req.Header.Set(session.ProfileHeader, testProfile)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := nextView(t, reader)
	require.Nil(t, first.User)
	require.Equal(t, themes.KeyDefault, themeKey(t, first.Theme))

	require.NoError(t, manager.For(testProfile).SetTheme(ctx, json.RawMessage(`{"key":"nacional"}`)))

	second := nextView(t, reader)
	require.Equal(t, "nacional", themeKey(t, second.Theme))
}

func nextView(t *testing.T, reader *bufio.Reader) session.View {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok {
			var view session.View
			require.NoError(t, json.Unmarshal([]byte(data), &view))
			return view
		}
	}
}

func themeKey(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(raw, &v))
	return v.Key
}

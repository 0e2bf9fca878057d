package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

type resolverFunc func(ctx context.Context, id string) (tenant.Scope, error)

func (f resolverFunc) ResolveScope(ctx context.Context, id string) (tenant.Scope, error) {
	return f(ctx, id)
}

func staffRequest(clientID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/modules", nil)
	creds := &platformauth.UserCredentials{ID: "u1", Role: platformauth.RoleTenantStaff}
	if clientID != "" {
		creds.TenantID = &clientID
	}
	return req.WithContext(platformauth.WithUser(req.Context(), creds))
}

func serve(s *Scoper, req *http.Request) (*httptest.ResponseRecorder, *tenant.Scope) {
	var seen *tenant.Scope
	h := s.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenant.FromContext(r.Context())
		if ok {
			seen = &scope
		}
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestScoperAttachesActiveTenant(t *testing.T) {
	t.Parallel()

	s := New(resolverFunc(func(_ context.Context, id string) (tenant.Scope, error) {
		return tenant.Scope{TenantID: id, Name: "Riverside FC", Status: tenant.StatusActive}, nil
	}), Config{})

	rec, scope := serve(s, staffRequest("c1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, scope)
	require.Equal(t, "Riverside FC", scope.Name)
}

func TestScoperRejections(t *testing.T) {
	t.Parallel()

	s := New(resolverFunc(func(_ context.Context, id string) (tenant.Scope, error) {
		switch id {
		case "inactive":
			return tenant.Scope{TenantID: id, Status: tenant.StatusInactive}, nil
		case "gone":
			return tenant.Scope{}, tenant.ErrNotFound
		default:
			return tenant.Scope{}, errors.New("store offline")
		}
	}), Config{})

	rec, _ := serve(s, staffRequest("inactive"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(s, staffRequest("gone"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(s, staffRequest("broken"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = serve(s, staffRequest(""))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScoperCachesAndInvalidates(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := New(resolverFunc(func(_ context.Context, id string) (tenant.Scope, error) {
		calls.Add(1)
		return tenant.Scope{TenantID: id, Status: tenant.StatusActive}, nil
	}), Config{CacheTTL: time.Minute})

	serve(s, staffRequest("c1"))
	serve(s, staffRequest("c1"))
	require.Equal(t, int32(1), calls.Load())

	s.Invalidate("c1")
	serve(s, staffRequest("c1"))
	require.Equal(t, int32(2), calls.Load())
}

func TestScoperServesLastKnownScopeDuringOutage(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	s := New(resolverFunc(func(_ context.Context, id string) (tenant.Scope, error) {
		if down.Load() {
			return tenant.Scope{}, errors.New("firestore: unavailable")
		}
		return tenant.Scope{TenantID: id, Name: "Riverside FC", Status: tenant.StatusActive, EnabledModuleIDs: []string{"players"}}, nil
	}), Config{CacheTTL: time.Minute})

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.cache.now = func() time.Time { return clock }

	rec, _ := serve(s, staffRequest("c1"))
	require.Equal(t, http.StatusOK, rec.Code)

	down.Store(true)
	clock = clock.Add(2 * time.Minute)

	rec, scope := serve(s, staffRequest("c1"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, scope)
	require.Equal(t, "Riverside FC", scope.Name)
	require.Equal(t, []string{"players"}, scope.EnabledModuleIDs)

	// Nothing was ever cached for this club, so there is nothing to fall back to.
	rec, _ = serve(s, staffRequest("c2"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScoperDropsScopeOfDeletedTenant(t *testing.T) {
	t.Parallel()

	var gone atomic.Bool
	s := New(resolverFunc(func(_ context.Context, id string) (tenant.Scope, error) {
		if gone.Load() {
			return tenant.Scope{}, tenant.ErrNotFound
		}
		return tenant.Scope{TenantID: id, Status: tenant.StatusActive}, nil
	}), Config{CacheTTL: time.Minute})

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.cache.now = func() time.Time { return clock }

	rec, _ := serve(s, staffRequest("c1"))
	require.Equal(t, http.StatusOK, rec.Code)

	gone.Store(true)
	clock = clock.Add(2 * time.Minute)
	rec, _ = serve(s, staffRequest("c1"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

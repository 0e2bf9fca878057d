package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/v1/clients/{clientId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/clients/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/clients/def", nil))

	require.Equal(t, float64(2), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/clients/{clientId}", "204")))
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.AuthAttempt("success")
	m.AuthAttempt("invalid_credentials")
	m.AuthAttempt("success")
	m.CascadeFailures("users", 3)
	m.CascadeFailures("users", 0)
	m.SessionChange()

	require.Equal(t, float64(2), testutil.ToFloat64(m.authAttempts.WithLabelValues("success")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.cascadeFailures.WithLabelValues("users")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.sessionChanges))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.True(t, strings.Contains(rec.Body.String(), "auth_attempts_total"))
}

func TestNilMetricsAreNoops(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.AuthAttempt("success")
	m.CascadeFailures("players", 1)
	m.SessionChange()

	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

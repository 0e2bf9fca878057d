package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/clubportal/domains/users/be/repo"
	"github.com/zenGate-Global/clubportal/domains/users/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := service.New(repo.New(docstore.NewMemoryStore()), service.PlaintextPasswords{}, logger)
	r := chi.NewRouter()
	r.Route("/users", New(svc, logger).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestUsersCreateAndList(t *testing.T) {
	t.Parallel()

	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/users", `{"username":"coach","password":"pw","role":"tenant_staff","clientId":"t1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")

	var created UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "t1", created.ClientID)
	require.Equal(t, "active", created.Status)

	rec = do(t, router, http.MethodPost, "/users", `{"username":"coach","password":"pw","role":"player","clientId":"t2"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/users?clientId=t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Items, 1)

	rec = do(t, router, http.MethodGet, "/users?clientId=t2", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Empty(t, list.Items)
}

func TestUsersUpdateAndDelete(t *testing.T) {
	t.Parallel()

	router := newRouter(t)
	rec := do(t, router, http.MethodPost, "/users", `{"username":"ana","password":"pw","role":"player","clientId":"t1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(t, router, http.MethodPatch, "/users/"+created.ID, `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated UserResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	require.Equal(t, "inactive", updated.Status)

	rec = do(t, router, http.MethodPatch, "/users/"+created.ID, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/users/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/users/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersCreateValidation(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t), http.MethodPost, "/users", `{"username":"x","password":"pw","role":"player"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body problem.Details
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Contains(t, body.Errors, "clientId")
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusServiceUnavailable, ClassifyError(docstore.ErrUnavailable).Status)
	require.Equal(t, http.StatusInternalServerError, ClassifyError(errors.New("boom")).Status)
}

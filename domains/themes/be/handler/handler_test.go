package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/clubportal/domains/themes/be/repo"
	"github.com/zenGate-Global/clubportal/domains/themes/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	catalog := service.NewCatalog(repo.New(docstore.NewMemoryStore()), logger)
	r := chi.NewRouter()
	r.Route("/themes", New(catalog, logger).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestThemesCRUD(t *testing.T) {
	t.Parallel()

	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/themes", `{"name":"Lakeside","colors":{"primary":"#112233"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created themeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "#112233", created.Colors.Primary)
	require.Equal(t, "/api/v1/themes/"+created.ID, rec.Header().Get("Location"))

	rec = do(t, router, http.MethodPatch, "/themes/"+created.ID, `{"colors":{"accent":"#AABBCC"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated themeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	require.Equal(t, "#aabbcc", updated.Colors.Accent)
	require.Equal(t, "#112233", updated.Colors.Primary)

	rec = do(t, router, http.MethodGet, "/themes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse[themeResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Items, 1)

	rec = do(t, router, http.MethodDelete, "/themes/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/themes/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
}

func TestThemesCreateValidation(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t), http.MethodPost, "/themes", `{"name":"","colors":{"primary":"red"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body problem.Details
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Contains(t, body.Errors, "name")
	require.Contains(t, body.Errors, "colors.primary")
}

func TestThemesCreateMalformedBody(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t), http.MethodPost, "/themes", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThemesDeletePredefinedRejected(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t), http.MethodDelete, "/themes/"+service.KeyNacional, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThemesListPredefined(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(t), http.MethodGet, "/themes/predefined", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list listResponse[predefinedResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Items, 3)
	require.Equal(t, service.KeyDefault, list.Items[0].Key)
}

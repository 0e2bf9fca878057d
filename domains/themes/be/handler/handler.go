package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/themes/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

type operation string

const (
	listPredefinedOperation operation = "themesListPredefined"
	listOperation           operation = "themesList"
	createOperation         operation = "themesCreate"
	getOperation            operation = "themesGet"
	updateOperation         operation = "themesUpdate"
	deleteOperation         operation = "themesDelete"
)

// Catalog is the slice of the themes service the HTTP layer uses.
type Catalog interface {
	Predefined() []service.PredefinedTheme
	List(ctx context.Context) ([]service.CustomTheme, error)
	Get(ctx context.Context, id string) (service.CustomTheme, error)
	Create(ctx context.Context, input service.CreateInput) (service.CustomTheme, error)
	Update(ctx context.Context, id string, input service.UpdateInput) (service.CustomTheme, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the theme catalog.
type Handler struct {
	catalog Catalog
	logger  *zap.Logger
}

func New(catalog Catalog, logger *zap.Logger) *Handler {
	if catalog == nil {
		panic("themes catalog is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{catalog: catalog, logger: logger}
}

// Routes mounts the catalog endpoints on r. Authorization is applied by the caller.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/predefined", h.ListPredefined)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{themeId}", h.Get)
	r.Patch("/{themeId}", h.Update)
	r.Delete("/{themeId}", h.Delete)
}

type paletteBody struct {
	Primary    *string `json:"primary,omitempty"`
	Secondary  *string `json:"secondary,omitempty"`
	Background *string `json:"background,omitempty"`
	Text       *string `json:"text,omitempty"`
	Accent     *string `json:"accent,omitempty"`
	Border     *string `json:"border,omitempty"`
}

func (p *paletteBody) toPatch() *service.PalettePatch {
	if p == nil {
		return nil
	}
	return &service.PalettePatch{
		Primary:    p.Primary,
		Secondary:  p.Secondary,
		Background: p.Background,
		Text:       p.Text,
		Accent:     p.Accent,
		Border:     p.Border,
	}
}

type createRequest struct {
	Name   string       `json:"name"`
	Colors *paletteBody `json:"colors,omitempty"`
}

type updateRequest struct {
	Name   *string      `json:"name,omitempty"`
	Colors *paletteBody `json:"colors,omitempty"`
}

type themeResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Colors    service.Palette `json:"colors"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type predefinedResponse struct {
	Key      string          `json:"key"`
	ClubName string          `json:"clubName"`
	LogoURL  string          `json:"logoUrl,omitempty"`
	Colors   service.Palette `json:"colors"`
	Classes  service.Classes `json:"classes"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func (h *Handler) ListPredefined(w http.ResponseWriter, r *http.Request) {
	predefined := h.catalog.Predefined()
	items := make([]predefinedResponse, 0, len(predefined))
	for _, p := range predefined {
		items = append(items, predefinedResponse{Key: p.Key, ClubName: p.ClubName, LogoURL: p.LogoURL, Colors: p.Colors, Classes: p.Classes})
	}
	platformlogging.FromContext(r.Context(), h.logger).Debug("predefined themes listed", zap.String("operation", string(listPredefinedOperation)))
	problem.WriteJSON(w, http.StatusOK, listResponse[predefinedResponse]{Items: items})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	themes, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]themeResponse, 0, len(themes))
	for _, t := range themes {
		items = append(items, toResponse(t))
	}
	problem.WriteJSON(w, http.StatusOK, listResponse[themeResponse]{Items: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	created, err := h.catalog.Create(r.Context(), service.CreateInput{Name: body.Name, Colors: body.Colors.toPatch()})
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", "/api/v1/themes/"+created.ID)
	problem.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	theme, err := h.catalog.Get(r.Context(), chi.URLParam(r, "themeId"))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(theme))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	updated, err := h.catalog.Update(r.Context(), chi.URLParam(r, "themeId"), service.UpdateInput{Name: body.Name, Colors: body.Colors.toPatch()})
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "themeId")); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(t service.CustomTheme) themeResponse {
	return themeResponse{ID: t.ID, Name: t.Name, Colors: t.Colors, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	p := classifyError(err)

	logger := platformlogging.FromContext(r.Context(), h.logger)
	fields := []zap.Field{zap.String("operation", string(op)), zap.Int("status", p.Status), zap.Error(err)}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("themes operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("theme not found", fields...)
	default:
		logger.Warn("themes request rejected", fields...)
	}

	problem.Write(w, p)
}

func classifyError(err error) problem.Details {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return problem.New(http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		return problem.New(http.StatusNotFound, "Resource not found", "theme not found", problem.TypeNotFound, nil)
	case errors.Is(err, docstore.ErrUnavailable):
		return problem.New(http.StatusServiceUnavailable, "Service unavailable", "theme catalog is temporarily unavailable", problem.TypeUnavailable, nil)
	default:
		return problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil)
	}
}

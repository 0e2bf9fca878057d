package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

type operation string

const (
	listOperation   operation = "tenantsList"
	createOperation operation = "tenantsCreate"
	getOperation    operation = "tenantsGet"
	updateOperation operation = "tenantsUpdate"
	deleteOperation operation = "tenantsDelete"
)

// Service is the tenant lifecycle as used over HTTP.
type Service interface {
	List(ctx context.Context, opts service.ListOptions) ([]service.Tenant, error)
	Get(ctx context.Context, id string) (service.Tenant, error)
	Create(ctx context.Context, input service.CreateInput) (service.Tenant, error)
	Update(ctx context.Context, id string, input service.UpdateInput) (service.Tenant, error)
	Delete(ctx context.Context, id string) error
}

// Handler exposes tenant administration.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the admin tenant endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{tenantId}", h.Get)
	r.Patch("/{tenantId}", h.Update)
	r.Delete("/{tenantId}", h.Delete)
}

type tenantResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DisplayName      string    `json:"displayName"`
	ThemeRef         string    `json:"theme"`
	LogoURL          string    `json:"logo,omitempty"`
	Status           string    `json:"status"`
	EnabledModuleIDs []string  `json:"enabledModuleIds"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type createRequest struct {
	Name             string   `json:"name"`
	DisplayName      *string  `json:"displayName,omitempty"`
	ThemeRef         *string  `json:"theme,omitempty"`
	LogoURL          *string  `json:"logo,omitempty"`
	Status           *string  `json:"status,omitempty"`
	EnabledModuleIDs []string `json:"enabledModuleIds,omitempty"`
}

type updateRequest struct {
	Name             *string   `json:"name,omitempty"`
	DisplayName      *string   `json:"displayName,omitempty"`
	ThemeRef         *string   `json:"theme,omitempty"`
	LogoURL          *string   `json:"logo,omitempty"`
	Status           *string   `json:"status,omitempty"`
	EnabledModuleIDs *[]string `json:"enabledModuleIds,omitempty"`
}

type listResponse struct {
	Items []tenantResponse `json:"items"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		opts.Status = &status
	}

	tenants, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation, nil)
		return
	}

	items := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, toResponse(t))
	}
	problem.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Name:             body.Name,
		DisplayName:      body.DisplayName,
		ThemeRef:         body.ThemeRef,
		LogoURL:          body.LogoURL,
		Status:           body.Status,
		EnabledModuleIDs: body.EnabledModuleIDs,
	})
	if err != nil {
		h.writeError(w, r, err, createOperation, nil)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/tenants/"+created.ID)
	problem.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		h.writeError(w, r, err, getOperation, nil)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "tenantId"), service.UpdateInput{
		Name:             body.Name,
		DisplayName:      body.DisplayName,
		ThemeRef:         body.ThemeRef,
		LogoURL:          body.LogoURL,
		Status:           body.Status,
		EnabledModuleIDs: body.EnabledModuleIDs,
	})
	if err != nil {
		var partial *tenantResponse
		if updated.ID != "" {
			resp := toResponse(updated)
			partial = &resp
		}
		h.writeError(w, r, err, updateOperation, partial)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "tenantId")); err != nil {
		h.writeError(w, r, err, deleteOperation, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(t service.Tenant) tenantResponse {
	enabled := t.EnabledModuleIDs
	if enabled == nil {
		enabled = []string{}
	}
	return tenantResponse{
		ID:               t.ID,
		Name:             t.Name,
		DisplayName:      t.EffectiveDisplayName(),
		ThemeRef:         t.ThemeRef,
		LogoURL:          t.LogoURL,
		Status:           t.Status,
		EnabledModuleIDs: enabled,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// writeError classifies err; updated carries the tenant that was written before a cascade stopped.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation, updated *tenantResponse) {
	p := classifyError(err)
	if updated != nil && p.Type == problem.TypeCascade {
		p.Extensions["tenant"] = updated
	}

	logger := platformlogging.FromContext(r.Context(), h.logger)
	fields := []zap.Field{zap.String("operation", string(op)), zap.Int("status", p.Status), zap.Error(err)}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("tenants operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("tenant not found", fields...)
	default:
		logger.Warn("tenants request rejected", fields...)
	}

	problem.Write(w, p)
}

func classifyError(err error) problem.Details {
	var (
		validationErr *service.ValidationError
		cascadeErr    *service.CascadeError
	)
	switch {
	case errors.As(err, &validationErr):
		return problem.New(http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields)
	case errors.As(err, &cascadeErr):
		p := problem.New(http.StatusBadGateway, "Cascade incomplete", "the tenant change was applied but some dependent records could not be updated; retry the operation", problem.TypeCascade, nil)
		p.Extensions = map[string]any{"phase": cascadeErr.Phase, "failedIds": cascadeErr.FailedIDs}
		return p
	case errors.Is(err, service.ErrNotFound):
		return problem.New(http.StatusNotFound, "Resource not found", "tenant not found", problem.TypeNotFound, nil)
	case errors.Is(err, docstore.ErrUnavailable):
		return problem.New(http.StatusServiceUnavailable, "Service unavailable", "tenant directory is temporarily unavailable", problem.TypeUnavailable, nil)
	default:
		return problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil)
	}
}

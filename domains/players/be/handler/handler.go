package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/players/be/service"
	users "github.com/zenGate-Global/clubportal/domains/users/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

type operation string

const (
	listOperation   operation = "playersList"
	createOperation operation = "playersCreate"
	getOperation    operation = "playersGet"
	updateOperation operation = "playersUpdate"
	deleteOperation operation = "playersDelete"
)

// Service is the players service as used over HTTP.
type Service interface {
	List(ctx context.Context, tenantID string) ([]service.Player, error)
	Get(ctx context.Context, tenantID, id string) (service.Player, error)
	Create(ctx context.Context, tenantID string, input service.CreateInput) (service.Player, error)
	Update(ctx context.Context, tenantID, id string, input service.UpdateInput) (service.Player, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// Handler serves tenant staff. Routes must be mounted behind the tenant scope middleware.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("players service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{playerId}", h.Get)
	r.Patch("/{playerId}", h.Update)
	r.Delete("/{playerId}", h.Delete)
}

type playerResponse struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	BirthDate string    `json:"birthDate,omitempty"`
	Position  string    `json:"position,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate,omitempty"`
	Position  string `json:"position,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
}

type updateRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	Position  *string `json:"position,omitempty"`
	PhotoURL  *string `json:"photoUrl,omitempty"`
}

type listResponse struct {
	Items []playerResponse `json:"items"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	players, err := h.svc.List(r.Context(), scope.TenantID)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]playerResponse, 0, len(players))
	for _, p := range players {
		items = append(items, toResponse(p))
	}
	problem.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body createRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	created, err := h.svc.Create(r.Context(), scope.TenantID, service.CreateInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		BirthDate: body.BirthDate,
		Position:  body.Position,
		PhotoURL:  body.PhotoURL,
		Username:  body.Username,
		Password:  body.Password,
	})
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", "/api/v1/players/"+created.ID)
	problem.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), scope.TenantID, chi.URLParam(r, "playerId"))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body updateRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), scope.TenantID, chi.URLParam(r, "playerId"), service.UpdateInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		BirthDate: body.BirthDate,
		Position:  body.Position,
		PhotoURL:  body.PhotoURL,
	})
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), scope.TenantID, chi.URLParam(r, "playerId")); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok || scope.TenantID == "" {
		platformlogging.FromContext(r.Context(), h.logger).Error("players route mounted without tenant scope")
		problem.Forbidden(w, "caller is not bound to a client")
		return tenant.Scope{}, false
	}
	return scope, true
}

func toResponse(p service.Player) playerResponse {
	return playerResponse{
		ID:        p.ID,
		ClientID:  p.TenantID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: p.BirthDate,
		Position:  p.Position,
		PhotoURL:  p.PhotoURL,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	p := classifyError(err)

	logger := platformlogging.FromContext(r.Context(), h.logger)
	fields := []zap.Field{zap.String("operation", string(op)), zap.Int("status", p.Status), zap.Error(err)}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("players operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("player not found", fields...)
	default:
		logger.Warn("players request rejected", fields...)
	}

	problem.Write(w, p)
}

func classifyError(err error) problem.Details {
	var (
		validationErr     *service.ValidationError
		userValidationErr *users.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		return problem.New(http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields)
	case errors.As(err, &userValidationErr):
		return problem.New(http.StatusBadRequest, "Validation failed", "player account is invalid", problem.TypeValidation, userValidationErr.Fields)
	case errors.Is(err, users.ErrConflict):
		return problem.New(http.StatusConflict, "Conflict", "username already taken", problem.TypeConflict, nil)
	case errors.Is(err, service.ErrNotFound):
		return problem.New(http.StatusNotFound, "Resource not found", "player not found", problem.TypeNotFound, nil)
	case errors.Is(err, docstore.ErrUnavailable):
		return problem.New(http.StatusServiceUnavailable, "Service unavailable", "player records are temporarily unavailable", problem.TypeUnavailable, nil)
	default:
		return problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil)
	}
}

package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/users/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

type operation string

const (
	createOperation operation = "usersCreate"
	listOperation   operation = "usersList"
	getOperation    operation = "usersGet"
	updateOperation operation = "usersUpdate"
	deleteOperation operation = "usersDelete"
)

// Handler exposes user administration.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the admin user endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{userId}", h.Get)
	r.Patch("/{userId}", h.Update)
	r.Delete("/{userId}", h.Delete)
}

// UserResponse is the public representation of a user. Passwords never leave the service.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ClientID  string    `json:"clientId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	ClientID string  `json:"clientId,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type updateRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type listResponse struct {
	Items []UserResponse `json:"items"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	query := r.URL.Query()
	if v := strings.TrimSpace(query.Get("clientId")); v != "" {
		opts.TenantID = &v
	}
	if v := strings.TrimSpace(query.Get("role")); v != "" {
		opts.Role = &v
	}
	if v := strings.TrimSpace(query.Get("status")); v != "" {
		opts.Status = &v
	}

	users, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err, listOperation)
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, ToResponse(u))
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
		Username: body.Username,
		Password: body.Password,
		Role:     body.Role,
		TenantID: body.ClientID,
		Status:   body.Status,
	})
	if err != nil {
		h.writeError(w, r, err, createOperation)
		return
	}

	w.Header().Set("Location", "/api/v1/admin/users/"+created.ID)
	problem.WriteJSON(w, http.StatusCreated, ToResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err, getOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, ToResponse(user))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "userId"), service.UpdateInput{
		Username: body.Username,
		Password: body.Password,
		Status:   body.Status,
	})
	if err != nil {
		h.writeError(w, r, err, updateOperation)
		return
	}
	problem.WriteJSON(w, http.StatusOK, ToResponse(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "userId")); err != nil {
		h.writeError(w, r, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToResponse maps a domain user to its public shape.
func ToResponse(u service.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		ClientID:  u.TenantID,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op operation) {
	p := ClassifyError(err)

	logger := platformlogging.FromContext(r.Context(), h.logger)
	fields := []zap.Field{zap.String("operation", string(op)), zap.Int("status", p.Status), zap.Error(err)}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("users operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("users resource not found", fields...)
	default:
		logger.Warn("users request rejected", fields...)
	}

	problem.Write(w, p)
}

// ClassifyError maps users service errors to problem details.
func ClassifyError(err error) problem.Details {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return problem.New(http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problem.TypeValidation, validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		return problem.New(http.StatusNotFound, "Resource not found", "user not found", problem.TypeNotFound, nil)
	case errors.Is(err, service.ErrConflict):
		return problem.New(http.StatusConflict, "Conflict", "username already taken", problem.TypeConflict, nil)
	case errors.Is(err, docstore.ErrUnavailable):
		return problem.New(http.StatusServiceUnavailable, "Service unavailable", "identity store is temporarily unavailable", problem.TypeUnavailable, nil)
	default:
		return problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/auth/be/service"
	themes "github.com/zenGate-Global/clubportal/domains/themes/be/service"
	usershandler "github.com/zenGate-Global/clubportal/domains/users/be/handler"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/session"
)

// Gate is the slice of the authentication gate the handler drives.
type Gate interface {
	Authenticate(ctx context.Context, profile, username, password string) (service.Result, error)
	Logout(ctx context.Context, profile string) error
	Current(ctx context.Context, profile string) (session.View, error)
	Theme(ctx context.Context, profile string) json.RawMessage
}

// Subscriber streams session views of one profile.
type Subscriber interface {
	Subscribe(ctx context.Context, profile string) (*session.Subscription, error)
}

// Handler serves login, logout and the session surfaces.
type Handler struct {
	gate      Gate
	sync      Subscriber
	logger    *zap.Logger
	keepAlive time.Duration
}

func New(gate Gate, sync Subscriber, logger *zap.Logger) *Handler {
	if gate == nil {
		panic("authentication gate is required")
	}
	if sync == nil {
		panic("session synchronizer is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{gate: gate, sync: sync, logger: logger, keepAlive: 20 * time.Second}
}

// AuthRoutes mounts /auth.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

// SessionRoutes mounts the one-shot reads of /session.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Get("/", h.Session)
	r.Get("/theme", h.Theme)
}

// StreamRoutes mounts /session/events. The stream is long-lived, so keep it away from request timeouts.
func (h *Handler) StreamRoutes(r chi.Router) {
	r.Get("/events", h.Events)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      usershandler.UserResponse `json:"user"`
	Route     string                    `json:"route"`
	Theme     themes.Snapshot           `json:"theme"`
	Token     string                    `json:"token"`
	ExpiresAt time.Time                 `json:"expiresAt"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	profile, ok := session.ProfileFromContext(r.Context())
	if !ok {
		problem.BadRequest(w, "session profile is missing")
		return
	}

	var body loginRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		problem.BadRequest(w, err.Error())
		return
	}

	res, err := h.gate.Authenticate(r.Context(), profile, body.Username, body.Password)
	if err != nil {
		h.writeError(w, r, err, "login")
		return
	}
	if !res.OK() {
		problem.Unauthorized(w, service.PublicFailureMessage)
		return
	}

	problem.WriteJSON(w, http.StatusOK, loginResponse{
		User:      usershandler.ToResponse(*res.User),
		Route:     res.Route,
		Theme:     res.Theme,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	profile, ok := session.ProfileFromContext(r.Context())
	if !ok {
		problem.BadRequest(w, "session profile is missing")
		return
	}
	if err := h.gate.Logout(r.Context(), profile); err != nil {
		h.writeError(w, r, err, "logout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	view, ok := h.currentView(w, r)
	if !ok {
		return
	}
	problem.WriteJSON(w, http.StatusOK, view)
}

// Theme never fails on store errors; the session falls back to the default theme.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	profile, ok := session.ProfileFromContext(r.Context())
	if !ok {
		problem.BadRequest(w, "session profile is missing")
		return
	}
	problem.WriteJSON(w, http.StatusOK, h.gate.Theme(r.Context(), profile))
}

// Events streams the profile's session view as server-sent events. The first event carries the
// current view; later events are sent only when the view changes.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	profile, ok := session.ProfileFromContext(r.Context())
	if !ok {
		problem.BadRequest(w, "session profile is missing")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		problem.Write(w, problem.New(http.StatusInternalServerError, "Internal server error", "streaming unsupported", problem.TypeInternal, nil))
		return
	}

	sub, err := h.sync.Subscribe(r.Context(), profile)
	if err != nil {
		h.writeError(w, r, err, "sessionEvents")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := platformlogging.FromContext(r.Context(), h.logger).With(zap.String("profile", profile))
	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case view, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(view)
			if err != nil {
				logger.Error("encode session view", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) currentView(w http.ResponseWriter, r *http.Request) (session.View, bool) {
	profile, ok := session.ProfileFromContext(r.Context())
	if !ok {
		problem.BadRequest(w, "session profile is missing")
		return session.View{}, false
	}
	view, err := h.gate.Current(r.Context(), profile)
	if err != nil {
		h.writeError(w, r, err, "sessionRead")
		return session.View{}, false
	}
	return view, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	p := problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil)
	if errors.Is(err, docstore.ErrUnavailable) {
		p = problem.New(http.StatusServiceUnavailable, "Service unavailable", "identity store is temporarily unavailable", problem.TypeUnavailable, nil)
	}

	logger := platformlogging.FromContext(r.Context(), h.logger)
	fields := []zap.Field{zap.String("operation", op), zap.Int("status", p.Status), zap.Error(err)}
	if p.Status >= http.StatusInternalServerError && p.Status != http.StatusServiceUnavailable {
		logger.Error("auth operation failed", fields...)
	} else {
		logger.Warn("auth dependency unavailable", fields...)
	}
	problem.Write(w, p)
}

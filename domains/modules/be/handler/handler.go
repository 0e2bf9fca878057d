package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/domains/modules/be/service"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

// EmptyMenuMessage is shown when a tenant has no visible modules.
const EmptyMenuMessage = "no modules available"

type Handler struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Handler {
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{logger: logger}
}

// RegistryRoutes mounts the module catalog.
func (h *Handler) RegistryRoutes(r chi.Router) {
	r.Get("/", h.Registry)
}

type moduleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Route       string `json:"route"`
}

type registryResponse struct {
	Items          []moduleResponse `json:"items"`
	DefaultEnabled []string         `json:"defaultEnabled"`
}

type menuResponse struct {
	Modules   []moduleResponse `json:"modules"`
	Empty     bool             `json:"empty"`
	Defaulted bool             `json:"defaulted"`
	Message   string           `json:"message,omitempty"`
}

func (h *Handler) Registry(w http.ResponseWriter, _ *http.Request) {
	problem.WriteJSON(w, http.StatusOK, registryResponse{
		Items:          toResponses(service.Registry()),
		DefaultEnabled: service.DefaultEnabledIDs(),
	})
}

// Menu serves the visible modules of the caller's tenant.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok {
		problem.Forbidden(w, "tenant scope is required")
		return
	}

	menu := service.VisibleModules(scope.EnabledModuleIDs)
	if unknown := service.UnknownIDs(scope.EnabledModuleIDs); len(unknown) > 0 {
		platformlogging.FromContext(r.Context(), h.logger).Debug("tenant references unknown modules",
			zap.String("tenant_id", scope.TenantID), zap.Strings("module_ids", unknown))
	}

	resp := menuResponse{Modules: toResponses(menu.Modules), Empty: menu.Empty, Defaulted: menu.Defaulted}
	if menu.Empty {
		resp.Message = EmptyMenuMessage
	}
	problem.WriteJSON(w, http.StatusOK, resp)
}

func toResponses(mods []service.Module) []moduleResponse {
	out := make([]moduleResponse, 0, len(mods))
	for _, m := range mods {
		out = append(out, moduleResponse{ID: m.ID, Name: m.Name, Description: m.Description, Icon: m.Icon, Route: m.Route})
	}
	return out
}

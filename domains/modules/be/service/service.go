package service

// Module is a static capability descriptor. It is never persisted.
type Module struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Route       string
}

// Registry ids.
const (
	Players      = "players"
	Calendar     = "calendar"
	Evaluations  = "evaluations"
	PlayerIntake = "player_intake"
	ExternalLoad = "external_load"
	InternalLoad = "internal_load"
	Training     = "training"
	Matches      = "matches"
)

// registry order is menu order.
var registry = []Module{
	{ID: Players, Name: "Player Management", Description: "Manage the squad's players", Icon: "👤", Route: "/staff/players"},
	{ID: Calendar, Name: "Calendar", Description: "Weekly activity planning", Icon: "📅", Route: "/staff/calendar"},
	{ID: Evaluations, Name: "Evaluations", Description: "Performance evaluations and tests", Icon: "🧪", Route: "/staff/evaluations"},
	{ID: PlayerIntake, Name: "Player Intake", Description: "Access to player-facing forms", Icon: "🧍", Route: "/players"},
	{ID: ExternalLoad, Name: "External Load", Description: "External training load monitoring", Icon: "📊", Route: "/staff/external-load"},
	{ID: InternalLoad, Name: "Internal Load", Description: "Wellness and RPE analysis", Icon: "💬", Route: "/staff/internal-load"},
	{ID: Training, Name: "Training Management", Description: "Training planning and management", Icon: "🏋️", Route: "/staff/training"},
	{ID: Matches, Name: "Match Management", Description: "Match organization and follow-up", Icon: "🏟️", Route: "/staff/matches"},
}

var defaultEnabled = []string{Players, Calendar, PlayerIntake, InternalLoad}

// Registry returns a copy of the ordered module table.
func Registry() []Module {
	out := make([]Module, len(registry))
	copy(out, registry)
	return out
}

// DefaultEnabledIDs returns the module set applied when a tenant does not specify one.
func DefaultEnabledIDs() []string {
	out := make([]string, len(defaultEnabled))
	copy(out, defaultEnabled)
	return out
}

// ByID looks a module up in the registry.
func ByID(id string) (Module, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// Menu is the visible module list for one tenant.
type Menu struct {
	Modules []Module
	// Empty is true when nothing is visible; callers render an explicit "no modules available" state.
	Empty bool
	// Defaulted is true when the tenant had no enabled-module list and the default set was applied.
	Defaulted bool
}

// VisibleModules filters the registry by a tenant's enabled ids, preserving registry order.
// A nil slice means "never configured" and selects the default set; a non-nil empty slice means
// "intentionally nothing enabled". Unknown ids are ignored.
func VisibleModules(enabledIDs []string) Menu {
	menu := Menu{}
	if enabledIDs == nil {
		enabledIDs = defaultEnabled
		menu.Defaulted = true
	}

	enabled := make(map[string]struct{}, len(enabledIDs))
	for _, id := range enabledIDs {
		enabled[id] = struct{}{}
	}

	menu.Modules = make([]Module, 0, len(enabled))
	for _, m := range registry {
		if _, ok := enabled[m.ID]; ok {
			menu.Modules = append(menu.Modules, m)
		}
	}
	menu.Empty = len(menu.Modules) == 0
	return menu
}

// UnknownIDs reports ids that are not in the registry. Tenants may store them; they are ignored at resolution.
func UnknownIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := ByID(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

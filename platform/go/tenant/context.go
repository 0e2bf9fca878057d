package tenant

import (
	"context"
	"errors"
)

// Status values shared by tenants and users.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ErrNotFound is returned by resolvers when the tenant does not exist.
var ErrNotFound = errors.New("tenant not found")

// Scope is the caller's tenant as seen by tenant-scoped handlers.
type Scope struct {
	TenantID    string
	Name        string
	DisplayName string
	ThemeRef    string
	LogoURL     string
	Status      string
	// EnabledModuleIDs keeps the nil/empty distinction of the stored tenant.
	EnabledModuleIDs []string
}

// Active reports whether the tenant may be used.
func (s Scope) Active() bool {
	return s.Status == StatusActive
}

type ctxKey string

const scopeKey ctxKey = "CLUBPORTAL_TENANT_SCOPE"

func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}

package auth

import (
	"context"
	"net/http"
	"slices"

	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

type ctxKey string

const ctxUserCredentials ctxKey = "CLUBPORTAL_USER_CREDENTIALS"

// Roles carried in session tokens.
const (
	RoleAdmin       = "admin"
	RoleTenantStaff = "tenant_staff"
	RolePlayer      = "player"
)

// UserCredentials is the authenticated caller as described by a verified session token.
type UserCredentials struct {
	ID       string
	Username string
	Role     string
	TenantID *string
}

// IsAdmin reports whether the caller is a platform administrator.
func (c *UserCredentials) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

func WithUser(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	u, ok := ctx.Value(ctxUserCredentials).(*UserCredentials)
	return u, ok && u != nil
}

// VerifyFunc validates a bearer token and returns the caller it describes.
type VerifyFunc func(ctx context.Context, token string) (*UserCredentials, error)

// JWT verifies bearer tokens and stores the caller on the request context.
// Requests without a token pass through untouched; Require decides whether that is acceptable.
func JWT(verify VerifyFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if !found || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				problem.Unauthorized(w, "invalid or expired session token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), creds)))
		})
	}
}

// RequireRole rejects callers that are anonymous (401) or hold none of roles (403).
// With no roles any authenticated caller is accepted.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				problem.Unauthorized(w, "authentication required")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, creds.Role) {
				problem.Forbidden(w, "role not allowed for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

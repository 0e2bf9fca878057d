package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

// Resolver loads the tenant a caller belongs to. Implemented by the tenants service.
type Resolver interface {
	ResolveScope(ctx context.Context, tenantID string) (tenant.Scope, error)
}

// Config controls middleware behavior.
type Config struct {
	// CacheTTL enables a small in-memory cache; zero disables it. Expired entries still answer
	// while the tenant store is unreachable.
	CacheTTL time.Duration
}

// Scoper attaches the caller's tenant to the request and rejects callers whose tenant
// is missing or no longer active, so a deactivation takes effect for existing sessions.
type Scoper struct {
	resolver Resolver
	cache    *scopeCache
}

func New(resolver Resolver, cfg Config) *Scoper {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	s := &Scoper{resolver: resolver}
	if cfg.CacheTTL > 0 {
		s.cache = newScopeCache(cfg.CacheTTL)
	}
	return s
}

// Invalidate drops a cached tenant after it was updated or deleted.
func (s *Scoper) Invalidate(tenantID string) {
	s.cache.delete(tenantID)
}

// Handler requires a tenant-bound caller. Admins have no tenant and are rejected here;
// admin routes are mounted outside this middleware.
func (s *Scoper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, ok := platformauth.UserFromContext(r.Context())
		if !ok {
			problem.Unauthorized(w, "authentication required")
			return
		}
		if creds.TenantID == nil || *creds.TenantID == "" {
			problem.Forbidden(w, "caller is not bound to a club")
			return
		}

		scope, fresh, cached := s.cache.get(*creds.TenantID)
		if !fresh {
			resolved, err := s.resolver.ResolveScope(r.Context(), *creds.TenantID)
			logger := platformlogging.FromContext(r.Context(), nil)
			switch {
			case err == nil:
				scope = resolved
				s.cache.put(scope)
			case errors.Is(err, tenant.ErrNotFound):
				s.cache.delete(*creds.TenantID)
				logger.Info("tenant of caller no longer exists", zap.String("client_id", *creds.TenantID))
				problem.Unauthorized(w, "club not found")
				return
			case cached:
				logger.Warn("resolve tenant scope failed, using last known scope", zap.String("client_id", *creds.TenantID), zap.Error(err))
			default:
				logger.Error("resolve tenant scope", zap.String("client_id", *creds.TenantID), zap.Error(err))
				problem.Write(w, problem.New(http.StatusServiceUnavailable, "Service unavailable", "club lookup failed", problem.TypeUnavailable, nil))
				return
			}
		}

		if !scope.Active() {
			problem.Forbidden(w, "club is inactive")
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), scope)))
	})
}

type scopeCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]cacheItem
}

type cacheItem struct {
	scope     tenant.Scope
	expiresAt time.Time
}

func newScopeCache(ttl time.Duration) *scopeCache {
	return &scopeCache{ttl: ttl, now: time.Now, items: make(map[string]cacheItem)}
}

// get returns the cached scope and whether it is still fresh. Expired entries are kept as the
// fallback for lookups that fail.
func (c *scopeCache) get(id string) (scope tenant.Scope, fresh, ok bool) {
	if c == nil {
		return tenant.Scope{}, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return tenant.Scope{}, false, false
	}
	return item.scope, !c.now().After(item.expiresAt), true
}

func (c *scopeCache) put(scope tenant.Scope) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[scope.TenantID] = cacheItem{scope: scope, expiresAt: c.now().Add(c.ttl)}
}

func (c *scopeCache) delete(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

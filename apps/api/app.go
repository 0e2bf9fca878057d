package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/contracts"
	authhandler "github.com/zenGate-Global/clubportal/domains/auth/be/handler"
	authservice "github.com/zenGate-Global/clubportal/domains/auth/be/service"
	moduleshandler "github.com/zenGate-Global/clubportal/domains/modules/be/handler"
	playershandler "github.com/zenGate-Global/clubportal/domains/players/be/handler"
	playersrepo "github.com/zenGate-Global/clubportal/domains/players/be/repo"
	playersservice "github.com/zenGate-Global/clubportal/domains/players/be/service"
	tenantshandler "github.com/zenGate-Global/clubportal/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/clubportal/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	themeshandler "github.com/zenGate-Global/clubportal/domains/themes/be/handler"
	themesrepo "github.com/zenGate-Global/clubportal/domains/themes/be/repo"
	themesservice "github.com/zenGate-Global/clubportal/domains/themes/be/service"
	usershandler "github.com/zenGate-Global/clubportal/domains/users/be/handler"
	usersrepo "github.com/zenGate-Global/clubportal/domains/users/be/repo"
	usersservice "github.com/zenGate-Global/clubportal/domains/users/be/service"
	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/gcp"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/clubportal/platform/go/middleware"
	"github.com/zenGate-Global/clubportal/platform/go/persistence"
	"github.com/zenGate-Global/clubportal/platform/go/session"
	tenantmiddleware "github.com/zenGate-Global/clubportal/platform/go/tenant/middleware"
)

// app holds the wired services and handlers of the API server.
type app struct {
	cfg    config
	logger *zap.Logger

	spec    *openapi3.T
	metrics *metrics.Metrics
	tokens  *platformauth.TokenIssuer
	limiter *platformmiddleware.IPRateLimiter
	scoper  *tenantmiddleware.Scoper
	ready   func(ctx context.Context) error

	streams     context.Context
	stopStreams context.CancelFunc

	auth    *authhandler.Handler
	modules *moduleshandler.Handler
	tenants *tenantshandler.Handler
	users   *usershandler.Handler
	themes  *themeshandler.Handler
	players *playershandler.Handler
}

// newApp opens the stores and wires every domain. The returned close func releases the stores.
func newApp(ctx context.Context, cfg config, logger *zap.Logger) (*app, func(), error) {
	spec, err := contracts.Load()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := persistence.OpenDocumentStore(ctx, persistence.StoreConfig{
		Backend:     cfg.DocStore,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseConns,
		Firebase:    gcp.FirebaseConfig{CredentialsFile: cfg.FirebaseConfig, ProjectID: cfg.GCloudProject},
	})
	if err != nil {
		return nil, nil, err
	}

	sessionStore, ready, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	closeAll := func() {
		closeSessions()
		closeStore()
	}

	a, err := wire(ctx, cfg, logger, spec, store, sessionStore)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	a.ready = ready
	go a.limiter.Run(a.streams)

	return a, func() {
		a.stopStreams()
		closeAll()
	}, nil
}

// wire builds the domains on top of already opened stores.
func wire(ctx context.Context, cfg config, logger *zap.Logger, spec *openapi3.T, store docstore.Store, sessionStore session.Store) (*app, error) {
	m := metrics.New()

	hasher, err := usersservice.NewPasswordHasher(cfg.PasswordMode)
	if err != nil {
		return nil, err
	}
	userService := usersservice.New(usersrepo.New(store), hasher, logger)
	if err := bootstrapAdmin(ctx, cfg, userService, logger); err != nil {
		return nil, err
	}

	playerService := playersservice.New(playersrepo.New(store), userService, logger)

	themeRepo := themesrepo.New(store)
	catalog := themesservice.NewCatalog(themeRepo, logger)
	resolver := themesservice.NewResolver(themeRepo, logger)

	var scoper *tenantmiddleware.Scoper
	tenantService := tenantsservice.New(
		tenantsrepo.New(store),
		userService,
		playerService.Directory(),
		logger,
		tenantsservice.Config{Retry: tenantsservice.RetryPolicy{
			MaxAttempts:    cfg.CascadeMaxAttempts,
			InitialBackoff: cfg.CascadeBackoff,
			MaxBackoff:     cfg.CascadeMaxBackoff,
		}},
		tenantsservice.WithMetrics(m),
		tenantsservice.WithChangeHook(func(id string) { scoper.Invalidate(id) }),
	)
	scoper = tenantmiddleware.New(tenantService, tenantmiddleware.Config{CacheTTL: cfg.TenantCacheTTL})

	tokens, err := platformauth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	defaultTheme, err := json.Marshal(resolver.Default())
	if err != nil {
		return nil, fmt.Errorf("encode default theme: %w", err)
	}
	sessions := session.NewManager(sessionStore, defaultTheme, session.WithThemeKeys(resolver), session.WithLogger(logger))
	synchronizer, err := session.NewSynchronizer(sessions, cfg.SyncPollInterval, logger, m)
	if err != nil {
		return nil, err
	}

	gate := authservice.NewGate(userService, tenantService, resolver, sessions, tokens, m, logger)

	streams, stopStreams := context.WithCancel(context.Background())
	return &app{
		cfg:         cfg,
		logger:      logger,
		spec:        spec,
		metrics:     m,
		tokens:      tokens,
		limiter:     platformmiddleware.NewIPRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
		scoper:      scoper,
		ready:       func(context.Context) error { return nil },
		streams:     streams,
		stopStreams: stopStreams,
		auth:        authhandler.New(gate, synchronizer, logger),
		modules:     moduleshandler.New(logger),
		tenants:     tenantshandler.New(tenantService, logger),
		users:       usershandler.New(userService, logger),
		themes:      themeshandler.New(catalog, logger),
		players:     playershandler.New(playerService, logger),
	}, nil
}

// router mounts every route. Only /api/v1 is validated against the contract.
func (a *app) router() http.Handler {
	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		platformlogging.RequestLogger(a.logger),
		chimw.Recoverer,
		a.metrics.Instrument,
		platformmiddleware.CORS(a.cfg.CORSOrigins),
	)

	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.ready(r.Context()); err != nil {
			platformlogging.FromContext(r.Context(), a.logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	root.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	registerDocsRoutes(root, a.spec, a.logger)

	api := chi.NewRouter()
	api.Use(
		platformauth.JWT(a.tokens.Verifier()),
		platformmiddleware.RequestTrace,
		session.ProfileMiddleware(a.cfg.SecureCookies),
		platformmiddleware.OpenAPIValidator(a.spec),
	)

	api.Route("/session", func(r chi.Router) {
		// The event stream outlives REQUEST_TIMEOUT and ends on shutdown instead.
		r.With(a.untilShutdown).Group(a.auth.StreamRoutes)
		r.With(chimw.Timeout(a.cfg.RequestTimeout)).Group(a.auth.SessionRoutes)
	})

	api.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(a.cfg.RequestTimeout))

		r.Route("/auth", func(r chi.Router) {
			r.Use(a.limiter.Middleware)
			a.auth.AuthRoutes(r)
		})

		r.With(platformauth.RequireRole()).Route("/modules", a.modules.RegistryRoutes)
		r.With(
			platformauth.RequireRole(platformauth.RoleTenantStaff, platformauth.RolePlayer),
			a.scoper.Handler,
		).Get("/me/modules", a.modules.Menu)

		r.Route("/admin", func(r chi.Router) {
			r.Use(platformauth.RequireRole(platformauth.RoleAdmin))
			r.Route("/tenants", a.tenants.Routes)
			r.Route("/users", a.users.Routes)
		})
		r.With(platformauth.RequireRole(platformauth.RoleAdmin)).Route("/themes", a.themes.Routes)
		r.With(platformauth.RequireRole(platformauth.RoleTenantStaff), a.scoper.Handler).Route("/players", a.players.Routes)
	})

	root.Mount("/api/v1", api)
	return root
}

// untilShutdown ends long-lived requests when the server starts shutting down.
func (a *app) untilShutdown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		stop := context.AfterFunc(a.streams, cancel)
		defer stop()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func openSessionStore(ctx context.Context, cfg config) (session.Store, func(context.Context) error, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case "", "memory":
		return session.NewMemoryStore(), func(context.Context) error { return nil }, func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := session.NewRedisStore(client, session.RedisOptions{TTL: cfg.SessionTTL})
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, store.Ping, func() { _ = client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown session store %q (use memory or redis)", cfg.SessionStore)
	}
}

// bootstrapAdmin seeds the administrator account when credentials are configured. Existing
// accounts are left untouched.
func bootstrapAdmin(ctx context.Context, cfg config, users usersservice.Service, logger *zap.Logger) error {
	username := strings.TrimSpace(cfg.BootstrapAdminUsername)
	if username == "" {
		return nil
	}
	if cfg.BootstrapAdminPassword == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required with BOOTSTRAP_ADMIN_USERNAME")
	}
	u, created, err := users.EnsureAdmin(ctx, username, cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("admin account ready", zap.String("user_id", u.ID), zap.Bool("created", created))
	return nil
}

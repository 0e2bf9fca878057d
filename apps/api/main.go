package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"false"`

	DocStore       string `env:"DOC_STORE" envDefault:"memory"` // memory | firestore | postgres
	DatabaseURL    string `env:"DATABASE_URL"`                  // required when DOC_STORE=postgres
	DatabaseConns  int32  `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	FirebaseConfig string `env:"FIREBASE_CONFIG"`               // service account file, firestore only
	GCloudProject  string `env:"GCLOUD_PROJECT"`

	SessionStore     string        `env:"SESSION_STORE" envDefault:"memory"` // memory | redis
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"0s"`
	SyncPollInterval time.Duration `env:"SYNC_POLL_INTERVAL" envDefault:"750ms"`

	JWTSecret    string        `env:"JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	PasswordMode string        `env:"PASSWORD_MODE" envDefault:"plaintext"` // plaintext | bcrypt

	CascadeMaxAttempts int           `env:"CASCADE_MAX_ATTEMPTS" envDefault:"3"`
	CascadeBackoff     time.Duration `env:"CASCADE_BACKOFF" envDefault:"100ms"`
	CascadeMaxBackoff  time.Duration `env:"CASCADE_MAX_BACKOFF" envDefault:"2s"`

	LoginRatePerSecond float64       `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	LoginBurst         int           `env:"LOGIN_BURST" envDefault:"5"`
	TenantCacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`

	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "clubportal-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, closeApp, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init api", zap.Error(err))
	}
	defer closeApp()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// No WriteTimeout: /api/v1/session/events streams for as long as the client listens.
	}
	server.RegisterOnShutdown(a.stopStreams)

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("doc_store", cfg.DocStore), zap.String("session_store", cfg.SessionStore))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// Package backend opens the stores and services the admin commands operate on.
package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	playersrepo "github.com/zenGate-Global/clubportal/domains/players/be/repo"
	playersservice "github.com/zenGate-Global/clubportal/domains/players/be/service"
	tenantsrepo "github.com/zenGate-Global/clubportal/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	usersrepo "github.com/zenGate-Global/clubportal/domains/users/be/repo"
	usersservice "github.com/zenGate-Global/clubportal/domains/users/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/gcp"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/persistence"
)

// Flags are the connection settings shared by every command. Environment variables provide
// the defaults, so the CLI reads the same configuration as the API server.
type Flags struct {
	DocStore           string `env:"DOC_STORE" envDefault:"memory"`
	DatabaseURL        string `env:"DATABASE_URL"`
	FirebaseConfig     string `env:"FIREBASE_CONFIG"`
	GCloudProject      string `env:"GCLOUD_PROJECT"`
	PasswordMode       string `env:"PASSWORD_MODE" envDefault:"plaintext"`
	CascadeMaxAttempts int    `env:"CASCADE_MAX_ATTEMPTS" envDefault:"3"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Bind loads environment defaults into f and registers the persistent flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) error {
	if err := env.Parse(f); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.DocStore, "doc-store", f.DocStore, "document store: memory, firestore or postgres")
	pf.StringVar(&f.DatabaseURL, "database-url", f.DatabaseURL, "PostgreSQL connection string (postgres store)")
	pf.StringVar(&f.FirebaseConfig, "firebase-config", f.FirebaseConfig, "service account JSON file (firestore store)")
	pf.StringVar(&f.GCloudProject, "gcloud-project", f.GCloudProject, "Google Cloud project id (firestore store)")
	pf.StringVar(&f.PasswordMode, "password-mode", f.PasswordMode, "password storage: plaintext or bcrypt")
	pf.IntVar(&f.CascadeMaxAttempts, "cascade-max-attempts", f.CascadeMaxAttempts, "attempts per record during tenant cascades")
	pf.StringVar(&f.LogLevel, "log-level", f.LogLevel, "log level")
	return nil
}

// Opener yields a ready Backend; commands receive one so tests can substitute an in-memory store.
type Opener func(ctx context.Context) (*Backend, error)

// Open connects to the configured document store.
func (f *Flags) Open(ctx context.Context) (*Backend, error) {
	logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "clubportal-cli", Level: f.LogLevel, Output: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, closeStore, err := persistence.OpenDocumentStore(ctx, persistence.StoreConfig{
		Backend:     f.DocStore,
		DatabaseURL: f.DatabaseURL,
		Firebase:    gcp.FirebaseConfig{CredentialsFile: f.FirebaseConfig, ProjectID: f.GCloudProject},
	})
	if err != nil {
		return nil, err
	}
	if f.DocStore == "" || f.DocStore == persistence.BackendMemory {
		logger.Warn("using the in-memory document store; changes are discarded on exit")
	}

	b, err := New(store, *f, logger)
	if err != nil {
		closeStore()
		return nil, err
	}
	b.closers = append(b.closers, closeStore)
	return b, nil
}

// Backend is the set of services the CLI drives.
type Backend struct {
	Logger  *zap.Logger
	Users   usersservice.Service
	Tenants *tenantsservice.Service

	closers []func()
}

// New wires the services on store.
func New(store docstore.Store, f Flags, logger *zap.Logger) (*Backend, error) {
	hasher, err := usersservice.NewPasswordHasher(f.PasswordMode)
	if err != nil {
		return nil, err
	}
	users := usersservice.New(usersrepo.New(store), hasher, logger)
	players := playersservice.New(playersrepo.New(store), users, logger)

	retry := tenantsservice.DefaultRetryPolicy()
	if f.CascadeMaxAttempts > 0 {
		retry.MaxAttempts = f.CascadeMaxAttempts
	}
	tenants := tenantsservice.New(tenantsrepo.New(store), users, players.Directory(), logger, tenantsservice.Config{Retry: retry})

	return &Backend{Logger: logger, Users: users, Tenants: tenants}, nil
}

// Close releases the store connections and flushes the logger.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	_ = b.Logger.Sync()
}

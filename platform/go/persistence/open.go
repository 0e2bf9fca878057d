package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/gcp"
)

// Document store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	MaxConns    int32
	Firebase    gcp.FirebaseConfig
}

// OpenDocumentStore builds the configured backend. The returned close func releases its clients
// and is never nil.
func OpenDocumentStore(ctx context.Context, cfg StoreConfig) (docstore.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return docstore.NewMemoryStore(), func() {}, nil
	case BackendFirestore:
		client, err := gcp.InitFirestore(ctx, cfg.Firebase)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewFirestoreStore(client), func() { _ = client.Close() }, nil
	case BackendPostgres:
		pool, err := NewPool(ctx, PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres pool: %w", err)
		}
		store, err := NewDocumentStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init document store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown document store %q (use memory, firestore or postgres)", cfg.Backend)
	}
}

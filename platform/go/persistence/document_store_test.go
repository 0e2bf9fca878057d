package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

type playerDoc struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	ClientID  string   `json:"clientId"`
	Tags      []string `json:"tags,omitempty"`
}

func TestDocumentStoreRoundTripWithPostgres(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping document store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clubportal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{URL: connString})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := NewDocumentStore(ctx, pool)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	// Running the DDL twice must be harmless.
	require.NoError(t, store.EnsureSchema(ctx))

	require.NoError(t, store.Set(ctx, docstore.CollectionPlayers, "p1", playerDoc{FirstName: "Ana", LastName: "Silva", ClientID: "c1"}))
	require.NoError(t, store.Set(ctx, docstore.CollectionPlayers, "p2", playerDoc{FirstName: "Bruno", LastName: "Costa", ClientID: "c2"}))
	require.NoError(t, store.Set(ctx, docstore.CollectionPlayers, "p3", playerDoc{FirstName: "Carla", LastName: "Diaz", ClientID: "c1", Tags: []string{"gk"}}))

	snap, err := store.Get(ctx, docstore.CollectionPlayers, "p1")
	require.NoError(t, err)
	var got playerDoc
	require.NoError(t, snap.DataTo(&got))
	require.Equal(t, "Silva", got.LastName)

	byClient, err := store.Find(ctx, docstore.CollectionPlayers, docstore.Where("clientId", "c1"))
	require.NoError(t, err)
	require.Len(t, byClient, 2)
	require.Equal(t, "p1", byClient[0].ID())
	require.Equal(t, "p3", byClient[1].ID())

	require.NoError(t, store.Update(ctx, docstore.CollectionPlayers, "p1", map[string]any{"lastName": "Souza"}))
	snap, err = store.Get(ctx, docstore.CollectionPlayers, "p1")
	require.NoError(t, err)
	require.NoError(t, snap.DataTo(&got))
	require.Equal(t, "Souza", got.LastName)
	require.Equal(t, "c1", got.ClientID)

	err = store.Update(ctx, docstore.CollectionPlayers, "missing", map[string]any{"lastName": "x"})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, docstore.CollectionPlayers, "p1"))
	require.NoError(t, store.Delete(ctx, docstore.CollectionPlayers, "p1"))
	_, err = store.Get(ctx, docstore.CollectionPlayers, "p1")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestNewPoolRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewPool(context.Background(), PoolConfig{URL: "  "})
	require.Error(t, err)
}

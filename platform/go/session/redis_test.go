package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, RedisOptions{TTL: ttl})
}

func TestRedisStoreGetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, store := newRedisStore(t, time.Hour)

	_, err := store.Get(ctx, "profile-a", KeyUserRole)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "profile-a", KeyUserRole, []byte("admin")))
	got, err := store.Get(ctx, "profile-a", KeyUserRole)
	require.NoError(t, err)
	require.Equal(t, "admin", string(got))
	require.Equal(t, time.Hour, mr.TTL("clubportal:session:profile-a"))

	require.NoError(t, store.Delete(ctx, "profile-a", KeyUserRole, KeyUserID))
	_, err = store.Get(ctx, "profile-a", KeyUserRole)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Ping(ctx))
}

func TestRedisStoreSignalsSubscribers(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, store := newRedisStore(t, 0)

	changes, err := store.Subscribe(ctx, "profile-a")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "profile-a", KeyClubTheme, []byte(`{}`)))

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change signal")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSynchronizerAcrossReplicasWithRedis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	newManager := func() *Manager {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewManager(NewRedisStore(client, RedisOptions{}), defaultTheme)
	}

	replicaA := newManager()
	replicaB := newManager()

	s, err := NewSynchronizer(replicaA, 5*time.Second, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	sub, err := s.Subscribe(ctx, "profile-a")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	require.NoError(t, replicaB.For("profile-a").SetTheme(ctx, json.RawMessage(`{"key":"penarol"}`)))
	require.JSONEq(t, `{"key":"penarol"}`, string(receive(t, sub).Theme))
}

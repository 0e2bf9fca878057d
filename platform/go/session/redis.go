package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptions configures key naming and expiry.
type RedisOptions struct {
	// Prefix namespaces keys and channels, default "clubportal:session:".
	Prefix string
	// TTL refreshes the profile hash expiry on every write; zero keeps sessions forever.
	TTL time.Duration
}

// RedisStore keeps each profile in one hash and announces writes on a pub/sub channel,
// so every API replica observes changes made through any other.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if client == nil {
		panic("redis client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "clubportal:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *RedisStore) hashKey(profile string) string { return s.prefix + profile }

func (s *RedisStore) channel(profile string) string { return s.prefix + profile + ":changed" }

func (s *RedisStore) Get(ctx context.Context, profile, key string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.hashKey(profile), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session key %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, profile, key string, value []byte) error {
	hash := s.hashKey(profile)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, value)
		if s.ttl > 0 {
			pipe.Expire(ctx, hash, s.ttl)
		}
		pipe.Publish(ctx, s.channel(profile), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session key %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, profile string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.hashKey(profile), keys...)
		pipe.Publish(ctx, s.channel(profile), "deleted")
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, profile string) (<-chan struct{}, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(profile))
	// Wait for the subscription confirmation so no write issued after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to session changes: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Ping checks connectivity for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)

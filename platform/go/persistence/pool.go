package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the pgx pool behind the Postgres document store.
type PoolConfig struct {
	URL      string
	MaxConns int32 // 0 keeps the pgx default
	// StartupWait bounds how long NewPool keeps pinging a database that is still starting.
	StartupWait time.Duration
}

const defaultStartupWait = 15 * time.Second

// NewPool opens the pool and pings until Postgres answers or StartupWait elapses.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("database url is required")
	}

	pc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	wait := cfg.StartupWait
	if wait <= 0 {
		wait = defaultStartupWait
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = wait

	if err := backoff.Retry(func() error { return pool.Ping(ctx) }, backoff.WithContext(policy, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", mapUnavailable(err))
	}
	return pool, nil
}

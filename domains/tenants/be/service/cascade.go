package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// Cascade phases, in execution order for deletes.
const (
	PhaseDeactivateUsers = "deactivate_users"
	PhaseDeletePlayers   = "delete_players"
	PhaseDeleteUsers     = "delete_users"
	PhaseDeleteTenant    = "delete_tenant"
)

// RetryPolicy bounds how hard a single cascade write is retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(def.MaxBackoff, p.InitialBackoff)
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialBackoff
	exp.MaxInterval = p.MaxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// CascadeError reports a cascade that stopped with some writes still failing.
// The items that did succeed are not rolled back.
type CascadeError struct {
	Phase     string
	FailedIDs []string
	Cause     error
}

func (e *CascadeError) Error() string {
	if len(e.FailedIDs) == 0 {
		return fmt.Sprintf("tenant cascade %s failed: %v", e.Phase, e.Cause)
	}
	return fmt.Sprintf("tenant cascade %s failed for %d item(s) [%s]: %v", e.Phase, len(e.FailedIDs), strings.Join(e.FailedIDs, ", "), e.Cause)
}

func (e *CascadeError) Unwrap() error {
	return e.Cause
}

// cascade runs op for every id, retrying each independently. Missing documents count as done.
func (s *Service) cascade(ctx context.Context, phase string, ids []string, op func(context.Context, string) error, logger *zap.Logger) error {
	var (
		failed []string
		errs   []error
	)

	for _, id := range ids {
		attempt := 0
		err := backoff.Retry(func() error {
			attempt++
			err := op(ctx, id)
			switch {
			case err == nil, errors.Is(err, docstore.ErrNotFound), errors.Is(err, ErrNotFound):
				return nil
			case ctx.Err() != nil:
				return backoff.Permanent(err)
			default:
				logger.Warn("cascade write failed", zap.String("phase", phase), zap.String("item_id", id), zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
		}, s.retry.backOff(ctx))
		if err != nil {
			failed = append(failed, id)
			errs = append(errs, err)
		}
	}

	if len(failed) == 0 {
		return nil
	}

	if s.metrics != nil {
		s.metrics.CascadeFailures(phase, len(failed))
	}
	logger.Error("tenant cascade incomplete", zap.String("phase", phase), zap.Strings("failed_ids", failed), zap.Int("total", len(ids)))
	return &CascadeError{Phase: phase, FailedIDs: failed, Cause: errors.Join(errs...)}
}

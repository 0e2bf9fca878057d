package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Polling interval bounds.
const (
	DefaultPollInterval = 750 * time.Millisecond
	MinPollInterval     = 100 * time.Millisecond
	MaxPollInterval     = 10 * time.Second
)

// ChangeObserver is told about every emitted change.
type ChangeObserver interface {
	SessionChange()
}

// Synchronizer keeps UI contexts of one profile converged on the same session view.
// Each subscription re-reads on a fixed interval and whenever the store signals a write,
// and emits only when the view differs from the last one it emitted.
type Synchronizer struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
	observer ChangeObserver
}

// NewSynchronizer validates interval; zero selects DefaultPollInterval.
func NewSynchronizer(manager *Manager, interval time.Duration, logger *zap.Logger, observer ChangeObserver) (*Synchronizer, error) {
	if manager == nil {
		panic("session manager is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval || interval > MaxPollInterval {
		return nil, fmt.Errorf("poll interval %s outside [%s, %s]", interval, MinPollInterval, MaxPollInterval)
	}
	return &Synchronizer{manager: manager, interval: interval, logger: logger, observer: observer}, nil
}

func (s *Synchronizer) Interval() time.Duration { return s.interval }

// Subscription streams views until Close is called or its context ends.
type Subscription struct {
	C      <-chan View
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the subscription and waits for its goroutine to exit.
func (sub *Subscription) Close() {
	sub.cancel()
	<-sub.done
}

// Subscribe emits the current view immediately, then every distinct view observed afterwards.
func (s *Synchronizer) Subscribe(ctx context.Context, profile string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	notify, err := s.manager.Store().Subscribe(ctx, profile)
	if err != nil {
		cancel()
		return nil, err
	}

	sess := s.manager.For(profile)
	initial, err := sess.View(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan View, 1)
	out <- initial
	sub := &Subscription{C: out, cancel: cancel, done: make(chan struct{})}

	go s.run(ctx, sess, initial, notify, out, sub.done)
	return sub, nil
}

func (s *Synchronizer) run(ctx context.Context, sess *Session, last View, notify <-chan struct{}, out chan<- View, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := s.logger.With(zap.String("profile", sess.Profile()))

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notify:
			if !ok {
				// Notifications are gone; polling still converges.
				notify = nil
				continue
			}
		case <-ticker.C:
		}

		current, err := sess.View(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("read session view", zap.Error(err))
			continue
		}
		if current.Equal(last) {
			continue
		}
		last = current

		select {
		case out <- current:
			if s.observer != nil {
				s.observer.SessionChange()
			}
		case <-ctx.Done():
			return
		}
	}
}

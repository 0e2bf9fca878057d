package session

import (
	"context"
	"sync"
)

// MemoryStore keeps session state in process. Suitable for a single API replica and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string]map[string][]byte
	subscribers map[string]map[chan struct{}]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:      make(map[string]map[string][]byte),
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, profile, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[profile][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Set(_ context.Context, profile, key string, value []byte) error {
	s.mu.Lock()
	entries, ok := s.values[profile]
	if !ok {
		entries = make(map[string][]byte)
		s.values[profile] = entries
	}
	entries[key] = append([]byte(nil), value...)
	s.notifyLocked(profile)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, profile string, keys ...string) error {
	s.mu.Lock()
	if entries, ok := s.values[profile]; ok {
		for _, key := range keys {
			delete(entries, key)
		}
		if len(entries) == 0 {
			delete(s.values, profile)
		}
	}
	s.notifyLocked(profile)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, profile string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	subs, ok := s.subscribers[profile]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		s.subscribers[profile] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers[profile], ch)
		if len(s.subscribers[profile]) == 0 {
			delete(s.subscribers, profile)
		}
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// notifyLocked must be called with mu held for writing.
func (s *MemoryStore) notifyLocked(profile string) {
	for ch := range s.subscribers[profile] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

var _ Store = (*MemoryStore)(nil)

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// MemoryStore keeps documents as JSON objects in process memory. Suitable for tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return newJSONSnapshot(id, doc)
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := toObject(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.data[collection] = coll
	}
	coll[id] = doc
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := toObject(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[collection], id)
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized := make([]Filter, 0, len(filters))
	for _, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, Filter{Field: f.Field, Value: v})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data[collection]))
	for id := range s.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Snapshot, 0)
	for _, id := range ids {
		doc := s.data[collection][id]
		if !matches(doc, normalized) {
			continue
		}
		snap, err := newJSONSnapshot(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func matches(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// toObject round-trips data through JSON so stored documents never alias caller memory.
func toObject(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode filter value: %w", err)
	}
	return out, nil
}

// JSONSnapshot is a Snapshot over a JSON document body. It is shared with the Postgres backend.
type JSONSnapshot struct {
	id  string
	raw []byte
}

// NewJSONSnapshot wraps an already encoded JSON document.
func NewJSONSnapshot(id string, raw []byte) JSONSnapshot {
	return JSONSnapshot{id: id, raw: raw}
}

func newJSONSnapshot(id string, doc map[string]any) (Snapshot, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}
	return JSONSnapshot{id: id, raw: raw}, nil
}

func (s JSONSnapshot) ID() string { return s.id }

func (s JSONSnapshot) DataTo(dst any) error {
	if err := json.Unmarshal(s.raw, dst); err != nil {
		return fmt.Errorf("decode document %s: %w", s.id, err)
	}
	return nil
}

// Ensure interface compliance.
var _ Store = (*MemoryStore)(nil)

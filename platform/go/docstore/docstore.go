// Package docstore abstracts the document database that holds clients, users, themes and players.
// Implementations: in-memory (tests, local dev), Firestore (platform/go/docstore/firestore.go) and
// Postgres JSONB (platform/go/persistence).
package docstore

import (
	"context"
	"errors"
)

// Collection names shared by every backend.
const (
	CollectionClients = "clients"
	CollectionUsers   = "users"
	CollectionThemes  = "themes"
	CollectionPlayers = "jugadores"
)

var (
	// ErrNotFound is returned when a document id does not exist in the collection.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps transport/backend failures (store unreachable, deadline exceeded).
	ErrUnavailable = errors.New("document store unavailable")
)

// Filter is an equality predicate on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality Filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Snapshot is a read document. DataTo decodes the document body into a record struct
// (records carry both `firestore` and `json` tags).
type Snapshot interface {
	ID() string
	DataTo(dst any) error
}

// Store is the minimal request/response surface consumed by the domain repositories.
// No operation is transactional; writes are last-writer-wins.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data any) error
	// Update merges top-level fields into an existing document; ErrNotFound when missing.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Find returns every document matching all filters, in unspecified order.
	Find(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)
}

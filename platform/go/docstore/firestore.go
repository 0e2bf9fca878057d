package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on top of a Cloud Firestore client.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an initialized Firestore client (see platform/go/gcp.InitFirestore).
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	if client == nil {
		panic("firestore client is required")
	}
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return firestoreSnapshot{snap: snap}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: fields[k]})
	}
	if len(updates) == 0 {
		return nil
	}

	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return mapFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Find(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	query := s.client.Collection(collection).Query
	for _, f := range filters {
		query = query.Where(f.Field, "==", f.Value)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	out := make([]Snapshot, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapFirestoreError(err)
		}
		out = append(out, firestoreSnapshot{snap: snap})
	}
	return out, nil
}

type firestoreSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s firestoreSnapshot) ID() string { return s.snap.Ref.ID }

func (s firestoreSnapshot) DataTo(dst any) error {
	if err := s.snap.DataTo(dst); err != nil {
		return fmt.Errorf("decode document %s: %w", s.snap.Ref.ID, err)
	}
	return nil
}

// mapFirestoreError translates gRPC status codes surfaced by the Firestore client into store errors.
func mapFirestoreError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

// Ensure interface compliance.
var _ Store = (*FirestoreStore)(nil)

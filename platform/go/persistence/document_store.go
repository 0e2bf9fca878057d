package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/clubportal/database"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// DocumentsTable holds every collection as (collection, doc_id, data JSONB) rows.
const DocumentsTable = "documents"

// DocumentStore implements docstore.Store on Postgres JSONB.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore creates a store; call EnsureSchema once at startup when migrations are not managed elsewhere.
func NewDocumentStore(ctx context.Context, pool *pgxpool.Pool) (*DocumentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &DocumentStore{pool: pool}, nil
}

// EnsureSchema applies the embedded documents DDL (idempotent).
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	for _, raw := range strings.Split(sqlassets.DocumentsSQL, ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply documents ddl: %w", mapUnavailable(err))
		}
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE collection = $1 AND doc_id = $2`, DocumentsTable)

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, mapUnavailable(err)
	}
	return docstore.NewJSONSnapshot(id, raw), nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (collection, doc_id, data)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, doc_id)
        DO UPDATE SET data = EXCLUDED.data, updated_at = now()
    `, DocumentsTable)

	if _, err := s.pool.Exec(ctx, query, collection, id, string(raw)); err != nil {
		return mapUnavailable(err)
	}
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	query := fmt.Sprintf(`
        UPDATE %s SET data = data || $3::jsonb, updated_at = now()
        WHERE collection = $1 AND doc_id = $2
    `, DocumentsTable)

	tag, err := s.pool.Exec(ctx, query, collection, id, string(raw))
	if err != nil {
		return mapUnavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND doc_id = $2`, DocumentsTable)
	if _, err := s.pool.Exec(ctx, query, collection, id); err != nil {
		return mapUnavailable(err)
	}
	return nil
}

func (s *DocumentStore) Find(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	args := []any{collection}
	where := []string{"collection = $1"}

	if len(filters) > 0 {
		containment := make(map[string]any, len(filters))
		for _, f := range filters {
			containment[f.Field] = f.Value
		}
		raw, err := json.Marshal(containment)
		if err != nil {
			return nil, fmt.Errorf("encode filters: %w", err)
		}
		args = append(args, string(raw))
		where = append(where, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}

	query := fmt.Sprintf(`SELECT doc_id, data FROM %s WHERE %s ORDER BY doc_id`, DocumentsTable, strings.Join(where, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapUnavailable(err)
	}
	defer rows.Close()

	out := make([]docstore.Snapshot, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, docstore.NewJSONSnapshot(id, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, mapUnavailable(err)
	}
	return out, nil
}

// mapUnavailable keeps server-side SQL errors as-is and classifies everything else
// (dial, pool acquire, broken connection) as docstore.ErrUnavailable.
func mapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", docstore.ErrUnavailable, err)
}

// Ensure interface compliance.
var _ docstore.Store = (*DocumentStore)(nil)

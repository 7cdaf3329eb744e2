package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// documentSchema stores every aggregate as a JSONB document keyed by kind and id
const documentSchema = `
CREATE TABLE IF NOT EXISTS documents (
	kind        TEXT        NOT NULL,
	id          TEXT        NOT NULL,
	project_id  TEXT        NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL,
	body        JSONB       NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS documents_project_idx ON documents (kind, project_id, recorded_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS documents_subscriber_endpoint_idx ON documents ((body->>'endpoint')) WHERE kind = 'subscriber';
CREATE INDEX IF NOT EXISTS documents_notification_status_idx ON documents ((body->>'status')) WHERE kind = 'notification';
`

// NewPostgresPool opens a connection pool and verifies connectivity
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the documents table and its indexes
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, documentSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// documentStore holds the query primitives shared by the Postgres repositories
type documentStore struct {
	db   *pgxpool.Pool
	kind string
}

func (s documentStore) insert(ctx context.Context, id, projectID string, recordedAt time.Time, body []byte) error {
	const query = `
		INSERT INTO documents (kind, id, project_id, recorded_at, body)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, s.kind, id, projectID, recordedAt, body); err != nil {
		return fmt.Errorf("insert %s %s failed: %w", s.kind, id, err)
	}
	return nil
}

func (s documentStore) get(ctx context.Context, id string) ([]byte, error) {
	const query = `SELECT body FROM documents WHERE kind = $1 AND id = $2`

	var body []byte
	if err := s.db.QueryRow(ctx, query, s.kind, id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrNotFound{Kind: s.kind, ID: id}
		}
		return nil, fmt.Errorf("find %s %s failed: %w", s.kind, id, err)
	}
	return body, nil
}

func (s documentStore) replace(ctx context.Context, id string, body []byte) error {
	const query = `UPDATE documents SET body = $3 WHERE kind = $1 AND id = $2`

	tag, err := s.db.Exec(ctx, query, s.kind, id, body)
	if err != nil {
		return fmt.Errorf("update %s %s failed: %w", s.kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound{Kind: s.kind, ID: id}
	}
	return nil
}

func (s documentStore) delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE kind = $1 AND id = $2`

	tag, err := s.db.Exec(ctx, query, s.kind, id)
	if err != nil {
		return fmt.Errorf("delete %s %s failed: %w", s.kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound{Kind: s.kind, ID: id}
	}
	return nil
}

// mutate locks the document row for the duration of fn and stores the body fn returns
func (s documentStore) mutate(ctx context.Context, id string, fn func(body []byte) ([]byte, error)) ([]byte, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var body []byte
	err = tx.QueryRow(ctx, `SELECT body FROM documents WHERE kind = $1 AND id = $2 FOR UPDATE`, s.kind, id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrNotFound{Kind: s.kind, ID: id}
		}
		return nil, fmt.Errorf("lock %s %s failed: %w", s.kind, id, err)
	}

	updated, err := fn(body)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET body = $3 WHERE kind = $1 AND id = $2`, s.kind, id, updated); err != nil {
		return nil, fmt.Errorf("update %s %s failed: %w", s.kind, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return updated, nil
}

// queryBodies runs a query selecting one body column and returns the raw documents
func (s documentStore) queryBodies(ctx context.Context, query string, args ...interface{}) ([][]byte, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", s.kind, err)
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return bodies, nil
}

func decodeAll[T any](bodies [][]byte, decode func([]byte) (T, error)) ([]T, error) {
	out := make([]T, 0, len(bodies))
	for _, b := range bodies {
		v, err := decode(b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func jsonTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// PostgresSubscriberRepository implements SubscriberRepository on the documents table
type PostgresSubscriberRepository struct {
	store documentStore
}

// NewPostgresSubscriberRepository creates a new PostgresSubscriberRepository
func NewPostgresSubscriberRepository(pool *pgxpool.Pool) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{store: documentStore{db: pool, kind: entities.KindSubscriber}}
}

// Save inserts or replaces a subscriber. A different subscriber holding the same endpoint is removed.
func (r *PostgresSubscriberRepository) Save(ctx context.Context, subscriber *entities.Subscriber) error {
	body, err := subscriberToJSON(subscriber)
	if err != nil {
		return err
	}

	tx, err := r.store.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const evict = `DELETE FROM documents WHERE kind = $1 AND body->>'endpoint' = $2 AND id <> $3`
	if _, err := tx.Exec(ctx, evict, entities.KindSubscriber, subscriber.Endpoint(), subscriber.ID()); err != nil {
		return fmt.Errorf("evict duplicate endpoint failed: %w", err)
	}

	const upsert = `
		INSERT INTO documents (kind, id, project_id, recorded_at, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, id) DO UPDATE SET project_id = EXCLUDED.project_id, body = EXCLUDED.body
	`
	if _, err := tx.Exec(ctx, upsert, entities.KindSubscriber, subscriber.ID(), subscriber.ProjectID(), subscriber.SubscribedAt(), body); err != nil {
		return fmt.Errorf("save subscriber %s failed: %w", subscriber.ID(), err)
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a subscriber by its ID
func (r *PostgresSubscriberRepository) GetByID(ctx context.Context, id string) (*entities.Subscriber, error) {
	body, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonToSubscriber(body)
}

// GetByEndpoint retrieves a subscriber by push endpoint
func (r *PostgresSubscriberRepository) GetByEndpoint(ctx context.Context, endpoint string) (*entities.Subscriber, error) {
	const query = `SELECT body FROM documents WHERE kind = $1 AND body->>'endpoint' = $2`

	var body []byte
	if err := r.store.db.QueryRow(ctx, query, entities.KindSubscriber, endpoint).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrNotFound{Kind: entities.KindSubscriber, ID: endpoint}
		}
		return nil, fmt.Errorf("find subscriber by endpoint failed: %w", err)
	}
	return jsonToSubscriber(body)
}

// FindByAudience returns the project's active subscribers inside the audience
func (r *PostgresSubscriberRepository) FindByAudience(ctx context.Context, projectID string, audience entities.TargetAudience) ([]*entities.Subscriber, error) {
	where, args, err := audienceClause(projectID, audience)
	if err != nil {
		return nil, err
	}
	query := "SELECT body FROM documents WHERE " + where + " ORDER BY recorded_at DESC, id"

	bodies, err := r.store.queryBodies(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToSubscriber)
}

// audienceClause renders the WHERE clause selecting a project's active subscribers inside an audience.
// Each populated dimension adds one conjunct.
func audienceClause(projectID string, audience entities.TargetAudience) (string, []interface{}, error) {
	conds := []string{"kind = $1", "project_id = $2", "(body->>'active')::boolean"}
	args := []interface{}{entities.KindSubscriber, projectID}

	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(audience.Browsers) > 0 {
		conds = append(conds, "body->>'browser' = ANY("+next(audience.Browsers)+"::text[])")
	}
	if len(audience.Countries) > 0 {
		conds = append(conds, "body->>'country' = ANY("+next(audience.Countries)+"::text[])")
	}
	if len(audience.Tags) > 0 {
		conds = append(conds, "body->'tags' ?| "+next(audience.Tags)+"::text[]")
	}
	if len(audience.Attributes) > 0 {
		attrs, err := json.Marshal(audience.Attributes)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode attribute filter: %w", err)
		}
		conds = append(conds, "body->'attributes' @> "+next(string(attrs))+"::jsonb")
	}
	return strings.Join(conds, " AND "), args, nil
}

// List returns subscribers matching the filter, newest first
func (r *PostgresSubscriberRepository) List(ctx context.Context, filter repositories.SubscriberFilter) ([]*entities.Subscriber, error) {
	conds := []string{"kind = $1"}
	args := []interface{}{entities.KindSubscriber}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conds = append(conds, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conds = append(conds, fmt.Sprintf("(body->>'active')::boolean = $%d", len(args)))
	}

	query := "SELECT body FROM documents WHERE " + strings.Join(conds, " AND ") + " ORDER BY recorded_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	bodies, err := r.store.queryBodies(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToSubscriber)
}

// Deactivate soft-deletes a subscriber
func (r *PostgresSubscriberRepository) Deactivate(ctx context.Context, id string) error {
	const query = `
		UPDATE documents
		SET body = body || jsonb_build_object('active', false, 'updatedAt', $3::text)
		WHERE kind = $1 AND id = $2
	`
	return r.patch(ctx, query, id, time.Now())
}

// MarkNotified records an accepted push
func (r *PostgresSubscriberRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE documents
		SET body = body || jsonb_build_object('lastNotificationAt', $3::text, 'updatedAt', $3::text)
		WHERE kind = $1 AND id = $2
	`
	return r.patch(ctx, query, id, at)
}

func (r *PostgresSubscriberRepository) patch(ctx context.Context, query, id string, at time.Time) error {
	tag, err := r.store.db.Exec(ctx, query, entities.KindSubscriber, id, jsonTimestamp(at))
	if err != nil {
		return fmt.Errorf("update subscriber %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound{Kind: entities.KindSubscriber, ID: id}
	}
	return nil
}

// Stats returns the project's subscriber breakdown
func (r *PostgresSubscriberRepository) Stats(ctx context.Context, projectID string) (*repositories.SubscriberStats, error) {
	stats := &repositories.SubscriberStats{}

	const totals = `
		SELECT count(*), count(*) FILTER (WHERE (body->>'active')::boolean)
		FROM documents WHERE kind = $1 AND project_id = $2
	`
	if err := r.store.db.QueryRow(ctx, totals, entities.KindSubscriber, projectID).Scan(&stats.Total, &stats.Active); err != nil {
		return nil, fmt.Errorf("count subscribers failed: %w", err)
	}
	stats.Inactive = stats.Total - stats.Active

	var err error
	if stats.BrowserStats, err = r.groupCount(ctx, projectID, "browser"); err != nil {
		return nil, err
	}
	if stats.CountryStats, err = r.groupCount(ctx, projectID, "country"); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *PostgresSubscriberRepository) groupCount(ctx context.Context, projectID, field string) ([]repositories.CountBucket, error) {
	query := fmt.Sprintf(`
		SELECT coalesce(body->>'%[1]s', ''), count(*)
		FROM documents WHERE kind = $1 AND project_id = $2
		GROUP BY 1 ORDER BY 2 DESC, 1
	`, field)

	rows, err := r.store.db.Query(ctx, query, entities.KindSubscriber, projectID)
	if err != nil {
		return nil, fmt.Errorf("group subscribers by %s failed: %w", field, err)
	}
	defer rows.Close()

	out := []repositories.CountBucket{}
	for rows.Next() {
		var b repositories.CountBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ repositories.SubscriberRepository = (*PostgresSubscriberRepository)(nil)

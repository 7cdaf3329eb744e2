package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// PostgresEventRepository implements EventRepository on the documents table.
// recorded_at holds the event timestamp.
type PostgresEventRepository struct {
	store documentStore
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{store: documentStore{db: pool, kind: entities.KindEvent}}
}

// Create appends an event
func (r *PostgresEventRepository) Create(ctx context.Context, event *entities.Event) error {
	body, err := eventToJSON(event)
	if err != nil {
		return err
	}
	return r.store.insert(ctx, event.ID(), event.ProjectID(), event.Timestamp(), body)
}

// List returns events matching the filter, newest first
func (r *PostgresEventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*entities.Event, error) {
	query, args := eventListQuery(filter)
	bodies, err := r.store.queryBodies(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToEvent)
}

func eventListQuery(filter repositories.EventFilter) (string, []interface{}) {
	conds := []string{"kind = $1"}
	args := []interface{}{entities.KindEvent}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProjectID != "" {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.EventName != "" {
		add("body->>'eventName' = $%d", filter.EventName)
	}
	if filter.Start != nil {
		add("recorded_at >= $%d", *filter.Start)
	}
	if filter.End != nil {
		add("recorded_at <= $%d", *filter.End)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repositories.DefaultEventListLimit
	}
	args = append(args, limit)

	query := "SELECT body FROM documents WHERE " + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d", len(args))
	return query, args
}

var _ repositories.EventRepository = (*PostgresEventRepository)(nil)

package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// PostgresNotificationRepository implements NotificationRepository on the documents table
type PostgresNotificationRepository struct {
	store documentStore
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository
func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{store: documentStore{db: pool, kind: entities.KindNotification}}
}

// Create persists a new notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *entities.Notification) error {
	body, err := notificationToJSON(notification)
	if err != nil {
		return err
	}
	return r.store.insert(ctx, notification.ID(), notification.ProjectID(), notification.CreatedAt(), body)
}

// GetByID retrieves a notification by its ID
func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	body, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonToNotification(body)
}

// ListByProject retrieves a project's notifications, newest first
func (r *PostgresNotificationRepository) ListByProject(ctx context.Context, projectID string) ([]*entities.Notification, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND project_id = $2
		ORDER BY recorded_at DESC, id
	`
	bodies, err := r.store.queryBodies(ctx, query, entities.KindNotification, projectID)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToNotification)
}

// FindDue narrows candidates by status in SQL and applies the due predicate to each
func (r *PostgresNotificationRepository) FindDue(ctx context.Context, now time.Time) ([]*entities.Notification, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND body->>'status' IN ('scheduled', 'sent')
		  AND body->>'type' IN ('scheduled', 'recurring')
		ORDER BY recorded_at, id
	`
	bodies, err := r.store.queryBodies(ctx, query, entities.KindNotification)
	if err != nil {
		return nil, err
	}
	candidates, err := decodeAll(bodies, jsonToNotification)
	if err != nil {
		return nil, err
	}

	due := []*entities.Notification{}
	for _, n := range candidates {
		if n.IsDue(now) {
			due = append(due, n)
		}
	}
	return due, nil
}

// Mutate applies fn while holding the row lock
func (r *PostgresNotificationRepository) Mutate(ctx context.Context, id string, fn repositories.NotificationMutation) (*entities.Notification, error) {
	var result *entities.Notification
	_, err := r.store.mutate(ctx, id, func(body []byte) ([]byte, error) {
		n, err := jsonToNotification(body)
		if err != nil {
			return nil, err
		}
		if err := fn(n); err != nil {
			return nil, err
		}
		result = n
		return notificationToJSON(n)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a notification
func (r *PostgresNotificationRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(ctx, id)
}

var _ repositories.NotificationRepository = (*PostgresNotificationRepository)(nil)

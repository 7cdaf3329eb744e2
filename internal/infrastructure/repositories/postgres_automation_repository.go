package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// PostgresAutomationRepository implements AutomationRepository on the documents table
type PostgresAutomationRepository struct {
	store documentStore
}

// NewPostgresAutomationRepository creates a new PostgresAutomationRepository
func NewPostgresAutomationRepository(pool *pgxpool.Pool) *PostgresAutomationRepository {
	return &PostgresAutomationRepository{store: documentStore{db: pool, kind: entities.KindAutomation}}
}

// Create persists a new automation
func (r *PostgresAutomationRepository) Create(ctx context.Context, automation *entities.Automation) error {
	body, err := automationToJSON(automation)
	if err != nil {
		return err
	}
	return r.store.insert(ctx, automation.ID(), automation.ProjectID(), automation.CreatedAt(), body)
}

// GetByID retrieves an automation by its ID
func (r *PostgresAutomationRepository) GetByID(ctx context.Context, id string) (*entities.Automation, error) {
	body, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonToAutomation(body)
}

// ListByProject retrieves a project's automations, newest first
func (r *PostgresAutomationRepository) ListByProject(ctx context.Context, projectID string) ([]*entities.Automation, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND project_id = $2
		ORDER BY recorded_at DESC, id
	`
	bodies, err := r.store.queryBodies(ctx, query, entities.KindAutomation, projectID)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToAutomation)
}

// FindEventTriggered returns active event automations of a project listening for eventName
func (r *PostgresAutomationRepository) FindEventTriggered(ctx context.Context, projectID, eventName string) ([]*entities.Automation, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND project_id = $2
		  AND (body->>'active')::boolean
		  AND body->'trigger'->>'type' = 'event'
		  AND body->'trigger'->>'eventName' = $3
		ORDER BY recorded_at DESC, id
	`
	bodies, err := r.store.queryBodies(ctx, query, entities.KindAutomation, projectID, eventName)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToAutomation)
}

// Update replaces a stored automation, keeping its trigger statistics
func (r *PostgresAutomationRepository) Update(ctx context.Context, automation *entities.Automation) error {
	_, err := r.store.mutate(ctx, automation.ID(), func(body []byte) ([]byte, error) {
		stored, err := jsonToAutomation(body)
		if err != nil {
			return nil, err
		}
		updated := automation.Clone()
		updated.SetTriggerStats(stored.TriggerCount(), stored.LastTriggered())
		return automationToJSON(updated)
	})
	return err
}

// RecordTrigger increments the trigger count while holding the row lock
func (r *PostgresAutomationRepository) RecordTrigger(ctx context.Context, id string, at time.Time) (*entities.Automation, error) {
	var result *entities.Automation
	_, err := r.store.mutate(ctx, id, func(body []byte) ([]byte, error) {
		a, err := jsonToAutomation(body)
		if err != nil {
			return nil, err
		}
		a.RecordTrigger(at)
		result = a
		return automationToJSON(a)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an automation
func (r *PostgresAutomationRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(ctx, id)
}

var _ repositories.AutomationRepository = (*PostgresAutomationRepository)(nil)

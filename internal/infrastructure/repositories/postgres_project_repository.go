package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// PostgresProjectRepository implements ProjectRepository on the documents table
type PostgresProjectRepository struct {
	store documentStore
}

// NewPostgresProjectRepository creates a new PostgresProjectRepository
func NewPostgresProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{store: documentStore{db: pool, kind: entities.KindProject}}
}

// Create persists a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	body, err := projectToJSON(project)
	if err != nil {
		return err
	}
	return r.store.insert(ctx, project.ID(), project.ID(), project.CreatedAt(), body)
}

// GetByID retrieves a project by its ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	body, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonToProject(body)
}

// GetByAPIKey retrieves the project owning an active API key
func (r *PostgresProjectRepository) GetByAPIKey(ctx context.Context, key string) (*entities.Project, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND body->'apiKeys' @> jsonb_build_array(jsonb_build_object('key', $2::text, 'active', true))
		LIMIT 1
	`
	var body []byte
	if err := r.store.db.QueryRow(ctx, query, entities.KindProject, key).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrNotFound{Kind: entities.KindProject, ID: "api key"}
		}
		return nil, fmt.Errorf("find project by api key failed: %w", err)
	}
	return jsonToProject(body)
}

// ListByOwner retrieves every project owned by a user, newest first
func (r *PostgresProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Project, error) {
	const query = `
		SELECT body FROM documents
		WHERE kind = $1 AND body->>'ownerId' = $2
		ORDER BY recorded_at DESC
	`
	bodies, err := r.store.queryBodies(ctx, query, entities.KindProject, ownerID)
	if err != nil {
		return nil, err
	}
	return decodeAll(bodies, jsonToProject)
}

// Update replaces a stored project
func (r *PostgresProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	body, err := projectToJSON(project)
	if err != nil {
		return err
	}
	return r.store.replace(ctx, project.ID(), body)
}

// TouchAPIKey records the last use of an API key
func (r *PostgresProjectRepository) TouchAPIKey(ctx context.Context, projectID, key string, at time.Time) error {
	_, err := r.store.mutate(ctx, projectID, func(body []byte) ([]byte, error) {
		p, err := jsonToProject(body)
		if err != nil {
			return nil, err
		}
		if !p.TouchAPIKey(key, at) {
			return nil, errors.New("api key not found")
		}
		return projectToJSON(p)
	})
	return err
}

// Delete removes a project
func (r *PostgresProjectRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(ctx, id)
}

var _ repositories.ProjectRepository = (*PostgresProjectRepository)(nil)

package repositories

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	// Create persists a new project
	Create(ctx context.Context, project *entities.Project) error

	// GetByID retrieves a project. Returns entities.ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*entities.Project, error)

	// GetByAPIKey retrieves the project owning an active API key
	GetByAPIKey(ctx context.Context, key string) (*entities.Project, error)

	// ListByOwner retrieves every project owned by a user, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Project, error)

	// Update replaces a stored project
	Update(ctx context.Context, project *entities.Project) error

	// TouchAPIKey records the last use of an API key
	TouchAPIKey(ctx context.Context, projectID, key string, at time.Time) error

	// Delete removes a project
	Delete(ctx context.Context, id string) error
}

package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// MemoryProjectRepository implements ProjectRepository using in-memory storage
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*entities.Project
}

// NewMemoryProjectRepository creates a new MemoryProjectRepository
func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{
		projects: make(map[string]*entities.Project),
	}
}

// Create persists a new project
func (r *MemoryProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[project.ID()]; exists {
		return errors.New("project already exists")
	}
	r.projects[project.ID()] = project.Clone()
	return nil
}

// GetByID retrieves a project by its ID
func (r *MemoryProjectRepository) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.projects[id]
	if !exists {
		return nil, entities.ErrNotFound{Kind: entities.KindProject, ID: id}
	}
	return p.Clone(), nil
}

// GetByAPIKey retrieves the project owning an active API key
func (r *MemoryProjectRepository) GetByAPIKey(ctx context.Context, key string) (*entities.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.projects {
		if p.HasActiveAPIKey(key) {
			return p.Clone(), nil
		}
	}
	return nil, entities.ErrNotFound{Kind: entities.KindProject, ID: "api key"}
}

// ListByOwner retrieves every project owned by a user, newest first
func (r *MemoryProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Project{}
	for _, p := range r.projects {
		if p.OwnerID() == ownerID {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})
	return result, nil
}

// Update replaces a stored project
func (r *MemoryProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[project.ID()]; !exists {
		return entities.ErrNotFound{Kind: entities.KindProject, ID: project.ID()}
	}
	r.projects[project.ID()] = project.Clone()
	return nil
}

// TouchAPIKey records the last use of an API key
func (r *MemoryProjectRepository) TouchAPIKey(ctx context.Context, projectID, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.projects[projectID]
	if !exists {
		return entities.ErrNotFound{Kind: entities.KindProject, ID: projectID}
	}
	if !p.TouchAPIKey(key, at) {
		return errors.New("api key not found")
	}
	return nil
}

// Delete removes a project
func (r *MemoryProjectRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[id]; !exists {
		return entities.ErrNotFound{Kind: entities.KindProject, ID: id}
	}
	delete(r.projects, id)
	return nil
}

var _ repositories.ProjectRepository = (*MemoryProjectRepository)(nil)

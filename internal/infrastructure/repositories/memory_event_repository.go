package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// MemoryEventRepository implements EventRepository using in-memory storage
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []*entities.Event
}

// NewMemoryEventRepository creates a new MemoryEventRepository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

// Create appends an event
func (r *MemoryEventRepository) Create(ctx context.Context, event *entities.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	return nil
}

// List returns events matching the filter, newest first
func (r *MemoryEventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*entities.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Event{}
	for _, e := range r.events {
		if filter.ProjectID != "" && e.ProjectID() != filter.ProjectID {
			continue
		}
		if filter.EventName != "" && e.Name() != filter.EventName {
			continue
		}
		if filter.Start != nil && e.Timestamp().Before(*filter.Start) {
			continue
		}
		if filter.End != nil && e.Timestamp().After(*filter.End) {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp().After(result[j].Timestamp())
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = repositories.DefaultEventListLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ repositories.EventRepository = (*MemoryEventRepository)(nil)

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

// MemoryNotificationRepository implements NotificationRepository using in-memory storage
type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*entities.Notification
}

// NewMemoryNotificationRepository creates a new MemoryNotificationRepository
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		notifications: make(map[string]*entities.Notification),
	}
}

// Create persists a new notification
func (r *MemoryNotificationRepository) Create(ctx context.Context, notification *entities.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[notification.ID()]; exists {
		return errors.New("notification already exists")
	}

	// Clone notification to avoid external modifications
	r.notifications[notification.ID()] = notification.Clone()
	return nil
}

// GetByID retrieves a notification by its ID
func (r *MemoryNotificationRepository) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifications[id]
	if !exists {
		return nil, entities.ErrNotFound{Kind: entities.KindNotification, ID: id}
	}
	return n.Clone(), nil
}

// ListByProject retrieves a project's notifications, newest first
func (r *MemoryNotificationRepository) ListByProject(ctx context.Context, projectID string) ([]*entities.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Notification{}
	for _, n := range r.notifications {
		if n.ProjectID() == projectID {
			result = append(result, n.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt().Equal(result[j].CreatedAt()) {
			return result[i].CreatedAt().After(result[j].CreatedAt())
		}
		return result[i].ID() < result[j].ID()
	})
	return result, nil
}

// FindDue returns every notification due at now, oldest creation first
func (r *MemoryNotificationRepository) FindDue(ctx context.Context, now time.Time) ([]*entities.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Notification{}
	for _, n := range r.notifications {
		if n.IsDue(now) {
			result = append(result, n.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt().Equal(result[j].CreatedAt()) {
			return result[i].CreatedAt().Before(result[j].CreatedAt())
		}
		return result[i].ID() < result[j].ID()
	})
	return result, nil
}

// Mutate applies fn to a copy of the stored notification under the write lock.
// The copy replaces the stored value only when fn succeeds.
func (r *MemoryNotificationRepository) Mutate(ctx context.Context, id string, fn repositories.NotificationMutation) (*entities.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.notifications[id]
	if !exists {
		return nil, entities.ErrNotFound{Kind: entities.KindNotification, ID: id}
	}

	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.notifications[id] = working
	return working.Clone(), nil
}

// Delete removes a notification
func (r *MemoryNotificationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[id]; !exists {
		return entities.ErrNotFound{Kind: entities.KindNotification, ID: id}
	}
	delete(r.notifications, id)
	return nil
}

var _ repositories.NotificationRepository = (*MemoryNotificationRepository)(nil)

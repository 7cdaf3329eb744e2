package repositories

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// NotificationMutation edits a notification inside an atomic read-modify-write
type NotificationMutation func(n *entities.Notification) error

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	// Create persists a new notification
	Create(ctx context.Context, notification *entities.Notification) error

	// GetByID retrieves a notification. Returns entities.ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*entities.Notification, error)

	// ListByProject retrieves a project's notifications, newest first
	ListByProject(ctx context.Context, projectID string) ([]*entities.Notification, error)

	// FindDue returns every notification the scheduler should send at now
	FindDue(ctx context.Context, now time.Time) ([]*entities.Notification, error)

	// Mutate applies fn to the stored notification and persists the result atomically.
	// No other write to the same notification interleaves with fn.
	Mutate(ctx context.Context, id string, fn NotificationMutation) (*entities.Notification, error)

	// Delete removes a notification
	Delete(ctx context.Context, id string) error
}

package repositories

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// AutomationRepository defines the interface for automation persistence
type AutomationRepository interface {
	// Create persists a new automation
	Create(ctx context.Context, automation *entities.Automation) error

	// GetByID retrieves an automation
	GetByID(ctx context.Context, id string) (*entities.Automation, error)

	// ListByProject retrieves a project's automations, newest first
	ListByProject(ctx context.Context, projectID string) ([]*entities.Automation, error)

	// FindEventTriggered returns active event automations of a project listening for eventName
	FindEventTriggered(ctx context.Context, projectID, eventName string) ([]*entities.Automation, error)

	// Update replaces a stored automation
	Update(ctx context.Context, automation *entities.Automation) error

	// RecordTrigger atomically increments the trigger count and sets lastTriggered
	RecordTrigger(ctx context.Context, id string, at time.Time) (*entities.Automation, error)

	// Delete removes an automation
	Delete(ctx context.Context, id string) error
}

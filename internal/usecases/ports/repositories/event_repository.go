package repositories

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// DefaultEventListLimit caps event listings when no limit is given
const DefaultEventListLimit = 100

// EventFilter defines filtering options for event listings
type EventFilter struct {
	ProjectID string
	EventName string
	Start     *time.Time
	End       *time.Time
	Limit     int
}

// EventRepository defines the interface for event persistence. Events are append-only.
type EventRepository interface {
	// Create appends an event
	Create(ctx context.Context, event *entities.Event) error

	// List returns events matching the filter, newest first
	List(ctx context.Context, filter EventFilter) ([]*entities.Event, error)
}

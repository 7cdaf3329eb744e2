package repositories

import (
	"context"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// SubscriberFilter defines filtering options for subscriber listings
type SubscriberFilter struct {
	ProjectID string
	Active    *bool
	Limit     int
	Offset    int
}

// CountBucket is one group of a subscriber breakdown
type CountBucket struct {
	Key   string `json:"_id"`
	Count int    `json:"count"`
}

// SubscriberStats summarizes a project's subscribers
type SubscriberStats struct {
	Total        int           `json:"total"`
	Active       int           `json:"active"`
	Inactive     int           `json:"inactive"`
	BrowserStats []CountBucket `json:"browserStats"`
	CountryStats []CountBucket `json:"countryStats"`
}

// SubscriberRepository defines the interface for subscriber persistence
type SubscriberRepository interface {
	// Save inserts or replaces a subscriber. Endpoints are unique across projects.
	Save(ctx context.Context, subscriber *entities.Subscriber) error

	// GetByID retrieves a subscriber by ID
	GetByID(ctx context.Context, id string) (*entities.Subscriber, error)

	// GetByEndpoint retrieves a subscriber by push endpoint
	GetByEndpoint(ctx context.Context, endpoint string) (*entities.Subscriber, error)

	// FindByAudience returns the project's active subscribers inside the audience
	FindByAudience(ctx context.Context, projectID string, audience entities.TargetAudience) ([]*entities.Subscriber, error)

	// List returns subscribers matching the filter, newest first
	List(ctx context.Context, filter SubscriberFilter) ([]*entities.Subscriber, error)

	// Deactivate soft-deletes a subscriber
	Deactivate(ctx context.Context, id string) error

	// MarkNotified records an accepted push
	MarkNotified(ctx context.Context, id string, at time.Time) error

	// Stats returns the project's subscriber breakdown
	Stats(ctx context.Context, projectID string) (*SubscriberStats, error)
}

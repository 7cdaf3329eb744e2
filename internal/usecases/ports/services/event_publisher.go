package services

import (
	"context"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// EventPublisher forwards tracked events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *entities.Event) error
}

// DispatchRecorder keeps an audit trail of completed dispatches
type DispatchRecorder interface {
	RecordDispatch(notificationID, projectID string, result entities.DispatchResult) error
}

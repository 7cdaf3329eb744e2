package recurring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/pkg/metrics"
)

// errNotDue is returned by the precondition when another worker already advanced the notification
var errNotDue = errors.New("notification is no longer due")

// TickResult summarizes one scheduler pass
type TickResult struct {
	// Processed counts notifications that were sent
	Processed int `json:"processed"`
	// Failed counts notifications whose dispatch errored
	Failed int `json:"failed"`
	// Skipped counts notifications another dispatch got to first
	Skipped int `json:"skipped"`
}

// TickUseCase sends every due scheduled and recurring notification once
type TickUseCase struct {
	notificationRepo repositories.NotificationRepository
	sender           notification.Sender
}

// NewTickUseCase creates a new TickUseCase
func NewTickUseCase(notificationRepo repositories.NotificationRepository, sender notification.Sender) *TickUseCase {
	return &TickUseCase{
		notificationRepo: notificationRepo,
		sender:           sender,
	}
}

// Execute processes the notifications due at now, one at a time.
// Only a failure to list due notifications is returned; per-notification
// failures are counted and the tick moves on.
func (uc *TickUseCase) Execute(ctx context.Context, now time.Time) (*TickResult, error) {
	due, err := uc.notificationRepo.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find due notifications: %w", err)
	}

	result := &TickResult{}
	if len(due) == 0 {
		return result, nil
	}
	log.Printf("[RECURRING] Found %d due notifications", len(due))

	for _, n := range due {
		if ctx.Err() != nil {
			break
		}
		switch err := uc.process(ctx, n.ID(), now); {
		case err == nil:
			result.Processed++
			metrics.SchedulerNotifications.WithLabelValues("processed").Inc()
		case errors.Is(err, errNotDue), errors.Is(err, services.ErrLockHeld):
			result.Skipped++
			metrics.SchedulerNotifications.WithLabelValues("skipped").Inc()
			log.Printf("[RECURRING] Skipping notification %s: %v", n.ID(), err)
		default:
			result.Failed++
			metrics.SchedulerNotifications.WithLabelValues("failed").Inc()
			log.Printf("[RECURRING] Failed to send notification %s: %v", n.ID(), err)
		}
	}

	log.Printf("[RECURRING] Tick done: processed=%d failed=%d skipped=%d", result.Processed, result.Failed, result.Skipped)
	return result, nil
}

func (uc *TickUseCase) process(ctx context.Context, notificationID string, now time.Time) error {
	_, err := uc.sender.Execute(ctx, notification.SendNotificationInput{
		NotificationID: notificationID,
		Precondition: func(n *entities.Notification) error {
			if !n.IsDue(now) {
				return errNotDue
			}
			return nil
		},
		Finalize: func(n *entities.Notification) {
			if !n.IsRecurring() {
				return
			}
			n.ScheduleNext(nextOccurrence(n, now))
		},
	})
	return err
}

// nextOccurrence returns the first occurrence after now, or nil when the
// frequency is unknown or the recurrence ends before it
func nextOccurrence(n *entities.Notification, now time.Time) *time.Time {
	base := n.RecurrenceBase()
	if base == nil {
		return nil
	}
	r := n.Recurring()
	next, ok := entities.NextOccurrenceAfter(*base, r.Frequency, r.EffectiveInterval(), now)
	if !ok {
		log.Printf("[RECURRING] Notification %s has unknown frequency %q, disabling recurrence", n.ID(), r.Frequency)
		return nil
	}
	if r.IsExpired(next) {
		return nil
	}
	return &next
}

package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/pkg/metrics"
	pushpkg "github.com/takutakahashi/pushnotify/pkg/notification"
)

// DefaultLockTTL bounds how long a crashed dispatch can block the next one
const DefaultLockTTL = 10 * time.Minute

// AudienceResolver selects the subscribers a notification is sent to
type AudienceResolver interface {
	Execute(ctx context.Context, projectID string, audience entities.TargetAudience) ([]*entities.Subscriber, error)
}

// SendNotificationUseCase dispatches one notification to its audience and commits the counters
type SendNotificationUseCase struct {
	notificationRepo repositories.NotificationRepository
	projectRepo      repositories.ProjectRepository
	subscriberRepo   repositories.SubscriberRepository
	resolver         AudienceResolver
	transports       services.PushTransportFactory
	locker           services.DispatchLocker
	recorder         services.DispatchRecorder
	dispatcher       *Dispatcher
	lockTTL          time.Duration
	now              func() time.Time
}

// NewSendNotificationUseCase creates a new SendNotificationUseCase
func NewSendNotificationUseCase(
	notificationRepo repositories.NotificationRepository,
	projectRepo repositories.ProjectRepository,
	subscriberRepo repositories.SubscriberRepository,
	resolver AudienceResolver,
	transports services.PushTransportFactory,
	locker services.DispatchLocker,
	recorder services.DispatchRecorder,
	dispatcher *Dispatcher,
) *SendNotificationUseCase {
	return &SendNotificationUseCase{
		notificationRepo: notificationRepo,
		projectRepo:      projectRepo,
		subscriberRepo:   subscriberRepo,
		resolver:         resolver,
		transports:       transports,
		locker:           locker,
		recorder:         recorder,
		dispatcher:       dispatcher,
		lockTTL:          DefaultLockTTL,
		now:              time.Now,
	}
}

// SetLockTTL overrides how long a dispatch may hold the notification's lock
func (uc *SendNotificationUseCase) SetLockTTL(ttl time.Duration) {
	if ttl > 0 {
		uc.lockTTL = ttl
	}
}

// SendNotificationInput represents the input for dispatching a notification
type SendNotificationInput struct {
	NotificationID string
	// Audience replaces the notification's own audience when set
	Audience *entities.TargetAudience
	// Precondition runs under the dispatch lock on the freshly loaded notification.
	// A non-nil error aborts the send without touching the notification.
	Precondition func(n *entities.Notification) error
	// Finalize runs inside the commit, after the counters are recorded
	Finalize func(n *entities.Notification)
}

// SendNotificationOutput represents the output of a dispatch.
// Notification is nil when the notification was deleted while it was being sent.
type SendNotificationOutput struct {
	Notification *entities.Notification
	Result       entities.DispatchResult
}

// Execute locks the notification, sends it to every matching subscriber and commits the result.
// It returns services.ErrLockHeld when another dispatch of the same notification is in flight.
func (uc *SendNotificationUseCase) Execute(ctx context.Context, input SendNotificationInput) (*SendNotificationOutput, error) {
	if input.NotificationID == "" {
		return nil, entities.ErrValidation{Field: "notificationId", Message: "is required"}
	}

	release, err := uc.locker.Acquire(ctx, lockKey(input.NotificationID), uc.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock notification %s: %w", input.NotificationID, err)
	}
	defer release()

	// A started dispatch runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	n, err := uc.notificationRepo.GetByID(ctx, input.NotificationID)
	if err != nil {
		return nil, err
	}
	if input.Precondition != nil {
		if err := input.Precondition(n); err != nil {
			return nil, err
		}
	}

	output, err := uc.dispatch(ctx, n, input)
	if err != nil {
		if _, markErr := uc.notificationRepo.Mutate(ctx, n.ID(), func(n *entities.Notification) error {
			n.MarkFailed()
			return nil
		}); markErr != nil {
			log.Printf("[DISPATCH] Failed to mark notification %s as failed: %v", n.ID(), markErr)
		}
		return nil, err
	}
	return output, nil
}

func (uc *SendNotificationUseCase) dispatch(ctx context.Context, n *entities.Notification, input SendNotificationInput) (*SendNotificationOutput, error) {
	project, err := uc.projectRepo.GetByID(ctx, n.ProjectID())
	if err != nil {
		return nil, fmt.Errorf("failed to load project for notification %s: %w", n.ID(), err)
	}

	transport, err := uc.transports.ForProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to build push transport for project %s: %w", project.ID(), err)
	}

	payload, err := BuildPayload(n)
	if err != nil {
		return nil, err
	}

	n, err = uc.notificationRepo.Mutate(ctx, n.ID(), func(n *entities.Notification) error {
		n.MarkSending()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification %s as sending: %w", input.NotificationID, err)
	}

	audience := n.Audience()
	if input.Audience != nil {
		audience = *input.Audience
	}
	subscribers, err := uc.resolver.Execute(ctx, n.ProjectID(), audience)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience for notification %s: %w", n.ID(), err)
	}

	log.Printf("[DISPATCH] Sending notification %s to %d subscribers", n.ID(), len(subscribers))

	started := uc.now()
	outcomes := uc.dispatcher.Dispatch(ctx, transport, payload, subscribers)
	finished := uc.now()
	uc.applySubscriberOutcomes(ctx, outcomes, finished)

	result := Aggregate(outcomes)
	metrics.ObserveDispatch(result.Delivered, result.Failed, result.Deactivated, finished.Sub(started))

	committed, err := uc.notificationRepo.Mutate(ctx, n.ID(), func(n *entities.Notification) error {
		n.RecordDelivery(result, finished)
		if input.Finalize != nil {
			input.Finalize(n)
		}
		return nil
	})
	if err != nil {
		var notFound entities.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to commit dispatch of notification %s: %w", n.ID(), err)
		}
		log.Printf("[DISPATCH] Notification %s was deleted during dispatch, discarding counters %+v", n.ID(), result)
		committed = nil
	}

	if uc.recorder != nil {
		if err := uc.recorder.RecordDispatch(n.ID(), n.ProjectID(), result); err != nil {
			log.Printf("[DISPATCH] Failed to record dispatch of notification %s: %v", n.ID(), err)
		}
	}

	log.Printf("[DISPATCH] Notification %s done: sent=%d delivered=%d failed=%d deactivated=%d",
		n.ID(), result.Sent, result.Delivered, result.Failed, result.Deactivated)

	return &SendNotificationOutput{Notification: committed, Result: result}, nil
}

// applySubscriberOutcomes records accepted pushes and deactivates gone subscriptions
func (uc *SendNotificationUseCase) applySubscriberOutcomes(ctx context.Context, outcomes []Outcome, at time.Time) {
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeDelivered:
			if err := uc.subscriberRepo.MarkNotified(ctx, o.SubscriberID, at); err != nil {
				log.Printf("[DISPATCH] Failed to update subscriber %s: %v", o.SubscriberID, err)
			}
		case OutcomeGone:
			if err := uc.subscriberRepo.Deactivate(ctx, o.SubscriberID); err != nil {
				log.Printf("[DISPATCH] Failed to deactivate subscriber %s: %v", o.SubscriberID, err)
			}
		}
	}
}

// BuildPayload renders the JSON document shared by every push of a notification
func BuildPayload(n *entities.Notification) ([]byte, error) {
	content := n.Content()
	return pushpkg.Payload{
		Title:   content.Title,
		Message: content.Message,
		Icon:    n.PayloadIcon(),
		Image:   content.Image,
		URL:     n.PayloadURL(),
		Badge:   n.PayloadBadge(),
	}.Marshal()
}

func lockKey(notificationID string) string {
	return "dispatch:" + notificationID
}

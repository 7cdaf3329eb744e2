package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/pkg/metrics"
)

// MatchResult summarizes how an event fired automations. Matched counts automations
// whose trigger accepted the event; Dispatched and Deferred split them into
// immediate sends and delayed copies.
type MatchResult struct {
	Matched    int `json:"matched"`
	Dispatched int `json:"dispatched"`
	Deferred   int `json:"deferred"`
}

// MatchEventUseCase fires event-triggered automations
type MatchEventUseCase struct {
	automationRepo   repositories.AutomationRepository
	notificationRepo repositories.NotificationRepository
	sender           notification.Sender
	now              func() time.Time
}

// NewMatchEventUseCase creates a new MatchEventUseCase
func NewMatchEventUseCase(automationRepo repositories.AutomationRepository, notificationRepo repositories.NotificationRepository, sender notification.Sender) *MatchEventUseCase {
	return &MatchEventUseCase{
		automationRepo:   automationRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		now:              time.Now,
	}
}

// OnEvent fires every active automation of the event's project that listens for it.
// A firing is counted before its notification is looked up, so automations bound
// to a deleted notification still record the trigger. Failures of one automation
// do not stop the others.
func (uc *MatchEventUseCase) OnEvent(ctx context.Context, event *entities.Event) (*MatchResult, error) {
	automations, err := uc.automationRepo.FindEventTriggered(ctx, event.ProjectID(), event.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to find automations: %w", err)
	}

	result := &MatchResult{}
	data := event.Data()
	for _, a := range automations {
		if !a.Trigger().Matches(event.Name(), data) {
			continue
		}
		result.Matched++

		if _, err := uc.automationRepo.RecordTrigger(ctx, a.ID(), uc.now()); err != nil {
			log.Printf("[AUTOMATION] Failed to record trigger of automation %s: %v", a.ID(), err)
		}

		deferred, err := uc.fire(ctx, a)
		switch {
		case err != nil:
			log.Printf("[AUTOMATION] Automation %s fired by event %s failed: %v", a.ID(), event.ID(), err)
		case deferred:
			result.Deferred++
			metrics.AutomationFirings.WithLabelValues("deferred").Inc()
		default:
			result.Dispatched++
			metrics.AutomationFirings.WithLabelValues("immediate").Inc()
		}
	}
	return result, nil
}

// fire runs the automation's action. It reports whether the send was deferred.
func (uc *MatchEventUseCase) fire(ctx context.Context, a *entities.Automation) (bool, error) {
	action := a.Action()
	n, err := uc.notificationRepo.GetByID(ctx, action.NotificationID)
	if err != nil {
		var notFound entities.ErrNotFound
		if errors.As(err, &notFound) {
			return false, fmt.Errorf("bound notification %s no longer exists", action.NotificationID)
		}
		return false, err
	}
	if n.ProjectID() != a.ProjectID() {
		return false, fmt.Errorf("bound notification %s belongs to another project", n.ID())
	}

	audience := n.Audience()
	if override := a.Audience(); !override.IsEmpty() {
		audience = override
	}

	if delay := action.Delay(); delay > 0 {
		sendAt := uc.now().Add(delay)
		delayed := n.DelayedCopy(uuid.New().String(), sendAt, audience)
		if err := uc.notificationRepo.Create(ctx, delayed); err != nil {
			return false, fmt.Errorf("failed to schedule delayed copy: %w", err)
		}
		log.Printf("[AUTOMATION] Automation %s scheduled notification %s for %s", a.ID(), delayed.ID(), sendAt.Format(time.RFC3339))
		return true, nil
	}

	if _, err := uc.sender.Execute(ctx, notification.SendNotificationInput{
		NotificationID: n.ID(),
		Audience:       &audience,
	}); err != nil {
		return false, err
	}
	log.Printf("[AUTOMATION] Automation %s sent notification %s", a.ID(), n.ID())
	return false, nil
}

package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// ManageNotificationUseCase handles owner-facing notification reads, updates, deletes and manual sends
type ManageNotificationUseCase struct {
	projectRepo      repositories.ProjectRepository
	notificationRepo repositories.NotificationRepository
	sender           Sender
	now              func() time.Time
}

// NewManageNotificationUseCase creates a new ManageNotificationUseCase
func NewManageNotificationUseCase(projectRepo repositories.ProjectRepository, notificationRepo repositories.NotificationRepository, sender Sender) *ManageNotificationUseCase {
	return &ManageNotificationUseCase{
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		now:              time.Now,
	}
}

// List returns a project's notifications
func (uc *ManageNotificationUseCase) List(ctx context.Context, projectID, userID string) ([]*entities.Notification, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	notifications, err := uc.notificationRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// Get returns a notification whose project the user owns
func (uc *ManageNotificationUseCase) Get(ctx context.Context, notificationID, userID string) (*entities.Notification, error) {
	n, err := uc.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, n.ProjectID(), userID); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNotificationRequest represents a partial update. Nil fields keep their stored value.
// The notification type cannot change.
type UpdateNotificationRequest struct {
	NotificationID string
	UserID         string
	Content        ContentPatch
	ScheduledFor   *time.Time
	Audience       *entities.TargetAudience
	Recurring      *entities.Recurring
}

// ContentPatch carries the content fields to change. A nil Buttons keeps the
// stored buttons; an empty slice removes them.
type ContentPatch struct {
	Title   *string
	Message *string
	Icon    *string
	Image   *string
	Badge   *string
	URL     *string
	Buttons []entities.Button
}

func (p ContentPatch) apply(c entities.NotificationContent) entities.NotificationContent {
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{p.Title, &c.Title},
		{p.Message, &c.Message},
		{p.Icon, &c.Icon},
		{p.Image, &c.Image},
		{p.Badge, &c.Badge},
		{p.URL, &c.URL},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if p.Buttons != nil {
		c.Buttons = append([]entities.Button(nil), p.Buttons...)
	}
	return c
}

// Update changes the authored fields of a notification. The merged result is
// validated like a new notification. Changing the schedule of a recurring
// notification recomputes its next send date, and a rescheduled notification
// goes back to the scheduled status.
func (uc *ManageNotificationUseCase) Update(ctx context.Context, req *UpdateNotificationRequest) (*entities.Notification, error) {
	if req == nil {
		return nil, entities.ErrValidation{Message: "request is required"}
	}
	current, err := uc.Get(ctx, req.NotificationID, req.UserID)
	if err != nil {
		return nil, err
	}

	merged := &CreateNotificationRequest{
		ProjectID:    current.ProjectID(),
		UserID:       req.UserID,
		Content:      current.Content(),
		Type:         current.Type(),
		ScheduledFor: current.ScheduledFor(),
		Audience:     current.Audience(),
		Recurring:    current.Recurring(),
	}
	merged.Content = req.Content.apply(merged.Content)
	if req.ScheduledFor != nil {
		merged.ScheduledFor = req.ScheduledFor
	}
	if req.Audience != nil {
		merged.Audience = *req.Audience
	}
	if req.Recurring != nil {
		merged.Recurring = *req.Recurring
	}
	if err := validateNotification(merged, merged.Type); err != nil {
		return nil, err
	}

	rescheduled := req.ScheduledFor != nil || req.Recurring != nil
	recurring := merged.Recurring.Clone()
	switch {
	case merged.Type != entities.NotificationTypeRecurring:
		recurring.NextSendDate = nil
	case rescheduled:
		first, ok := entities.FirstOccurrence(merged.ScheduledFor, recurring.Frequency, recurring.EffectiveInterval(), uc.now())
		if !ok {
			return nil, entities.ErrValidation{Field: "recurring.frequency", Message: "cannot compute first occurrence"}
		}
		if recurring.IsExpired(first) {
			return nil, entities.ErrValidation{Field: "recurring.endDate", Message: "ends before the first occurrence"}
		}
		recurring.NextSendDate = &first
	default:
		recurring.NextSendDate = current.Recurring().NextSendDate
	}

	updated, err := uc.notificationRepo.Mutate(ctx, current.ID(), func(n *entities.Notification) error {
		if n.Status() == entities.NotificationStatusSending {
			return entities.ErrValidation{Field: "status", Message: "notification is being sent"}
		}
		status := n.Status()
		if rescheduled && (merged.Type == entities.NotificationTypeScheduled || recurring.Enabled) {
			status = entities.NotificationStatusScheduled
		}
		n.Revise(normalizeContent(merged.Content), merged.ScheduledFor, merged.Audience, recurring, status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[NOTIFICATION] Updated notification %s (status %s)", updated.ID(), updated.Status())
	return updated, nil
}

// Delete removes a notification. A dispatch in flight discards its counters.
func (uc *ManageNotificationUseCase) Delete(ctx context.Context, notificationID, userID string) error {
	if _, err := uc.Get(ctx, notificationID, userID); err != nil {
		return err
	}
	if err := uc.notificationRepo.Delete(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	log.Printf("[NOTIFICATION] Deleted notification %s", notificationID)
	return nil
}

// Send dispatches a notification now, whatever its type or schedule
func (uc *ManageNotificationUseCase) Send(ctx context.Context, notificationID, userID string) (*SendNotificationOutput, error) {
	if _, err := uc.Get(ctx, notificationID, userID); err != nil {
		return nil, err
	}
	return uc.sender.Execute(ctx, SendNotificationInput{NotificationID: notificationID})
}

// RecordClick counts a click reported by the service worker
func (uc *ManageNotificationUseCase) RecordClick(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return entities.ErrValidation{Field: "notificationId", Message: "is required"}
	}
	_, err := uc.notificationRepo.Mutate(ctx, notificationID, func(n *entities.Notification) error {
		n.RecordClick()
		return nil
	})
	return err
}

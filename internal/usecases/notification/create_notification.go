package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// Sender dispatches a stored notification
type Sender interface {
	Execute(ctx context.Context, input SendNotificationInput) (*SendNotificationOutput, error)
}

// CreateNotificationUseCase stores a notification and sends instant ones right away
type CreateNotificationUseCase struct {
	projectRepo      repositories.ProjectRepository
	notificationRepo repositories.NotificationRepository
	sender           Sender
	now              func() time.Time
}

// NewCreateNotificationUseCase creates a new CreateNotificationUseCase
func NewCreateNotificationUseCase(projectRepo repositories.ProjectRepository, notificationRepo repositories.NotificationRepository, sender Sender) *CreateNotificationUseCase {
	return &CreateNotificationUseCase{
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		now:              time.Now,
	}
}

// CreateNotificationRequest represents the input for creating a notification
type CreateNotificationRequest struct {
	ProjectID    string
	UserID       string
	Content      entities.NotificationContent
	Type         entities.NotificationType
	ScheduledFor *time.Time
	Audience     entities.TargetAudience
	Recurring    entities.Recurring
}

// CreateNotificationResponse represents the output of creating a notification.
// Result is set when the notification was sent as part of the request.
type CreateNotificationResponse struct {
	Notification *entities.Notification
	Result       *entities.DispatchResult
}

// Execute validates and stores the notification. Instant notifications are dispatched
// before returning, so the response carries their counters.
func (uc *CreateNotificationUseCase) Execute(ctx context.Context, req *CreateNotificationRequest) (*CreateNotificationResponse, error) {
	if req == nil {
		return nil, entities.ErrValidation{Message: "request is required"}
	}
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}

	notificationType := inferType(req)
	if err := validateNotification(req, notificationType); err != nil {
		return nil, err
	}

	now := uc.now()
	recurring := req.Recurring.Clone()
	recurring.NextSendDate = nil
	if notificationType == entities.NotificationTypeRecurring {
		first, ok := entities.FirstOccurrence(req.ScheduledFor, recurring.Frequency, recurring.EffectiveInterval(), now)
		if !ok {
			return nil, entities.ErrValidation{Field: "recurring.frequency", Message: "cannot compute first occurrence"}
		}
		if recurring.IsExpired(first) {
			return nil, entities.ErrValidation{Field: "recurring.endDate", Message: "ends before the first occurrence"}
		}
		recurring.NextSendDate = &first
	}

	status := entities.NotificationStatusDraft
	if notificationType == entities.NotificationTypeScheduled || recurring.Enabled {
		status = entities.NotificationStatusScheduled
	}

	n := entities.NewNotification(uuid.New().String(), req.ProjectID, normalizeContent(req.Content), notificationType,
		req.ScheduledFor, req.Audience, recurring, status)
	if err := uc.notificationRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}
	log.Printf("[NOTIFICATION] Created %s notification %s for project %s (status %s)", notificationType, n.ID(), n.ProjectID(), status)

	if notificationType != entities.NotificationTypeInstant {
		return &CreateNotificationResponse{Notification: n}, nil
	}

	output, err := uc.sender.Execute(ctx, SendNotificationInput{NotificationID: n.ID()})
	if err != nil {
		return nil, fmt.Errorf("notification %s was created but sending failed: %w", n.ID(), err)
	}
	resp := &CreateNotificationResponse{Notification: output.Notification, Result: &output.Result}
	if resp.Notification == nil {
		resp.Notification = n
	}
	return resp, nil
}

// inferType applies the defaults for a request without an explicit type:
// recurring when recurrence is enabled, instant otherwise
func inferType(req *CreateNotificationRequest) entities.NotificationType {
	if req.Type != "" {
		return req.Type
	}
	if req.Recurring.Enabled {
		return entities.NotificationTypeRecurring
	}
	return entities.NotificationTypeInstant
}

func validateNotification(req *CreateNotificationRequest, notificationType entities.NotificationType) error {
	if strings.TrimSpace(req.Content.Title) == "" {
		return entities.ErrValidation{Field: "title", Message: "is required"}
	}
	if strings.TrimSpace(req.Content.Message) == "" {
		return entities.ErrValidation{Field: "message", Message: "is required"}
	}
	if !notificationType.IsValid() {
		return entities.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown type %q", notificationType)}
	}
	if req.Recurring.Interval < 0 {
		return entities.ErrValidation{Field: "recurring.interval", Message: "must be at least 1"}
	}

	switch notificationType {
	case entities.NotificationTypeScheduled:
		if req.ScheduledFor == nil {
			return entities.ErrValidation{Field: "scheduledFor", Message: "is required for scheduled notifications"}
		}
	case entities.NotificationTypeRecurring:
		if !req.Recurring.Enabled {
			return entities.ErrValidation{Field: "recurring.enabled", Message: "must be true for recurring notifications"}
		}
		if !req.Recurring.Frequency.IsValid() {
			return entities.ErrValidation{Field: "recurring.frequency", Message: fmt.Sprintf("unknown frequency %q", req.Recurring.Frequency)}
		}
	}
	if req.Recurring.Enabled && notificationType != entities.NotificationTypeRecurring {
		return entities.ErrValidation{Field: "recurring.enabled", Message: fmt.Sprintf("recurrence is not allowed for %s notifications", notificationType)}
	}

	for i, b := range req.Content.Buttons {
		if b.Action == "" || b.Title == "" {
			return entities.ErrValidation{Field: fmt.Sprintf("buttons[%d]", i), Message: "action and title are required"}
		}
	}
	return nil
}

func normalizeContent(c entities.NotificationContent) entities.NotificationContent {
	c.Title = strings.TrimSpace(c.Title)
	c.Message = strings.TrimSpace(c.Message)
	return c
}

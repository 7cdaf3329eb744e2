package controllers

import (
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// --- Response DTOs ---

// ProjectResponse is the owner's view of a project. The VAPID private key is never returned.
type ProjectResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Domain         string                 `json:"domain"`
	Platform       string                 `json:"platform"`
	VAPIDPublicKey string                 `json:"vapidPublicKey"`
	VAPIDSubject   string                 `json:"vapidSubject"`
	APIKeys        []entities.APIKey      `json:"apiKeys"`
	PromptSettings map[string]interface{} `json:"promptSettings"`
	DNDSettings    entities.DNDSettings   `json:"dndSettings"`
	CreatedAt      string                 `json:"createdAt"`
	UpdatedAt      string                 `json:"updatedAt"`
}

// SubscriberResponse is the owner's view of a subscriber
type SubscriberResponse struct {
	ID                 string                     `json:"id"`
	ProjectID          string                     `json:"projectId"`
	Endpoint           string                     `json:"endpoint"`
	Profile            entities.SubscriberProfile `json:"profile"`
	Tags               []string                   `json:"tags"`
	Attributes         entities.Values            `json:"attributes"`
	IsActive           bool                       `json:"isActive"`
	SubscribedAt       string                     `json:"subscribedAt"`
	LastNotificationAt *string                    `json:"lastNotificationAt,omitempty"`
}

// NotificationResponse is the owner's view of a notification
type NotificationResponse struct {
	ID                     string                        `json:"id"`
	ProjectID              string                        `json:"projectId"`
	Content                entities.NotificationContent  `json:"content"`
	Type                   string                        `json:"type"`
	Status                 string                        `json:"status"`
	ScheduledFor           *string                       `json:"scheduledFor,omitempty"`
	TargetAudience         entities.TargetAudience       `json:"targetAudience"`
	Recurring              entities.Recurring            `json:"recurring"`
	Stats                  entities.NotificationCounters `json:"stats"`
	OriginalNotificationID string                        `json:"originalNotificationId,omitempty"`
	CreatedAt              string                        `json:"createdAt"`
	SentAt                 *string                       `json:"sentAt,omitempty"`
}

// AutomationResponse is the owner's view of an automation
type AutomationResponse struct {
	ID             string                  `json:"id"`
	ProjectID      string                  `json:"projectId"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Trigger        entities.Trigger        `json:"trigger"`
	Action         entities.Action         `json:"action"`
	TargetAudience entities.TargetAudience `json:"targetAudience"`
	IsActive       bool                    `json:"isActive"`
	TriggerCount   int                     `json:"triggerCount"`
	LastTriggered  *string                 `json:"lastTriggered,omitempty"`
	CreatedAt      string                  `json:"createdAt"`
}

// EventResponse is a stored event
type EventResponse struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"projectId"`
	SubscriberID string                 `json:"subscriberId,omitempty"`
	EventName    string                 `json:"eventName"`
	EventData    map[string]interface{} `json:"eventData"`
	URL          string                 `json:"url,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toProjectResponse(p *entities.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:             p.ID(),
		Name:           p.Name(),
		Domain:         p.Domain(),
		Platform:       string(p.Platform()),
		VAPIDPublicKey: p.VAPID().PublicKey,
		VAPIDSubject:   p.VAPID().Subject,
		APIKeys:        p.APIKeys(),
		PromptSettings: p.PromptSettings(),
		DNDSettings:    p.DNDSettings(),
		CreatedAt:      formatTime(p.CreatedAt()),
		UpdatedAt:      formatTime(p.UpdatedAt()),
	}
}

func toSubscriberResponse(s *entities.Subscriber) *SubscriberResponse {
	return &SubscriberResponse{
		ID:                 s.ID(),
		ProjectID:          s.ProjectID(),
		Endpoint:           s.Endpoint(),
		Profile:            s.Profile(),
		Tags:               s.Tags(),
		Attributes:         s.Attributes(),
		IsActive:           s.IsActive(),
		SubscribedAt:       formatTime(s.SubscribedAt()),
		LastNotificationAt: formatTimePtr(s.LastNotificationAt()),
	}
}

func toNotificationResponse(n *entities.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:                     n.ID(),
		ProjectID:              n.ProjectID(),
		Content:                n.Content(),
		Type:                   string(n.Type()),
		Status:                 string(n.Status()),
		ScheduledFor:           formatTimePtr(n.ScheduledFor()),
		TargetAudience:         n.Audience(),
		Recurring:              n.Recurring(),
		Stats:                  n.Counters(),
		OriginalNotificationID: n.OriginalNotificationID(),
		CreatedAt:              formatTime(n.CreatedAt()),
		SentAt:                 formatTimePtr(n.SentAt()),
	}
}

func toAutomationResponse(a *entities.Automation) *AutomationResponse {
	return &AutomationResponse{
		ID:             a.ID(),
		ProjectID:      a.ProjectID(),
		Name:           a.Name(),
		Description:    a.Description(),
		Trigger:        a.Trigger(),
		Action:         a.Action(),
		TargetAudience: a.Audience(),
		IsActive:       a.IsActive(),
		TriggerCount:   a.TriggerCount(),
		LastTriggered:  formatTimePtr(a.LastTriggered()),
		CreatedAt:      formatTime(a.CreatedAt()),
	}
}

func toEventResponse(e *entities.Event) *EventResponse {
	return &EventResponse{
		ID:           e.ID(),
		ProjectID:    e.ProjectID(),
		SubscriberID: e.SubscriberID(),
		EventName:    e.Name(),
		EventData:    e.Data(),
		URL:          e.URL(),
		Timestamp:    formatTime(e.Timestamp()),
	}
}

package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// projectJSON is the JSON representation of a project document
type projectJSON struct {
	ID             string                 `json:"id"`
	OwnerID        string                 `json:"ownerId"`
	Name           string                 `json:"name"`
	Domain         string                 `json:"domain"`
	Platform       entities.Platform      `json:"platform"`
	VAPID          entities.VAPIDKeys     `json:"vapidKeys"`
	APIKeys        []entities.APIKey      `json:"apiKeys"`
	PromptSettings map[string]interface{} `json:"promptSettings,omitempty"`
	DNDSettings    entities.DNDSettings   `json:"dndSettings"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// subscriberJSON is the JSON representation of a subscriber document.
// Browser and country are lifted to the top level so audience queries can index them.
type subscriberJSON struct {
	ID                 string                     `json:"id"`
	ProjectID          string                     `json:"projectId"`
	Endpoint           string                     `json:"endpoint"`
	Keys               entities.PushKeys          `json:"keys"`
	Profile            entities.SubscriberProfile `json:"profile"`
	Browser            string                     `json:"browser"`
	Country            string                     `json:"country"`
	Tags               []string                   `json:"tags"`
	Attributes         entities.Values            `json:"attributes"`
	Active             bool                       `json:"active"`
	SubscribedAt       time.Time                  `json:"subscribedAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
	LastNotificationAt *time.Time                 `json:"lastNotificationAt,omitempty"`
}

// notificationJSON is the JSON representation of a notification document
type notificationJSON struct {
	ID                     string                        `json:"id"`
	ProjectID              string                        `json:"projectId"`
	Content                entities.NotificationContent  `json:"content"`
	Type                   entities.NotificationType     `json:"type"`
	ScheduledFor           *time.Time                    `json:"scheduledFor,omitempty"`
	Audience               entities.TargetAudience       `json:"targetAudience"`
	Recurring              entities.Recurring            `json:"recurring"`
	Status                 entities.NotificationStatus   `json:"status"`
	Stats                  entities.NotificationCounters `json:"stats"`
	OriginalNotificationID string                        `json:"originalNotification,omitempty"`
	CreatedAt              time.Time                     `json:"createdAt"`
	UpdatedAt              time.Time                     `json:"updatedAt"`
	SentAt                 *time.Time                    `json:"sentAt,omitempty"`
}

// automationJSON is the JSON representation of an automation document
type automationJSON struct {
	ID            string                  `json:"id"`
	ProjectID     string                  `json:"projectId"`
	Name          string                  `json:"name"`
	Description   string                  `json:"description,omitempty"`
	Trigger       entities.Trigger        `json:"trigger"`
	Action        entities.Action         `json:"action"`
	Audience      entities.TargetAudience `json:"targetAudience"`
	Active        bool                    `json:"active"`
	LastTriggered *time.Time              `json:"lastTriggered,omitempty"`
	TriggerCount  int                     `json:"triggerCount"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// eventJSON is the JSON representation of an event document
type eventJSON struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"projectId"`
	SubscriberID string                 `json:"subscriberId,omitempty"`
	Name         string                 `json:"eventName"`
	Data         map[string]interface{} `json:"eventData,omitempty"`
	URL          string                 `json:"url,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

func projectToJSON(p *entities.Project) ([]byte, error) {
	return json.Marshal(projectJSON{
		ID:             p.ID(),
		OwnerID:        p.OwnerID(),
		Name:           p.Name(),
		Domain:         p.Domain(),
		Platform:       p.Platform(),
		VAPID:          p.VAPID(),
		APIKeys:        p.APIKeys(),
		PromptSettings: p.PromptSettings(),
		DNDSettings:    p.DNDSettings(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	})
}

func jsonToProject(data []byte) (*entities.Project, error) {
	var pj projectJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	p := entities.NewProject(pj.ID, pj.OwnerID, pj.Name, pj.Domain, pj.Platform, pj.VAPID, entities.APIKey{})
	p.SetAPIKeys(pj.APIKeys)
	if pj.PromptSettings != nil {
		p.SetPromptSettings(pj.PromptSettings)
	}
	p.SetDNDSettings(pj.DNDSettings)
	p.SetCreatedAt(pj.CreatedAt)
	p.SetUpdatedAt(pj.UpdatedAt)
	return p, nil
}

func subscriberToJSON(s *entities.Subscriber) ([]byte, error) {
	return json.Marshal(subscriberJSON{
		ID:                 s.ID(),
		ProjectID:          s.ProjectID(),
		Endpoint:           s.Endpoint(),
		Keys:               s.Keys(),
		Profile:            s.Profile(),
		Browser:            s.Browser(),
		Country:            s.Country(),
		Tags:               s.Tags(),
		Attributes:         s.Attributes(),
		Active:             s.IsActive(),
		SubscribedAt:       s.SubscribedAt(),
		UpdatedAt:          s.UpdatedAt(),
		LastNotificationAt: s.LastNotificationAt(),
	})
}

func jsonToSubscriber(data []byte) (*entities.Subscriber, error) {
	var sj subscriberJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return nil, fmt.Errorf("failed to decode subscriber: %w", err)
	}
	s := entities.NewSubscriber(sj.ID, sj.ProjectID, sj.Endpoint, sj.Keys, sj.Profile, sj.Tags, sj.Attributes)
	s.SetActive(sj.Active)
	s.SetSubscribedAt(sj.SubscribedAt)
	s.SetUpdatedAt(sj.UpdatedAt)
	s.SetLastNotificationAt(sj.LastNotificationAt)
	return s, nil
}

func notificationToJSON(n *entities.Notification) ([]byte, error) {
	return json.Marshal(notificationJSON{
		ID:                     n.ID(),
		ProjectID:              n.ProjectID(),
		Content:                n.Content(),
		Type:                   n.Type(),
		ScheduledFor:           n.ScheduledFor(),
		Audience:               n.Audience(),
		Recurring:              n.Recurring(),
		Status:                 n.Status(),
		Stats:                  n.Counters(),
		OriginalNotificationID: n.OriginalNotificationID(),
		CreatedAt:              n.CreatedAt(),
		UpdatedAt:              n.UpdatedAt(),
		SentAt:                 n.SentAt(),
	})
}

func jsonToNotification(data []byte) (*entities.Notification, error) {
	var nj notificationJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	n := entities.NewNotification(nj.ID, nj.ProjectID, nj.Content, nj.Type, nj.ScheduledFor, nj.Audience, nj.Recurring, nj.Status)
	n.SetCounters(nj.Stats)
	n.SetOriginalNotificationID(nj.OriginalNotificationID)
	n.SetCreatedAt(nj.CreatedAt)
	n.SetUpdatedAt(nj.UpdatedAt)
	n.SetSentAt(nj.SentAt)
	return n, nil
}

func automationToJSON(a *entities.Automation) ([]byte, error) {
	return json.Marshal(automationJSON{
		ID:            a.ID(),
		ProjectID:     a.ProjectID(),
		Name:          a.Name(),
		Description:   a.Description(),
		Trigger:       a.Trigger(),
		Action:        a.Action(),
		Audience:      a.Audience(),
		Active:        a.IsActive(),
		LastTriggered: a.LastTriggered(),
		TriggerCount:  a.TriggerCount(),
		CreatedAt:     a.CreatedAt(),
		UpdatedAt:     a.UpdatedAt(),
	})
}

func jsonToAutomation(data []byte) (*entities.Automation, error) {
	var aj automationJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return nil, fmt.Errorf("failed to decode automation: %w", err)
	}
	a := entities.NewAutomation(aj.ID, aj.ProjectID, aj.Name, aj.Description, aj.Trigger, aj.Action, aj.Audience)
	a.SetActive(aj.Active)
	a.SetTriggerStats(aj.TriggerCount, aj.LastTriggered)
	a.SetCreatedAt(aj.CreatedAt)
	a.SetUpdatedAt(aj.UpdatedAt)
	return a, nil
}

func eventToJSON(e *entities.Event) ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:           e.ID(),
		ProjectID:    e.ProjectID(),
		SubscriberID: e.SubscriberID(),
		Name:         e.Name(),
		Data:         e.Data(),
		URL:          e.URL(),
		Timestamp:    e.Timestamp(),
	})
}

func jsonToEvent(data []byte) (*entities.Event, error) {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return entities.NewEvent(ej.ID, ej.ProjectID, ej.SubscriberID, ej.Name, ej.Data, ej.URL, ej.Timestamp), nil
}

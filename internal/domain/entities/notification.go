package entities

import (
	"time"
)

// Default assets used when a notification does not carry its own
const (
	DefaultNotificationIcon = "/icon-192x192.png"
	DefaultNotificationURL  = "/"
)

// NotificationType represents how a notification is delivered
type NotificationType string

const (
	NotificationTypeInstant   NotificationType = "instant"
	NotificationTypeScheduled NotificationType = "scheduled"
	NotificationTypeTriggered NotificationType = "triggered"
	NotificationTypeRecurring NotificationType = "recurring"
)

// IsValid reports whether the type is known
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeInstant, NotificationTypeScheduled, NotificationTypeTriggered, NotificationTypeRecurring:
		return true
	}
	return false
}

// NotificationStatus represents the lifecycle state of a notification
type NotificationStatus string

const (
	NotificationStatusDraft     NotificationStatus = "draft"
	NotificationStatusScheduled NotificationStatus = "scheduled"
	NotificationStatusSending   NotificationStatus = "sending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// Button is an action button rendered with the notification
type Button struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// NotificationContent is the user-visible part of a notification
type NotificationContent struct {
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Icon    string   `json:"icon,omitempty"`
	Image   string   `json:"image,omitempty"`
	Badge   string   `json:"badge,omitempty"`
	URL     string   `json:"url,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// NotificationCounters are delivery statistics. They only ever grow.
type NotificationCounters struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Clicked   int `json:"clicked"`
	Failed    int `json:"failed"`
}

// DispatchResult is the outcome of one dispatch.
// Sent always equals Delivered plus Failed.
type DispatchResult struct {
	Sent        int `json:"sent"`
	Delivered   int `json:"delivered"`
	Failed      int `json:"failed"`
	Deactivated int `json:"deactivated"`
}

// Notification is a push message authored for a project
type Notification struct {
	id                     string
	projectID              string
	content                NotificationContent
	notificationType       NotificationType
	scheduledFor           *time.Time
	audience               TargetAudience
	recurring              Recurring
	status                 NotificationStatus
	counters               NotificationCounters
	originalNotificationID string
	createdAt              time.Time
	updatedAt              time.Time
	sentAt                 *time.Time
}

// NewNotification creates a notification in the given status
func NewNotification(id, projectID string, content NotificationContent, notificationType NotificationType, scheduledFor *time.Time, audience TargetAudience, recurring Recurring, status NotificationStatus) *Notification {
	now := time.Now()
	return &Notification{
		id:               id,
		projectID:        projectID,
		content:          content,
		notificationType: notificationType,
		scheduledFor:     cloneTime(scheduledFor),
		audience:         audience.Clone(),
		recurring:        recurring.Clone(),
		status:           status,
		createdAt:        now,
		updatedAt:        now,
	}
}

// ID returns the notification ID
func (n *Notification) ID() string { return n.id }

// ProjectID returns the owning project ID
func (n *Notification) ProjectID() string { return n.projectID }

// Content returns the user-visible fields
func (n *Notification) Content() NotificationContent { return n.content }

// Type returns the notification type
func (n *Notification) Type() NotificationType { return n.notificationType }

// ScheduledFor returns the one-time or first-occurrence send time
func (n *Notification) ScheduledFor() *time.Time { return cloneTime(n.scheduledFor) }

// Audience returns the target audience
func (n *Notification) Audience() TargetAudience { return n.audience.Clone() }

// Recurring returns the recurrence settings
func (n *Notification) Recurring() Recurring { return n.recurring.Clone() }

// Status returns the lifecycle status
func (n *Notification) Status() NotificationStatus { return n.status }

// Counters returns delivery statistics
func (n *Notification) Counters() NotificationCounters { return n.counters }

// OriginalNotificationID returns the source notification for delayed copies
func (n *Notification) OriginalNotificationID() string { return n.originalNotificationID }

// CreatedAt returns the creation timestamp
func (n *Notification) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns the last update timestamp
func (n *Notification) UpdatedAt() time.Time { return n.updatedAt }

// SentAt returns when the last dispatch completed
func (n *Notification) SentAt() *time.Time { return cloneTime(n.sentAt) }

// IsRecurring reports whether the notification repeats
func (n *Notification) IsRecurring() bool {
	return n.notificationType == NotificationTypeRecurring && n.recurring.Enabled
}

// RecurrenceBase returns the time the next occurrence is computed from
func (n *Notification) RecurrenceBase() *time.Time {
	if n.recurring.NextSendDate != nil {
		return cloneTime(n.recurring.NextSendDate)
	}
	return cloneTime(n.scheduledFor)
}

// IsDue reports whether the scheduler should send the notification at now
func (n *Notification) IsDue(now time.Time) bool {
	if n.IsRecurring() {
		if n.status != NotificationStatusScheduled && n.status != NotificationStatusSent {
			return false
		}
		if n.recurring.IsExpired(now) {
			return false
		}
		base := n.RecurrenceBase()
		return base != nil && !base.After(now)
	}
	if n.notificationType == NotificationTypeScheduled {
		return n.status == NotificationStatusScheduled && n.scheduledFor != nil && !n.scheduledFor.After(now)
	}
	return false
}

// PayloadIcon returns the icon with the default applied
func (n *Notification) PayloadIcon() string {
	if n.content.Icon == "" {
		return DefaultNotificationIcon
	}
	return n.content.Icon
}

// PayloadBadge returns the badge, falling back to the icon
func (n *Notification) PayloadBadge() string {
	if n.content.Badge != "" {
		return n.content.Badge
	}
	return n.PayloadIcon()
}

// PayloadURL returns the click-through URL with the default applied
func (n *Notification) PayloadURL() string {
	if n.content.URL == "" {
		return DefaultNotificationURL
	}
	return n.content.URL
}

// MarkSending moves the notification into the sending state
func (n *Notification) MarkSending() {
	n.status = NotificationStatusSending
	n.updatedAt = time.Now()
}

// MarkFailed moves the notification into the failed state
func (n *Notification) MarkFailed() {
	n.status = NotificationStatusFailed
	n.updatedAt = time.Now()
}

// RecordDelivery folds a dispatch result into the counters and marks the notification sent
func (n *Notification) RecordDelivery(result DispatchResult, at time.Time) {
	n.counters.Sent += result.Sent
	n.counters.Delivered += result.Delivered
	n.counters.Failed += result.Failed
	n.status = NotificationStatusSent
	n.sentAt = &at
	n.updatedAt = at
}

// ScheduleNext installs the next occurrence of a recurring notification.
// A nil next disables recurrence so the notification is not sent again.
func (n *Notification) ScheduleNext(next *time.Time) {
	if next == nil {
		n.recurring.Enabled = false
		n.recurring.NextSendDate = nil
	} else {
		n.recurring.NextSendDate = cloneTime(next)
		n.status = NotificationStatusScheduled
	}
	n.updatedAt = time.Now()
}

// Revise replaces the authored fields of the notification. Counters and
// delivery history are kept.
func (n *Notification) Revise(content NotificationContent, scheduledFor *time.Time, audience TargetAudience, recurring Recurring, status NotificationStatus) {
	n.content = content
	n.content.Buttons = append([]Button(nil), content.Buttons...)
	n.scheduledFor = cloneTime(scheduledFor)
	n.audience = audience.Clone()
	n.recurring = recurring.Clone()
	n.status = status
	n.updatedAt = time.Now()
}

// RecordClick increments the clicked counter
func (n *Notification) RecordClick() {
	n.counters.Clicked++
	n.updatedAt = time.Now()
}

// DelayedCopy returns a one-time scheduled copy of n to be sent at sendAt
func (n *Notification) DelayedCopy(id string, sendAt time.Time, audience TargetAudience) *Notification {
	c := NewNotification(id, n.projectID, n.content, NotificationTypeScheduled, &sendAt, audience, Recurring{}, NotificationStatusScheduled)
	c.content.Buttons = append([]Button(nil), n.content.Buttons...)
	c.originalNotificationID = n.id
	return c
}

// SetOriginalNotificationID sets the source notification (for deserialization only)
func (n *Notification) SetOriginalNotificationID(id string) { n.originalNotificationID = id }

// SetCounters sets the counters (for deserialization only)
func (n *Notification) SetCounters(c NotificationCounters) { n.counters = c }

// SetCreatedAt sets the createdAt field (for deserialization only)
func (n *Notification) SetCreatedAt(t time.Time) { n.createdAt = t }

// SetUpdatedAt sets the updatedAt field (for deserialization only)
func (n *Notification) SetUpdatedAt(t time.Time) { n.updatedAt = t }

// SetSentAt sets the sentAt field (for deserialization only)
func (n *Notification) SetSentAt(t *time.Time) { n.sentAt = cloneTime(t) }

// Clone returns a deep copy
func (n *Notification) Clone() *Notification {
	c := *n
	c.content.Buttons = append([]Button(nil), n.content.Buttons...)
	c.scheduledFor = cloneTime(n.scheduledFor)
	c.audience = n.audience.Clone()
	c.recurring = n.recurring.Clone()
	c.sentAt = cloneTime(n.sentAt)
	return &c
}

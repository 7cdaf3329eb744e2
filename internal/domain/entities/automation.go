package entities

import "time"

// TriggerType is what fires an automation
type TriggerType string

const (
	TriggerTypeEvent           TriggerType = "event"
	TriggerTypeTime            TriggerType = "time"
	TriggerTypeSubscriberCount TriggerType = "subscriber_count"
	TriggerTypeAPI             TriggerType = "api"
)

// IsValid reports whether the trigger type is known
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerTypeEvent, TriggerTypeTime, TriggerTypeSubscriberCount, TriggerTypeAPI:
		return true
	}
	return false
}

// Trigger describes when an automation fires
type Trigger struct {
	Type       TriggerType `json:"type"`
	EventName  string      `json:"eventName,omitempty"`
	Conditions Values      `json:"conditions,omitempty"`
}

// Matches reports whether an event fires the trigger.
// Conditions are a conjunction of typed equality checks against the event data;
// a trigger without conditions matches every event with its name.
func (t Trigger) Matches(eventName string, data map[string]interface{}) bool {
	if t.Type != TriggerTypeEvent || t.EventName != eventName {
		return false
	}
	if len(t.Conditions) == 0 {
		return true
	}
	return ValuesFromMap(data).Contains(t.Conditions)
}

// Action is what an automation does when it fires
type Action struct {
	NotificationID string `json:"notification"`
	DelayMinutes   int    `json:"delay"`
}

// Delay returns the configured delay as a duration
func (a Action) Delay() time.Duration {
	if a.DelayMinutes <= 0 {
		return 0
	}
	return time.Duration(a.DelayMinutes) * time.Minute
}

// Automation binds a trigger to a notification
type Automation struct {
	id            string
	projectID     string
	name          string
	description   string
	trigger       Trigger
	action        Action
	audience      TargetAudience
	active        bool
	lastTriggered *time.Time
	triggerCount  int
	createdAt     time.Time
	updatedAt     time.Time
}

// NewAutomation creates an active automation
func NewAutomation(id, projectID, name, description string, trigger Trigger, action Action, audience TargetAudience) *Automation {
	now := time.Now()
	trigger.Conditions = trigger.Conditions.Clone()
	return &Automation{
		id:          id,
		projectID:   projectID,
		name:        name,
		description: description,
		trigger:     trigger,
		action:      action,
		audience:    audience.Clone(),
		active:      true,
		createdAt:   now,
		updatedAt:   now,
	}
}

// ID returns the automation ID
func (a *Automation) ID() string { return a.id }

// ProjectID returns the owning project ID
func (a *Automation) ProjectID() string { return a.projectID }

// Name returns the display name
func (a *Automation) Name() string { return a.name }

// Description returns the free-form description
func (a *Automation) Description() string { return a.description }

// Trigger returns the trigger
func (a *Automation) Trigger() Trigger {
	t := a.trigger
	t.Conditions = t.Conditions.Clone()
	return t
}

// Action returns the action
func (a *Automation) Action() Action { return a.action }

// Audience returns the audience override. An empty audience means the
// bound notification's own audience applies.
func (a *Automation) Audience() TargetAudience { return a.audience.Clone() }

// IsActive reports whether the automation can fire
func (a *Automation) IsActive() bool { return a.active }

// LastTriggered returns the last firing time
func (a *Automation) LastTriggered() *time.Time { return cloneTime(a.lastTriggered) }

// TriggerCount returns how many times the automation fired
func (a *Automation) TriggerCount() int { return a.triggerCount }

// CreatedAt returns the creation timestamp
func (a *Automation) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last update timestamp
func (a *Automation) UpdatedAt() time.Time { return a.updatedAt }

// SetActive enables or disables the automation
func (a *Automation) SetActive(active bool) {
	a.active = active
	a.updatedAt = time.Now()
}

// Revise replaces the configuration of the automation. Firing statistics are kept.
func (a *Automation) Revise(name, description string, trigger Trigger, action Action, audience TargetAudience) {
	trigger.Conditions = trigger.Conditions.Clone()
	a.name = name
	a.description = description
	a.trigger = trigger
	a.action = action
	a.audience = audience.Clone()
	a.updatedAt = time.Now()
}

// RecordTrigger counts one firing
func (a *Automation) RecordTrigger(at time.Time) {
	a.triggerCount++
	a.lastTriggered = &at
	a.updatedAt = at
}

// SetTriggerStats sets the firing statistics (for deserialization only)
func (a *Automation) SetTriggerStats(count int, last *time.Time) {
	a.triggerCount = count
	a.lastTriggered = cloneTime(last)
}

// SetCreatedAt sets the createdAt field (for deserialization only)
func (a *Automation) SetCreatedAt(t time.Time) { a.createdAt = t }

// SetUpdatedAt sets the updatedAt field (for deserialization only)
func (a *Automation) SetUpdatedAt(t time.Time) { a.updatedAt = t }

// Clone returns a deep copy
func (a *Automation) Clone() *Automation {
	c := *a
	c.trigger.Conditions = a.trigger.Conditions.Clone()
	c.audience = a.audience.Clone()
	c.lastTriggered = cloneTime(a.lastTriggered)
	return &c
}

package entities

import "time"

// Event is a client-side occurrence reported by a project's site. Events are append-only.
type Event struct {
	id           string
	projectID    string
	subscriberID string
	name         string
	data         map[string]interface{}
	url          string
	timestamp    time.Time
}

// NewEvent creates an event recorded at timestamp
func NewEvent(id, projectID, subscriberID, name string, data map[string]interface{}, url string, timestamp time.Time) *Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Event{
		id:           id,
		projectID:    projectID,
		subscriberID: subscriberID,
		name:         name,
		data:         cloneData(data),
		url:          url,
		timestamp:    timestamp,
	}
}

// ID returns the event ID
func (e *Event) ID() string { return e.id }

// ProjectID returns the owning project ID
func (e *Event) ProjectID() string { return e.projectID }

// SubscriberID returns the reporting subscriber, if known
func (e *Event) SubscriberID() string { return e.subscriberID }

// Name returns the event name
func (e *Event) Name() string { return e.name }

// Data returns a shallow copy of the event payload
func (e *Event) Data() map[string]interface{} { return cloneData(e.data) }

// URL returns the page the event happened on
func (e *Event) URL() string { return e.url }

// Timestamp returns when the event happened
func (e *Event) Timestamp() time.Time { return e.timestamp }

func cloneData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

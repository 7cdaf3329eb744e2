package entities

import "time"

// PushKeys holds the browser-issued encryption keys of a push subscription
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// IsComplete reports whether both keys are present
func (k PushKeys) IsComplete() bool {
	return k.P256dh != "" && k.Auth != ""
}

// SubscriberProfile is descriptive client information captured at subscribe time
type SubscriberProfile struct {
	UserAgent string `json:"userAgent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Device    string `json:"device,omitempty"`
	Country   string `json:"country,omitempty"`
	State     string `json:"state,omitempty"`
	City      string `json:"city,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// Subscriber is one browser push subscription belonging to a project.
// The endpoint is unique across all projects.
type Subscriber struct {
	id                 string
	projectID          string
	endpoint           string
	keys               PushKeys
	profile            SubscriberProfile
	tags               []string
	attributes         Values
	active             bool
	subscribedAt       time.Time
	updatedAt          time.Time
	lastNotificationAt *time.Time
}

// NewSubscriber creates an active subscriber
func NewSubscriber(id, projectID, endpoint string, keys PushKeys, profile SubscriberProfile, tags []string, attributes Values) *Subscriber {
	now := time.Now()
	if tags == nil {
		tags = []string{}
	}
	if attributes == nil {
		attributes = Values{}
	}
	return &Subscriber{
		id:           id,
		projectID:    projectID,
		endpoint:     endpoint,
		keys:         keys,
		profile:      profile,
		tags:         cloneStrings(tags),
		attributes:   attributes.Clone(),
		active:       true,
		subscribedAt: now,
		updatedAt:    now,
	}
}

// ID returns the subscriber ID
func (s *Subscriber) ID() string { return s.id }

// ProjectID returns the owning project ID
func (s *Subscriber) ProjectID() string { return s.projectID }

// Endpoint returns the push service URL
func (s *Subscriber) Endpoint() string { return s.endpoint }

// Keys returns the push encryption keys
func (s *Subscriber) Keys() PushKeys { return s.keys }

// Profile returns the descriptive client information
func (s *Subscriber) Profile() SubscriberProfile { return s.profile }

// Browser returns the browser family
func (s *Subscriber) Browser() string { return s.profile.Browser }

// Country returns the country code
func (s *Subscriber) Country() string { return s.profile.Country }

// Tags returns a copy of the subscriber's tags
func (s *Subscriber) Tags() []string { return cloneStrings(s.tags) }

// Attributes returns a copy of the subscriber's typed attributes
func (s *Subscriber) Attributes() Values { return s.attributes.Clone() }

// IsActive reports whether the subscriber can receive pushes
func (s *Subscriber) IsActive() bool { return s.active }

// SubscribedAt returns the first subscription time
func (s *Subscriber) SubscribedAt() time.Time { return s.subscribedAt }

// UpdatedAt returns the last update time
func (s *Subscriber) UpdatedAt() time.Time { return s.updatedAt }

// LastNotificationAt returns when a push was last accepted for this subscriber
func (s *Subscriber) LastNotificationAt() *time.Time { return cloneTime(s.lastNotificationAt) }

// HasPushCredentials reports whether a push can be attempted at all
func (s *Subscriber) HasPushCredentials() bool {
	return s.endpoint != "" && s.keys.IsComplete()
}

// HasAnyTag reports whether the subscriber carries at least one of the given tags
func (s *Subscriber) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if containsString(s.tags, t) {
			return true
		}
	}
	return false
}

// Resubscribe refreshes an existing endpoint in place and reactivates it
func (s *Subscriber) Resubscribe(projectID string, keys PushKeys, profile SubscriberProfile, tags []string, attributes Values) {
	if tags == nil {
		tags = []string{}
	}
	if attributes == nil {
		attributes = Values{}
	}
	s.projectID = projectID
	s.keys = keys
	s.profile = profile
	s.tags = cloneStrings(tags)
	s.attributes = attributes.Clone()
	s.active = true
	s.updatedAt = time.Now()
}

// Deactivate soft-deletes the subscriber
func (s *Subscriber) Deactivate() {
	s.active = false
	s.updatedAt = time.Now()
}

// MarkNotified records an accepted push
func (s *Subscriber) MarkNotified(at time.Time) {
	s.lastNotificationAt = &at
	s.updatedAt = at
}

// SetSubscribedAt sets the subscribedAt field (for deserialization only)
func (s *Subscriber) SetSubscribedAt(t time.Time) { s.subscribedAt = t }

// SetUpdatedAt sets the updatedAt field (for deserialization only)
func (s *Subscriber) SetUpdatedAt(t time.Time) { s.updatedAt = t }

// SetActive sets the active flag (for deserialization only)
func (s *Subscriber) SetActive(active bool) { s.active = active }

// SetLastNotificationAt sets the lastNotificationAt field (for deserialization only)
func (s *Subscriber) SetLastNotificationAt(t *time.Time) { s.lastNotificationAt = cloneTime(t) }

// Clone returns a deep copy
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	c.tags = cloneStrings(s.tags)
	c.attributes = s.attributes.Clone()
	c.lastNotificationAt = cloneTime(s.lastNotificationAt)
	return &c
}

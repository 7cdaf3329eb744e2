package entities

import (
	"time"
)

// Platform is the kind of site a project is installed on
type Platform string

const (
	PlatformWebsite   Platform = "website"
	PlatformWordPress Platform = "wordpress"
	PlatformShopify   Platform = "shopify"
	PlatformOther     Platform = "other"
)

// IsValid reports whether the platform is known
func (p Platform) IsValid() bool {
	switch p {
	case PlatformWebsite, PlatformWordPress, PlatformShopify, PlatformOther:
		return true
	}
	return false
}

// VAPIDKeys is a project's Web Push signing identity.
// PrivateKey holds the encrypted form; PrivateKeyAlgorithm and PrivateKeyID
// describe how it was encrypted.
type VAPIDKeys struct {
	PublicKey           string `json:"publicKey"`
	PrivateKey          string `json:"privateKey"`
	PrivateKeyAlgorithm string `json:"privateKeyAlgorithm,omitempty"`
	PrivateKeyID        string `json:"privateKeyId,omitempty"`
	Subject             string `json:"subject"`
}

// APIKey authenticates event ingestion from a project's site
type APIKey struct {
	Key       string     `json:"key"`
	Name      string     `json:"name,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
}

// DNDSettings is the project's do-not-disturb policy. It is stored but not enforced.
type DNDSettings struct {
	Enabled          bool `json:"enabled"`
	MaxNotifications int  `json:"maxNotifications"`
}

// DefaultDNDSettings returns the policy applied to new projects
func DefaultDNDSettings() DNDSettings {
	return DNDSettings{Enabled: false, MaxNotifications: 5}
}

// Project is a website registered by an owner
type Project struct {
	id             string
	ownerID        string
	name           string
	domain         string
	platform       Platform
	vapid          VAPIDKeys
	apiKeys        []APIKey
	promptSettings map[string]interface{}
	dndSettings    DNDSettings
	createdAt      time.Time
	updatedAt      time.Time
}

// NewProject creates a project with its signing identity and first API key
func NewProject(id, ownerID, name, domain string, platform Platform, vapid VAPIDKeys, apiKey APIKey) *Project {
	now := time.Now()
	if platform == "" {
		platform = PlatformWebsite
	}
	return &Project{
		id:             id,
		ownerID:        ownerID,
		name:           name,
		domain:         domain,
		platform:       platform,
		vapid:          vapid,
		apiKeys:        []APIKey{apiKey},
		promptSettings: map[string]interface{}{},
		dndSettings:    DefaultDNDSettings(),
		createdAt:      now,
		updatedAt:      now,
	}
}

// ID returns the project ID
func (p *Project) ID() string { return p.id }

// OwnerID returns the owning user ID
func (p *Project) OwnerID() string { return p.ownerID }

// Name returns the display name
func (p *Project) Name() string { return p.name }

// Domain returns the site domain
func (p *Project) Domain() string { return p.domain }

// Platform returns the site platform
func (p *Project) Platform() Platform { return p.platform }

// VAPID returns the signing identity, with the private key still encrypted
func (p *Project) VAPID() VAPIDKeys { return p.vapid }

// APIKeys returns a copy of the project's API keys
func (p *Project) APIKeys() []APIKey {
	out := make([]APIKey, len(p.apiKeys))
	for i, k := range p.apiKeys {
		out[i] = k
		out[i].LastUsed = cloneTime(k.LastUsed)
	}
	return out
}

// PromptSettings returns the opaque subscribe prompt configuration
func (p *Project) PromptSettings() map[string]interface{} {
	out := make(map[string]interface{}, len(p.promptSettings))
	for k, v := range p.promptSettings {
		out[k] = v
	}
	return out
}

// DNDSettings returns the do-not-disturb policy
func (p *Project) DNDSettings() DNDSettings { return p.dndSettings }

// CreatedAt returns the creation timestamp
func (p *Project) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last update timestamp
func (p *Project) UpdatedAt() time.Time { return p.updatedAt }

// IsOwnedBy reports whether userID owns the project
func (p *Project) IsOwnedBy(userID string) bool {
	return p.ownerID != "" && p.ownerID == userID
}

// HasActiveAPIKey reports whether key is one of the project's active keys
func (p *Project) HasActiveAPIKey(key string) bool {
	for _, k := range p.apiKeys {
		if k.Active && k.Key == key {
			return true
		}
	}
	return false
}

// TouchAPIKey records a use of key
func (p *Project) TouchAPIKey(key string, at time.Time) bool {
	for i := range p.apiKeys {
		if p.apiKeys[i].Key == key {
			p.apiKeys[i].LastUsed = &at
			return true
		}
	}
	return false
}

// Rename updates the display fields
func (p *Project) Rename(name, domain string, platform Platform) {
	if name != "" {
		p.name = name
	}
	if domain != "" {
		p.domain = domain
	}
	if platform != "" {
		p.platform = platform
	}
	p.updatedAt = time.Now()
}

// SetPromptSettings replaces the prompt configuration
func (p *Project) SetPromptSettings(settings map[string]interface{}) {
	p.promptSettings = make(map[string]interface{}, len(settings))
	for k, v := range settings {
		p.promptSettings[k] = v
	}
	p.updatedAt = time.Now()
}

// SetDNDSettings replaces the do-not-disturb policy
func (p *Project) SetDNDSettings(settings DNDSettings) {
	p.dndSettings = settings
	p.updatedAt = time.Now()
}

// SetAPIKeys replaces the API keys (for deserialization only)
func (p *Project) SetAPIKeys(keys []APIKey) {
	p.apiKeys = make([]APIKey, len(keys))
	copy(p.apiKeys, keys)
}

// SetCreatedAt sets the createdAt field (for deserialization only)
func (p *Project) SetCreatedAt(t time.Time) { p.createdAt = t }

// SetUpdatedAt sets the updatedAt field (for deserialization only)
func (p *Project) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// Clone returns a deep copy
func (p *Project) Clone() *Project {
	c := *p
	c.apiKeys = p.APIKeys()
	c.promptSettings = p.PromptSettings()
	return &c
}

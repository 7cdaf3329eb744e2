package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// VAPIDConfig is the signing identity used for every push a Transport sends
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Validate checks that all parts of the identity are present
func (c VAPIDConfig) Validate() error {
	if c.PublicKey == "" || c.PrivateKey == "" || c.Subject == "" {
		return fmt.Errorf("VAPID configuration requires public key, private key and subject")
	}
	return nil
}

// Subscription is a push endpoint with its encryption keys
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// StatusError is returned when the push service rejects a message
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notification rejected with status %d", e.StatusCode)
}

// ShouldRemove reports whether the subscription is permanently gone
func (e *StatusError) ShouldRemove() bool {
	return e.StatusCode == http.StatusGone || e.StatusCode == http.StatusNotFound
}

// Payload is the JSON document the service worker receives
type Payload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
	Image   string `json:"image,omitempty"`
	URL     string `json:"url"`
	Badge   string `json:"badge"`
}

// Marshal encodes the payload
func (p Payload) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// TruncateEndpoint returns a shortened endpoint for logging
func TruncateEndpoint(endpoint string) string {
	if len(endpoint) > 50 {
		return endpoint[:50]
	}
	return endpoint
}

package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// TransportOptions tunes how messages are handed to push services
type TransportOptions struct {
	// TTL is how long, in seconds, the push service keeps an undelivered message
	TTL int
	// Urgency is one of "very-low", "low", "normal", "high"
	Urgency string
	// HTTPClient overrides the client used to reach push services
	HTTPClient *http.Client
}

// DefaultTransportOptions returns the options used when none are configured
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		TTL:     86400, // 24 hours
		Urgency: "normal",
	}
}

// Transport sends web push messages signed with one VAPID identity
type Transport struct {
	vapid   VAPIDConfig
	options TransportOptions
}

// NewTransport creates a transport bound to a signing identity
func NewTransport(vapid VAPIDConfig, options TransportOptions) (*Transport, error) {
	if err := vapid.Validate(); err != nil {
		return nil, err
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{vapid: vapid, options: options}, nil
}

// Send encrypts payload for the subscription and posts it to the push service.
// A non-2xx answer is returned as *StatusError.
func (t *Transport) Send(ctx context.Context, sub Subscription, payload []byte) error {
	webpushSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	options := &webpush.Options{
		HTTPClient:      t.options.HTTPClient,
		Subscriber:      t.vapid.Subject,
		VAPIDPublicKey:  t.vapid.PublicKey,
		VAPIDPrivateKey: t.vapid.PrivateKey,
		TTL:             t.options.TTL,
		Urgency:         parseUrgency(t.options.Urgency),
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, webpushSub, options)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// GenerateVAPIDKeys creates a new signing identity key pair
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}

func parseUrgency(urgency string) webpush.Urgency {
	switch urgency {
	case "very-low":
		return webpush.UrgencyVeryLow
	case "low":
		return webpush.UrgencyLow
	case "high":
		return webpush.UrgencyHigh
	default:
		return webpush.UrgencyNormal
	}
}

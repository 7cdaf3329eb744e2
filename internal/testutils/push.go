// Package testutils provides fakes shared by use case tests
package testutils

import (
	"context"
	"sync"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// FakeTransport records pushes and answers with a configured status per endpoint.
// Endpoints without a configured status are accepted.
type FakeTransport struct {
	mu       sync.Mutex
	statuses map[string]int
	sent     []string
	// OnSend runs before every push, outside the lock
	OnSend func(target services.PushTarget)
}

// NewFakeTransport creates a FakeTransport
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{statuses: make(map[string]int)}
}

// SetStatus makes pushes to endpoint fail with the HTTP status code
func (t *FakeTransport) SetStatus(endpoint string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[endpoint] = status
}

// Send implements services.PushTransport
func (t *FakeTransport) Send(ctx context.Context, target services.PushTarget, payload []byte) error {
	if t.OnSend != nil {
		t.OnSend(target)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, target.Endpoint)
	if status, ok := t.statuses[target.Endpoint]; ok && (status < 200 || status > 299) {
		return &services.PushError{StatusCode: status}
	}
	return nil
}

// Sent returns the endpoints pushed to so far
func (t *FakeTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// FakeTransportFactory hands out the same transport for every project
type FakeTransportFactory struct {
	Transport services.PushTransport
	Err       error
}

// ForProject implements services.PushTransportFactory
func (f *FakeTransportFactory) ForProject(ctx context.Context, project *entities.Project) (services.PushTransport, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Transport, nil
}

// RecordingRecorder keeps dispatch results in memory
type RecordingRecorder struct {
	mu      sync.Mutex
	Results map[string][]entities.DispatchResult
}

// RecordDispatch implements services.DispatchRecorder
func (r *RecordingRecorder) RecordDispatch(notificationID, projectID string, result entities.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Results == nil {
		r.Results = make(map[string][]entities.DispatchResult)
	}
	r.Results[notificationID] = append(r.Results[notificationID], result)
	return nil
}

// NewSubscriber returns an active subscriber with complete push credentials
func NewSubscriber(id, projectID string, profile entities.SubscriberProfile, tags ...string) *entities.Subscriber {
	return entities.NewSubscriber(id, projectID, Endpoint(id),
		entities.PushKeys{P256dh: "p256dh-" + id, Auth: "auth-" + id}, profile, tags, entities.Values{})
}

// Endpoint is the push endpoint NewSubscriber assigns to id
func Endpoint(id string) string {
	return "https://push.example.com/" + id
}

// NewProject returns a project owned by ownerID with plaintext VAPID keys
func NewProject(id, ownerID string) *entities.Project {
	return entities.NewProject(id, ownerID, "Shop", "shop.example.com", entities.PlatformWebsite,
		entities.VAPIDKeys{PublicKey: "public", PrivateKey: "private", Subject: "mailto:owner@example.com"},
		entities.APIKey{Key: "key-" + id, Name: "default", Active: true})
}

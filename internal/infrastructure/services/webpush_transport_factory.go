package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	domainservices "github.com/takutakahashi/pushnotify/internal/domain/services"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	pushpkg "github.com/takutakahashi/pushnotify/pkg/notification"
)

// WebPushTransportFactory builds Web Push transports signed with a project's VAPID keys
type WebPushTransportFactory struct {
	encryption domainservices.EncryptionService
	options    pushpkg.TransportOptions
}

// NewWebPushTransportFactory creates a new WebPushTransportFactory
func NewWebPushTransportFactory(encryption domainservices.EncryptionService, options pushpkg.TransportOptions) *WebPushTransportFactory {
	return &WebPushTransportFactory{encryption: encryption, options: options}
}

// ForProject opens the project's private key and returns a transport bound to it
func (f *WebPushTransportFactory) ForProject(ctx context.Context, project *entities.Project) (services.PushTransport, error) {
	keys := project.VAPID()
	privateKey, err := domainservices.OpenVAPIDPrivateKey(ctx, f.encryption, keys)
	if err != nil {
		return nil, err
	}

	transport, err := pushpkg.NewTransport(pushpkg.VAPIDConfig{
		PublicKey:  keys.PublicKey,
		PrivateKey: privateKey,
		Subject:    keys.Subject,
	}, f.options)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID keys for project %s: %w", project.ID(), err)
	}
	return &webPushTransport{transport: transport}, nil
}

// webPushTransport adapts the push package to the PushTransport port
type webPushTransport struct {
	transport *pushpkg.Transport
}

func (t *webPushTransport) Send(ctx context.Context, target services.PushTarget, payload []byte) error {
	err := t.transport.Send(ctx, pushpkg.Subscription{
		Endpoint: target.Endpoint,
		P256dh:   target.Keys.P256dh,
		Auth:     target.Keys.Auth,
	}, payload)

	var statusErr *pushpkg.StatusError
	if errors.As(err, &statusErr) {
		return &services.PushError{StatusCode: statusErr.StatusCode, Body: statusErr.Body}
	}
	return err
}

// VAPIDKeyGenerator generates P-256 VAPID key pairs
type VAPIDKeyGenerator struct{}

// NewVAPIDKeyGenerator creates a new VAPIDKeyGenerator
func NewVAPIDKeyGenerator() *VAPIDKeyGenerator {
	return &VAPIDKeyGenerator{}
}

// Generate returns a fresh public and private key pair
func (g *VAPIDKeyGenerator) Generate() (publicKey, privateKey string, err error) {
	return pushpkg.GenerateVAPIDKeys()
}

var (
	_ services.PushTransportFactory = (*WebPushTransportFactory)(nil)
	_ services.VAPIDKeyGenerator    = (*VAPIDKeyGenerator)(nil)
)

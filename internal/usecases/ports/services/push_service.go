package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
)

// PushTarget is the address and keys of one push subscription
type PushTarget struct {
	Endpoint string
	Keys     entities.PushKeys
}

// PushError is returned when the push service answered with a non-2xx status
type PushError struct {
	StatusCode int
	Body       string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("notification rejected with status %d", e.StatusCode)
}

// Gone reports whether the push service says the subscription no longer exists
func (e *PushError) Gone() bool {
	return e.StatusCode == http.StatusGone || e.StatusCode == http.StatusNotFound
}

// PushTransport delivers an encrypted payload to one endpoint.
// It is bound to a single project's signing identity.
type PushTransport interface {
	Send(ctx context.Context, target PushTarget, payload []byte) error
}

// PushTransportFactory builds the transport signed with a project's VAPID keys
type PushTransportFactory interface {
	ForProject(ctx context.Context, project *entities.Project) (PushTransport, error)
}

// VAPIDKeyGenerator creates new signing identities for projects
type VAPIDKeyGenerator interface {
	// Generate returns a fresh public and private key pair
	Generate() (publicKey, privateKey string, err error)
}

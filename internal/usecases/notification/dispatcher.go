package notification

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// DispatcherConfig tunes the push fan-out
type DispatcherConfig struct {
	// Concurrency caps the number of sends in flight for one dispatch
	Concurrency int
	// SendTimeout bounds a single push attempt
	SendTimeout time.Duration
}

// DefaultDispatcherConfig returns the default fan-out settings
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Concurrency: 100,
		SendTimeout: 10 * time.Second,
	}
}

// OutcomeStatus is the result class of one push attempt
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeFailed    OutcomeStatus = "failed"
	// OutcomeGone is a failure after which the subscriber must be deactivated
	OutcomeGone OutcomeStatus = "gone"
)

// Outcome is the result of pushing to one subscriber
type Outcome struct {
	SubscriberID string
	Status       OutcomeStatus
	Err          error
}

// Dispatcher fans a payload out to subscribers through a project's transport
type Dispatcher struct {
	config DispatcherConfig
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Concurrency < 1 {
		config.Concurrency = DefaultDispatcherConfig().Concurrency
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultDispatcherConfig().SendTimeout
	}
	return &Dispatcher{config: config}
}

// Dispatch sends payload to every subscriber and returns one outcome per subscriber,
// in input order. It returns only after every send has finished.
// Per-subscriber failures are reported in the outcomes, never as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, transport services.PushTransport, payload []byte, subscribers []*entities.Subscriber) []Outcome {
	outcomes := make([]Outcome, len(subscribers))

	var g errgroup.Group
	g.SetLimit(d.config.Concurrency)

	for i, sub := range subscribers {
		g.Go(func() error {
			outcomes[i] = d.sendOne(ctx, transport, payload, sub)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, transport services.PushTransport, payload []byte, sub *entities.Subscriber) Outcome {
	outcome := Outcome{SubscriberID: sub.ID()}

	if !sub.HasPushCredentials() {
		outcome.Status = OutcomeFailed
		outcome.Err = errors.New("subscriber has no endpoint or keys")
		return outcome
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.config.SendTimeout)
	defer cancel()

	err := transport.Send(sendCtx, services.PushTarget{Endpoint: sub.Endpoint(), Keys: sub.Keys()}, payload)
	if err == nil {
		outcome.Status = OutcomeDelivered
		return outcome
	}

	outcome.Err = err
	var pushErr *services.PushError
	if errors.As(err, &pushErr) && pushErr.Gone() {
		outcome.Status = OutcomeGone
	} else {
		outcome.Status = OutcomeFailed
	}
	log.Printf("[DISPATCH] Push to subscriber %s failed: %v", sub.ID(), err)
	return outcome
}

// Aggregate sums outcomes into a dispatch result
func Aggregate(outcomes []Outcome) entities.DispatchResult {
	var result entities.DispatchResult
	for _, o := range outcomes {
		result.Sent++
		switch o.Status {
		case OutcomeDelivered:
			result.Delivered++
		case OutcomeGone:
			result.Failed++
			result.Deactivated++
		default:
			result.Failed++
		}
	}
	return result
}

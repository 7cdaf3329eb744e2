package event

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/automation"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
	"github.com/takutakahashi/pushnotify/pkg/metrics"
)

// APIKeyAuthenticator resolves the project an API key belongs to
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, key string) (*entities.Project, error)
}

// Matcher fires the automations listening for an event
type Matcher interface {
	OnEvent(ctx context.Context, event *entities.Event) (*automation.MatchResult, error)
}

// TrackEventUseCase ingests events reported by a project's site
type TrackEventUseCase struct {
	auth      APIKeyAuthenticator
	eventRepo repositories.EventRepository
	publisher services.EventPublisher
	matcher   Matcher
	now       func() time.Time
}

// NewTrackEventUseCase creates a new TrackEventUseCase
func NewTrackEventUseCase(auth APIKeyAuthenticator, eventRepo repositories.EventRepository, publisher services.EventPublisher, matcher Matcher) *TrackEventUseCase {
	return &TrackEventUseCase{
		auth:      auth,
		eventRepo: eventRepo,
		publisher: publisher,
		matcher:   matcher,
		now:       time.Now,
	}
}

// TrackEventRequest represents an event reported with a project API key.
// Timestamp is the client-reported event time; ingest time is used when it is nil.
type TrackEventRequest struct {
	APIKey       string
	Name         string
	Data         map[string]interface{}
	Timestamp    *time.Time
	URL          string
	SubscriberID string
}

// TrackEventResponse represents the stored event and the automations it fired
type TrackEventResponse struct {
	Event *entities.Event
	Match *automation.MatchResult
}

// Execute stores the event, forwards it to the publisher and fires matching automations.
// Publisher and automation failures are logged; the event is stored either way.
func (uc *TrackEventUseCase) Execute(ctx context.Context, req *TrackEventRequest) (*TrackEventResponse, error) {
	if req == nil {
		return nil, entities.ErrValidation{Message: "request is required"}
	}
	p, err := uc.auth.AuthenticateAPIKey(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entities.ErrValidation{Field: "eventName", Message: "is required"}
	}

	at := uc.now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		at = *req.Timestamp
	}
	e := entities.NewEvent(uuid.New().String(), p.ID(), req.SubscriberID, name, req.Data, req.URL, at)
	if err := uc.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}
	metrics.EventsTracked.Inc()

	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, e); err != nil {
			log.Printf("[EVENTS] Failed to publish event %s: %v", e.ID(), err)
		}
	}

	resp := &TrackEventResponse{Event: e, Match: &automation.MatchResult{}}
	if uc.matcher != nil {
		match, err := uc.matcher.OnEvent(ctx, e)
		if err != nil {
			log.Printf("[EVENTS] Failed to match automations for event %s: %v", e.ID(), err)
		} else {
			resp.Match = match
		}
	}
	return resp, nil
}

// ListEventsUseCase returns a project's tracked events
type ListEventsUseCase struct {
	projectRepo repositories.ProjectRepository
	eventRepo   repositories.EventRepository
}

// NewListEventsUseCase creates a new ListEventsUseCase
func NewListEventsUseCase(projectRepo repositories.ProjectRepository, eventRepo repositories.EventRepository) *ListEventsUseCase {
	return &ListEventsUseCase{projectRepo: projectRepo, eventRepo: eventRepo}
}

// Execute lists events of a project the user owns. A zero limit uses the default.
func (uc *ListEventsUseCase) Execute(ctx context.Context, userID string, filter repositories.EventFilter) ([]*entities.Event, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, filter.ProjectID, userID); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, entities.ErrValidation{Field: "limit", Message: "must not be negative"}
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return nil, entities.ErrValidation{Field: "endDate", Message: "must not be before startDate"}
	}
	events, err := uc.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

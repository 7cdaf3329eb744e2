package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	pushpkg "github.com/takutakahashi/pushnotify/pkg/notification"
)

// SubscribeUseCase registers browser push subscriptions
type SubscribeUseCase struct {
	projectRepo    repositories.ProjectRepository
	subscriberRepo repositories.SubscriberRepository
}

// NewSubscribeUseCase creates a new SubscribeUseCase
func NewSubscribeUseCase(projectRepo repositories.ProjectRepository, subscriberRepo repositories.SubscriberRepository) *SubscribeUseCase {
	return &SubscribeUseCase{
		projectRepo:    projectRepo,
		subscriberRepo: subscriberRepo,
	}
}

// SubscribeRequest represents a push subscription handed over by a browser
type SubscribeRequest struct {
	ProjectID  string
	Endpoint   string
	Keys       entities.PushKeys
	Profile    entities.SubscriberProfile
	Tags       []string
	Attributes entities.Values
}

// SubscribeResponse represents the stored subscriber.
// Created is false when an existing endpoint was refreshed.
type SubscribeResponse struct {
	Subscriber *entities.Subscriber
	Created    bool
}

// Execute upserts the subscription by endpoint. Browser, OS and device missing
// from the profile are derived from the User-Agent.
func (uc *SubscribeUseCase) Execute(ctx context.Context, req *SubscribeRequest) (*SubscribeResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := uc.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	profile := withDetectedClient(req.Profile)
	tags := normalizeTags(req.Tags)

	existing, err := uc.subscriberRepo.GetByEndpoint(ctx, req.Endpoint)
	var notFound entities.ErrNotFound
	switch {
	case err == nil:
		existing.Resubscribe(req.ProjectID, req.Keys, profile, tags, req.Attributes)
		if err := uc.subscriberRepo.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update subscriber: %w", err)
		}
		log.Printf("[SUBSCRIBER] Refreshed subscriber %s for project %s (%s)", existing.ID(), req.ProjectID, pushpkg.TruncateEndpoint(req.Endpoint))
		return &SubscribeResponse{Subscriber: existing}, nil
	case errors.As(err, &notFound):
	default:
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	s := entities.NewSubscriber(uuid.New().String(), req.ProjectID, req.Endpoint, req.Keys, profile, tags, req.Attributes)
	if err := uc.subscriberRepo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save subscriber: %w", err)
	}
	log.Printf("[SUBSCRIBER] New subscriber %s for project %s (%s)", s.ID(), req.ProjectID, pushpkg.TruncateEndpoint(req.Endpoint))
	return &SubscribeResponse{Subscriber: s, Created: true}, nil
}

func validateRequest(req *SubscribeRequest) error {
	if req == nil {
		return entities.ErrValidation{Message: "request is required"}
	}
	if req.ProjectID == "" {
		return entities.ErrValidation{Field: "projectId", Message: "is required"}
	}
	if req.Endpoint == "" {
		return entities.ErrValidation{Field: "endpoint", Message: "is required"}
	}
	u, err := url.Parse(req.Endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return entities.ErrValidation{Field: "endpoint", Message: "must be an absolute http(s) URL"}
	}
	if req.Keys.P256dh == "" {
		return entities.ErrValidation{Field: "keys.p256dh", Message: "is required"}
	}
	if req.Keys.Auth == "" {
		return entities.ErrValidation{Field: "keys.auth", Message: "is required"}
	}
	return nil
}

func withDetectedClient(profile entities.SubscriberProfile) entities.SubscriberProfile {
	detected := pushpkg.DetectClient(profile.UserAgent)
	if profile.Browser == "" {
		profile.Browser = detected.Browser
	}
	if profile.OS == "" {
		profile.OS = detected.OS
	}
	if profile.Device == "" {
		profile.Device = detected.Device
	}
	return profile
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UnsubscribeUseCase deactivates push subscriptions
type UnsubscribeUseCase struct {
	subscriberRepo repositories.SubscriberRepository
}

// NewUnsubscribeUseCase creates a new UnsubscribeUseCase
func NewUnsubscribeUseCase(subscriberRepo repositories.SubscriberRepository) *UnsubscribeUseCase {
	return &UnsubscribeUseCase{subscriberRepo: subscriberRepo}
}

// Execute deactivates the subscriber holding endpoint.
// Unknown or already inactive endpoints succeed without change.
func (uc *UnsubscribeUseCase) Execute(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return entities.ErrValidation{Field: "endpoint", Message: "is required"}
	}
	s, err := uc.subscriberRepo.GetByEndpoint(ctx, endpoint)
	if err != nil {
		var notFound entities.ErrNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if !s.IsActive() {
		return nil
	}
	if err := uc.subscriberRepo.Deactivate(ctx, s.ID()); err != nil {
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	log.Printf("[SUBSCRIBER] Unsubscribed %s", s.ID())
	return nil
}

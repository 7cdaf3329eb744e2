package targeting

import (
	"context"
	"fmt"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// ResolveAudienceUseCase turns an audience filter into the concrete subscribers to push to
type ResolveAudienceUseCase struct {
	subscriberRepo repositories.SubscriberRepository
}

// NewResolveAudienceUseCase creates a new ResolveAudienceUseCase
func NewResolveAudienceUseCase(subscriberRepo repositories.SubscriberRepository) *ResolveAudienceUseCase {
	return &ResolveAudienceUseCase{subscriberRepo: subscriberRepo}
}

// Execute returns the project's active subscribers inside the audience.
// An audience that matches nobody yields an empty slice, not an error.
func (uc *ResolveAudienceUseCase) Execute(ctx context.Context, projectID string, audience entities.TargetAudience) ([]*entities.Subscriber, error) {
	if projectID == "" {
		return nil, entities.ErrValidation{Field: "projectId", Message: "is required"}
	}

	subscribers, err := uc.subscriberRepo.FindByAudience(ctx, projectID, normalize(audience))
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	if subscribers == nil {
		subscribers = []*entities.Subscriber{}
	}
	return subscribers, nil
}

// normalize drops blank entries so that a dimension holding only empty strings imposes no constraint
func normalize(a entities.TargetAudience) entities.TargetAudience {
	out := entities.TargetAudience{
		Browsers:   compact(a.Browsers),
		Countries:  compact(a.Countries),
		Tags:       compact(a.Tags),
		Attributes: entities.Values{},
	}
	for k, v := range a.Attributes {
		if k != "" && !v.IsZero() {
			out.Attributes[k] = v
		}
	}
	return out
}

func compact(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// MemorySubscriberRepository implements SubscriberRepository using in-memory storage
type MemorySubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[string]*entities.Subscriber
	byEndpoint  map[string]string
}

// NewMemorySubscriberRepository creates a new MemorySubscriberRepository
func NewMemorySubscriberRepository() *MemorySubscriberRepository {
	return &MemorySubscriberRepository{
		subscribers: make(map[string]*entities.Subscriber),
		byEndpoint:  make(map[string]string),
	}
}

// Save inserts or replaces a subscriber, keeping the endpoint index unique
func (r *MemorySubscriberRepository) Save(ctx context.Context, subscriber *entities.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byEndpoint[subscriber.Endpoint()]; ok && existingID != subscriber.ID() {
		delete(r.subscribers, existingID)
	}
	if previous, ok := r.subscribers[subscriber.ID()]; ok && previous.Endpoint() != subscriber.Endpoint() {
		delete(r.byEndpoint, previous.Endpoint())
	}

	r.subscribers[subscriber.ID()] = subscriber.Clone()
	r.byEndpoint[subscriber.Endpoint()] = subscriber.ID()
	return nil
}

// GetByID retrieves a subscriber by its ID
func (r *MemorySubscriberRepository) GetByID(ctx context.Context, id string) (*entities.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subscribers[id]
	if !ok {
		return nil, entities.ErrNotFound{Kind: entities.KindSubscriber, ID: id}
	}
	return s.Clone(), nil
}

// GetByEndpoint retrieves a subscriber by push endpoint
func (r *MemorySubscriberRepository) GetByEndpoint(ctx context.Context, endpoint string) (*entities.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEndpoint[endpoint]
	if !ok {
		return nil, entities.ErrNotFound{Kind: entities.KindSubscriber, ID: endpoint}
	}
	return r.subscribers[id].Clone(), nil
}

// FindByAudience returns the project's active subscribers inside the audience
func (r *MemorySubscriberRepository) FindByAudience(ctx context.Context, projectID string, audience entities.TargetAudience) ([]*entities.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Subscriber{}
	for _, s := range r.subscribers {
		if s.ProjectID() != projectID || !s.IsActive() {
			continue
		}
		if audience.Matches(s) {
			result = append(result, s.Clone())
		}
	}
	sortSubscribers(result)
	return result, nil
}

// List returns subscribers matching the filter, newest first
func (r *MemorySubscriberRepository) List(ctx context.Context, filter repositories.SubscriberFilter) ([]*entities.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Subscriber{}
	for _, s := range r.subscribers {
		if filter.ProjectID != "" && s.ProjectID() != filter.ProjectID {
			continue
		}
		if filter.Active != nil && s.IsActive() != *filter.Active {
			continue
		}
		result = append(result, s.Clone())
	}
	sortSubscribers(result)

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*entities.Subscriber{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Deactivate soft-deletes a subscriber
func (r *MemorySubscriberRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subscribers[id]
	if !ok {
		return entities.ErrNotFound{Kind: entities.KindSubscriber, ID: id}
	}
	s.Deactivate()
	return nil
}

// MarkNotified records an accepted push
func (r *MemorySubscriberRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subscribers[id]
	if !ok {
		return entities.ErrNotFound{Kind: entities.KindSubscriber, ID: id}
	}
	s.MarkNotified(at)
	return nil
}

// Stats returns the project's subscriber breakdown
func (r *MemorySubscriberRepository) Stats(ctx context.Context, projectID string) (*repositories.SubscriberStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &repositories.SubscriberStats{}
	browsers := map[string]int{}
	countries := map[string]int{}
	for _, s := range r.subscribers {
		if s.ProjectID() != projectID {
			continue
		}
		stats.Total++
		if s.IsActive() {
			stats.Active++
		}
		browsers[s.Browser()]++
		countries[s.Country()]++
	}
	stats.Inactive = stats.Total - stats.Active
	stats.BrowserStats = buckets(browsers)
	stats.CountryStats = buckets(countries)
	return stats, nil
}

func buckets(counts map[string]int) []repositories.CountBucket {
	out := make([]repositories.CountBucket, 0, len(counts))
	for k, c := range counts {
		out = append(out, repositories.CountBucket{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func sortSubscribers(subs []*entities.Subscriber) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubscribedAt().Equal(subs[j].SubscribedAt()) {
			return subs[i].SubscribedAt().After(subs[j].SubscribedAt())
		}
		return subs[i].ID() < subs[j].ID()
	})
}

var _ repositories.SubscriberRepository = (*MemorySubscriberRepository)(nil)

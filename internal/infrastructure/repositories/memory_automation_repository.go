package repositories

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// MemoryAutomationRepository implements AutomationRepository using in-memory storage
type MemoryAutomationRepository struct {
	mu          sync.RWMutex
	automations map[string]*entities.Automation
}

// NewMemoryAutomationRepository creates a new MemoryAutomationRepository
func NewMemoryAutomationRepository() *MemoryAutomationRepository {
	return &MemoryAutomationRepository{
		automations: make(map[string]*entities.Automation),
	}
}

// Create persists a new automation
func (r *MemoryAutomationRepository) Create(ctx context.Context, automation *entities.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.automations[automation.ID()]; exists {
		return errors.New("automation already exists")
	}
	r.automations[automation.ID()] = automation.Clone()
	return nil
}

// GetByID retrieves an automation by its ID
func (r *MemoryAutomationRepository) GetByID(ctx context.Context, id string) (*entities.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.automations[id]
	if !exists {
		return nil, entities.ErrNotFound{Kind: entities.KindAutomation, ID: id}
	}
	return a.Clone(), nil
}

// ListByProject retrieves a project's automations, newest first
func (r *MemoryAutomationRepository) ListByProject(ctx context.Context, projectID string) ([]*entities.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Automation{}
	for _, a := range r.automations {
		if a.ProjectID() == projectID {
			result = append(result, a.Clone())
		}
	}
	sortAutomations(result)
	return result, nil
}

// FindEventTriggered returns active event automations of a project listening for eventName
func (r *MemoryAutomationRepository) FindEventTriggered(ctx context.Context, projectID, eventName string) ([]*entities.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*entities.Automation{}
	for _, a := range r.automations {
		if a.ProjectID() != projectID || !a.IsActive() {
			continue
		}
		t := a.Trigger()
		if t.Type == entities.TriggerTypeEvent && t.EventName == eventName {
			result = append(result, a.Clone())
		}
	}
	sortAutomations(result)
	return result, nil
}

// Update replaces a stored automation, keeping its trigger statistics
func (r *MemoryAutomationRepository) Update(ctx context.Context, automation *entities.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.automations[automation.ID()]
	if !exists {
		return entities.ErrNotFound{Kind: entities.KindAutomation, ID: automation.ID()}
	}
	updated := automation.Clone()
	updated.SetTriggerStats(stored.TriggerCount(), stored.LastTriggered())
	r.automations[automation.ID()] = updated
	return nil
}

// RecordTrigger increments the trigger count under the write lock
func (r *MemoryAutomationRepository) RecordTrigger(ctx context.Context, id string, at time.Time) (*entities.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.automations[id]
	if !exists {
		return nil, entities.ErrNotFound{Kind: entities.KindAutomation, ID: id}
	}
	a.RecordTrigger(at)
	return a.Clone(), nil
}

// Delete removes an automation
func (r *MemoryAutomationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.automations[id]; !exists {
		return entities.ErrNotFound{Kind: entities.KindAutomation, ID: id}
	}
	delete(r.automations, id)
	return nil
}

func sortAutomations(list []*entities.Automation) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt().Equal(list[j].CreatedAt()) {
			return list[i].CreatedAt().After(list[j].CreatedAt())
		}
		return list[i].ID() < list[j].ID()
	})
}

var _ repositories.AutomationRepository = (*MemoryAutomationRepository)(nil)

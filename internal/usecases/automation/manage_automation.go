package automation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// ManageAutomationUseCase handles owner-facing automation CRUD
type ManageAutomationUseCase struct {
	projectRepo      repositories.ProjectRepository
	automationRepo   repositories.AutomationRepository
	notificationRepo repositories.NotificationRepository
}

// NewManageAutomationUseCase creates a new ManageAutomationUseCase
func NewManageAutomationUseCase(projectRepo repositories.ProjectRepository, automationRepo repositories.AutomationRepository, notificationRepo repositories.NotificationRepository) *ManageAutomationUseCase {
	return &ManageAutomationUseCase{
		projectRepo:      projectRepo,
		automationRepo:   automationRepo,
		notificationRepo: notificationRepo,
	}
}

// CreateAutomationRequest represents the input for creating an automation
type CreateAutomationRequest struct {
	ProjectID   string
	UserID      string
	Name        string
	Description string
	Trigger     entities.Trigger
	Action      entities.Action
	Audience    entities.TargetAudience
}

// Create validates and stores an active automation
func (uc *ManageAutomationUseCase) Create(ctx context.Context, req *CreateAutomationRequest) (*entities.Automation, error) {
	if req == nil {
		return nil, entities.ErrValidation{Message: "request is required"}
	}
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}
	if err := uc.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	a := entities.NewAutomation(uuid.New().String(), req.ProjectID, strings.TrimSpace(req.Name), req.Description,
		req.Trigger, req.Action, req.Audience)
	if err := uc.automationRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}
	log.Printf("[AUTOMATION] Created automation %s (%s on %q) for project %s", a.ID(), a.Trigger().Type, a.Trigger().EventName, a.ProjectID())
	return a, nil
}

func (uc *ManageAutomationUseCase) validateRequest(ctx context.Context, req *CreateAutomationRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return entities.ErrValidation{Field: "name", Message: "is required"}
	}
	if !req.Trigger.Type.IsValid() {
		return entities.ErrValidation{Field: "trigger.type", Message: fmt.Sprintf("unknown trigger type %q", req.Trigger.Type)}
	}
	if req.Trigger.Type == entities.TriggerTypeEvent && req.Trigger.EventName == "" {
		return entities.ErrValidation{Field: "trigger.eventName", Message: "is required for event triggers"}
	}
	if req.Action.DelayMinutes < 0 {
		return entities.ErrValidation{Field: "action.delay", Message: "must not be negative"}
	}
	if req.Action.NotificationID == "" {
		return entities.ErrValidation{Field: "action.notification", Message: "is required"}
	}
	n, err := uc.notificationRepo.GetByID(ctx, req.Action.NotificationID)
	if err != nil {
		return entities.ErrValidation{Field: "action.notification", Message: fmt.Sprintf("notification %s not found", req.Action.NotificationID)}
	}
	if n.ProjectID() != req.ProjectID {
		return entities.ErrValidation{Field: "action.notification", Message: "must belong to the same project"}
	}
	return nil
}

// List returns a project's automations
func (uc *ManageAutomationUseCase) List(ctx context.Context, projectID, userID string) ([]*entities.Automation, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	automations, err := uc.automationRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	return automations, nil
}

// Get returns an automation whose project the user owns
func (uc *ManageAutomationUseCase) Get(ctx context.Context, automationID, userID string) (*entities.Automation, error) {
	a, err := uc.automationRepo.GetByID(ctx, automationID)
	if err != nil {
		return nil, err
	}
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, a.ProjectID(), userID); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAutomationRequest represents a partial update. Nil fields keep their stored value.
type UpdateAutomationRequest struct {
	AutomationID string
	UserID       string
	Name         *string
	Description  *string
	Trigger      *entities.Trigger
	Action       *entities.Action
	Audience     *entities.TargetAudience
}

// Update changes the configuration of an automation. The merged result is
// validated like a new automation; firing statistics are kept.
func (uc *ManageAutomationUseCase) Update(ctx context.Context, req *UpdateAutomationRequest) (*entities.Automation, error) {
	if req == nil {
		return nil, entities.ErrValidation{Message: "request is required"}
	}
	a, err := uc.Get(ctx, req.AutomationID, req.UserID)
	if err != nil {
		return nil, err
	}

	merged := &CreateAutomationRequest{
		ProjectID:   a.ProjectID(),
		UserID:      req.UserID,
		Name:        a.Name(),
		Description: a.Description(),
		Trigger:     a.Trigger(),
		Action:      a.Action(),
		Audience:    a.Audience(),
	}
	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.Trigger != nil {
		merged.Trigger = *req.Trigger
	}
	if req.Action != nil {
		merged.Action = *req.Action
	}
	if req.Audience != nil {
		merged.Audience = *req.Audience
	}
	if err := uc.validateRequest(ctx, merged); err != nil {
		return nil, err
	}

	a.Revise(strings.TrimSpace(merged.Name), merged.Description, merged.Trigger, merged.Action, merged.Audience)
	if err := uc.automationRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update automation: %w", err)
	}
	log.Printf("[AUTOMATION] Updated automation %s", a.ID())
	return uc.automationRepo.GetByID(ctx, a.ID())
}

// SetActive enables or disables an automation
func (uc *ManageAutomationUseCase) SetActive(ctx context.Context, automationID, userID string, active bool) (*entities.Automation, error) {
	a, err := uc.Get(ctx, automationID, userID)
	if err != nil {
		return nil, err
	}
	a.SetActive(active)
	if err := uc.automationRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update automation: %w", err)
	}
	return uc.automationRepo.GetByID(ctx, automationID)
}

// Delete removes an automation
func (uc *ManageAutomationUseCase) Delete(ctx context.Context, automationID, userID string) error {
	if _, err := uc.Get(ctx, automationID, userID); err != nil {
		return err
	}
	if err := uc.automationRepo.Delete(ctx, automationID); err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}
	log.Printf("[AUTOMATION] Deleted automation %s", automationID)
	return nil
}

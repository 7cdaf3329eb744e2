package project

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// ManageProjectUseCase handles owner-facing project reads and updates
type ManageProjectUseCase struct {
	projectRepo repositories.ProjectRepository
}

// NewManageProjectUseCase creates a new ManageProjectUseCase
func NewManageProjectUseCase(projectRepo repositories.ProjectRepository) *ManageProjectUseCase {
	return &ManageProjectUseCase{projectRepo: projectRepo}
}

// Get returns a project owned by userID
func (uc *ManageProjectUseCase) Get(ctx context.Context, projectID, userID string) (*entities.Project, error) {
	return AuthorizeOwner(ctx, uc.projectRepo, projectID, userID)
}

// List returns every project owned by userID
func (uc *ManageProjectUseCase) List(ctx context.Context, userID string) ([]*entities.Project, error) {
	projects, err := uc.projectRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectRequest represents the input for updating project settings.
// Nil fields are left unchanged.
type UpdateProjectRequest struct {
	ProjectID      string
	UserID         string
	Name           string
	Domain         string
	Platform       entities.Platform
	PromptSettings map[string]interface{}
	DNDSettings    *entities.DNDSettings
}

// Update changes display fields and settings of an owned project
func (uc *ManageProjectUseCase) Update(ctx context.Context, req *UpdateProjectRequest) (*entities.Project, error) {
	p, err := AuthorizeOwner(ctx, uc.projectRepo, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.Platform != "" && !req.Platform.IsValid() {
		return nil, entities.ErrValidation{Field: "platform", Message: fmt.Sprintf("unknown platform %q", req.Platform)}
	}
	if req.DNDSettings != nil && req.DNDSettings.MaxNotifications < 0 {
		return nil, entities.ErrValidation{Field: "dndSettings.maxNotifications", Message: "must not be negative"}
	}

	p.Rename(req.Name, req.Domain, req.Platform)
	if req.PromptSettings != nil {
		p.SetPromptSettings(req.PromptSettings)
	}
	if req.DNDSettings != nil {
		p.SetDNDSettings(*req.DNDSettings)
	}

	if err := uc.projectRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// Delete removes an owned project
func (uc *ManageProjectUseCase) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return err
	}
	if err := uc.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	log.Printf("[PROJECT] Deleted project %s", projectID)
	return nil
}

// PublicKey returns the VAPID public key browsers subscribe with
func (uc *ManageProjectUseCase) PublicKey(ctx context.Context, projectID string) (string, error) {
	p, err := uc.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	return p.VAPID().PublicKey, nil
}

// AuthenticateAPIKey resolves the project owning an active API key and records its use
func (uc *ManageProjectUseCase) AuthenticateAPIKey(ctx context.Context, key string) (*entities.Project, error) {
	if key == "" {
		return nil, entities.ErrValidation{Field: "X-API-Key", Message: "is required"}
	}
	p, err := uc.projectRepo.GetByAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := uc.projectRepo.TouchAPIKey(ctx, p.ID(), key, time.Now()); err != nil {
		log.Printf("[PROJECT] Failed to record API key use for project %s: %v", p.ID(), err)
	}
	return p, nil
}

package project

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	domainservices "github.com/takutakahashi/pushnotify/internal/domain/services"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// CreateProjectUseCase registers a website and issues its VAPID keys and first API key
type CreateProjectUseCase struct {
	projectRepo    repositories.ProjectRepository
	keyGenerator   services.VAPIDKeyGenerator
	encryption     domainservices.EncryptionService
	defaultSubject string
}

// NewCreateProjectUseCase creates a new CreateProjectUseCase.
// defaultSubject is used as the VAPID subject when set; otherwise the owner's email is used.
func NewCreateProjectUseCase(
	projectRepo repositories.ProjectRepository,
	keyGenerator services.VAPIDKeyGenerator,
	encryption domainservices.EncryptionService,
	defaultSubject string,
) *CreateProjectUseCase {
	return &CreateProjectUseCase{
		projectRepo:    projectRepo,
		keyGenerator:   keyGenerator,
		encryption:     encryption,
		defaultSubject: defaultSubject,
	}
}

// CreateProjectRequest represents the input for registering a project
type CreateProjectRequest struct {
	OwnerID    string
	OwnerEmail string
	Name       string
	Domain     string
	Platform   entities.Platform
}

// CreateProjectResponse represents the output of registering a project
type CreateProjectResponse struct {
	Project *entities.Project
}

// Execute validates the request, generates keys and persists the project
func (uc *CreateProjectUseCase) Execute(ctx context.Context, req *CreateProjectRequest) (*CreateProjectResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, err
	}

	publicKey, privateKey, err := uc.keyGenerator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
	}

	vapid, err := domainservices.SealVAPIDKeys(ctx, uc.encryption, publicKey, privateKey, uc.subjectFor(req))
	if err != nil {
		return nil, err
	}

	apiKey := entities.APIKey{
		Key:       uuid.New().String(),
		Name:      "default",
		Active:    true,
		CreatedAt: time.Now(),
	}

	p := entities.NewProject(uuid.New().String(), req.OwnerID, req.Name, req.Domain, req.Platform, vapid, apiKey)
	if err := uc.projectRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	log.Printf("[PROJECT] Created project %s for owner %s (VAPID key sealed with %s)", p.ID(), p.OwnerID(), vapid.PrivateKeyAlgorithm)
	return &CreateProjectResponse{Project: p}, nil
}

func (uc *CreateProjectUseCase) subjectFor(req *CreateProjectRequest) string {
	if uc.defaultSubject != "" {
		return uc.defaultSubject
	}
	return "mailto:" + req.OwnerEmail
}

func (uc *CreateProjectUseCase) validateRequest(req *CreateProjectRequest) error {
	if req == nil {
		return entities.ErrValidation{Message: "request is required"}
	}
	if req.OwnerID == "" {
		return entities.ErrValidation{Field: "owner", Message: "is required"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return entities.ErrValidation{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(req.Domain) == "" {
		return entities.ErrValidation{Field: "domain", Message: "is required"}
	}
	if req.Platform != "" && !req.Platform.IsValid() {
		return entities.ErrValidation{Field: "platform", Message: fmt.Sprintf("unknown platform %q", req.Platform)}
	}
	if uc.defaultSubject == "" && req.OwnerEmail == "" {
		return entities.ErrValidation{Field: "email", Message: "owner email is required when no VAPID subject is configured"}
	}
	return nil
}

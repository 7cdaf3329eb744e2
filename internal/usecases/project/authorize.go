package project

import (
	"context"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
)

// AuthorizeOwner loads a project and checks that userID owns it.
// It returns entities.ErrNotFound for unknown projects and entities.ErrForbidden otherwise.
func AuthorizeOwner(ctx context.Context, repo repositories.ProjectRepository, projectID, userID string) (*entities.Project, error) {
	if projectID == "" {
		return nil, entities.ErrValidation{Field: "projectId", Message: "is required"}
	}
	p, err := repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(userID) {
		return nil, entities.ErrForbidden{Kind: entities.KindProject, ID: projectID}
	}
	return p, nil
}

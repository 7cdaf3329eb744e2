package subscriber

import (
	"context"
	"fmt"
	"log"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// MaxImportRows caps a single bulk import
const MaxImportRows = 10000

// ManageSubscribersUseCase handles owner-facing subscriber listings, stats and imports
type ManageSubscribersUseCase struct {
	projectRepo    repositories.ProjectRepository
	subscriberRepo repositories.SubscriberRepository
	subscribe      *SubscribeUseCase
}

// NewManageSubscribersUseCase creates a new ManageSubscribersUseCase
func NewManageSubscribersUseCase(projectRepo repositories.ProjectRepository, subscriberRepo repositories.SubscriberRepository) *ManageSubscribersUseCase {
	return &ManageSubscribersUseCase{
		projectRepo:    projectRepo,
		subscriberRepo: subscriberRepo,
		subscribe:      NewSubscribeUseCase(projectRepo, subscriberRepo),
	}
}

// ListSubscribersRequest represents a paged subscriber listing
type ListSubscribersRequest struct {
	ProjectID string
	UserID    string
	Active    *bool
	Limit     int
	Offset    int
}

// List returns a page of a project's subscribers, newest first
func (uc *ManageSubscribersUseCase) List(ctx context.Context, req *ListSubscribersRequest) ([]*entities.Subscriber, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, entities.ErrValidation{Field: "limit", Message: "limit and offset must not be negative"}
	}
	subscribers, err := uc.subscriberRepo.List(ctx, repositories.SubscriberFilter{
		ProjectID: req.ProjectID,
		Active:    req.Active,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subscribers, nil
}

// Stats returns total, active and inactive counts with per-browser and per-country breakdowns
func (uc *ManageSubscribersUseCase) Stats(ctx context.Context, projectID, userID string) (*repositories.SubscriberStats, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	stats, err := uc.subscriberRepo.Stats(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute subscriber stats: %w", err)
	}
	return stats, nil
}

// ImportError reports a rejected import row
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Errors   []ImportError `json:"errors"`
}

// Import subscribes every row into the project. Rows are independent: a rejected
// row is reported and the rest are still imported.
func (uc *ManageSubscribersUseCase) Import(ctx context.Context, projectID, userID string, rows []SubscribeRequest) (*ImportResult, error) {
	if _, err := project.AuthorizeOwner(ctx, uc.projectRepo, projectID, userID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, entities.ErrValidation{Field: "subscribers", Message: "must not be empty"}
	}
	if len(rows) > MaxImportRows {
		return nil, entities.ErrValidation{Field: "subscribers", Message: fmt.Sprintf("at most %d rows per import", MaxImportRows)}
	}

	result := &ImportResult{Errors: []ImportError{}}
	for i := range rows {
		row := rows[i]
		row.ProjectID = projectID
		resp, err := uc.subscribe.Execute(ctx, &row)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Index: i, Message: err.Error()})
			continue
		}
		if resp.Created {
			result.Imported++
		} else {
			result.Updated++
		}
	}
	log.Printf("[SUBSCRIBER] Imported into project %s: imported=%d updated=%d rejected=%d",
		projectID, result.Imported, result.Updated, len(result.Errors))
	return result, nil
}

package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/automation"
)

// AutomationController handles automation HTTP requests
type AutomationController struct {
	manage *automation.ManageAutomationUseCase
}

// NewAutomationController creates a new AutomationController
func NewAutomationController(manage *automation.ManageAutomationUseCase) *AutomationController {
	return &AutomationController{manage: manage}
}

// GetName returns the name of this controller for logging
func (c *AutomationController) GetName() string {
	return "AutomationController"
}

// RegisterRoutes registers automation routes on the API group
func (c *AutomationController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	g := api.Group("/automations", authMW)
	g.GET("/project/:projectId", c.ListAutomations)
	g.POST("", c.CreateAutomation)
	g.GET("/:id", c.GetAutomation)
	g.PUT("/:id", c.UpdateAutomation)
	g.PUT("/:id/active", c.SetActive)
	g.DELETE("/:id", c.DeleteAutomation)
}

// CreateAutomationBody is the JSON body for POST /automations
type CreateAutomationBody struct {
	ProjectID      string                  `json:"projectId"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Trigger        entities.Trigger        `json:"trigger"`
	Action         entities.Action         `json:"action"`
	TargetAudience entities.TargetAudience `json:"targetAudience"`
}

// UpdateAutomationBody is the JSON body for PUT /automations/:id.
// Absent fields keep their stored value.
type UpdateAutomationBody struct {
	Name           *string                  `json:"name,omitempty"`
	Description    *string                  `json:"description,omitempty"`
	Trigger        *entities.Trigger        `json:"trigger,omitempty"`
	Action         *entities.Action         `json:"action,omitempty"`
	TargetAudience *entities.TargetAudience `json:"targetAudience,omitempty"`
}

// SetActiveBody is the JSON body for PUT /automations/:id/active
type SetActiveBody struct {
	IsActive *bool `json:"isActive"`
}

// CreateAutomation handles POST /automations
func (c *AutomationController) CreateAutomation(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body CreateAutomationBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	a, err := c.manage.Create(ctx.Request().Context(), &automation.CreateAutomationRequest{
		ProjectID:   body.ProjectID,
		UserID:      user.UserID,
		Name:        body.Name,
		Description: body.Description,
		Trigger:     body.Trigger,
		Action:      body.Action,
		Audience:    body.TargetAudience,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, toAutomationResponse(a))
}

// ListAutomations handles GET /automations/project/:projectId
func (c *AutomationController) ListAutomations(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	automations, err := c.manage.List(ctx.Request().Context(), ctx.Param("projectId"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]*AutomationResponse, 0, len(automations))
	for _, a := range automations {
		out = append(out, toAutomationResponse(a))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetAutomation handles GET /automations/:id
func (c *AutomationController) GetAutomation(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	a, err := c.manage.Get(ctx.Request().Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toAutomationResponse(a))
}

// UpdateAutomation handles PUT /automations/:id
func (c *AutomationController) UpdateAutomation(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body UpdateAutomationBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	a, err := c.manage.Update(ctx.Request().Context(), &automation.UpdateAutomationRequest{
		AutomationID: ctx.Param("id"),
		UserID:       user.UserID,
		Name:         body.Name,
		Description:  body.Description,
		Trigger:      body.Trigger,
		Action:       body.Action,
		Audience:     body.TargetAudience,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toAutomationResponse(a))
}

// SetActive handles PUT /automations/:id/active
func (c *AutomationController) SetActive(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body SetActiveBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}
	if body.IsActive == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "isActive is required")
	}

	a, err := c.manage.SetActive(ctx.Request().Context(), ctx.Param("id"), user.UserID, *body.IsActive)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toAutomationResponse(a))
}

// DeleteAutomation handles DELETE /automations/:id
func (c *AutomationController) DeleteAutomation(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := c.manage.Delete(ctx.Request().Context(), ctx.Param("id"), user.UserID); err != nil {
		return toHTTPError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

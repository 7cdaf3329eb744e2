package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
)

// ProjectController handles project HTTP requests
type ProjectController struct {
	create *project.CreateProjectUseCase
	manage *project.ManageProjectUseCase
}

// NewProjectController creates a new ProjectController
func NewProjectController(create *project.CreateProjectUseCase, manage *project.ManageProjectUseCase) *ProjectController {
	return &ProjectController{create: create, manage: manage}
}

// GetName returns the name of this controller for logging
func (c *ProjectController) GetName() string {
	return "ProjectController"
}

// RegisterRoutes registers project routes on the API group
func (c *ProjectController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	api.GET("/projects/:id/vapid-public-key", c.GetVAPIDPublicKey)

	g := api.Group("/projects", authMW)
	g.GET("", c.ListProjects)
	g.POST("", c.CreateProject)
	g.GET("/:id", c.GetProject)
	g.PUT("/:id", c.UpdateProject)
	g.DELETE("/:id", c.DeleteProject)
}

// CreateProjectBody is the JSON body for POST /projects
type CreateProjectBody struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Platform string `json:"platform,omitempty"`
}

// UpdateProjectBody is the JSON body for PUT /projects/:id.
// Omitted fields are not changed.
type UpdateProjectBody struct {
	Name           string                 `json:"name,omitempty"`
	Domain         string                 `json:"domain,omitempty"`
	Platform       string                 `json:"platform,omitempty"`
	PromptSettings map[string]interface{} `json:"promptSettings,omitempty"`
	DNDSettings    *entities.DNDSettings  `json:"dndSettings,omitempty"`
}

// CreateProject handles POST /projects
func (c *ProjectController) CreateProject(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body CreateProjectBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	resp, err := c.create.Execute(ctx.Request().Context(), &project.CreateProjectRequest{
		OwnerID:    user.UserID,
		OwnerEmail: user.Email,
		Name:       body.Name,
		Domain:     body.Domain,
		Platform:   entities.Platform(body.Platform),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, toProjectResponse(resp.Project))
}

// ListProjects handles GET /projects
func (c *ProjectController) ListProjects(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	projects, err := c.manage.List(ctx.Request().Context(), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetProject handles GET /projects/:id
func (c *ProjectController) GetProject(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	p, err := c.manage.Get(ctx.Request().Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toProjectResponse(p))
}

// UpdateProject handles PUT /projects/:id
func (c *ProjectController) UpdateProject(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body UpdateProjectBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	p, err := c.manage.Update(ctx.Request().Context(), &project.UpdateProjectRequest{
		ProjectID:      ctx.Param("id"),
		UserID:         user.UserID,
		Name:           body.Name,
		Domain:         body.Domain,
		Platform:       entities.Platform(body.Platform),
		PromptSettings: body.PromptSettings,
		DNDSettings:    body.DNDSettings,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toProjectResponse(p))
}

// DeleteProject handles DELETE /projects/:id
func (c *ProjectController) DeleteProject(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := c.manage.Delete(ctx.Request().Context(), ctx.Param("id"), user.UserID); err != nil {
		return toHTTPError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetVAPIDPublicKey handles GET /projects/:id/vapid-public-key. It is public so the
// browser SDK can subscribe before any owner is involved.
func (c *ProjectController) GetVAPIDPublicKey(ctx echo.Context) error {
	key, err := c.manage.PublicKey(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"publicKey": key})
}

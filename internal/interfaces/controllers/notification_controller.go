package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
)

// NotificationController handles notification authoring and sending HTTP requests
type NotificationController struct {
	create *notification.CreateNotificationUseCase
	manage *notification.ManageNotificationUseCase
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(create *notification.CreateNotificationUseCase, manage *notification.ManageNotificationUseCase) *NotificationController {
	return &NotificationController{create: create, manage: manage}
}

// GetName returns the name of this controller for logging
func (c *NotificationController) GetName() string {
	return "NotificationController"
}

// RegisterRoutes registers notification routes on the API group
func (c *NotificationController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	g := api.Group("/notifications", authMW)
	g.GET("/project/:projectId", c.ListNotifications)
	g.POST("", c.CreateNotification)
	g.GET("/:id", c.GetNotification)
	g.PUT("/:id", c.UpdateNotification)
	g.DELETE("/:id", c.DeleteNotification)
	g.POST("/:id/send", c.SendNotification)
}

// CreateNotificationBody is the JSON body for POST /notifications
type CreateNotificationBody struct {
	ProjectID      string                  `json:"projectId"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Icon           string                  `json:"icon,omitempty"`
	Image          string                  `json:"image,omitempty"`
	Badge          string                  `json:"badge,omitempty"`
	URL            string                  `json:"url,omitempty"`
	Buttons        []entities.Button       `json:"buttons,omitempty"`
	Type           string                  `json:"type,omitempty"`
	ScheduledFor   *time.Time              `json:"scheduledFor,omitempty"`
	TargetAudience entities.TargetAudience `json:"targetAudience"`
	Recurring      entities.Recurring      `json:"recurring"`
}

// UpdateNotificationBody is the JSON body for PUT /notifications/:id.
// Absent fields keep their stored value.
type UpdateNotificationBody struct {
	Title          *string                  `json:"title,omitempty"`
	Message        *string                  `json:"message,omitempty"`
	Icon           *string                  `json:"icon,omitempty"`
	Image          *string                  `json:"image,omitempty"`
	Badge          *string                  `json:"badge,omitempty"`
	URL            *string                  `json:"url,omitempty"`
	Buttons        []entities.Button        `json:"buttons,omitempty"`
	ScheduledFor   *time.Time               `json:"scheduledFor,omitempty"`
	TargetAudience *entities.TargetAudience `json:"targetAudience,omitempty"`
	Recurring      *entities.Recurring      `json:"recurring,omitempty"`
}

// DispatchResponse pairs a notification with the outcome of the dispatch it just went through
type DispatchResponse struct {
	Notification *NotificationResponse    `json:"notification"`
	Result       *entities.DispatchResult `json:"result,omitempty"`
}

// CreateNotification handles POST /notifications. Instant notifications are sent before the response.
func (c *NotificationController) CreateNotification(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body CreateNotificationBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	resp, err := c.create.Execute(ctx.Request().Context(), &notification.CreateNotificationRequest{
		ProjectID: body.ProjectID,
		UserID:    user.UserID,
		Content: entities.NotificationContent{
			Title:   body.Title,
			Message: body.Message,
			Icon:    body.Icon,
			Image:   body.Image,
			Badge:   body.Badge,
			URL:     body.URL,
			Buttons: body.Buttons,
		},
		Type:         entities.NotificationType(body.Type),
		ScheduledFor: body.ScheduledFor,
		Audience:     body.TargetAudience,
		Recurring:    body.Recurring,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, &DispatchResponse{
		Notification: toNotificationResponse(resp.Notification),
		Result:       resp.Result,
	})
}

// ListNotifications handles GET /notifications/project/:projectId
func (c *NotificationController) ListNotifications(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	notifications, err := c.manage.List(ctx.Request().Context(), ctx.Param("projectId"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, toNotificationResponse(n))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetNotification handles GET /notifications/:id
func (c *NotificationController) GetNotification(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	n, err := c.manage.Get(ctx.Request().Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toNotificationResponse(n))
}

// UpdateNotification handles PUT /notifications/:id
func (c *NotificationController) UpdateNotification(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	var body UpdateNotificationBody
	if err := bindJSON(ctx, &body); err != nil {
		return err
	}

	n, err := c.manage.Update(ctx.Request().Context(), &notification.UpdateNotificationRequest{
		NotificationID: ctx.Param("id"),
		UserID:         user.UserID,
		Content: notification.ContentPatch{
			Title:   body.Title,
			Message: body.Message,
			Icon:    body.Icon,
			Image:   body.Image,
			Badge:   body.Badge,
			URL:     body.URL,
			Buttons: body.Buttons,
		},
		ScheduledFor: body.ScheduledFor,
		Audience:     body.TargetAudience,
		Recurring:    body.Recurring,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, toNotificationResponse(n))
}

// DeleteNotification handles DELETE /notifications/:id
func (c *NotificationController) DeleteNotification(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := c.manage.Delete(ctx.Request().Context(), ctx.Param("id"), user.UserID); err != nil {
		return toHTTPError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SendNotification handles POST /notifications/:id/send
func (c *NotificationController) SendNotification(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	out, err := c.manage.Send(ctx.Request().Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	result := out.Result
	return ctx.JSON(http.StatusOK, &DispatchResponse{
		Notification: toNotificationResponse(out.Notification),
		Result:       &result,
	})
}

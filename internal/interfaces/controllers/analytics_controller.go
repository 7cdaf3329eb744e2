package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/takutakahashi/pushnotify/internal/usecases/analytics"
)

// AnalyticsController serves project reports
type AnalyticsController struct {
	report *analytics.ProjectReportUseCase
}

// NewAnalyticsController creates a new AnalyticsController
func NewAnalyticsController(report *analytics.ProjectReportUseCase) *AnalyticsController {
	return &AnalyticsController{report: report}
}

// GetName returns the name of this controller for logging
func (c *AnalyticsController) GetName() string {
	return "AnalyticsController"
}

// RegisterRoutes registers analytics routes on the API group
func (c *AnalyticsController) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	api.GET("/analytics/project/:projectId", c.GetProjectReport, authMW)
}

// ProjectReportResponse is the body of GET /analytics/project/:projectId
type ProjectReportResponse struct {
	*analytics.Report
	RecentNotifications []*NotificationResponse `json:"recentNotifications"`
}

// GetProjectReport handles GET /analytics/project/:projectId
func (c *AnalyticsController) GetProjectReport(ctx echo.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	report, err := c.report.Execute(ctx.Request().Context(), ctx.Param("projectId"), user.UserID)
	if err != nil {
		return toHTTPError(err)
	}

	recent := make([]*NotificationResponse, 0, len(report.RecentNotifications))
	for _, n := range report.RecentNotifications {
		recent = append(recent, toNotificationResponse(n))
	}
	return ctx.JSON(http.StatusOK, &ProjectReportResponse{Report: report, RecentNotifications: recent})
}

package services

import (
	"time"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/pkg/logger"
)

// AuditDispatchRecorder writes every completed dispatch to the audit log
type AuditDispatchRecorder struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewAuditDispatchRecorder creates a new AuditDispatchRecorder
func NewAuditDispatchRecorder(l *logger.Logger) *AuditDispatchRecorder {
	return &AuditDispatchRecorder{logger: l, now: time.Now}
}

// RecordDispatch appends the result to the notification's audit file
func (r *AuditDispatchRecorder) RecordDispatch(notificationID, projectID string, result entities.DispatchResult) error {
	return r.logger.LogDispatch(notificationID, projectID, logger.DispatchEntry{
		FinishedAt:  r.now(),
		Sent:        result.Sent,
		Delivered:   result.Delivered,
		Failed:      result.Failed,
		Deactivated: result.Deactivated,
	})
}

var _ services.DispatchRecorder = (*AuditDispatchRecorder)(nil)

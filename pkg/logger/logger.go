package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DispatchEntry is one completed dispatch of a notification
type DispatchEntry struct {
	FinishedAt  time.Time `json:"finished_at"`
	Sent        int       `json:"sent"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	Deactivated int       `json:"deactivated"`
}

// DispatchLog is the audit trail of a notification, one file per notification
type DispatchLog struct {
	NotificationID string          `json:"notification_id"`
	ProjectID      string          `json:"project_id"`
	FirstSentAt    time.Time       `json:"first_sent_at"`
	LastSentAt     time.Time       `json:"last_sent_at"`
	Dispatches     []DispatchEntry `json:"dispatches"`
}

type Logger struct {
	logDir     string
	maxEntries int
	mu         sync.Mutex
}

// NewLogger creates a logger writing under logDir.
// maxEntries bounds the dispatch history kept per notification; zero keeps everything.
func NewLogger(logDir string, maxEntries int) *Logger {
	if logDir == "" {
		logDir = "./logs"
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Printf("Failed to create log directory %s: %v", logDir, err)
	}

	return &Logger{
		logDir:     logDir,
		maxEntries: maxEntries,
	}
}

// LogDispatch appends a dispatch to the notification's audit file
func (l *Logger) LogDispatch(notificationID, projectID string, entry DispatchEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dispatchLog, err := l.ReadDispatchLog(notificationID)
	if err != nil {
		// If we can't read the existing log, start a new one
		dispatchLog = DispatchLog{
			NotificationID: notificationID,
			ProjectID:      projectID,
			FirstSentAt:    entry.FinishedAt,
		}
	}

	dispatchLog.LastSentAt = entry.FinishedAt
	dispatchLog.Dispatches = append(dispatchLog.Dispatches, entry)
	if l.maxEntries > 0 && len(dispatchLog.Dispatches) > l.maxEntries {
		dispatchLog.Dispatches = dispatchLog.Dispatches[len(dispatchLog.Dispatches)-l.maxEntries:]
	}

	return l.writeDispatchLog(dispatchLog)
}

// ReadDispatchLog loads the audit trail of a notification
func (l *Logger) ReadDispatchLog(notificationID string) (DispatchLog, error) {
	var dispatchLog DispatchLog

	data, err := os.ReadFile(l.path(notificationID))
	if err != nil {
		return dispatchLog, err
	}

	err = json.Unmarshal(data, &dispatchLog)
	return dispatchLog, err
}

func (l *Logger) writeDispatchLog(dispatchLog DispatchLog) error {
	filePath := l.path(dispatchLog.NotificationID)

	data, err := json.MarshalIndent(dispatchLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch log: %v", err)
	}

	// Write through a temp file so readers never see a partial document
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write dispatch log to %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to move dispatch log to %s: %v", filePath, err)
	}
	return nil
}

func (l *Logger) path(notificationID string) string {
	return filepath.Join(l.logDir, fmt.Sprintf("dispatch-%s.json", filepath.Base(notificationID)))
}

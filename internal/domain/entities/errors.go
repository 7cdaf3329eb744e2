package entities

import "fmt"

// ErrNotFound is returned when a stored resource does not exist
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrForbidden is returned when the caller does not own the resource
type ErrForbidden struct {
	Kind string
	ID   string
}

func (e ErrForbidden) Error() string {
	return fmt.Sprintf("access denied to %s %s", e.Kind, e.ID)
}

// ErrValidation is returned when input fails validation. Nothing is mutated.
type ErrValidation struct {
	Field   string
	Message string
}

func (e ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Resource kinds used in ErrNotFound and ErrForbidden
const (
	KindProject      = "project"
	KindSubscriber   = "subscriber"
	KindNotification = "notification"
	KindAutomation   = "automation"
	KindEvent        = "event"
)

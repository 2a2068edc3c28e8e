package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateEvent(ev *Event) error {
	if ev == nil {
		return &ValidationError{
			Field:   "event",
			Message: "event cannot be nil",
		}
	}

	if ev.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "event ID is required",
		}
	}

	if ev.Category == "" {
		return &ValidationError{
			Field:   "category",
			Message: "event category is required",
		}
	}

	if ev.Origin.Name == "" {
		return &ValidationError{
			Field:   "origin.name",
			Message: "event origin name is required",
		}
	}

	return nil
}

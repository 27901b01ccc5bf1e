package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id does not match any row held by the board.
var ErrNotFound = errors.New("not found")

// ValidationError reports input rejected before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

package reconcile

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when a reconciler is constructed without its
// store or client dependencies.
var ErrNotReady = errors.New("reconciler dependencies not initialized")

// ValidationError marks missing or invalid user input, caught before
// any network call is made.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ItemError records one per-item failure inside a batch operation.
type ItemError struct {
	Item    string
	Message string
}

package mapper

import (
	"errors"
	"fmt"
)

// ErrMissingEndpoint is returned when a relationship has an empty source or
// target id.
var ErrMissingEndpoint = errors.New("relationship endpoint id is empty")

// UnregisteredKindError is returned when a record's kind is not in the
// registry. It wraps registry.ErrNotFound.
type UnregisteredKindError struct {
	Kind string
	Err  error
}

func (e *UnregisteredKindError) Error() string {
	return fmt.Sprintf("unregistered kind %q", e.Kind)
}

// Unwrap returns the underlying registry error.
func (e *UnregisteredKindError) Unwrap() error { return e.Err }

// Is implements errors.Is support for UnregisteredKindError.
func (e *UnregisteredKindError) Is(target error) bool {
	_, ok := target.(*UnregisteredKindError)
	return ok
}

// FieldError reports a transform that failed for one field. The field is left
// out of the mapped properties; the error is only logged.
type FieldError struct {
	Kind      string
	Field     string
	Transform string
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("kind %s field %s: transform %s failed: %v", e.Kind, e.Field, e.Transform, e.Err)
}

// Unwrap returns the transform error.
func (e *FieldError) Unwrap() error { return e.Err }

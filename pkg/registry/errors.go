package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistration is the class of every error returned by a registration call.
	ErrRegistration = errors.New("registration error")

	// ErrNotFound indicates a kind has not been registered.
	ErrNotFound = errors.New("kind not registered")
)

// DuplicateKindError is returned in strict mode when a kind is registered twice.
type DuplicateKindError struct {
	Kind string
}

func (e *DuplicateKindError) Error() string {
	return fmt.Sprintf("kind %q is already registered", e.Kind)
}

// Is implements errors.Is support for DuplicateKindError.
func (e *DuplicateKindError) Is(target error) bool {
	_, ok := target.(*DuplicateKindError)
	return ok
}

func (e *DuplicateKindError) Unwrap() error { return ErrRegistration }

// UnknownReferencedKindError is returned when a relationship names a source or
// target kind that is not a registered entity kind.
type UnknownReferencedKindError struct {
	Relationship string
	Kind         string
	// Role is "source" or "target".
	Role string
}

func (e *UnknownReferencedKindError) Error() string {
	return fmt.Sprintf("relationship %q references unregistered %s kind %q", e.Relationship, e.Role, e.Kind)
}

// Is implements errors.Is support for UnknownReferencedKindError.
func (e *UnknownReferencedKindError) Is(target error) bool {
	_, ok := target.(*UnknownReferencedKindError)
	return ok
}

func (e *UnknownReferencedKindError) Unwrap() error { return ErrRegistration }

// InvalidSpecError is returned when a spec is missing a required field.
type InvalidSpecError struct {
	Kind   string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec for kind %q: %s", e.Kind, e.Reason)
}

func (e *InvalidSpecError) Unwrap() error { return ErrRegistration }

// NotFoundError is returned by resolve calls for an unknown kind.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("kind %q is not registered", e.Kind)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

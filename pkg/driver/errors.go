package driver

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNodeNotFound is returned by GetNode when no node matches.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEndpointNotFound is returned by UpsertEdge when an endpoint node is missing.
	ErrEndpointNotFound = errors.New("edge endpoint not found")

	// ErrUnsupportedQuery is returned by MemoryStore for statements it cannot answer.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrInvalidLabel is returned for labels that cannot be used as identifiers.
	ErrInvalidLabel = errors.New("invalid label")
)

// StoreUnavailableError reports that the backing database cannot be reached.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *StoreUnavailableError.
func (e *StoreUnavailableError) Is(target error) bool {
	_, ok := target.(*StoreUnavailableError)
	return ok
}

// IsUnavailable reports whether err, or any error it wraps, is a StoreUnavailableError.
func IsUnavailable(err error) bool {
	var unavailable *StoreUnavailableError
	return errors.As(err, &unavailable)
}

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateLabel checks that label is safe to splice into a statement.
func ValidateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

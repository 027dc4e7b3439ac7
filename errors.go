package loregraph

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when Ingest is called without text.
	ErrEmptyText = errors.New("text is empty")
	// ErrNoEntityKinds is returned when nothing is registered to extract.
	ErrNoEntityKinds = errors.New("no entity kinds registered")
	// ErrLocationNotFound is returned by location lookups with no match.
	ErrLocationNotFound = errors.New("location not found")
	// ErrItemNotFound is returned by TakeItem when the item is not at the location.
	ErrItemNotFound = errors.New("item not found at location")
)

// PersistenceError describes one node or edge the store rejected. It is
// logged and counted, never returned from Ingest.
type PersistenceError struct {
	// Item is "node" or "edge".
	Item string
	Key  string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s %s: %v", e.Item, e.Key, e.Err)
}

// Unwrap returns the store error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is implements errors.Is support for PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	_, ok := target.(*PersistenceError)
	return ok
}

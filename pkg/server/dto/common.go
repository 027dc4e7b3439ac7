package dto

import "errors"

// Validation errors
var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrTextTooLong     = errors.New("text exceeds maximum length (1MB)")
	ErrTooManyKinds    = errors.New("too many kinds requested (max 256)")
	ErrInvalidKindName = errors.New("kind names cannot be empty")
	ErrNegativeLimit   = errors.New("max_records cannot be negative")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxTextLength   = 1024 * 1024 // 1MB
	MaxKindsCount   = 256
	MaxSourceLength = 1024
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// KindsResponse lists the registered kinds.
type KindsResponse struct {
	EntityKinds       []string `json:"entity_kinds"`
	RelationshipKinds []string `json:"relationship_kinds"`
}

// LocationResponse is a location together with what a player sees there.
type LocationResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Exits       []ExitResult   `json:"exits"`
	Items       []EntityResult `json:"items,omitempty"`
	Characters  []EntityResult `json:"characters,omitempty"`
}

// ExitResult is one exit from a location.
type ExitResult struct {
	Direction   string `json:"direction"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// CreateItemRequest creates an item, optionally placed in a location.
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// CreateCharacterRequest creates a character, optionally placed in a location.
type CreateCharacterRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// TakeItemRequest moves an item from a location into a character's inventory.
type TakeItemRequest struct {
	Item     string `json:"item" binding:"required"`
	Location string `json:"location" binding:"required"`
}

// EntityResult is a named entity returned by a lookup.
type EntityResult struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

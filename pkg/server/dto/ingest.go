package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/loregraph/pkg/types"
)

// IngestRequest represents a request to ingest a passage of text.
type IngestRequest struct {
	Text              string   `json:"text" binding:"required"`
	EntityKinds       []string `json:"entity_kinds,omitempty"`
	RelationshipKinds []string `json:"relationship_kinds,omitempty"`
	// Persist defaults to true when omitted.
	Persist    *bool  `json:"persist,omitempty"`
	MaxRecords int    `json:"max_records,omitempty"`
	Source     string `json:"source,omitempty"`
}

// Validate performs validation on IngestRequest
func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if len(r.EntityKinds) > MaxKindsCount || len(r.RelationshipKinds) > MaxKindsCount {
		return ErrTooManyKinds
	}
	for _, k := range append(append([]string{}, r.EntityKinds...), r.RelationshipKinds...) {
		if strings.TrimSpace(k) == "" {
			return ErrInvalidKindName
		}
	}
	if r.MaxRecords < 0 {
		return ErrNegativeLimit
	}
	if len(r.Source) > MaxSourceLength {
		return errors.New("source exceeds maximum length (1024)")
	}
	return nil
}

// ShouldPersist reports whether the batch should be written to the store.
func (r *IngestRequest) ShouldPersist() bool {
	return r.Persist == nil || *r.Persist
}

// IngestResponse represents a response from ingest operations
type IngestResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Result  *types.IngestResult `json:"result,omitempty"`
}

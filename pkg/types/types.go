package types

import (
	"errors"
	"sort"
	"time"
)

// Validation errors
var (
	ErrEmptyLabel    = errors.New("label cannot be empty")
	ErrEmptyID       = errors.New("id cannot be empty")
	ErrEmptyEndpoint = errors.New("edge endpoints cannot be empty")
)

// NodeKey identifies a node: ids are unique within a label.
type NodeKey struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Node represents a vertex in the knowledge graph.
type Node struct {
	Label      string      `json:"label" yaml:"label"`
	ID         string      `json:"id" yaml:"id"`
	Properties *Properties `json:"properties" yaml:"properties"`
}

// NewNode creates a node whose properties start with the id.
func NewNode(label, id string) *Node {
	props := NewProperties()
	props.Set("id", id)
	return &Node{Label: label, ID: id, Properties: props}
}

// Key returns the (label, id) identity of the node.
func (n *Node) Key() NodeKey {
	return NodeKey{Label: n.Label, ID: n.ID}
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.Label == "" {
		return ErrEmptyLabel
	}
	if n.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// EdgeKey identifies an edge: one relationship of a label per ordered endpoint pair.
type EdgeKey struct {
	Label  string  `json:"label"`
	Source NodeKey `json:"source"`
	Target NodeKey `json:"target"`
}

// Edge represents a directed relationship. Endpoints are (label, id) pairs
// resolved against existing nodes by the store at persist time.
type Edge struct {
	Label       string      `json:"label" yaml:"label"`
	SourceLabel string      `json:"source_label" yaml:"source_label"`
	SourceID    string      `json:"source_id" yaml:"source_id"`
	TargetLabel string      `json:"target_label" yaml:"target_label"`
	TargetID    string      `json:"target_id" yaml:"target_id"`
	Properties  *Properties `json:"properties" yaml:"properties"`
}

// Source returns the identity of the source endpoint.
func (e *Edge) Source() NodeKey {
	return NodeKey{Label: e.SourceLabel, ID: e.SourceID}
}

// Target returns the identity of the target endpoint.
func (e *Edge) Target() NodeKey {
	return NodeKey{Label: e.TargetLabel, ID: e.TargetID}
}

// Key returns the identity of the edge.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Label: e.Label, Source: e.Source(), Target: e.Target()}
}

// Validate checks if the Edge has all required fields set.
func (e *Edge) Validate() error {
	if e.Label == "" {
		return ErrEmptyLabel
	}
	if e.SourceLabel == "" || e.SourceID == "" || e.TargetLabel == "" || e.TargetID == "" {
		return ErrEmptyEndpoint
	}
	return nil
}

// ExtractionRecord is one raw entity object returned by the extractor. It is
// transient and never persisted.
type ExtractionRecord struct {
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

// RelationshipRecord is one raw relationship returned by the extractor.
type RelationshipRecord struct {
	Kind       string         `json:"kind"`
	SourceRef  string         `json:"source_id"`
	TargetRef  string         `json:"target_id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// IngestStats summarizes one ingestion call.
type IngestStats struct {
	EntityRecords       int           `json:"entity_records"`
	RelationshipRecords int           `json:"relationship_records"`
	NodesPersisted      int           `json:"nodes_persisted"`
	EdgesPersisted      int           `json:"edges_persisted"`
	EdgesDropped        int           `json:"edges_dropped"`
	FallbackIDs         int           `json:"fallback_ids"`
	PersistFailures     int           `json:"persist_failures"`
	FailedKinds         []string      `json:"failed_kinds,omitempty"`
	Duration            time.Duration `json:"duration"`
}

// IngestResult is returned by an ingestion call, keyed by kind.
type IngestResult struct {
	Entities      map[string][]*Node `json:"entities"`
	Relationships map[string][]*Edge `json:"relationships"`
	// Degraded is true when the store served this call from its fallback.
	Degraded bool        `json:"degraded"`
	Stats    IngestStats `json:"stats"`
}

// NewIngestResult returns an empty result with initialized maps.
func NewIngestResult() *IngestResult {
	return &IngestResult{
		Entities:      make(map[string][]*Node),
		Relationships: make(map[string][]*Edge),
	}
}

// NodeCount returns the number of nodes across all kinds.
func (r *IngestResult) NodeCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, nodes := range r.Entities {
		total += len(nodes)
	}
	return total
}

// EdgeCount returns the number of edges across all kinds.
func (r *IngestResult) EdgeCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, edges := range r.Relationships {
		total += len(edges)
	}
	return total
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

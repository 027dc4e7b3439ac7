package driver

import (
	"context"

	"github.com/soundprediction/loregraph/pkg/types"
)

// GraphStore persists nodes and edges and answers queries against them.
type GraphStore interface {
	// UpsertNode creates the node or merges its properties into the existing one.
	UpsertNode(ctx context.Context, node *types.Node) error

	// UpsertEdge creates the edge between two existing nodes or merges its properties.
	// Endpoints that do not exist are an error.
	UpsertEdge(ctx context.Context, edge *types.Edge) error

	// DeleteEdge removes the edge identified by key and reports whether it
	// existed. The endpoint nodes are kept.
	DeleteEdge(ctx context.Context, key types.EdgeKey) (bool, error)

	// NodeExists reports whether a node with the given label and id is stored.
	NodeExists(ctx context.Context, label, id string) (bool, error)

	// GetNode returns the stored node, or ErrNodeNotFound.
	GetNode(ctx context.Context, label, id string) (*types.Node, error)

	// Query runs a read statement with parameters.
	Query(ctx context.Context, statement string, params map[string]any) ([]types.Record, error)

	// Clear removes every node and edge.
	Clear(ctx context.Context) error

	// Close releases the resources held by the store.
	Close(ctx context.Context) error
}

// Provider names a store implementation.
type Provider string

const (
	ProviderNeo4j  Provider = "neo4j"
	ProviderMemory Provider = "memory"
)

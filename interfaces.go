package loregraph

import (
	"context"

	"github.com/soundprediction/loregraph/pkg/types"
)

// The Client surface is split into small interfaces; callers should depend
// on the smallest one that covers what they use.

// Loregraph is the surface the HTTP server and CLI depend on.
type Loregraph interface {
	Ingester
	WorldReader
	WorldWriter

	// Kinds lists the registered entity and relationship kinds.
	Kinds() (entityKinds, relationshipKinds []string)

	// ClearGraph removes every node and edge from the store.
	ClearGraph(ctx context.Context) error

	// Degraded reports whether the store is serving from its fallback.
	Degraded() bool

	// Close releases the store.
	Close(ctx context.Context) error
}

// Ingester turns text into graph content.
type Ingester interface {
	// Ingest extracts, maps, deduplicates and (optionally) persists the
	// entities and relationships found in text.
	Ingest(ctx context.Context, text string, opts *IngestOptions) (*types.IngestResult, error)

	// AnalyzeAndIngest lets the model choose the kinds before ingesting.
	AnalyzeAndIngest(ctx context.Context, text string, opts *IngestOptions) (*types.IngestResult, error)
}

// WorldReader answers the read-path lookups used by a game loop.
type WorldReader interface {
	LocationDetails(ctx context.Context, name string) (*Location, error)
	Exits(ctx context.Context, locationName string) ([]Exit, error)
	ItemsAt(ctx context.Context, locationID string) ([]Entity, error)
	CharactersAt(ctx context.Context, locationID string) ([]Entity, error)
	Inventory(ctx context.Context, characterID string) ([]Entity, error)
	CurrentLocation(ctx context.Context, characterID string) (*Location, error)
	GetNode(ctx context.Context, label, id string) (*types.Node, error)
}

// WorldWriter makes hand-authored changes to the world outside of ingestion.
type WorldWriter interface {
	CreateItem(ctx context.Context, name, description, locationName string) (*types.Node, error)
	CreateCharacter(ctx context.Context, id, name, description, locationName string) (*types.Node, error)
	TakeItem(ctx context.Context, characterID, itemName, locationName string) error
	SeedWorld(ctx context.Context, world *World) error
}

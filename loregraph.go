package loregraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/extractor"
	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/utils"
)

// Client is the main implementation of Loregraph.
type Client struct {
	store     driver.GraphStore
	completer nlp.Completer
	registry  *registry.Registry
	extractor *extractor.Extractor
	config    *Config
	logger    *slog.Logger
}

// Config holds configuration for the Client.
type Config struct {
	// MaxConcurrency bounds concurrent kind extractions. 0 uses
	// utils.GetSemaphoreLimit.
	MaxConcurrency int
	// CompletionTimeout bounds each completion call. 0 means no timeout.
	CompletionTimeout time.Duration
	// StoreTimeout bounds each store call. 0 means no timeout.
	StoreTimeout time.Duration
	// MaxRecords caps records per kind. 0 uses the extractor defaults.
	MaxRecords int
	// Temperature for extraction calls.
	Temperature float32
	// UseYAML renders schemas as YAML in prompts.
	UseYAML bool
}

// NewDefaultConfig returns the configuration used when NewClient gets nil.
func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrency:    utils.GetSemaphoreLimit(),
		CompletionTimeout: 120 * time.Second,
		StoreTimeout:      30 * time.Second,
		Temperature:       0.2,
	}
}

// NewClient creates a Client. store, completer and reg are required.
func NewClient(store driver.GraphStore, completer nlp.Completer, reg *registry.Registry, cfg *Config, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []extractor.Option{
		extractor.WithLogger(logger),
		extractor.WithTimeout(cfg.CompletionTimeout),
	}
	if cfg.Temperature > 0 {
		opts = append(opts, extractor.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxRecords > 0 {
		opts = append(opts, extractor.WithMaxRecords(cfg.MaxRecords, cfg.MaxRecords))
	}
	if cfg.UseYAML {
		opts = append(opts, extractor.WithYAMLSchemas())
	}

	return &Client{
		store:     store,
		completer: completer,
		registry:  reg,
		extractor: extractor.New(completer, opts...),
		config:    cfg,
		logger:    logger,
	}, nil
}

// GetStore returns the underlying graph store
func (c *Client) GetStore() driver.GraphStore {
	return c.store
}

// GetRegistry returns the type registry
func (c *Client) GetRegistry() *registry.Registry {
	return c.registry
}

// RegisterEntityType registers an entity kind with the client's registry.
func (c *Client) RegisterEntityType(spec registry.EntityTypeSpec) error {
	return c.registry.RegisterEntityType(spec)
}

// RegisterRelationshipType registers a relationship kind with the client's
// registry.
func (c *Client) RegisterRelationshipType(spec registry.RelationshipTypeSpec) error {
	return c.registry.RegisterRelationshipType(spec)
}

// Kinds lists the registered entity and relationship kinds in registration
// order.
func (c *Client) Kinds() (entityKinds, relationshipKinds []string) {
	return c.registry.EntityKinds(), c.registry.RelationshipKinds()
}

// Degraded reports whether the store has switched to its fallback. Stores
// without a fallback are never degraded.
func (c *Client) Degraded() bool {
	if d, ok := c.store.(interface{ Degraded() bool }); ok {
		return d.Degraded()
	}
	return false
}

// ClearGraph removes every node and edge from the store.
func (c *Client) ClearGraph(ctx context.Context) error {
	ctx, cancel := c.storeContext(ctx)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	return nil
}

// Close closes the store.
func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *Client) concurrency() int {
	if c.config.MaxConcurrency > 0 {
		return c.config.MaxConcurrency
	}
	return utils.GetSemaphoreLimit()
}

func (c *Client) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.StoreTimeout > 0 {
		return context.WithTimeout(ctx, c.config.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

var _ Loregraph = (*Client)(nil)

package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/soundprediction/loregraph/pkg/alert"
	"github.com/soundprediction/loregraph/pkg/types"
)

// FailoverStore sends every call to the primary store until the primary
// reports a StoreUnavailableError. From then on, for the life of the process,
// every call goes to the fallback, including the call that failed.
//
// The switch is one-way: the primary is never retried.
type FailoverStore struct {
	primary  GraphStore
	fallback GraphStore
	degraded atomic.Bool
	logger   *slog.Logger
	alerter  alert.Alerter
}

// FailoverOption configures a FailoverStore.
type FailoverOption func(*FailoverStore)

// WithFailoverLogger sets the logger.
func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *FailoverStore) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFailoverAlerter sends an alert when the store degrades.
func WithFailoverAlerter(a alert.Alerter) FailoverOption {
	return func(f *FailoverStore) {
		if a != nil {
			f.alerter = a
		}
	}
}

// NewFailoverStore wraps primary with fallback.
func NewFailoverStore(primary, fallback GraphStore, opts ...FailoverOption) *FailoverStore {
	f := &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default(),
		alerter:  &alert.NoOpAlerter{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Degraded reports whether calls are being served by the fallback.
func (f *FailoverStore) Degraded() bool {
	return f.degraded.Load()
}

// degrade flips to the fallback. Only the first caller logs and alerts.
func (f *FailoverStore) degrade(op string, cause error) {
	if !f.degraded.CompareAndSwap(false, true) {
		return
	}
	f.logger.Error("Graph store unavailable, switching to in-memory fallback", "op", op, "error", cause)
	body := fmt.Sprintf("Operation %s failed against the primary graph store: %v\n"+
		"All further graph operations are served by the in-memory fallback until restart.", op, cause)
	if err := f.alerter.Alert("Graph store degraded to fallback", body); err != nil {
		f.logger.Warn("Failed to send degraded alert", "error", err)
	}
}

// run calls fn on the active store and retries it on the fallback when the
// primary is unavailable.
func run[T any](f *FailoverStore, op string, fn func(GraphStore) (T, error)) (T, error) {
	if f.degraded.Load() {
		return fn(f.fallback)
	}
	out, err := fn(f.primary)
	if !IsUnavailable(err) {
		return out, err
	}
	f.degrade(op, err)
	return fn(f.fallback)
}

// UpsertNode implements GraphStore.
func (f *FailoverStore) UpsertNode(ctx context.Context, node *types.Node) error {
	_, err := run(f, "upsert node", func(s GraphStore) (struct{}, error) {
		return struct{}{}, s.UpsertNode(ctx, node)
	})
	return err
}

// UpsertEdge implements GraphStore.
func (f *FailoverStore) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	_, err := run(f, "upsert edge", func(s GraphStore) (struct{}, error) {
		return struct{}{}, s.UpsertEdge(ctx, edge)
	})
	return err
}

// DeleteEdge implements GraphStore.
func (f *FailoverStore) DeleteEdge(ctx context.Context, key types.EdgeKey) (bool, error) {
	return run(f, "delete edge", func(s GraphStore) (bool, error) {
		return s.DeleteEdge(ctx, key)
	})
}

// NodeExists implements GraphStore.
func (f *FailoverStore) NodeExists(ctx context.Context, label, id string) (bool, error) {
	return run(f, "node exists", func(s GraphStore) (bool, error) {
		return s.NodeExists(ctx, label, id)
	})
}

// GetNode implements GraphStore.
func (f *FailoverStore) GetNode(ctx context.Context, label, id string) (*types.Node, error) {
	return run(f, "get node", func(s GraphStore) (*types.Node, error) {
		return s.GetNode(ctx, label, id)
	})
}

// Query implements GraphStore.
func (f *FailoverStore) Query(ctx context.Context, statement string, params map[string]any) ([]types.Record, error) {
	return run(f, "query", func(s GraphStore) ([]types.Record, error) {
		return s.Query(ctx, statement, params)
	})
}

// Clear implements GraphStore.
func (f *FailoverStore) Clear(ctx context.Context) error {
	_, err := run(f, "clear", func(s GraphStore) (struct{}, error) {
		return struct{}{}, s.Clear(ctx)
	})
	return err
}

// Close closes both stores.
func (f *FailoverStore) Close(ctx context.Context) error {
	return errors.Join(f.primary.Close(ctx), f.fallback.Close(ctx))
}

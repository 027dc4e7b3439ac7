package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/loregraph/pkg/alert"
	"github.com/soundprediction/loregraph/pkg/config"
)

// NewStoreFromConfig builds the store described by cfg. With Failover set, a
// Neo4j store is wrapped in a FailoverStore backed by a MemoryStore, and an
// unreachable server at startup degrades immediately instead of failing.
func NewStoreFromConfig(ctx context.Context, cfg config.DatabaseConfig, alerter alert.Alerter, logger *slog.Logger) (GraphStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch Provider(cfg.Driver) {
	case ProviderMemory:
		return NewMemoryStore(), nil
	case ProviderNeo4j, "":
	default:
		return nil, fmt.Errorf("unsupported graph store driver %q", cfg.Driver)
	}

	primary, err := NewNeo4jStore(cfg.URI, cfg.Username, cfg.Password, cfg.Database,
		WithMaxRetryTime(cfg.MaxRetryTime))
	if err != nil {
		return nil, err
	}
	primary.WithLogger(logger)

	if !cfg.Failover {
		if err := primary.VerifyConnectivity(ctx); err != nil {
			_ = primary.Close(ctx)
			return nil, err
		}
		return primary, nil
	}

	store := NewFailoverStore(primary, NewMemoryStore(),
		WithFailoverLogger(logger),
		WithFailoverAlerter(alerter))
	if err := primary.VerifyConnectivity(ctx); err != nil {
		store.degrade("verify connectivity", err)
	}
	return store, nil
}

package loregraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/alert"
	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/driver"
	loregraphLogger "github.com/soundprediction/loregraph/pkg/logger"
	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/telemetry"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg     *config.Config
	client  *loregraph.Client
	logger  *slog.Logger
	closers []io.Closer
}

// Close releases the store, flushes telemetry and closes the log file.
func (a *app) Close(ctx context.Context) {
	if a.client != nil {
		if err := a.client.Close(ctx); err != nil {
			a.logger.Warn("Failed to close store", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// newLogger builds the process logger and, when a telemetry path is set,
// captures errors to Parquet alongside the console output.
func newLogger(cfg *config.Config) (*slog.Logger, []io.Closer, error) {
	logger, logCloser, err := loregraphLogger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	closers := []io.Closer{logCloser}

	if cfg.Telemetry.ParquetPath != "" {
		handler, err := telemetry.NewParquetHandler(logger.Handler(), cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("Error tracking disabled", "error", err)
		} else {
			logger = slog.New(handler)
			closers = append(closers, handler)
		}
	}

	slog.SetDefault(logger)
	return logger, closers, nil
}

// newRegistry builds the type registry described by cfg.Schema.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	var opts []registry.Option
	if cfg.Schema.Strict {
		opts = append(opts, registry.WithStrict())
	}
	if cfg.Schema.Lazy {
		opts = append(opts, registry.WithLazyResolution())
	}
	opts = append(opts, registry.WithLogger(logger))

	reg := registry.New(opts...)
	if cfg.Schema.Defaults {
		if err := registry.RegisterDefaults(reg); err != nil {
			return nil, fmt.Errorf("failed to register default kinds: %w", err)
		}
	}
	if cfg.Schema.Path != "" {
		if err := registry.LoadFile(reg, cfg.Schema.Path); err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", cfg.Schema.Path, err)
		}
	}
	if len(reg.EntityKinds()) == 0 {
		return nil, loregraph.ErrNoEntityKinds
	}
	return reg, nil
}

// newApp wires logger, registry, store and completion stack into a Client.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, closers, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: closers}

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	alerter := alert.New(cfg.Alert, logger)

	store, err := driver.NewStoreFromConfig(ctx, cfg.Database, alerter, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create graph store: %w", err)
	}

	nlpClient, err := nlp.NewClientFromConfig(cfg, nlp.StackOptions{Alerter: alerter, Logger: logger})
	if err != nil {
		_ = store.Close(ctx)
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create NLP client: %w", err)
	}
	a.closers = append(a.closers, nlpClient)

	client, err := loregraph.NewClient(store, nlp.NewCompleter(nlpClient), reg, clientConfig(cfg), logger)
	if err != nil {
		_ = store.Close(ctx)
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create loregraph client: %w", err)
	}
	a.client = client

	entityKinds, relationshipKinds := client.Kinds()
	logger.Info("Loregraph initialized",
		"driver", cfg.Database.Driver,
		"model", cfg.NLP.Models["default"].Model,
		"entity_kinds", len(entityKinds),
		"relationship_kinds", len(relationshipKinds),
		"degraded", client.Degraded())
	return a, nil
}

func clientConfig(cfg *config.Config) *loregraph.Config {
	c := loregraph.NewDefaultConfig()
	if cfg.Ingest.MaxConcurrency > 0 {
		c.MaxConcurrency = cfg.Ingest.MaxConcurrency
	}
	if cfg.Ingest.MaxRecords > 0 {
		c.MaxRecords = cfg.Ingest.MaxRecords
	}
	if cfg.Ingest.CompletionTimeout > 0 {
		c.CompletionTimeout = time.Duration(cfg.Ingest.CompletionTimeout) * time.Second
	}
	if cfg.Ingest.StoreTimeout > 0 {
		c.StoreTimeout = time.Duration(cfg.Ingest.StoreTimeout) * time.Second
	}
	if t := cfg.NLP.Models["default"].Temperature; t > 0 {
		c.Temperature = t
	}
	return c
}

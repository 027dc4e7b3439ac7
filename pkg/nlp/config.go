package nlp

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/soundprediction/loregraph/pkg/alert"
	"github.com/soundprediction/loregraph/pkg/config"
)

// Default configuration values
const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.2
)

// StackOptions carries the collaborators used by NewClientFromConfig.
type StackOptions struct {
	Alerter alert.Alerter
	Logger  *slog.Logger
}

// NewClientFromConfig builds the completion client stack described by cfg.
//
// Each configured model is an OpenAI-compatible client wrapped with retry and,
// when enabled, a circuit breaker. Models are chained "default" first, then the
// configured fallbacks. Token tracking and the response cache wrap the chain.
func NewClientFromConfig(cfg *config.Config, opts StackOptions) (Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names := append([]string{"default"}, cfg.NLP.Fallbacks...)
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		modelCfg, ok := cfg.NLP.Models[name]
		if !ok {
			return nil, fmt.Errorf("nlp model %q is not configured", name)
		}
		client, err := newModelClient(modelCfg)
		if err != nil {
			return nil, fmt.Errorf("nlp model %q: %w", name, err)
		}

		var wrapped Client = NewRetryClient(client, retryConfig(cfg.NLP.Retry)).WithLogger(logger)
		if cfg.CircuitBreaker.Enabled {
			wrapped = NewCircuitBreakerClient(wrapped, cfg.CircuitBreaker, opts.Alerter, "nlp-"+name, logger)
		}
		providers = append(providers, Provider{Name: name, Client: wrapped})
	}

	var client Client = providers[0].Client
	if len(providers) > 1 {
		fb, err := NewFallbackClient(providers, logger)
		if err != nil {
			return nil, err
		}
		client = fb
	}

	model := cfg.NLP.Models["default"].Model
	if cfg.Telemetry.TokenTracking && cfg.Telemetry.ParquetPath != "" {
		tracker, err := NewTokenTracker(filepath.Join(cfg.Telemetry.ParquetPath, "tokens"))
		if err != nil {
			return nil, err
		}
		client = NewTokenTrackingClient(client, tracker, model, logger)
	}

	if cfg.Cache.Enabled {
		cached, err := NewCachingClient(client, CacheOptions{
			Path:   cfg.Cache.Path,
			TTL:    time.Duration(cfg.Cache.TTL) * time.Second,
			Model:  model,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		client = cached
	}

	return client, nil
}

func newModelClient(m config.NLPModelConfig) (*OpenAIClient, error) {
	switch m.Provider {
	case "", "openai", "openai-compatible":
	default:
		return nil, fmt.Errorf("unsupported provider %q", m.Provider)
	}

	c := Config{Model: m.Model, BaseURL: m.BaseURL}
	temperature := float32(DefaultTemperature)
	if m.Temperature > 0 {
		temperature = m.Temperature
	}
	c.Temperature = &temperature
	maxTokens := DefaultMaxTokens
	if m.MaxTokens > 0 {
		maxTokens = m.MaxTokens
	}
	c.MaxTokens = &maxTokens

	return NewOpenAIClient(m.APIKey, c)
}

func retryConfig(r config.RetryConfig) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        r.MaxRetries,
		InitialDelay:      time.Duration(r.InitialDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(r.MaxDelayMs) * time.Millisecond,
		BackoffMultiplier: r.BackoffMultiplier,
	}
}

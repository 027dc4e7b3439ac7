package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/loregraph/pkg/types"
)

// Provider is a named client in a FallbackClient chain.
type Provider struct {
	Name   string
	Client Client
}

// FallbackClient tries providers in order and returns the first success.
// Context cancellation stops the chain.
type FallbackClient struct {
	providers []Provider
	logger    *slog.Logger
}

// NewFallbackClient creates a client over providers, tried in the given order.
func NewFallbackClient(providers []Provider, logger *slog.Logger) (*FallbackClient, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackClient{providers: providers, logger: logger}, nil
}

// Chat implements Client with fallback
func (f *FallbackClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return f.try(ctx, func(c Client) (*types.Response, error) {
		return c.Chat(ctx, messages)
	})
}

// ChatWithStructuredOutput implements Client with fallback
func (f *FallbackClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return f.try(ctx, func(c Client) (*types.Response, error) {
		return c.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

// ChatStream opens a stream on the first streaming provider that accepts it.
func (f *FallbackClient) ChatStream(ctx context.Context, messages []types.Message) (<-chan StreamChunk, error) {
	var errs []error
	for _, p := range f.providers {
		sc, ok := p.Client.(StreamingClient)
		if !ok {
			continue
		}
		ch, err := sc.ChatStream(ctx, messages)
		if err == nil {
			return ch, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("Provider stream failed, trying next", "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no provider supports streaming")
	}
	return nil, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}

func (f *FallbackClient) try(ctx context.Context, call func(Client) (*types.Response, error)) (*types.Response, error) {
	var errs []error
	for i, p := range f.providers {
		resp, err := call(p.Client)
		if err == nil {
			if i > 0 {
				f.logger.Info("Completion served by fallback provider", "provider", p.Name)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Warn("Provider failed, trying next", "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return nil, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}

// Close closes all providers
func (f *FallbackClient) Close() error {
	var errs []string
	for _, p := range f.providers {
		if err := p.Client.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %s", strings.Join(errs, "; "))
	}
	return nil
}

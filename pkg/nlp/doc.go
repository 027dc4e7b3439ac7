// Package nlp provides the text-completion clients used for extraction.
//
// Client is the chat-level interface implemented by OpenAIClient, which speaks
// to OpenAI and any OpenAI-compatible service (Ollama, vLLM, LocalAI) through
// a custom base URL. Completer is the narrower port the extractor depends on;
// NewCompleter adapts any Client to it.
//
// # Client Wrappers
//
//   - RetryClient: retry with exponential backoff on transient errors
//   - CircuitBreakerClient: stops calling a failing provider and alerts
//   - CachingClient: serves repeated requests from a badger store
//   - TokenTrackingClient: writes token usage and estimated cost to parquet
//   - FallbackClient: tries providers in order
//
// NewClientFromConfig assembles these from configuration.
//
// # Usage
//
//	client, err := nlp.NewOpenAIClient(apiKey, nlp.Config{Model: "gpt-4o-mini"})
//	completer := nlp.NewCompleter(nlp.NewRetryClient(client, nlp.DefaultRetryConfig()))
//	text, err := completer.Complete(ctx, nlp.CompletionRequest{Prompt: "...", ExpectJSON: true})
//
// # Error Handling
//
// RateLimitError, RefusalError and EmptyResponseError support errors.Is() for
// type checking and match ErrRateLimit, ErrRefusal and ErrEmptyResponse. Service
// errors for unknown models wrap ErrInvalidModel. Refusals and invalid models
// are not retried.
package nlp

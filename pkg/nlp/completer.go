package nlp

import (
	"context"
	"fmt"

	"github.com/soundprediction/loregraph/pkg/types"
)

// Completer is the text-completion port used by extraction.
type Completer interface {
	// Complete returns the full completion text for req.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream delivers the completion incrementally. The channel is closed when
	// the completion ends; a chunk with a non-nil Err is the last one sent.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// CompletionRequest is a single prompt/response exchange.
type CompletionRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float32 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	// ExpectJSON asks the provider for a JSON response format.
	ExpectJSON bool `json:"expect_json,omitempty"`
}

// Messages renders the request as chat messages.
func (r CompletionRequest) Messages() []types.Message {
	messages := make([]types.Message, 0, 2)
	if r.SystemPrompt != "" {
		messages = append(messages, NewSystemMessage(r.SystemPrompt))
	}
	return append(messages, NewUserMessage(r.Prompt))
}

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Content string
	Err     error
}

// ClientCompleter adapts a chat Client to the Completer port.
type ClientCompleter struct {
	client Client
}

// NewCompleter wraps client as a Completer.
func NewCompleter(client Client) *ClientCompleter {
	return &ClientCompleter{client: client}
}

// Complete implements Completer.
func (c *ClientCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx = withGeneration(ctx, req)

	var (
		resp *types.Response
		err  error
	)
	if req.ExpectJSON {
		resp, err = c.client.ChatWithStructuredOutput(ctx, req.Messages(), nil)
	} else {
		resp, err = c.client.Chat(ctx, req.Messages())
	}
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", NewEmptyResponseError("completion returned no response")
	}
	return resp.Content, nil
}

// Stream implements Completer. Clients that cannot stream deliver the whole
// completion as one chunk.
func (c *ClientCompleter) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	ctx = withGeneration(ctx, req)
	if sc, ok := c.client.(StreamingClient); ok && !req.ExpectJSON {
		return sc.ChatStream(ctx, req.Messages())
	}

	content, err := c.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	out := make(chan StreamChunk, 1)
	out <- StreamChunk{Content: content}
	close(out)
	return out, nil
}

// Close closes the underlying client.
func (c *ClientCompleter) Close() error {
	return c.client.Close()
}

// Collect drains a stream into a single string.
func Collect(ch <-chan StreamChunk) (string, error) {
	var out []byte
	for chunk := range ch {
		if chunk.Err != nil {
			return string(out), chunk.Err
		}
		out = append(out, chunk.Content...)
	}
	return string(out), nil
}

type generationKey struct{}

// generation carries per-request sampling settings through decorator clients
// down to the provider client.
type generation struct {
	temperature float32
	maxTokens   int
}

func withGeneration(ctx context.Context, req CompletionRequest) context.Context {
	return context.WithValue(ctx, generationKey{}, generation{temperature: req.Temperature, maxTokens: req.MaxTokens})
}

func generationFrom(ctx context.Context) (generation, bool) {
	g, ok := ctx.Value(generationKey{}).(generation)
	return g, ok
}

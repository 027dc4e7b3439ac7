package nlp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrRateLimit is returned when the completion service throttles the caller.
	ErrRateLimit = errors.New("completion rate limit exceeded")

	// ErrRefusal is wrapped by every RefusalError.
	ErrRefusal = errors.New("model refused the prompt")

	// ErrEmptyResponse is wrapped by every EmptyResponseError.
	ErrEmptyResponse = errors.New("model returned no completion")

	// ErrInvalidModel is returned for model names the client or service rejects.
	ErrInvalidModel = errors.New("invalid model")
)

// RateLimitError is a throttling response, optionally with the service's message.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return ErrRateLimit.Error()
	}
	return e.Message
}

// Is matches any *RateLimitError as well as ErrRateLimit.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok || target == ErrRateLimit
}

// NewRateLimitError creates a rate limit error with an optional message.
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// RefusalError carries the model's refusal text. Refusals are not retried.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRefusal, e.Message)
}

func (e *RefusalError) Unwrap() error { return ErrRefusal }

// Is matches any *RefusalError.
func (e *RefusalError) Is(target error) bool {
	_, ok := target.(*RefusalError)
	return ok
}

// NewRefusalError creates a refusal error.
func NewRefusalError(message string) *RefusalError {
	return &RefusalError{Message: message}
}

// EmptyResponseError reports a completion call that produced nothing usable.
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%v: %s", ErrEmptyResponse, e.Message)
}

func (e *EmptyResponseError) Unwrap() error { return ErrEmptyResponse }

// Is matches any *EmptyResponseError.
func (e *EmptyResponseError) Is(target error) bool {
	_, ok := target.(*EmptyResponseError)
	return ok
}

// NewEmptyResponseError creates an empty response error.
func NewEmptyResponseError(message string) *EmptyResponseError {
	return &EmptyResponseError{Message: message}
}

// validateModelName rejects names no service would accept.
func validateModelName(model string) error {
	if model != strings.TrimSpace(model) || strings.ContainsAny(model, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidModel, model)
	}
	return nil
}

// choiceError reports a refusal in the first completion choice.
func choiceError(choice openai.ChatCompletionChoice) error {
	if choice.Message.Refusal != "" {
		return NewRefusalError(choice.Message.Refusal)
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return NewRefusalError("completion stopped by content filter")
	}
	return nil
}

// apiError maps service errors onto the package's error values. Anything it
// does not recognise is returned unchanged.
func apiError(model string, err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", NewRateLimitError(apiErr.Message), err)
	case apiErr.Code == "model_not_found":
		return fmt.Errorf("%w %q: %w", ErrInvalidModel, model, err)
	}
	return err
}

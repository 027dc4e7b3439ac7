package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/alert"
	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/types"
)

func TestCircuitBreakerTripsAndAlerts(t *testing.T) {
	mock := &mockClient{failUntilCall: 100, errorToReturn: errors.New("bad request")}
	recorder := &alert.Recorder{}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.5,
	}, recorder, "test-llm", nil)

	msgs := []types.Message{NewUserMessage("hi")}
	for i := 0; i < 3; i++ {
		_, err := cb.Chat(context.Background(), msgs)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Chat(context.Background(), msgs)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, mock.callCount, "open breaker must not call through")

	require.Len(t, recorder.Subjects(), 1)
	assert.Contains(t, recorder.Subjects()[0], "test-llm")
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	mock := &mockClient{}
	cb := NewCircuitBreakerClient(mock, config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1}, nil, "ok", nil)

	resp, err := cb.ChatWithStructuredOutput(context.Background(), []types.Message{NewUserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"status": "success"}`, resp.Content)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

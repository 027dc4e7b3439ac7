package nlp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/types"
)

func TestParquetTokenTracker(t *testing.T) {
	tokenDir := filepath.Join(t.TempDir(), "tokens")

	tracker, err := NewTokenTracker(tokenDir)
	require.NoError(t, err)
	tracker.batchSize = 1 // Force flush on every write for testing

	ctx := context.Background()
	ctx = context.WithValue(ctx, types.ContextKeyUserID, "test-user")
	ctx = context.WithValue(ctx, types.ContextKeySessionID, "test-session")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "test-source")
	ctx = context.WithValue(ctx, types.ContextKeyIngestionSource, "old-mill.txt")
	ctx = context.WithValue(ctx, types.ContextKeySystemCall, true)

	usage := &types.TokenUsage{
		PromptTokens:     600,
		CompletionTokens: 400,
		TotalTokens:      1000,
	}
	require.NoError(t, tracker.AddUsage(ctx, usage, "gpt-4o-mini"))

	entries, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))
	assert.True(t, strings.HasPrefix(entries[0].Name(), "token_usage_"))

	rows, err := parquet.ReadFile[TokenUsageRecord](filepath.Join(tokenDir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "test-user", rows[0].UserID)
	assert.Equal(t, "old-mill.txt", rows[0].IngestionSource)
	assert.True(t, rows[0].IsSystemCall)
	assert.InDelta(t, 0.0001, rows[0].EstimatedCost, 1e-9)
}

func TestTokenTrackingClientRecordsUsage(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTokenTracker(dir)
	require.NoError(t, err)

	mock := &mockClient{responseToReturn: &types.Response{
		Content:    "ok",
		TokensUsed: &types.TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}}
	client := NewTokenTrackingClient(mock, tracker, "gpt-4o", nil)

	_, err = client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
	require.NoError(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "records stay buffered until the batch fills")

	require.NoError(t, client.Close())
	entries, _ = os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestCostCalculator(t *testing.T) {
	c := NewCostCalculator()
	assert.InDelta(t, 0.005, c.CalculateCost("gpt-4o", 500, 500), 1e-9)
	assert.InDelta(t, 0.0001, c.CalculateCost("gpt-4o-mini-2024-07-18", 500, 500), 1e-9)
	assert.InDelta(t, 0.001, c.CalculateCost("some-local-model", 1000, 0), 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 7, EstimateTokens("The old mill, by the river."))
}

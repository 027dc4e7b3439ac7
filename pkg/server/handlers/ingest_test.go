package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/server/dto"
	"github.com/soundprediction/loregraph/pkg/types"
)

func sampleResult() *types.IngestResult {
	return &types.IngestResult{
		Entities: map[string][]*types.Node{
			"Location": {types.NewNode("Location", "old_mill")},
		},
		Relationships: map[string][]*types.Edge{},
		Stats:         types.IngestStats{EntityRecords: 1, NodesPersisted: 1},
	}
}

func TestIngestValidation(t *testing.T) {
	handler := NewIngestHandler(&fakeLore{}, nil)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{name: "invalid JSON", body: "not json", expectedStatus: http.StatusBadRequest, expectedError: "invalid_request"},
		{name: "missing text", body: `{"entity_kinds":["Location"]}`, expectedStatus: http.StatusBadRequest, expectedError: "invalid_request"},
		{name: "blank text", body: `{"text":"   "}`, expectedStatus: http.StatusBadRequest, expectedError: "invalid_request"},
		{name: "blank kind", body: `{"text":"a mill","entity_kinds":[""]}`, expectedStatus: http.StatusBadRequest, expectedError: "invalid_request"},
		{name: "negative max records", body: `{"text":"a mill","max_records":-1}`, expectedStatus: http.StatusBadRequest, expectedError: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(http.MethodPost, "/ingest", "/ingest", tt.body, handler.Ingest)
			require.Equal(t, tt.expectedStatus, w.Code)

			var response dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}
}

func TestIngestPassesOptions(t *testing.T) {
	lore := &fakeLore{result: sampleResult()}
	handler := NewIngestHandler(lore, nil)

	body := `{"text":"The Old Mill creaks.","entity_kinds":["Location"],"relationship_kinds":["EXITS_TO"],"persist":false,"max_records":5}`
	w := serve(http.MethodPost, "/ingest", "/ingest", body, handler.Ingest)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, lore.lastOpts)
	assert.Equal(t, "The Old Mill creaks.", lore.lastText)
	assert.Equal(t, []string{"Location"}, lore.lastOpts.EntityKinds)
	assert.Equal(t, []string{"EXITS_TO"}, lore.lastOpts.RelationshipKinds)
	assert.False(t, lore.lastOpts.Persist)
	assert.Equal(t, 5, lore.lastOpts.MaxRecords)
	assert.Equal(t, "api_ingest", lore.lastOpts.Source)
	assert.False(t, lore.analyzed)

	var response struct {
		Success bool `json:"success"`
		Result  struct {
			Entities map[string][]json.RawMessage `json:"entities"`
			Stats    types.IngestStats            `json:"stats"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Len(t, response.Result.Entities["Location"], 1)
	assert.Equal(t, 1, response.Result.Stats.NodesPersisted)
}

func TestIngestPersistsByDefault(t *testing.T) {
	lore := &fakeLore{result: sampleResult()}
	handler := NewIngestHandler(lore, nil)

	w := serve(http.MethodPost, "/ingest", "/ingest", `{"text":"a mill","source":"chapter-1"}`, handler.Ingest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, lore.lastOpts.Persist)
	assert.Equal(t, "chapter-1", lore.lastOpts.Source)
}

func TestAnalyzeAndIngest(t *testing.T) {
	lore := &fakeLore{result: sampleResult()}
	handler := NewIngestHandler(lore, nil)

	w := serve(http.MethodPost, "/ingest/analyze", "/ingest/analyze", `{"text":"a mill"}`, handler.AnalyzeAndIngest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, lore.analyzed)
}

func TestIngestErrors(t *testing.T) {
	unknown := &mapper.UnregisteredKindError{Kind: "dragons", Err: &registry.NotFoundError{Kind: "dragons"}}

	tests := []struct {
		name           string
		err            error
		result         *types.IngestResult
		expectedStatus int
	}{
		{name: "unknown kind", err: unknown, expectedStatus: http.StatusBadRequest},
		{name: "deadline", err: context.DeadlineExceeded, result: sampleResult(), expectedStatus: http.StatusGatewayTimeout},
		{name: "wrapped cancel", err: fmt.Errorf("ingest: %w", context.Canceled), expectedStatus: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewIngestHandler(&fakeLore{result: tt.result, ingestErr: tt.err}, nil)
			w := serve(http.MethodPost, "/ingest", "/ingest", `{"text":"a mill"}`, handler.Ingest)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestIngestReturnsPartialResultOnTimeout(t *testing.T) {
	handler := NewIngestHandler(&fakeLore{result: sampleResult(), ingestErr: context.DeadlineExceeded}, nil)

	w := serve(http.MethodPost, "/ingest", "/ingest", `{"text":"a mill"}`, handler.Ingest)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	var response dto.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	require.NotNil(t, response.Result)
}

func TestIngestWithoutClient(t *testing.T) {
	handler := NewIngestHandler(nil, nil)

	w := serve(http.MethodPost, "/ingest", "/ingest", `{"text":"a mill"}`, handler.Ingest)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClearGraph(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		lore := &fakeLore{}
		handler := NewIngestHandler(lore, nil)

		w := serve(http.MethodDelete, "/graph", "/graph", "", handler.ClearGraph)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, lore.cleared)
	})

	t.Run("clears", func(t *testing.T) {
		lore := &fakeLore{}
		handler := NewIngestHandler(lore, nil)

		w := serve(http.MethodDelete, "/graph", "/graph?confirm=true", "", handler.ClearGraph)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, lore.cleared)
	})

	t.Run("store error", func(t *testing.T) {
		handler := NewIngestHandler(&fakeLore{clearErr: errors.New("neo4j down")}, nil)

		w := serve(http.MethodDelete, "/graph", "/graph?confirm=true", "", handler.ClearGraph)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

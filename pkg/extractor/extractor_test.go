package extractor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/types"
)

// fakeCompleter returns canned responses and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	requests []nlp.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req nlp.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompleter) Stream(ctx context.Context, req nlp.CompletionRequest) (<-chan nlp.StreamChunk, error) {
	content, err := f.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan nlp.StreamChunk, 1)
	ch <- nlp.StreamChunk{Content: content}
	close(ch)
	return ch, nil
}

var locationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name": map[string]any{"type": "string"},
	},
}

func TestExtract(t *testing.T) {
	fc := &fakeCompleter{response: `[{"name":"The Old Mill","description":"A crumbling mill"},{"name":"Riverbank"}]`}
	ex := New(fc)

	records, err := ex.Extract(context.Background(), "The Old Mill stands by the river.", "Location", locationSchema, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Location", records[0].Kind)
	assert.Equal(t, "The Old Mill", records[0].Fields["name"])

	require.Len(t, fc.requests, 1)
	req := fc.requests[0]
	assert.True(t, req.ExpectJSON)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.Contains(t, req.SystemPrompt, "Location")
	assert.Contains(t, req.SystemPrompt, "Extract up to 10 Location objects")
	assert.Contains(t, req.Prompt, "The Old Mill stands by the river.")
}

func TestExtractTruncates(t *testing.T) {
	fc := &fakeCompleter{response: `[{"name":"a"},{"name":"b"},{"name":"c"}]`}
	records, err := New(fc).Extract(context.Background(), "text", "Item", nil, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExtractMalformedOutputIsEmpty(t *testing.T) {
	fc := &fakeCompleter{response: "Sorry, I can't help with that."}
	records, err := New(fc).Extract(context.Background(), "text", "Item", nil, 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestExtractTransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	fc := &fakeCompleter{err: cause}
	records, err := New(fc).Extract(context.Background(), "text", "Character", nil, 5)

	assert.Empty(t, records)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "Character", extractionErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestExtractOptions(t *testing.T) {
	fc := &fakeCompleter{response: `[]`}
	ex := New(fc,
		WithTemperature(0.5),
		WithMaxTokens(512),
		WithMaxRecords(3, 4),
		WithTimeout(time.Second),
		WithYAMLSchemas(),
	)

	_, err := ex.ExtractWithInstructions(context.Background(), "text", "Quest", locationSchema, "Quests have objectives.", 0)
	require.NoError(t, err)

	req := fc.requests[0]
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)
	assert.Equal(t, 512, req.MaxTokens)
	assert.Contains(t, req.SystemPrompt, "Extract up to 3 Quest objects")
	assert.Contains(t, req.SystemPrompt, "Quests have objectives.")
	assert.Contains(t, req.SystemPrompt, "type: object")
}

func TestExtractRelationships(t *testing.T) {
	fc := &fakeCompleter{response: `[
		{"source_id":"The Old Mill","target_id":"Riverbank","properties":{"direction":"north"}},
		{"source":"Riverbank","target":"The Old Mill","direction":"south"},
		{"sourceRef":"The Old Mill","targetRef":"Cellar","properties":{"direction":"down"},"direction":"ignored","accessible":false},
		{"source_id":"The Old Mill","properties":{"direction":"east"}},
		{"target_id":"Riverbank"}
	]`}
	sources := []types.ExtractionRecord{{Kind: "Location", Fields: map[string]any{"name": "The Old Mill"}}}
	targets := []types.ExtractionRecord{{Kind: "Location", Fields: map[string]any{"name": "Riverbank"}}}

	rels, err := New(fc).ExtractRelationships(context.Background(), "text", sources, targets, "EXITS_TO", nil, 0)
	require.NoError(t, err)
	require.Len(t, rels, 3)

	assert.Equal(t, types.RelationshipRecord{
		Kind:       "EXITS_TO",
		SourceRef:  "The Old Mill",
		TargetRef:  "Riverbank",
		Properties: map[string]any{"direction": "north"},
	}, rels[0])
	assert.Equal(t, "south", rels[1].Properties["direction"])
	assert.Equal(t, "down", rels[2].Properties["direction"])
	assert.Equal(t, false, rels[2].Properties["accessible"])

	sys := fc.requests[0].SystemPrompt
	assert.Contains(t, sys, "The Old Mill")
	assert.Contains(t, sys, "Riverbank")
	assert.Contains(t, sys, "Extract up to 20 EXITS_TO relationships")
}

func TestExtractRelationshipsNumericRefs(t *testing.T) {
	fc := &fakeCompleter{response: `{"source_id": 7, "target_id": 12}`}
	rels, err := New(fc).ExtractRelationships(context.Background(), "text", nil, nil, "KNOWS", nil, 5)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "7", rels[0].SourceRef)
	assert.Equal(t, "12", rels[0].TargetRef)
	assert.Empty(t, rels[0].Properties)
}

func TestExtractRelationshipsTruncates(t *testing.T) {
	fc := &fakeCompleter{response: `[{"source":"a","target":"b"},{"source":"c","target":"d"},{"source":"e","target":"f"}]`}
	rels, err := New(fc).ExtractRelationships(context.Background(), "text", nil, nil, "KNOWS", nil, 2)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
}

func TestExtractRelationshipsTransportFailure(t *testing.T) {
	fc := &fakeCompleter{err: context.DeadlineExceeded}
	rels, err := New(fc).ExtractRelationships(context.Background(), "text", nil, nil, "KNOWS", nil, 2)
	assert.Empty(t, rels)
	assert.ErrorIs(t, err, &ExtractionError{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyze(t *testing.T) {
	fc := &fakeCompleter{response: "```json\n" + `{
		"entity_types": [{"type":"Location","reason":"a mill is described"}, "Item"],
		"relationship_types": [{"type":"EXITS_TO","reason":"paths between places"}]
	}` + "\n```"}

	analysis, err := New(fc).Analyze(context.Background(), "text", []string{"Location", "Item"}, []string{"EXITS_TO"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Location", "Item"}, analysis.EntityKinds())
	assert.Equal(t, []string{"EXITS_TO"}, analysis.RelationshipKinds())
	assert.Equal(t, "a mill is described", analysis.EntityTypes[0].Reason)
	assert.Contains(t, fc.requests[0].SystemPrompt, "Choose entity types only from: Location, Item")
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := New(&fakeCompleter{response: "nothing here"}).Analyze(context.Background(), "text", nil, nil)
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = New(&fakeCompleter{response: `[{"type":"Location"}]`}).Analyze(context.Background(), "text", nil, nil)
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = New(&fakeCompleter{err: errors.New("boom")}).Analyze(context.Background(), "text", nil, nil)
	assert.ErrorIs(t, err, &ExtractionError{})
}

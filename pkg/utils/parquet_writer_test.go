package utils

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/types"
)

func TestParquetGraphWriterRoundTrip(t *testing.T) {
	w, err := NewParquetGraphWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	mill := types.NewNode("Location", "The Old Mill")
	mill.Properties.Set("name", "The Old Mill")
	lantern := types.NewNode("Item", "Lantern")
	lantern.Properties.Set("quantity", 1)

	contains := &types.Edge{
		Label: "CONTAINS", SourceLabel: "Location", SourceID: "The Old Mill",
		TargetLabel: "Item", TargetID: "Lantern", Properties: types.NewProperties(),
	}

	result := types.NewIngestResult()
	result.Entities["Location"] = []*types.Node{mill}
	result.Entities["Item"] = []*types.Node{lantern}
	result.Relationships["LocationItem"] = []*types.Edge{contains}

	require.NoError(t, w.WriteIngestResult(context.Background(), "batch-1", result))

	nodes, err := w.ReadNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	// kinds are written in sorted order
	assert.Equal(t, "Item", nodes[0].Kind)
	assert.Equal(t, "The Old Mill", nodes[1].ID)
	assert.Equal(t, "batch-1", nodes[1].BatchID)

	var props map[string]any
	require.NoError(t, json.Unmarshal([]byte(nodes[1].Properties), &props))
	assert.Equal(t, "The Old Mill", props["name"])

	edges, err := w.ReadEdges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "LocationItem", edges[0].Kind)
	assert.Equal(t, "Lantern", edges[0].TargetID)
	assert.Equal(t, "{}", edges[0].Properties)
}

func TestParquetGraphWriterEmptyResult(t *testing.T) {
	w, err := NewParquetGraphWriter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.WriteIngestResult(context.Background(), "empty", types.NewIngestResult()))
	require.NoError(t, w.WriteIngestResult(context.Background(), "nil", nil))

	nodes, err := w.ReadNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

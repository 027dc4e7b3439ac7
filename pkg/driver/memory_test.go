package driver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/types"
)

func node(label, id string, kv ...any) *types.Node {
	n := types.NewNode(label, id)
	for i := 0; i+1 < len(kv); i += 2 {
		n.Properties.Set(kv[i].(string), kv[i+1])
	}
	return n
}

func edge(label, srcLabel, src, tgtLabel, tgt string, kv ...any) *types.Edge {
	e := &types.Edge{
		Label: label, SourceLabel: srcLabel, SourceID: src, TargetLabel: tgtLabel, TargetID: tgt,
		Properties: types.NewProperties(),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Properties.Set(kv[i].(string), kv[i+1])
	}
	return e
}

// seedMill loads a small world: the mill, the riverbank, a lantern and Mara.
func seedMill(t *testing.T, s GraphStore) {
	t.Helper()
	ctx := context.Background()
	for _, n := range []*types.Node{
		node("Location", "The Old Mill", "name", "The Old Mill", "description", "A crumbling mill"),
		node("Location", "Riverbank", "name", "Riverbank", "description", "Muddy and quiet"),
		node("Item", "Lantern", "name", "Lantern", "description", "Rusty but working"),
		node("Character", "Mara", "name", "Mara", "description", "The miller's daughter"),
	} {
		require.NoError(t, s.UpsertNode(ctx, n))
	}
	for _, e := range []*types.Edge{
		edge("EXITS_TO", "Location", "The Old Mill", "Location", "Riverbank", "direction", "north", "description", "A muddy path"),
		edge("CONTAINS", "Location", "The Old Mill", "Item", "Lantern"),
		edge("CONTAINS", "Location", "The Old Mill", "Character", "Mara"),
		edge("HAS_ITEM", "Character", "Mara", "Item", "Lantern", "equipped", true),
		edge("LOCATED_AT", "Character", "Mara", "Location", "The Old Mill"),
	} {
		require.NoError(t, s.UpsertEdge(ctx, e))
	}
}

func TestMemoryStoreNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := node("Location", "The Old Mill", "name", "The Old Mill", "atmosphere", "eerie")
	require.NoError(t, s.UpsertNode(ctx, in))

	out, err := s.GetNode(ctx, "Location", "The Old Mill")
	require.NoError(t, err)
	assert.Equal(t, in.Label, out.Label)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, types.PropertiesToMap(in.Properties), types.PropertiesToMap(out.Properties))
	assert.Equal(t, []string{"id", "name", "atmosphere"}, types.PropertyKeys(out.Properties))

	out.Properties.Set("atmosphere", "mutated")
	again, err := s.GetNode(ctx, "Location", "The Old Mill")
	require.NoError(t, err)
	v, _ := again.Properties.Get("atmosphere")
	assert.Equal(t, "eerie", v, "GetNode must return a copy")

	exists, err := s.NodeExists(ctx, "Location", "The Old Mill")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.NodeExists(ctx, "Item", "The Old Mill")
	require.NoError(t, err)
	assert.False(t, exists, "ids are scoped by label")

	_, err = s.GetNode(ctx, "Location", "Nowhere")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestMemoryStoreUpsertMerges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertNode(ctx, node("Character", "Mara", "name", "Mara", "description", "old")))
	require.NoError(t, s.UpsertNode(ctx, node("Character", "Mara", "description", "new", "traits", "brave", "backstory", nil)))

	n, err := s.GetNode(ctx, "Character", "Mara")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "Mara", "name": "Mara", "description": "new", "traits": "brave"}, types.PropertiesToMap(n.Properties))
	assert.Equal(t, 1, s.NodeCount())
}

func TestMemoryStoreEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedMill(t, s)
	assert.Equal(t, 5, s.EdgeCount())

	// same label and endpoints merges
	require.NoError(t, s.UpsertEdge(ctx, edge("EXITS_TO", "Location", "The Old Mill", "Location", "Riverbank", "accessible", true)))
	assert.Equal(t, 5, s.EdgeCount())
	e := s.Edges()[0]
	assert.Equal(t, map[string]any{"direction": "north", "description": "A muddy path", "accessible": true}, types.PropertiesToMap(e.Properties))

	err := s.UpsertEdge(ctx, edge("EXITS_TO", "Location", "The Old Mill", "Location", "Cellar"))
	assert.ErrorIs(t, err, ErrEndpointNotFound)

	err = s.UpsertEdge(ctx, edge("EXITS_TO", "Location", "", "Location", "Cellar"))
	assert.ErrorIs(t, err, types.ErrEmptyEndpoint)
}

func TestMemoryStoreCannedQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedMill(t, s)

	records, err := s.Query(ctx, QueryLocationDetails, map[string]any{"name": "The Old Mill"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A crumbling mill", records[0].String("description"))

	records, err = s.Query(ctx, QueryExits, map[string]any{"location_name": "The Old Mill"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"direction": "north", "target": "Riverbank", "description": "A muddy path"}, records[0].Map())

	records, err = s.Query(ctx, QueryItemsAtLocation, map[string]any{"location_id": "The Old Mill"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Lantern", records[0].String("name"))

	records, err = s.Query(ctx, QueryCharactersAtLocation, map[string]any{"location_id": "The Old Mill"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mara", records[0].String("name"))

	records, err = s.Query(ctx, QueryInventory, map[string]any{"player_id": "Mara"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Rusty but working", records[0].String("description"))

	records, err = s.Query(ctx, QueryCurrentLocation, map[string]any{"player_id": "Mara"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "The Old Mill", records[0].String("name"))

	records, err = s.Query(ctx, "MATCH (n)\n   RETURN count(n) AS count", nil)
	require.NoError(t, err)
	count, ok := records[0].Int("count")
	require.True(t, ok)
	assert.Equal(t, int64(4), count)
}

func TestMemoryStoreNodeLookupQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedMill(t, s)

	q, err := NodeByIDQuery("Item")
	require.NoError(t, err)
	records, err := s.Query(ctx, q, map[string]any{"id": "Lantern"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, ok := records[0].Get("n")
	require.True(t, ok)
	assert.Equal(t, types.ValueNode, v.Kind)
	assert.Equal(t, "Item", v.Node.Label)

	q, err = NodeByNameQuery("Location")
	require.NoError(t, err)
	records, err = s.Query(ctx, q, map[string]any{"name": "Riverbank"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = s.Query(ctx, "MATCH (n {name: $name}) RETURN n", map[string]any{"name": "Mara"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStoreUnsupportedQuery(t *testing.T) {
	_, err := NewMemoryStore().Query(context.Background(), "MATCH (a)-[*]->(b) RETURN b", nil)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedMill(t, s)
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.NodeCount())
	assert.Equal(t, 0, s.EdgeCount())
	assert.Empty(t, s.Edges())
}

func TestMemoryStoreConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.UpsertNode(ctx, node("Memory", "shared", "importance", i))
			_, _ = s.NodeExists(ctx, "Memory", "shared")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.NodeCount())
}

func TestMemoryStoreDeleteEdge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedMill(t, s)

	lantern := edge("CONTAINS", "Location", "The Old Mill", "Item", "Lantern").Key()
	deleted, err := s.DeleteEdge(ctx, lantern)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 4, s.EdgeCount())
	assert.Equal(t, 4, s.NodeCount(), "endpoints are kept")

	items, err := s.Query(ctx, QueryItemsAtLocation, map[string]any{"location_id": "The Old Mill"})
	require.NoError(t, err)
	assert.Empty(t, items)

	characters, err := s.Query(ctx, QueryCharactersAtLocation, map[string]any{"location_id": "The Old Mill"})
	require.NoError(t, err)
	assert.Len(t, characters, 1, "other CONTAINS edges survive")

	deleted, err = s.DeleteEdge(ctx, lantern)
	require.NoError(t, err)
	assert.False(t, deleted)

	// a deleted edge can be recreated
	require.NoError(t, s.UpsertEdge(ctx, edge("CONTAINS", "Location", "The Old Mill", "Item", "Lantern")))
	assert.Equal(t, 5, s.EdgeCount())
}

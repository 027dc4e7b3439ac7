package driver

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/types"
)

func TestValidateLabel(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"Location", "EXITS_TO", "_private", "Item2"} {
		assert.NoError(t, ValidateLabel(label), label)
	}
	for _, label := range []string{"", "2Fast", "Bad Label", "x`) DETACH DELETE n //", "Café"} {
		assert.ErrorIs(t, ValidateLabel(label), ErrInvalidLabel, label)
	}
}

func TestNodeQueries(t *testing.T) {
	t.Parallel()

	q, err := NodeByIDQuery("Location")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n:`Location` {id: $id}) RETURN n", q)

	_, err = NodeByNameQuery("not valid")
	assert.ErrorIs(t, err, ErrInvalidLabel)

	assert.Equal(t,
		"MATCH (a:`Location` {id: $source_id}), (b:`Item` {id: $target_id})\nMERGE (a)-[r:`CONTAINS`]->(b)\nSET r += $properties\nRETURN count(r) AS count",
		upsertEdgeQuery("CONTAINS", "Location", "Item"))

	assert.Equal(t,
		"MATCH (a:`Location` {id: $source_id})-[r:`CONTAINS`]->(b:`Item` {id: $target_id})\nWITH collect(r) AS rels\nFOREACH (r IN rels | DELETE r)\nRETURN size(rels) AS count",
		deleteEdgeQuery("CONTAINS", "Location", "Item"))
}

func TestRangeIndexQueries(t *testing.T) {
	t.Parallel()

	got := RangeIndexQueries([]string{"Location", "bad label", "Item"})
	assert.Equal(t, []string{
		"CREATE INDEX location_id IF NOT EXISTS FOR (n:`Location`) ON (n.id)",
		"CREATE INDEX item_id IF NOT EXISTS FOR (n:`Item`) ON (n.id)",
	}, got)
}

func TestNormalizeStatement(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "MATCH (n) RETURN n", normalizeStatement("  MATCH (n)\n\tRETURN   n\n"))
}

func TestEncodeProperties(t *testing.T) {
	t.Parallel()

	props := types.NewProperties()
	props.Set("id", "Lantern")
	props.Set("quantity", float64(2))
	props.Set("tags", []any{"rusty", "old"})
	props.Set("mixed", []any{"a", float64(1)})
	props.Set("properties", map[string]any{"light": "dim"})
	props.Set("removed", nil)

	got := encodeProperties(props)
	assert.Equal(t, map[string]any{
		"id":         "Lantern",
		"quantity":   float64(2),
		"tags":       []any{"rusty", "old"},
		"mixed":      `["a",1]`,
		"properties": `{"light":"dim"}`,
	}, got)

	assert.Empty(t, encodeProperties(nil))
}

func TestValueFromDB(t *testing.T) {
	t.Parallel()

	mill := dbtype.Node{ElementId: "4:x:1", Labels: []string{"Location"}, Props: map[string]any{"name": "The Old Mill", "id": "The Old Mill"}}
	bank := dbtype.Node{ElementId: "4:x:2", Labels: []string{"Location"}, Props: map[string]any{"id": "Riverbank"}}
	exit := dbtype.Relationship{ElementId: "5:x:1", StartElementId: "4:x:1", EndElementId: "4:x:2", Type: "EXITS_TO", Props: map[string]any{"direction": "north"}}

	v := valueFromDB(mill)
	require.Equal(t, types.ValueNode, v.Kind)
	assert.Equal(t, "Location", v.Node.Label)
	assert.Equal(t, "The Old Mill", v.Node.ID)
	assert.Equal(t, []string{"id", "name"}, types.PropertyKeys(v.Node.Properties))

	v = valueFromDB(exit)
	require.Equal(t, types.ValueEdge, v.Kind)
	assert.Equal(t, "EXITS_TO", v.Edge.Label)
	assert.Empty(t, v.Edge.SourceID)

	v = valueFromDB(dbtype.Path{Nodes: []dbtype.Node{mill, bank}, Relationships: []dbtype.Relationship{exit}})
	require.Equal(t, types.ValuePath, v.Kind)
	require.Len(t, v.Path.Edges, 1)
	assert.Equal(t, types.NodeKey{Label: "Location", ID: "The Old Mill"}, v.Path.Edges[0].Source())
	assert.Equal(t, types.NodeKey{Label: "Location", ID: "Riverbank"}, v.Path.Edges[0].Target())

	v = valueFromDB(int64(3))
	assert.Equal(t, types.ValueScalar, v.Kind)
	assert.Equal(t, int64(3), v.Scalar)
}

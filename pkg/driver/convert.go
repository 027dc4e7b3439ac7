package driver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/soundprediction/loregraph/pkg/types"
)

// encodeProperties flattens p into values Neo4j can store. Maps and mixed or
// nested lists are stored as JSON strings; nil values are dropped so a merge
// never deletes an existing property.
func encodeProperties(p *types.Properties) map[string]any {
	out := make(map[string]any)
	if p == nil {
		return out
	}
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			continue
		}
		out[pair.Key] = encodeValue(pair.Value)
	}
	return out
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case string, bool, int, int8, int16, int32, int64, float32, float64, time.Time:
		return t
	case []string, []int64, []float64, []bool:
		return t
	case []any:
		if homogeneousPrimitives(t) {
			return t
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// homogeneousPrimitives reports whether list holds only strings, only
// numbers or only booleans.
func homogeneousPrimitives(list []any) bool {
	kind := ""
	for _, item := range list {
		var k string
		switch item.(type) {
		case string:
			k = "string"
		case bool:
			k = "bool"
		case int, int64, float64:
			k = "number"
		default:
			return false
		}
		if kind == "" {
			kind = k
		} else if kind != k {
			return false
		}
	}
	return true
}

func nodeFromDB(n dbtype.Node) *types.Node {
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	id, _ := n.Props["id"].(string)
	return &types.Node{
		Label:      label,
		ID:         id,
		Properties: types.PropertiesFromMap(n.Props, "id"),
	}
}

// edgeFromDB converts a relationship. Endpoint labels and ids are filled from
// nodes when the caller has them, as in a path.
func edgeFromDB(r dbtype.Relationship, nodes map[string]*types.Node) *types.Edge {
	edge := &types.Edge{
		Label:      r.Type,
		Properties: types.PropertiesFromMap(r.Props),
	}
	if src, ok := nodes[r.StartElementId]; ok {
		edge.SourceLabel, edge.SourceID = src.Label, src.ID
	}
	if tgt, ok := nodes[r.EndElementId]; ok {
		edge.TargetLabel, edge.TargetID = tgt.Label, tgt.ID
	}
	return edge
}

func valueFromDB(v any) types.Value {
	switch t := v.(type) {
	case dbtype.Node:
		return types.NodeValue(nodeFromDB(t))
	case dbtype.Relationship:
		return types.EdgeValue(edgeFromDB(t, nil))
	case dbtype.Path:
		byElementID := make(map[string]*types.Node, len(t.Nodes))
		path := &types.Path{}
		for _, n := range t.Nodes {
			node := nodeFromDB(n)
			byElementID[n.ElementId] = node
			path.Nodes = append(path.Nodes, node)
		}
		for _, r := range t.Relationships {
			path.Edges = append(path.Edges, edgeFromDB(r, byElementID))
		}
		return types.PathValue(path)
	default:
		return types.ScalarValue(t)
	}
}

func recordsFromDB(records []*neo4j.Record) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		r := types.Record{Keys: append([]string(nil), rec.Keys...)}
		for _, v := range rec.Values {
			r.Values = append(r.Values, valueFromDB(v))
		}
		out = append(out, r)
	}
	return out
}

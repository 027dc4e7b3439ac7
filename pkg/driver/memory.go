package driver

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/soundprediction/loregraph/pkg/types"
)

// MemoryStore implements GraphStore with process-local maps. Query answers a
// fixed set of canned statements and returns ErrUnsupportedQuery otherwise.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[types.NodeKey]*types.Node
	edges map[types.EdgeKey]*types.Edge
	// order keeps insertion order so query results are stable.
	nodeOrder []types.NodeKey
	edgeOrder []types.EdgeKey
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[types.NodeKey]*types.Node),
		edges: make(map[types.EdgeKey]*types.Edge),
	}
}

// UpsertNode implements GraphStore.
func (m *MemoryStore) UpsertNode(ctx context.Context, node *types.Node) error {
	if node == nil {
		return fmt.Errorf("cannot upsert nil node")
	}
	if err := node.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := node.Key()
	if existing, ok := m.nodes[key]; ok {
		mergeNonNil(existing.Properties, node.Properties)
		return nil
	}
	stored := &types.Node{Label: node.Label, ID: node.ID, Properties: types.NewProperties()}
	stored.Properties.Set("id", node.ID)
	mergeNonNil(stored.Properties, node.Properties)
	m.nodes[key] = stored
	m.nodeOrder = append(m.nodeOrder, key)
	return nil
}

// UpsertEdge implements GraphStore.
func (m *MemoryStore) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	if edge == nil {
		return fmt.Errorf("cannot upsert nil edge")
	}
	if err := edge.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[edge.Source()]; !ok {
		return fmt.Errorf("%w: %s %q", ErrEndpointNotFound, edge.SourceLabel, edge.SourceID)
	}
	if _, ok := m.nodes[edge.Target()]; !ok {
		return fmt.Errorf("%w: %s %q", ErrEndpointNotFound, edge.TargetLabel, edge.TargetID)
	}

	key := edge.Key()
	if existing, ok := m.edges[key]; ok {
		mergeNonNil(existing.Properties, edge.Properties)
		return nil
	}
	stored := *edge
	stored.Properties = types.NewProperties()
	mergeNonNil(stored.Properties, edge.Properties)
	m.edges[key] = &stored
	m.edgeOrder = append(m.edgeOrder, key)
	return nil
}

// DeleteEdge implements GraphStore.
func (m *MemoryStore) DeleteEdge(ctx context.Context, key types.EdgeKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.edges[key]; !ok {
		return false, nil
	}
	delete(m.edges, key)
	for i, k := range m.edgeOrder {
		if k == key {
			m.edgeOrder = append(m.edgeOrder[:i], m.edgeOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

// NodeExists implements GraphStore.
func (m *MemoryStore) NodeExists(ctx context.Context, label, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[types.NodeKey{Label: label, ID: id}]
	return ok, nil
}

// GetNode implements GraphStore. The returned node is a copy.
func (m *MemoryStore) GetNode(ctx context.Context, label, id string) (*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[types.NodeKey{Label: label, ID: id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNodeNotFound, label, id)
	}
	return copyNode(n), nil
}

// Clear implements GraphStore.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[types.NodeKey]*types.Node)
	m.edges = make(map[types.EdgeKey]*types.Edge)
	m.nodeOrder = nil
	m.edgeOrder = nil
	return nil
}

// Close implements GraphStore.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// NodeCount returns the number of stored nodes.
func (m *MemoryStore) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// EdgeCount returns the number of stored edges.
func (m *MemoryStore) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}

// Edges returns copies of all stored edges in insertion order.
func (m *MemoryStore) Edges() []*types.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Edge, 0, len(m.edgeOrder))
	for _, key := range m.edgeOrder {
		out = append(out, copyEdge(m.edges[key]))
	}
	return out
}

// Query implements GraphStore for the canned statements in graph_queries.go
// and node lookups built by NodeByIDQuery and NodeByNameQuery.
func (m *MemoryStore) Query(ctx context.Context, statement string, params map[string]any) ([]types.Record, error) {
	normalized := normalizeStatement(statement)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if run, ok := cannedQueries[normalized]; ok {
		return run(m, params), nil
	}
	if match := nodeLookupRe.FindStringSubmatch(normalized); match != nil {
		label, field, param := match[1], match[2], match[3]
		return m.nodeLookup(label, field, stringParam(params, param)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuery, normalized)
}

var nodeLookupRe = regexp.MustCompile("^MATCH \\(n(?::`?([A-Za-z_][A-Za-z0-9_]*)`?)? \\{(id|name): \\$([A-Za-z_][A-Za-z0-9_]*)\\}\\) RETURN n$")

type cannedQuery func(m *MemoryStore, params map[string]any) []types.Record

var cannedQueries = map[string]cannedQuery{
	normalizeStatement(QueryLocationDetails): func(m *MemoryStore, p map[string]any) []types.Record {
		var out []types.Record
		for _, n := range m.nodesWhere("Location", "name", stringParam(p, "name")) {
			out = append(out, nameAndDescription(n))
		}
		return out
	},
	normalizeStatement(QueryExits): func(m *MemoryStore, p map[string]any) []types.Record {
		var out []types.Record
		for _, src := range m.nodesWhere("Location", "name", stringParam(p, "location_name")) {
			for _, e := range m.edgesFrom(src, "EXITS_TO", "Location") {
				dest := m.nodes[e.Target()]
				out = append(out, types.NewRecord(
					"direction", prop(e.Properties, "direction"),
					"target", prop(dest.Properties, "name"),
					"description", prop(e.Properties, "description"),
				))
			}
		}
		return out
	},
	normalizeStatement(QueryItemsAtLocation): func(m *MemoryStore, p map[string]any) []types.Record {
		return m.neighbours("Location", "name", stringParam(p, "location_id"), "CONTAINS", "Item")
	},
	normalizeStatement(QueryCharactersAtLocation): func(m *MemoryStore, p map[string]any) []types.Record {
		return m.neighbours("Location", "name", stringParam(p, "location_id"), "CONTAINS", "Character")
	},
	normalizeStatement(QueryInventory): func(m *MemoryStore, p map[string]any) []types.Record {
		return m.neighbours("Character", "id", stringParam(p, "player_id"), "HAS_ITEM", "Item")
	},
	normalizeStatement(QueryCurrentLocation): func(m *MemoryStore, p map[string]any) []types.Record {
		return m.neighbours("Character", "id", stringParam(p, "player_id"), "LOCATED_AT", "Location")
	},
	normalizeStatement(QueryCountNodes): func(m *MemoryStore, p map[string]any) []types.Record {
		return []types.Record{types.NewRecord("count", int64(len(m.nodes)))}
	},
}

func (m *MemoryStore) nodeLookup(label, field, value string) []types.Record {
	var out []types.Record
	for _, key := range m.nodeOrder {
		n := m.nodes[key]
		if label != "" && n.Label != label {
			continue
		}
		if matchesField(n, field, value) {
			out = append(out, types.NewRecord("n", types.NodeValue(copyNode(n))))
		}
	}
	return out
}

func (m *MemoryStore) nodesWhere(label, field, value string) []*types.Node {
	var out []*types.Node
	for _, key := range m.nodeOrder {
		n := m.nodes[key]
		if n.Label == label && matchesField(n, field, value) {
			out = append(out, n)
		}
	}
	return out
}

func (m *MemoryStore) edgesFrom(src *types.Node, label, targetLabel string) []*types.Edge {
	var out []*types.Edge
	for _, key := range m.edgeOrder {
		e := m.edges[key]
		if e.Label == label && e.Source() == src.Key() && e.TargetLabel == targetLabel {
			out = append(out, e)
		}
	}
	return out
}

// neighbours returns name and description of every targetLabel node reached
// from the matching source nodes over label edges.
func (m *MemoryStore) neighbours(srcLabel, field, value, label, targetLabel string) []types.Record {
	var out []types.Record
	for _, src := range m.nodesWhere(srcLabel, field, value) {
		for _, e := range m.edgesFrom(src, label, targetLabel) {
			out = append(out, nameAndDescription(m.nodes[e.Target()]))
		}
	}
	return out
}

func matchesField(n *types.Node, field, value string) bool {
	if field == "id" {
		return n.ID == value
	}
	s, ok := prop(n.Properties, field).(string)
	return ok && s == value
}

func nameAndDescription(n *types.Node) types.Record {
	return types.NewRecord(
		"name", prop(n.Properties, "name"),
		"description", prop(n.Properties, "description"),
	)
}

func prop(p *types.Properties, key string) any {
	if p == nil {
		return nil
	}
	v, _ := p.Get(key)
	return v
}

func stringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func mergeNonNil(dst, src *types.Properties) {
	if src == nil {
		return
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil {
			dst.Set(pair.Key, pair.Value)
		}
	}
}

func copyNode(n *types.Node) *types.Node {
	return &types.Node{Label: n.Label, ID: n.ID, Properties: types.CopyProperties(n.Properties)}
}

func copyEdge(e *types.Edge) *types.Edge {
	c := *e
	c.Properties = types.CopyProperties(e.Properties)
	return &c
}

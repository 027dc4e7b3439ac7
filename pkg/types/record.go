package types

import "fmt"

// ValueKind discriminates the variants a query column can hold.
type ValueKind int

const (
	// ValueScalar is any primitive, list or map value.
	ValueScalar ValueKind = iota
	// ValueNode is a graph vertex.
	ValueNode
	// ValueEdge is a graph relationship.
	ValueEdge
	// ValuePath is an alternating sequence of nodes and edges.
	ValuePath
)

func (k ValueKind) String() string {
	switch k {
	case ValueNode:
		return "node"
	case ValueEdge:
		return "edge"
	case ValuePath:
		return "path"
	default:
		return "scalar"
	}
}

// Path is a traversal result.
type Path struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Value is a tagged union over the column types a store can return.
// Exactly one of Node, Edge, Path or Scalar is meaningful, as selected by Kind.
type Value struct {
	Kind   ValueKind `json:"kind"`
	Node   *Node     `json:"node,omitempty"`
	Edge   *Edge     `json:"edge,omitempty"`
	Path   *Path     `json:"path,omitempty"`
	Scalar any       `json:"scalar,omitempty"`
}

// NodeValue wraps a node.
func NodeValue(n *Node) Value { return Value{Kind: ValueNode, Node: n} }

// EdgeValue wraps an edge.
func EdgeValue(e *Edge) Value { return Value{Kind: ValueEdge, Edge: e} }

// PathValue wraps a path.
func PathValue(p *Path) Value { return Value{Kind: ValuePath, Path: p} }

// ScalarValue wraps a primitive.
func ScalarValue(v any) Value { return Value{Kind: ValueScalar, Scalar: v} }

// Record is one row of a query result. Keys and Values are parallel.
type Record struct {
	Keys   []string `json:"keys"`
	Values []Value  `json:"values"`
}

// NewRecord builds a record from alternating key, value pairs.
func NewRecord(pairs ...any) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		v, ok := pairs[i+1].(Value)
		if !ok {
			v = ScalarValue(pairs[i+1])
		}
		r.Keys = append(r.Keys, key)
		r.Values = append(r.Values, v)
	}
	return r
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// String returns the scalar under key rendered as a string, or "" when the
// column is absent or null.
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok || v.Kind != ValueScalar || v.Scalar == nil {
		return ""
	}
	if s, ok := v.Scalar.(string); ok {
		return s
	}
	return fmt.Sprint(v.Scalar)
}

// Int returns the scalar under key as an int64 when it is numeric.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok || v.Kind != ValueScalar {
		return 0, false
	}
	switch n := v.Scalar.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Bool returns the scalar under key as a bool.
func (r Record) Bool(key string) (bool, bool) {
	v, ok := r.Get(key)
	if !ok || v.Kind != ValueScalar {
		return false, false
	}
	b, ok := v.Scalar.(bool)
	return b, ok
}

// Map renders the record as a plain map, flattening nodes and edges to their
// property maps.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Keys))
	for i, k := range r.Keys {
		v := r.Values[i]
		switch v.Kind {
		case ValueNode:
			out[k] = PropertiesToMap(v.Node.Properties)
		case ValueEdge:
			out[k] = PropertiesToMap(v.Edge.Properties)
		case ValuePath:
			out[k] = v.Path
		default:
			out[k] = v.Scalar
		}
	}
	return out
}

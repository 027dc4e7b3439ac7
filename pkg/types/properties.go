package types

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties is an insertion-ordered property map for nodes and edges.
type Properties = orderedmap.OrderedMap[string, any]

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return orderedmap.New[string, any]()
}

// PropertiesFromMap builds a property map from m using the given key order.
// Keys in m that are not listed in order are appended in sorted order.
func PropertiesFromMap(m map[string]any, order ...string) *Properties {
	props := NewProperties()
	for _, k := range order {
		if v, ok := m[k]; ok {
			props.Set(k, v)
		}
	}
	for _, k := range SortedKeys(m) {
		if _, present := props.Get(k); !present {
			props.Set(k, m[k])
		}
	}
	return props
}

// CopyProperties returns a shallow copy of p. A nil input yields an empty map.
func CopyProperties(p *Properties) *Properties {
	out := NewProperties()
	if p == nil {
		return out
	}
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// MergeProperties copies every entry of src into dst, overwriting existing keys.
// New keys are appended after the existing ones.
func MergeProperties(dst, src *Properties) {
	if dst == nil || src == nil {
		return
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, pair.Value)
	}
}

// PropertiesToMap flattens p into a plain map, as graph drivers expect.
func PropertiesToMap(p *Properties) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	out := make(map[string]any, p.Len())
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// PropertyKeys returns the keys of p in insertion order.
func PropertyKeys(p *Properties) []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, p.Len())
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// CanonicalJSON renders v with map keys sorted, suitable for hashing.
func CanonicalJSON(v any) ([]byte, error) {
	// encoding/json sorts map keys, which is all the canonical form needs
	return json.Marshal(v)
}

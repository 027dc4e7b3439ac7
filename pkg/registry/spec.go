package registry

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// FieldMapping maps one extracted field onto a graph property.
type FieldMapping struct {
	Field    string `json:"field" yaml:"field"`
	Property string `json:"property" yaml:"property"`
}

// FieldMap is an ordered field-to-property mapping. Order is preserved from
// registration so mapped properties come out in a stable order.
type FieldMap []FieldMapping

// Fields builds an identity mapping for the named fields.
func Fields(names ...string) FieldMap {
	m := make(FieldMap, 0, len(names))
	for _, n := range names {
		m = append(m, FieldMapping{Field: n, Property: n})
	}
	return m
}

// With appends a field mapping and returns the extended map.
func (m FieldMap) With(field, property string) FieldMap {
	return append(m, FieldMapping{Field: field, Property: property})
}

// Lookup returns the property a field maps to.
func (m FieldMap) Lookup(field string) (string, bool) {
	for _, fm := range m {
		if fm.Field == field {
			return fm.Property, true
		}
	}
	return "", false
}

// AsMap returns the mapping as an unordered map.
func (m FieldMap) AsMap() map[string]string {
	out := make(map[string]string, len(m))
	for _, fm := range m {
		out[fm.Field] = fm.Property
	}
	return out
}

// MarshalJSON renders the mapping as an ordered JSON object.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, string]()
	for _, fm := range m {
		om.Set(fm.Field, fm.Property)
	}
	return json.Marshal(om)
}

// UnmarshalJSON reads an ordered JSON object.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, string]()
	if err := json.Unmarshal(data, om); err != nil {
		return err
	}
	out := make(FieldMap, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, FieldMapping{Field: pair.Key, Property: pair.Value})
	}
	*m = out
	return nil
}

// UnmarshalYAML accepts either a mapping (field: property) or a sequence of
// field names, keeping document order.
func (m *FieldMap) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		out := make(FieldMap, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			k, v := value.Content[i], value.Content[i+1]
			prop := v.Value
			if prop == "" {
				prop = k.Value
			}
			out = append(out, FieldMapping{Field: k.Value, Property: prop})
		}
		*m = out
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*m = Fields(names...)
	default:
		return fmt.Errorf("line %d: properties must be a mapping or a list", value.Line)
	}
	return nil
}

// Spec is implemented by EntityTypeSpec and RelationshipTypeSpec.
type Spec interface {
	KindName() string
	isSpec()
}

// EntityTypeSpec describes how extracted objects of one kind become nodes.
type EntityTypeSpec struct {
	Kind          string `json:"kind" yaml:"kind"`
	Label         string `json:"label" yaml:"label"`
	IdentityField string `json:"identity_field" yaml:"identity_field"`
	// PropertyMap maps extracted field names to node property names.
	PropertyMap FieldMap `json:"properties" yaml:"properties"`
	// Transforms apply per field before the value is stored.
	Transforms map[string]Transform `json:"-" yaml:"-"`
	// Schema is a JSON schema describing one extracted object of this kind.
	Schema map[string]any `json:"schema,omitempty" yaml:"schema"`
	// Instructions are appended to the extraction prompt.
	Instructions string `json:"instructions,omitempty" yaml:"instructions"`
}

// KindName implements Spec.
func (s EntityTypeSpec) KindName() string { return s.Kind }
func (EntityTypeSpec) isSpec()            {}

// RelationshipTypeSpec describes how extracted relationships become edges.
type RelationshipTypeSpec struct {
	Kind        string               `json:"kind" yaml:"kind"`
	Label       string               `json:"label" yaml:"label"`
	SourceKind  string               `json:"source_kind" yaml:"source"`
	TargetKind  string               `json:"target_kind" yaml:"target"`
	PropertyMap FieldMap             `json:"properties" yaml:"properties"`
	Transforms  map[string]Transform `json:"-" yaml:"-"`
	Schema      map[string]any       `json:"schema,omitempty" yaml:"schema"`
}

// KindName implements Spec.
func (s RelationshipTypeSpec) KindName() string { return s.Kind }
func (RelationshipTypeSpec) isSpec()            {}

// TransformNames reports the transform name per field, for display.
func TransformNames(t map[string]Transform) map[string]string {
	out := make(map[string]string, len(t))
	for field, tr := range t {
		out[field] = tr.Name()
	}
	return out
}

func (s EntityTypeSpec) clone() EntityTypeSpec {
	out := s
	out.PropertyMap = append(FieldMap(nil), s.PropertyMap...)
	out.Transforms = cloneTransforms(s.Transforms)
	out.Schema = cloneMap(s.Schema)
	return out
}

func (s RelationshipTypeSpec) clone() RelationshipTypeSpec {
	out := s
	out.PropertyMap = append(FieldMap(nil), s.PropertyMap...)
	out.Transforms = cloneTransforms(s.Transforms)
	out.Schema = cloneMap(s.Schema)
	return out
}

func cloneTransforms(in map[string]Transform) map[string]Transform {
	if in == nil {
		return nil
	}
	out := make(map[string]Transform, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Package mapper converts extracted records into graph nodes and edges using
// the specs held by a registry. Mapping is pure: no I/O happens here, and a
// record that lacks its identity field is reported through a side channel
// rather than on the node.
package mapper

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/types"
)

// fallbackNamespace seeds the name-based UUIDs used as fallback ids.
var fallbackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/soundprediction/loregraph/fallback-id"))

// DegradedEvent describes a node whose id had to be derived from its content.
type DegradedEvent struct {
	Kind       string
	Label      string
	ID         string
	MissingKey string
}

// DegradedHook receives degraded events.
type DegradedHook func(DegradedEvent)

// Mapper turns records into nodes and edges.
type Mapper struct {
	registry   *registry.Registry
	logger     *slog.Logger
	onDegraded DegradedHook
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDegradedHook registers a callback for fallback-id events.
func WithDegradedHook(hook DegradedHook) Option {
	return func(m *Mapper) { m.onDegraded = hook }
}

// New creates a Mapper reading specs from reg.
func New(reg *registry.Registry, opts ...Option) *Mapper {
	m := &Mapper{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MapEntity maps one extracted record of kind into a node.
//
// The node id is the record's identity field rendered as a string. When the
// field is absent or empty the id falls back to kind + "_" + a name-based
// UUID of the record's canonical JSON, so the same record always maps to the
// same id.
func (m *Mapper) MapEntity(kind string, record map[string]any) (*types.Node, error) {
	spec, err := m.registry.ResolveEntity(kind)
	if err != nil {
		return nil, unregistered(kind, err)
	}

	id, ok := identityString(record[spec.IdentityField])
	if !ok {
		id = fallbackID(kind, record)
		m.logger.Warn("Identity field missing, using content-derived id",
			"kind", kind, "identity_field", spec.IdentityField, "id", id)
		if m.onDegraded != nil {
			m.onDegraded(DegradedEvent{Kind: kind, Label: spec.Label, ID: id, MissingKey: spec.IdentityField})
		}
	}

	node := types.NewNode(spec.Label, id)
	m.applyFields(kind, spec.PropertyMap, spec.Transforms, record, node.Properties)
	return node, nil
}

// MapRelationship maps a relationship between two already-mapped node ids
// into an edge. Endpoint labels come from the relationship's source and
// target entity specs.
func (m *Mapper) MapRelationship(kind, sourceID, targetID string, properties map[string]any) (*types.Edge, error) {
	spec, err := m.registry.ResolveRelationship(kind)
	if err != nil {
		return nil, unregistered(kind, err)
	}
	if sourceID == "" || targetID == "" {
		return nil, fmt.Errorf("relationship %s: %w", kind, ErrMissingEndpoint)
	}

	sourceLabel, err := m.registry.EntityLabel(spec.SourceKind)
	if err != nil {
		return nil, fmt.Errorf("relationship %s source: %w", kind, err)
	}
	targetLabel, err := m.registry.EntityLabel(spec.TargetKind)
	if err != nil {
		return nil, fmt.Errorf("relationship %s target: %w", kind, err)
	}

	edge := &types.Edge{
		Label:       spec.Label,
		SourceLabel: sourceLabel,
		SourceID:    sourceID,
		TargetLabel: targetLabel,
		TargetID:    targetID,
		Properties:  types.NewProperties(),
	}
	m.applyFields(kind, spec.PropertyMap, spec.Transforms, properties, edge.Properties)
	return edge, nil
}

// NodeID returns the id MapEntity would assign to record, without logging.
// World edits use it to address nodes the way ingestion named them.
func (m *Mapper) NodeID(kind string, record map[string]any) (string, error) {
	spec, err := m.registry.ResolveEntity(kind)
	if err != nil {
		return "", unregistered(kind, err)
	}
	if id, ok := identityString(record[spec.IdentityField]); ok {
		return id, nil
	}
	return fallbackID(kind, record), nil
}

// applyFields copies mapped fields into props in declared order. An empty
// field map copies every field, sorted by name.
func (m *Mapper) applyFields(kind string, fields registry.FieldMap, transforms map[string]registry.Transform, record map[string]any, props *types.Properties) {
	if len(fields) == 0 {
		keys := make([]string, 0, len(record))
		for k := range record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields = registry.Fields(keys...)
	}

	for _, fm := range fields {
		value, present := record[fm.Field]
		if !present || value == nil {
			continue
		}
		if fm.Property == "id" {
			m.logger.Debug("Skipping field mapped onto id", "kind", kind, "field", fm.Field)
			continue
		}
		if t, ok := transforms[fm.Field]; ok && t != nil {
			converted, err := t.Apply(value)
			if err != nil {
				ferr := &FieldError{Kind: kind, Field: fm.Field, Transform: t.Name(), Err: err}
				m.logger.Warn("Dropping field after transform failure", "kind", kind, "field", fm.Field, "error", ferr)
				continue
			}
			value = converted
		}
		props.Set(fm.Property, value)
	}
}

func unregistered(kind string, err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return &UnregisteredKindError{Kind: kind, Err: err}
	}
	return err
}

// identityString renders an identity value as a string. Absent, null, empty,
// false and zero values count as missing.
func identityString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case float64:
		if t == 0 || math.IsNaN(t) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), t != 0
	case int64:
		return strconv.FormatInt(t, 10), t != 0
	case map[string]any:
		if len(t) == 0 {
			return "", false
		}
	case []any:
		if len(t) == 0 {
			return "", false
		}
	}
	data, err := types.CanonicalJSON(v)
	if err != nil {
		s := fmt.Sprint(v)
		return s, s != ""
	}
	return string(data), true
}

func fallbackID(kind string, record map[string]any) string {
	data, err := types.CanonicalJSON(record)
	if err != nil {
		// unencodable values: hash the sorted printed form instead
		keys := make([]string, 0, len(record))
		for k := range record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%v;", k, record[k])
		}
		data = []byte(b.String())
	}
	return kind + "_" + uuid.NewSHA1(fallbackNamespace, data).String()
}

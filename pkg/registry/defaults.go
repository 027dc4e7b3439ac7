package registry

import "fmt"

// PlayerCharacterID is the id of the player character in the default world.
const PlayerCharacterID = "player_001"

// GenericEntitySchema is used to prompt extraction for kinds registered without
// a schema.
func GenericEntitySchema() map[string]any {
	return objectSchema(map[string]any{
		"name":        stringProp(),
		"description": stringProp(),
	}, "name")
}

// DefaultEntityTypes returns the narrative-world entity kinds.
func DefaultEntityTypes() []EntityTypeSpec {
	return []EntityTypeSpec{
		{
			Kind:          "Location",
			Label:         "Location",
			IdentityField: "name",
			PropertyMap:   Fields("name", "description", "type", "atmosphere", "therapeutic_purpose"),
			Schema: objectSchema(map[string]any{
				"name":                stringProp(),
				"description":         stringProp(),
				"type":                stringProp(),
				"atmosphere":          stringProp(),
				"therapeutic_purpose": stringProp(),
			}, "name", "description"),
		},
		{
			Kind:          "Character",
			Label:         "Character",
			IdentityField: "name",
			PropertyMap:   Fields("name", "description", "type", "traits", "backstory", "therapeutic_role"),
			Schema: objectSchema(map[string]any{
				"name":             stringProp(),
				"description":      stringProp(),
				"type":             stringProp(),
				"traits":           map[string]any{"type": "array", "items": stringProp()},
				"backstory":        stringProp(),
				"therapeutic_role": stringProp(),
			}, "name", "description"),
		},
		{
			Kind:          "Item",
			Label:         "Item",
			IdentityField: "name",
			PropertyMap:   Fields("name", "description", "type", "properties", "therapeutic_purpose"),
			Transforms:    map[string]Transform{"properties": TransformJSON},
			Schema: objectSchema(map[string]any{
				"name":                stringProp(),
				"description":         stringProp(),
				"type":                stringProp(),
				"properties":          map[string]any{"type": "object"},
				"therapeutic_purpose": stringProp(),
			}, "name", "description"),
		},
		{
			Kind:          "Memory",
			Label:         "Memory",
			IdentityField: "content",
			PropertyMap:   Fields("content", "type", "timestamp", "importance", "emotional_valence"),
			Transforms:    map[string]Transform{"importance": TransformToInt},
			Schema: objectSchema(map[string]any{
				"content":           stringProp(),
				"type":              stringProp(),
				"timestamp":         map[string]any{"type": "string", "format": "date-time"},
				"importance":        intProp(1, 10),
				"emotional_valence": stringProp(),
			}, "content"),
		},
		{
			Kind:          "Quest",
			Label:         "Quest",
			IdentityField: "name",
			PropertyMap:   Fields("name", "description", "objective", "status", "therapeutic_goal"),
			Transforms:    map[string]Transform{"status": TransformLowercase},
			Schema: objectSchema(map[string]any{
				"name":             stringProp(),
				"description":      stringProp(),
				"objective":        stringProp(),
				"status":           map[string]any{"type": "string", "enum": []any{"active", "completed", "failed"}},
				"therapeutic_goal": stringProp(),
			}, "name", "description", "objective"),
		},
	}
}

// DefaultRelationshipTypes returns the narrative-world relationship kinds.
func DefaultRelationshipTypes() []RelationshipTypeSpec {
	return []RelationshipTypeSpec{
		{
			Kind: "EXITS_TO", Label: "EXITS_TO", SourceKind: "Location", TargetKind: "Location",
			PropertyMap: Fields("direction", "description", "accessible"),
			Transforms:  map[string]Transform{"accessible": TransformToBool, "direction": TransformLowercase},
			Schema: objectSchema(map[string]any{
				"direction":   stringProp(),
				"description": stringProp(),
				"accessible":  map[string]any{"type": "boolean"},
			}),
		},
		{Kind: "CONTAINS", Label: "CONTAINS", SourceKind: "Location", TargetKind: "Item"},
		{Kind: "CONTAINS_CHARACTER", Label: "CONTAINS", SourceKind: "Location", TargetKind: "Character"},
		{
			Kind: "HAS_ITEM", Label: "HAS_ITEM", SourceKind: "Character", TargetKind: "Item",
			PropertyMap: Fields("equipped", "quantity"),
			Transforms:  map[string]Transform{"equipped": TransformToBool, "quantity": TransformToInt},
			Schema: objectSchema(map[string]any{
				"equipped": map[string]any{"type": "boolean"},
				"quantity": map[string]any{"type": "integer", "minimum": 1},
			}),
		},
		{
			Kind: "KNOWS", Label: "KNOWS", SourceKind: "Character", TargetKind: "Character",
			PropertyMap: Fields("relationship_type", "trust_level", "interaction_count"),
			Transforms:  map[string]Transform{"trust_level": TransformToInt, "interaction_count": TransformToInt},
			Schema: objectSchema(map[string]any{
				"relationship_type": stringProp(),
				"trust_level":       intProp(1, 10),
				"interaction_count": map[string]any{"type": "integer", "minimum": 0},
			}),
		},
		{
			Kind: "HAS_MEMORY", Label: "HAS_MEMORY", SourceKind: "Character", TargetKind: "Memory",
			PropertyMap: Fields("clarity", "last_recalled"),
			Schema: objectSchema(map[string]any{
				"clarity":       intProp(1, 10),
				"last_recalled": map[string]any{"type": "string", "format": "date-time"},
			}),
		},
		{
			Kind: "ASSIGNED_TO", Label: "ASSIGNED_TO", SourceKind: "Quest", TargetKind: "Character",
			PropertyMap: Fields("date_assigned", "progress"),
			Transforms:  map[string]Transform{"progress": TransformToFloat},
			Schema: objectSchema(map[string]any{
				"date_assigned": map[string]any{"type": "string", "format": "date-time"},
				"progress":      map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			}),
		},
		{Kind: "LOCATED_AT", Label: "LOCATED_AT", SourceKind: "Character", TargetKind: "Location"},
	}
}

// RegisterDefaults installs the narrative-world schema into r.
func RegisterDefaults(r *Registry) error {
	for _, spec := range DefaultEntityTypes() {
		if err := r.RegisterEntityType(spec); err != nil {
			return fmt.Errorf("register %s: %w", spec.Kind, err)
		}
	}
	for _, spec := range DefaultRelationshipTypes() {
		if err := r.RegisterRelationshipType(spec); err != nil {
			return fmt.Errorf("register %s: %w", spec.Kind, err)
		}
	}
	return nil
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		schema["required"] = req
	}
	return schema
}

func stringProp() map[string]any { return map[string]any{"type": "string"} }

func intProp(lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "minimum": lo, "maximum": hi}
}

package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/types"
)

// Default record caps used when the context carries no max_records.
const (
	DefaultMaxEntities      = 10
	DefaultMaxRelationships = 20
)

// ExtractionPrompt defines the interface for extraction prompts.
type ExtractionPrompt interface {
	ExtractEntities() PromptVersion
	ExtractRelationships() PromptVersion
	AnalyzeText() PromptVersion
}

// ExtractionVersions holds all versions of extraction prompts.
type ExtractionVersions struct {
	extractEntitiesPrompt      PromptVersion
	extractRelationshipsPrompt PromptVersion
	analyzeTextPrompt          PromptVersion
}

func (e *ExtractionVersions) ExtractEntities() PromptVersion { return e.extractEntitiesPrompt }
func (e *ExtractionVersions) ExtractRelationships() PromptVersion {
	return e.extractRelationshipsPrompt
}
func (e *ExtractionVersions) AnalyzeText() PromptVersion { return e.analyzeTextPrompt }

// NewExtractionVersions creates the extraction prompt set.
func NewExtractionVersions() *ExtractionVersions {
	return &ExtractionVersions{
		extractEntitiesPrompt:      NewPromptVersion(extractEntitiesPrompt),
		extractRelationshipsPrompt: NewPromptVersion(extractRelationshipsPrompt),
		analyzeTextPrompt:          NewPromptVersion(analyzeTextPrompt),
	}
}

// extractEntitiesPrompt asks for up to max_records objects of one kind.
//
// Context keys: kind, schema, text, max_records, instructions, use_yaml.
func extractEntitiesPrompt(context map[string]interface{}) ([]types.Message, error) {
	kind := stringValue(context, "kind")
	if kind == "" {
		return nil, fmt.Errorf("extract entities prompt: kind is required")
	}
	schema, err := formatData(context, context["schema"])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	maxRecords := intValue(context, "max_records", DefaultMaxEntities)

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert at extracting structured information from text.
Your task is to identify and extract %s objects from the provided text.

Each %s should be extracted according to this schema:
%s

Extract up to %d %s objects from the text.
Return the results as a JSON array of objects.
If no objects of this type are found, return an empty array.
`, kind, kind, schema, maxRecords, kind)
	if instructions := stringValue(context, "instructions"); instructions != "" {
		sb.WriteString("\n")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}
	sysPrompt := sb.String()

	userPrompt := fmt.Sprintf(`Please extract %s objects from the following text:

<TEXT>
%s
</TEXT>

Return only the JSON array with the extracted objects.
`, kind, stringValue(context, "text"))

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

// extractRelationshipsPrompt asks for relationships of one kind between the
// given source and target objects.
//
// Context keys: kind, sources, targets, schema, text, max_records, use_yaml.
func extractRelationshipsPrompt(context map[string]interface{}) ([]types.Message, error) {
	kind := stringValue(context, "kind")
	if kind == "" {
		return nil, fmt.Errorf("extract relationships prompt: kind is required")
	}
	sources, err := formatData(context, context["sources"])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source objects: %w", err)
	}
	targets, err := formatData(context, context["targets"])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal target objects: %w", err)
	}
	maxRecords := intValue(context, "max_records", DefaultMaxRelationships)

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert at extracting relationships between entities from text.
Your task is to identify and extract %s relationships from the provided text.

Source objects:
%s

Target objects:
%s

Each relationship should connect a source object to a target object.
`, kind, sources, targets)

	if schema, ok := context["schema"].(map[string]any); ok && len(schema) > 0 {
		rendered, err := formatData(context, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal relationship schema: %w", err)
		}
		fmt.Fprintf(&sb, "Each relationship should have these properties:\n%s\n", rendered)
	}

	fmt.Fprintf(&sb, `
Extract up to %d %s relationships from the text.
Return the results as a JSON array of objects with "source_id", "target_id", and "properties" fields.
If no relationships of this type are found, return an empty array.
`, maxRecords, kind)
	sysPrompt := sb.String()

	userPrompt := fmt.Sprintf(`Please extract %s relationships from the following text:

<TEXT>
%s
</TEXT>

Return only the JSON array with the extracted relationships.
`, kind, stringValue(context, "text"))

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

// analyzeTextPrompt asks which entity and relationship kinds apply to a text.
//
// Context keys: text, entity_kinds, relationship_kinds.
func analyzeTextPrompt(context map[string]interface{}) ([]types.Message, error) {
	entityKinds, _ := context["entity_kinds"].([]string)
	relationshipKinds, _ := context["relationship_kinds"].([]string)

	var sb strings.Builder
	sb.WriteString(`You are an expert at analyzing text to identify entities and relationships
that should be added to a knowledge graph.

Your task is to analyze the provided text and identify:
1. What entity types should be extracted
2. What relationship types should be extracted
`)
	if len(entityKinds) > 0 {
		fmt.Fprintf(&sb, "\nChoose entity types only from: %s\n", strings.Join(entityKinds, ", "))
	}
	if len(relationshipKinds) > 0 {
		fmt.Fprintf(&sb, "Choose relationship types only from: %s\n", strings.Join(relationshipKinds, ", "))
	}
	sb.WriteString(`
Return your analysis as a JSON object with the following structure:
{
    "entity_types": [
        {"type": "entity_type", "reason": "reason for extracting this entity type"}
    ],
    "relationship_types": [
        {"type": "relationship_type", "reason": "reason for extracting this relationship type"}
    ]
}
`)
	sysPrompt := sb.String()

	userPrompt := fmt.Sprintf(`Please analyze the following text to identify what entity types and relationship types
should be extracted for a knowledge graph:

<TEXT>
%s
</TEXT>

Return only the JSON object with your analysis.
`, stringValue(context, "text"))

	logPrompts(loggerFrom(context), sysPrompt, userPrompt)
	return []types.Message{
		nlp.NewSystemMessage(sysPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

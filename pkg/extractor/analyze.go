package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrNoAnalysis is returned when the analysis response holds no usable JSON object.
var ErrNoAnalysis = errors.New("analysis response contained no JSON object")

// KindChoice is one kind the model proposes, with its reasoning.
type KindChoice struct {
	Type   string `json:"type" mapstructure:"type" yaml:"type"`
	Reason string `json:"reason,omitempty" mapstructure:"reason" yaml:"reason,omitempty"`
}

// Analysis is the model's view of which kinds a text contains.
type Analysis struct {
	EntityTypes       []KindChoice `json:"entity_types" mapstructure:"entity_types" yaml:"entity_types"`
	RelationshipTypes []KindChoice `json:"relationship_types" mapstructure:"relationship_types" yaml:"relationship_types"`
}

// EntityKinds lists the proposed entity kinds in response order.
func (a *Analysis) EntityKinds() []string { return choiceTypes(a.EntityTypes) }

// RelationshipKinds lists the proposed relationship kinds in response order.
func (a *Analysis) RelationshipKinds() []string { return choiceTypes(a.RelationshipTypes) }

func choiceTypes(choices []KindChoice) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		if c.Type != "" {
			out = append(out, c.Type)
		}
	}
	return out
}

// Analyze asks the model which of the given kinds apply to text. Empty kind
// lists leave the choice open.
func (e *Extractor) Analyze(ctx context.Context, text string, entityKinds, relationshipKinds []string) (*Analysis, error) {
	messages, err := e.prompts.AnalyzeText().Call(map[string]interface{}{
		"text":               text,
		"entity_kinds":       entityKinds,
		"relationship_kinds": relationshipKinds,
		"logger":             e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis prompt: %w", err)
	}

	raw, err := e.complete(ctx, messages)
	if err != nil {
		e.logger.Warn("Text analysis failed", "error", err)
		return nil, &ExtractionError{Kind: "analysis", Err: err}
	}

	value, ok := parseJSON(raw)
	if !ok {
		e.logger.Warn("No JSON found in analysis response", "response", preview(raw))
		return nil, ErrNoAnalysis
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNoAnalysis
	}

	for _, key := range []string{"entity_types", "relationship_types"} {
		obj[key] = normalizeChoices(obj[key])
	}

	var analysis Analysis
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &analysis,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &analysis, nil
}

// normalizeChoices accepts bare strings as well as {"type","reason"} objects.
func normalizeChoices(v any) any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, map[string]any{"type": t})
		case map[string]any:
			out = append(out, t)
		}
	}
	return out
}

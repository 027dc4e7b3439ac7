// Package extractor turns free text into raw entity and relationship records
// by prompting a completion service and repairing whatever JSON comes back.
//
// Malformed model output is never an error: it yields an empty result and a
// warning. Only transport failures are returned, as *ExtractionError, so the
// caller can tell "the model found nothing" from "the model was unreachable".
package extractor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/prompts"
	"github.com/soundprediction/loregraph/pkg/types"
)

// DefaultTemperature keeps extraction close to deterministic.
const DefaultTemperature = 0.2

// Extractor prompts a Completer for structured records.
type Extractor struct {
	completer        nlp.Completer
	prompts          prompts.ExtractionPrompt
	logger           *slog.Logger
	temperature      float32
	maxTokens        int
	maxEntities      int
	maxRelationships int
	timeout          time.Duration
	useYAML          bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) Option {
	return func(e *Extractor) { e.temperature = t }
}

// WithMaxTokens caps the completion length. Zero leaves the provider default.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// WithMaxRecords sets the caps used when a call passes maxRecords <= 0.
func WithMaxRecords(entities, relationships int) Option {
	return func(e *Extractor) {
		if entities > 0 {
			e.maxEntities = entities
		}
		if relationships > 0 {
			e.maxRelationships = relationships
		}
	}
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithPrompts replaces the prompt set.
func WithPrompts(p prompts.ExtractionPrompt) Option {
	return func(e *Extractor) {
		if p != nil {
			e.prompts = p
		}
	}
}

// WithYAMLSchemas renders schemas and sample records as YAML instead of JSON.
func WithYAMLSchemas() Option {
	return func(e *Extractor) { e.useYAML = true }
}

// New creates an Extractor backed by completer.
func New(completer nlp.Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer:        completer,
		prompts:          prompts.NewExtractionVersions(),
		logger:           slog.Default(),
		temperature:      DefaultTemperature,
		maxEntities:      prompts.DefaultMaxEntities,
		maxRelationships: prompts.DefaultMaxRelationships,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns up to maxRecords objects of kind found in text.
func (e *Extractor) Extract(ctx context.Context, text, kind string, schema map[string]any, maxRecords int) ([]types.ExtractionRecord, error) {
	return e.ExtractWithInstructions(ctx, text, kind, schema, "", maxRecords)
}

// ExtractWithInstructions is Extract with kind-specific guidance appended to
// the system prompt.
func (e *Extractor) ExtractWithInstructions(ctx context.Context, text, kind string, schema map[string]any, instructions string, maxRecords int) ([]types.ExtractionRecord, error) {
	if maxRecords <= 0 {
		maxRecords = e.maxEntities
	}
	records := []types.ExtractionRecord{}

	messages, err := e.prompts.ExtractEntities().Call(map[string]interface{}{
		"kind":         kind,
		"schema":       schema,
		"text":         text,
		"max_records":  maxRecords,
		"instructions": instructions,
		"use_yaml":     e.useYAML,
		"logger":       e.logger,
	})
	if err != nil {
		return records, &ExtractionError{Kind: kind, Err: err}
	}

	raw, err := e.complete(ctx, messages)
	if err != nil {
		e.logger.Warn("Entity extraction failed", "kind", kind, "error", err)
		return records, &ExtractionError{Kind: kind, Err: err}
	}

	objects, ok := ParseObjects(raw)
	if !ok {
		e.logger.Warn("No JSON found in extraction response", "kind", kind, "response", preview(raw))
		return records, nil
	}
	if len(objects) > maxRecords {
		objects = objects[:maxRecords]
	}
	for _, obj := range objects {
		records = append(records, types.ExtractionRecord{Kind: kind, Fields: obj})
	}
	e.logger.Debug("Extracted entities", "kind", kind, "count", len(records))
	return records, nil
}

// ExtractRelationships returns up to maxRecords relationships of kind between
// the given source and target records. Records without both endpoints are
// dropped with a warning.
func (e *Extractor) ExtractRelationships(ctx context.Context, text string, sources, targets []types.ExtractionRecord, kind string, schema map[string]any, maxRecords int) ([]types.RelationshipRecord, error) {
	if maxRecords <= 0 {
		maxRecords = e.maxRelationships
	}
	records := []types.RelationshipRecord{}

	messages, err := e.prompts.ExtractRelationships().Call(map[string]interface{}{
		"kind":        kind,
		"sources":     fieldsOf(sources),
		"targets":     fieldsOf(targets),
		"schema":      schema,
		"text":        text,
		"max_records": maxRecords,
		"use_yaml":    e.useYAML,
		"logger":      e.logger,
	})
	if err != nil {
		return records, &ExtractionError{Kind: kind, Err: err}
	}

	raw, err := e.complete(ctx, messages)
	if err != nil {
		e.logger.Warn("Relationship extraction failed", "kind", kind, "error", err)
		return records, &ExtractionError{Kind: kind, Err: err}
	}

	objects, ok := ParseObjects(raw)
	if !ok {
		e.logger.Warn("No JSON found in extraction response", "kind", kind, "response", preview(raw))
		return records, nil
	}
	for _, obj := range objects {
		rec, ok := toRelationship(kind, obj)
		if !ok {
			e.logger.Warn("Dropping relationship without endpoints", "kind", kind, "record", obj)
			continue
		}
		records = append(records, rec)
		if len(records) == maxRecords {
			break
		}
	}
	e.logger.Debug("Extracted relationships", "kind", kind, "count", len(records))
	return records, nil
}

func (e *Extractor) complete(ctx context.Context, messages []types.Message) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req := nlp.CompletionRequest{
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		ExpectJSON:  true,
	}
	var prompt []string
	for _, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			req.SystemPrompt = msg.Content
			continue
		}
		prompt = append(prompt, msg.Content)
	}
	req.Prompt = strings.Join(prompt, "\n")

	raw, err := e.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	prompts.LogResponse(e.logger, raw)
	return raw, nil
}

var (
	sourceKeys = []string{"source_id", "source", "sourceRef", "source_ref"}
	targetKeys = []string{"target_id", "target", "targetRef", "target_ref"}
)

func toRelationship(kind string, obj map[string]any) (types.RelationshipRecord, bool) {
	source := firstRef(obj, sourceKeys)
	target := firstRef(obj, targetKeys)
	if source == "" || target == "" {
		return types.RelationshipRecord{}, false
	}

	props := map[string]any{}
	if p, ok := obj["properties"].(map[string]any); ok {
		for k, v := range p {
			props[k] = v
		}
	}
	for k, v := range obj {
		if k == "properties" || isEndpointKey(k) {
			continue
		}
		if _, exists := props[k]; !exists {
			props[k] = v
		}
	}

	return types.RelationshipRecord{
		Kind:       kind,
		SourceRef:  source,
		TargetRef:  target,
		Properties: props,
	}, true
}

func firstRef(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s := refString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func refString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func isEndpointKey(k string) bool {
	for _, key := range sourceKeys {
		if k == key {
			return true
		}
	}
	for _, key := range targetKeys {
		if k == key {
			return true
		}
	}
	return false
}

func fieldsOf(records []types.ExtractionRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.Fields)
	}
	return out
}

func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

package loregraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/loregraph/pkg/extractor"
	"github.com/soundprediction/loregraph/pkg/types"
)

// AnalyzeAndIngest asks the model which registered kinds occur in text and
// then ingests with those kinds. Kinds the model proposes that are not
// registered are dropped with a warning. When the model names no usable
// entity kind, every registered kind is used. Any kinds set in opts are
// replaced by the analysis.
func (c *Client) AnalyzeAndIngest(ctx context.Context, text string, opts *IngestOptions) (*types.IngestResult, error) {
	if opts == nil {
		opts = DefaultIngestOptions()
	}

	entityKinds, relationshipKinds, err := c.AnalyzeKinds(ctx, text)
	if err != nil {
		return nil, err
	}

	chosen := *opts
	chosen.EntityKinds = entityKinds
	chosen.RelationshipKinds = relationshipKinds
	return c.Ingest(ctx, text, &chosen)
}

// AnalyzeKinds returns the registered entity and relationship kinds the
// model picks for text. An empty entity list means the model gave no usable
// answer.
func (c *Client) AnalyzeKinds(ctx context.Context, text string) ([]string, []string, error) {
	analysis, err := c.extractor.Analyze(ctx, text, c.registry.EntityKinds(), c.registry.RelationshipKinds())
	if errors.Is(err, extractor.ErrNoAnalysis) {
		c.logger.Warn("Analysis returned nothing usable, using all registered kinds")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze text: %w", err)
	}

	entityKinds := c.filterKinds(analysis.EntityKinds(), c.registry.IsEntityKind, "entity")
	relationshipKinds := c.filterKinds(analysis.RelationshipKinds(), c.registry.IsRelationshipKind, "relationship")
	for _, choice := range analysis.EntityTypes {
		c.logger.Debug("Analysis chose kind", "kind", choice.Type, "reason", choice.Reason)
	}
	if len(entityKinds) == 0 {
		c.logger.Warn("Analysis chose no registered entity kinds, using all registered kinds")
		return nil, nil, nil
	}
	return entityKinds, relationshipKinds, nil
}

func (c *Client) filterKinds(kinds []string, registered func(string) bool, what string) []string {
	out := make([]string, 0, len(kinds))
	for _, kind := range unique(kinds) {
		if !registered(kind) {
			c.logger.Warn("Ignoring unregistered kind proposed by analysis", "kind", kind, "type", what)
			continue
		}
		out = append(out, kind)
	}
	return out
}

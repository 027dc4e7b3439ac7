package loregraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/types"
	"github.com/soundprediction/loregraph/pkg/utils"
)

// IngestOptions holds options for a single ingestion call.
type IngestOptions struct {
	// EntityKinds to extract. Empty means every registered entity kind.
	EntityKinds []string
	// RelationshipKinds to extract. Empty means every registered relationship kind.
	RelationshipKinds []string
	// Persist writes the batch to the store. DefaultIngestOptions sets it.
	Persist bool
	// MaxRecords caps records per kind for this call. 0 uses the client default.
	MaxRecords int
	// Source names where the text came from; it is carried on the context
	// for telemetry.
	Source string
}

// DefaultIngestOptions returns options that extract every registered kind
// and persist the result.
func DefaultIngestOptions() *IngestOptions {
	return &IngestOptions{Persist: true}
}

// ingestState tracks where a call is, for logging.
type ingestState int

const (
	stateIdle ingestState = iota
	stateExtracting
	stateMapping
	stateDeduplicating
	statePersisting
	stateDone
)

func (s ingestState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateExtracting:
		return "extracting"
	case stateMapping:
		return "mapping"
	case stateDeduplicating:
		return "deduplicating"
	case statePersisting:
		return "persisting"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ingestRun is the per-call state of Ingest.
type ingestRun struct {
	id                string
	state             ingestState
	logger            *slog.Logger
	started           time.Time
	entityKinds       []string
	relationshipKinds []string
	maxRecords        int
	result            *types.IngestResult
}

func (r *ingestRun) transition(next ingestState) {
	r.logger.Debug("Ingest state change", "from", r.state, "to", next)
	r.state = next
}

func (r *ingestRun) failed(kind string, err error) {
	r.logger.Warn("Extraction failed for kind", "kind", kind, "error", err)
	r.result.Stats.FailedKinds = append(r.result.Stats.FailedKinds, kind)
}

// ingestBatch is the deduplicated content of one call, in first-seen order.
type ingestBatch struct {
	nodes     map[types.NodeKey]*types.Node
	edges     map[types.EdgeKey]*types.Edge
	nodeOrder []types.NodeKey
	edgeOrder []types.EdgeKey
}

func newIngestBatch() *ingestBatch {
	return &ingestBatch{
		nodes: make(map[types.NodeKey]*types.Node),
		edges: make(map[types.EdgeKey]*types.Edge),
	}
}

// addNode merges n into the batch. A repeated (label, id) keeps the first
// node and overwrites its properties with the later ones.
func (b *ingestBatch) addNode(n *types.Node) (*types.Node, bool) {
	key := n.Key()
	if existing, ok := b.nodes[key]; ok {
		types.MergeProperties(existing.Properties, n.Properties)
		return existing, false
	}
	b.nodes[key] = n
	b.nodeOrder = append(b.nodeOrder, key)
	return n, true
}

func (b *ingestBatch) addEdge(e *types.Edge) (*types.Edge, bool) {
	key := e.Key()
	if existing, ok := b.edges[key]; ok {
		types.MergeProperties(existing.Properties, e.Properties)
		return existing, false
	}
	b.edges[key] = e
	b.edgeOrder = append(b.edgeOrder, key)
	return e, true
}

// IngestText is Ingest with positional options.
func (c *Client) IngestText(ctx context.Context, text string, entityKinds, relationshipKinds []string, persist bool) (*types.IngestResult, error) {
	return c.Ingest(ctx, text, &IngestOptions{
		EntityKinds:       entityKinds,
		RelationshipKinds: relationshipKinds,
		Persist:           persist,
	})
}

// Ingest extracts entities and relationships from text and reconciles them
// against the registry.
//
// Entity kinds are extracted concurrently, bounded by Config.MaxConcurrency,
// and a failing kind contributes nothing without failing the call. All entity
// kinds finish before any relationship kind starts. A relationship kind whose
// source or target kind produced no records is skipped without calling the
// model. Nodes are deduplicated by (label, id), later properties winning.
// Edges whose endpoints are neither in the batch nor (when persisting) in the
// store are dropped. Nodes are persisted before edges; per-item store errors
// are logged and counted in the result stats.
//
// Unknown kinds passed in opts are returned as *mapper.UnregisteredKindError
// before anything is extracted. If ctx is cancelled the partial result is
// returned together with ctx.Err() and nothing is persisted.
func (c *Client) Ingest(ctx context.Context, text string, opts *IngestOptions) (*types.IngestResult, error) {
	if opts == nil {
		opts = DefaultIngestOptions()
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	entityKinds, relationshipKinds, err := c.resolveKinds(opts)
	if err != nil {
		return nil, err
	}

	if opts.Source != "" {
		ctx = context.WithValue(ctx, types.ContextKeyIngestionSource, opts.Source)
	}

	run := &ingestRun{
		id:                uuid.NewString(),
		started:           time.Now(),
		entityKinds:       entityKinds,
		relationshipKinds: relationshipKinds,
		maxRecords:        opts.MaxRecords,
		result:            types.NewIngestResult(),
	}
	run.logger = c.logger.With("ingest_id", run.id)
	for _, kind := range entityKinds {
		run.result.Entities[kind] = []*types.Node{}
	}
	for _, kind := range relationshipKinds {
		run.result.Relationships[kind] = []*types.Edge{}
	}

	run.logger.Info("Starting ingestion",
		"text_length", len(text),
		"entity_kinds", len(entityKinds),
		"relationship_kinds", len(relationshipKinds),
		"persist", opts.Persist)

	run.transition(stateExtracting)
	entityRecords := c.extractEntities(ctx, run, text)
	var relationshipRecords map[string][]types.RelationshipRecord
	if ctx.Err() == nil {
		relationshipRecords = c.extractRelationships(ctx, run, text, entityRecords)
	}

	run.transition(stateMapping)
	nodesByKind, edgesByKind := c.mapRecords(run, entityRecords, relationshipRecords)

	run.transition(stateDeduplicating)
	persist := opts.Persist && ctx.Err() == nil
	batch := c.deduplicate(ctx, run, nodesByKind, edgesByKind, persist)

	if persist {
		run.transition(statePersisting)
		c.persistBatch(ctx, run, batch)
	}

	run.transition(stateDone)
	run.result.Degraded = c.Degraded()
	run.result.Stats.Duration = time.Since(run.started)

	if err := ctx.Err(); err != nil {
		run.logger.Warn("Ingestion cancelled, returning partial results",
			"nodes", run.result.NodeCount(),
			"edges", run.result.EdgeCount(),
			"error", err)
		return run.result, err
	}

	run.logger.Info("Ingestion complete",
		"nodes", run.result.NodeCount(),
		"edges", run.result.EdgeCount(),
		"nodes_persisted", run.result.Stats.NodesPersisted,
		"edges_persisted", run.result.Stats.EdgesPersisted,
		"edges_dropped", run.result.Stats.EdgesDropped,
		"degraded", run.result.Degraded,
		"duration", run.result.Stats.Duration)
	return run.result, nil
}

// resolveKinds applies the defaults and rejects unknown kinds.
func (c *Client) resolveKinds(opts *IngestOptions) ([]string, []string, error) {
	entityKinds := unique(opts.EntityKinds)
	if len(entityKinds) == 0 {
		entityKinds = c.registry.EntityKinds()
	}
	for _, kind := range entityKinds {
		if !c.registry.IsEntityKind(kind) {
			return nil, nil, &mapper.UnregisteredKindError{Kind: kind, Err: &registry.NotFoundError{Kind: kind}}
		}
	}
	if len(entityKinds) == 0 {
		return nil, nil, ErrNoEntityKinds
	}

	relationshipKinds := unique(opts.RelationshipKinds)
	if len(relationshipKinds) == 0 {
		relationshipKinds = c.registry.RelationshipKinds()
	}
	for _, kind := range relationshipKinds {
		if !c.registry.IsRelationshipKind(kind) {
			return nil, nil, &mapper.UnregisteredKindError{Kind: kind, Err: &registry.NotFoundError{Kind: kind}}
		}
	}
	return entityKinds, relationshipKinds, nil
}

func (c *Client) extractEntities(ctx context.Context, run *ingestRun, text string) map[string][]types.ExtractionRecord {
	pool := utils.NewWorkerPool(c.concurrency(), func(ctx context.Context, kind string) ([]types.ExtractionRecord, error) {
		spec, err := c.registry.ResolveEntity(kind)
		if err != nil {
			return nil, err
		}
		return c.extractor.ExtractWithInstructions(ctx, text, kind, spec.Schema, spec.Instructions, run.maxRecords)
	})

	results, errs := pool.ProcessItems(ctx, run.entityKinds)
	records := make(map[string][]types.ExtractionRecord, len(run.entityKinds))
	for i, kind := range run.entityKinds {
		if errs[i] != nil {
			if isCancellation(ctx, errs[i]) {
				continue
			}
			run.failed(kind, errs[i])
			continue
		}
		records[kind] = results[i]
		run.result.Stats.EntityRecords += len(results[i])
	}
	return records
}

func (c *Client) extractRelationships(ctx context.Context, run *ingestRun, text string, entityRecords map[string][]types.ExtractionRecord) map[string][]types.RelationshipRecord {
	pool := utils.NewWorkerPool(c.concurrency(), func(ctx context.Context, kind string) ([]types.RelationshipRecord, error) {
		spec, err := c.registry.ResolveRelationship(kind)
		if err != nil {
			return nil, err
		}
		sources, targets := entityRecords[spec.SourceKind], entityRecords[spec.TargetKind]
		if len(sources) == 0 || len(targets) == 0 {
			run.logger.Debug("Skipping relationship kind with no endpoint records",
				"kind", kind,
				"source_kind", spec.SourceKind,
				"sources", len(sources),
				"target_kind", spec.TargetKind,
				"targets", len(targets))
			return nil, nil
		}
		return c.extractor.ExtractRelationships(ctx, text, sources, targets, kind, spec.Schema, run.maxRecords)
	})

	results, errs := pool.ProcessItems(ctx, run.relationshipKinds)
	records := make(map[string][]types.RelationshipRecord, len(run.relationshipKinds))
	for i, kind := range run.relationshipKinds {
		if errs[i] != nil {
			if isCancellation(ctx, errs[i]) {
				continue
			}
			run.failed(kind, errs[i])
			continue
		}
		records[kind] = results[i]
		run.result.Stats.RelationshipRecords += len(results[i])
	}
	return records
}

func (c *Client) mapRecords(run *ingestRun, entityRecords map[string][]types.ExtractionRecord, relationshipRecords map[string][]types.RelationshipRecord) (map[string][]*types.Node, map[string][]*types.Edge) {
	m := mapper.New(c.registry,
		mapper.WithLogger(run.logger),
		mapper.WithDegradedHook(func(mapper.DegradedEvent) {
			run.result.Stats.FallbackIDs++
		}))

	nodesByKind := make(map[string][]*types.Node, len(entityRecords))
	for _, kind := range run.entityKinds {
		for _, rec := range entityRecords[kind] {
			node, err := m.MapEntity(kind, rec.Fields)
			if err != nil {
				run.logger.Warn("Failed to map entity", "kind", kind, "error", err)
				continue
			}
			nodesByKind[kind] = append(nodesByKind[kind], node)
		}
	}

	edgesByKind := make(map[string][]*types.Edge, len(relationshipRecords))
	for _, kind := range run.relationshipKinds {
		for _, rec := range relationshipRecords[kind] {
			edge, err := m.MapRelationship(kind, rec.SourceRef, rec.TargetRef, rec.Properties)
			if err != nil {
				run.logger.Warn("Failed to map relationship", "kind", kind, "error", err)
				continue
			}
			edgesByKind[kind] = append(edgesByKind[kind], edge)
		}
	}
	return nodesByKind, edgesByKind
}

// deduplicate builds the batch index, fills the per-kind result lists and
// drops edges with unknown endpoints.
func (c *Client) deduplicate(ctx context.Context, run *ingestRun, nodesByKind map[string][]*types.Node, edgesByKind map[string][]*types.Edge, checkStore bool) *ingestBatch {
	batch := newIngestBatch()

	for _, kind := range run.entityKinds {
		seen := make(map[types.NodeKey]bool)
		for _, n := range nodesByKind[kind] {
			canonical, _ := batch.addNode(n)
			if !seen[canonical.Key()] {
				seen[canonical.Key()] = true
				run.result.Entities[kind] = append(run.result.Entities[kind], canonical)
			}
		}
	}

	known := make(map[types.NodeKey]bool)
	endpointKnown := func(key types.NodeKey) bool {
		if _, ok := batch.nodes[key]; ok {
			return true
		}
		if !checkStore || ctx.Err() != nil {
			return false
		}
		if exists, ok := known[key]; ok {
			return exists
		}
		sctx, cancel := c.storeContext(ctx)
		defer cancel()
		exists, err := c.store.NodeExists(sctx, key.Label, key.ID)
		if err != nil {
			run.logger.Warn("Endpoint lookup failed", "label", key.Label, "id", key.ID, "error", err)
			return false
		}
		known[key] = exists
		return exists
	}

	for _, kind := range run.relationshipKinds {
		seen := make(map[types.EdgeKey]bool)
		for _, e := range edgesByKind[kind] {
			if !endpointKnown(e.Source()) || !endpointKnown(e.Target()) {
				run.result.Stats.EdgesDropped++
				run.logger.Debug("Dropping edge with missing endpoint",
					"kind", kind,
					"source", e.SourceLabel+"/"+e.SourceID,
					"target", e.TargetLabel+"/"+e.TargetID)
				continue
			}
			canonical, _ := batch.addEdge(e)
			if !seen[canonical.Key()] {
				seen[canonical.Key()] = true
				run.result.Relationships[kind] = append(run.result.Relationships[kind], canonical)
			}
		}
	}

	run.logger.Debug("Batch deduplicated",
		"nodes", len(batch.nodeOrder),
		"edges", len(batch.edgeOrder),
		"edges_dropped", run.result.Stats.EdgesDropped)
	return batch
}

// persistBatch writes every node, then every edge. It stops early when ctx
// is cancelled.
func (c *Client) persistBatch(ctx context.Context, run *ingestRun, batch *ingestBatch) {
	run.logger.Info("Persisting nodes", "count", len(batch.nodeOrder))
	for _, key := range batch.nodeOrder {
		if ctx.Err() != nil {
			return
		}
		if err := c.upsertNode(ctx, batch.nodes[key]); err != nil {
			c.persistFailed(ctx, run, &PersistenceError{Item: "node", Key: key.Label + "/" + key.ID, Err: err})
			continue
		}
		run.result.Stats.NodesPersisted++
	}

	run.logger.Info("Persisting edges", "count", len(batch.edgeOrder))
	for _, key := range batch.edgeOrder {
		if ctx.Err() != nil {
			return
		}
		e := batch.edges[key]
		if err := c.upsertEdge(ctx, e); err != nil {
			c.persistFailed(ctx, run, &PersistenceError{
				Item: "edge",
				Key:  fmt.Sprintf("%s/%s-[%s]->%s/%s", e.SourceLabel, e.SourceID, e.Label, e.TargetLabel, e.TargetID),
				Err:  err,
			})
			continue
		}
		run.result.Stats.EdgesPersisted++
	}
}

func (c *Client) persistFailed(ctx context.Context, run *ingestRun, err *PersistenceError) {
	run.result.Stats.PersistFailures++
	run.logger.ErrorContext(ctx, "Persistence failed", "item", err.Item, "key", err.Key, "error", err.Err)
}

func (c *Client) upsertNode(ctx context.Context, n *types.Node) (err error) {
	defer utils.RecoverAsError(&err)
	ctx, cancel := c.storeContext(ctx)
	defer cancel()
	return c.store.UpsertNode(ctx, n)
}

func (c *Client) upsertEdge(ctx context.Context, e *types.Edge) (err error) {
	defer utils.RecoverAsError(&err)
	ctx, cancel := c.storeContext(ctx)
	defer cancel()
	return c.store.UpsertEdge(ctx, e)
}

// isCancellation reports whether err is the call's own cancellation rather
// than a failure of the kind.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func unique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

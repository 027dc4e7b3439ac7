package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/loregraph/pkg/types"
)

const (
	nodesDir = "nodes"
	edgesDir = "edges"
)

// ParquetGraphWriter writes snapshots of ingestion results as Parquet files,
// one file per batch under nodes/ and edges/.
type ParquetGraphWriter struct {
	baseDir string
	now     func() time.Time
}

// NewParquetGraphWriter creates the directory layout under baseDir.
func NewParquetGraphWriter(baseDir string) (*ParquetGraphWriter, error) {
	for _, d := range []string{nodesDir, edgesDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return &ParquetGraphWriter{baseDir: baseDir, now: time.Now}, nil
}

// ParquetNode is the row schema for a node snapshot.
type ParquetNode struct {
	ID         string    `parquet:"id"`
	Label      string    `parquet:"label"`
	Kind       string    `parquet:"kind"`
	Properties string    `parquet:"properties"` // JSON object
	BatchID    string    `parquet:"batch_id"`
	WrittenAt  time.Time `parquet:"written_at"`
}

// ParquetEdge is the row schema for an edge snapshot.
type ParquetEdge struct {
	Label       string    `parquet:"label"`
	Kind        string    `parquet:"kind"`
	SourceLabel string    `parquet:"source_label"`
	SourceID    string    `parquet:"source_id"`
	TargetLabel string    `parquet:"target_label"`
	TargetID    string    `parquet:"target_id"`
	Properties  string    `parquet:"properties"` // JSON object
	BatchID     string    `parquet:"batch_id"`
	WrittenAt   time.Time `parquet:"written_at"`
}

// WriteIngestResult writes every node and edge in result, tagged with
// batchID. Kinds are visited in sorted order so files are reproducible.
func (w *ParquetGraphWriter) WriteIngestResult(ctx context.Context, batchID string, result *types.IngestResult) error {
	if result == nil {
		return nil
	}
	writtenAt := w.now().UTC()

	var nodes []ParquetNode
	for _, kind := range types.SortedKeys(result.Entities) {
		for _, n := range result.Entities[kind] {
			props, err := propertiesJSON(n.Properties)
			if err != nil {
				return fmt.Errorf("node %s/%s: %w", n.Label, n.ID, err)
			}
			nodes = append(nodes, ParquetNode{
				ID: n.ID, Label: n.Label, Kind: kind, Properties: props,
				BatchID: batchID, WrittenAt: writtenAt,
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var edges []ParquetEdge
	for _, kind := range types.SortedKeys(result.Relationships) {
		for _, e := range result.Relationships[kind] {
			props, err := propertiesJSON(e.Properties)
			if err != nil {
				return fmt.Errorf("edge %s %s->%s: %w", e.Label, e.SourceID, e.TargetID, err)
			}
			edges = append(edges, ParquetEdge{
				Label: e.Label, Kind: kind,
				SourceLabel: e.SourceLabel, SourceID: e.SourceID,
				TargetLabel: e.TargetLabel, TargetID: e.TargetID,
				Properties: props, BatchID: batchID, WrittenAt: writtenAt,
			})
		}
	}

	if len(nodes) > 0 {
		if err := parquet.WriteFile(w.path(nodesDir, batchID), nodes); err != nil {
			return fmt.Errorf("failed to write nodes: %w", err)
		}
	}
	if len(edges) > 0 {
		if err := parquet.WriteFile(w.path(edgesDir, batchID), edges); err != nil {
			return fmt.Errorf("failed to write edges: %w", err)
		}
	}
	return nil
}

// ReadNodes loads every node row written under the base directory.
func (w *ParquetGraphWriter) ReadNodes() ([]ParquetNode, error) {
	return readAll[ParquetNode](filepath.Join(w.baseDir, nodesDir))
}

// ReadEdges loads every edge row written under the base directory.
func (w *ParquetGraphWriter) ReadEdges() ([]ParquetEdge, error) {
	return readAll[ParquetEdge](filepath.Join(w.baseDir, edgesDir))
}

// Close is a no-op; every write produces a complete file.
func (w *ParquetGraphWriter) Close() error {
	return nil
}

func (w *ParquetGraphWriter) path(dir, batchID string) string {
	name := fmt.Sprintf("%s_%s_%d.parquet", dir, batchID, w.now().UnixNano())
	return filepath.Join(w.baseDir, dir, name)
}

func propertiesJSON(p *types.Properties) (string, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal properties: %w", err)
	}
	return string(b), nil
}

func readAll[T any](dir string) ([]T, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	var rows []T
	for _, m := range matches {
		batch, err := parquet.ReadFile[T](m)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(m), err)
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

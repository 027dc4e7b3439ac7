// Package telemetry captures error-level log records as Parquet files so
// failed ingestions can be inspected after the fact.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/loregraph/pkg/types"
)

const defaultBatchSize = 100

// LogRecord is one captured log entry.
type LogRecord struct {
	ID              string    `parquet:"id"`
	Timestamp       time.Time `parquet:"timestamp"`
	Level           string    `parquet:"level"`
	Message         string    `parquet:"message"`
	UserID          string    `parquet:"user_id"`
	SessionID       string    `parquet:"session_id"`
	RequestSource   string    `parquet:"request_source"`
	IngestionSource string    `parquet:"ingestion_source"`
	SourceFile      string    `parquet:"source_file"`
	LineNumber      int       `parquet:"line_number"`
	Attributes      string    `parquet:"attributes"` // JSON string
}

// sink is shared by a handler and every handler derived from it with
// WithAttrs or WithGroup, so records land in one buffer.
type sink struct {
	outputDir string
	batchSize int
	mu        sync.Mutex
	buffer    []LogRecord
}

// ParquetHandler is a slog.Handler that forwards every record to next and
// buffers error records for Parquet output.
type ParquetHandler struct {
	next  slog.Handler
	sink  *sink
	attrs []slog.Attr
}

// Option configures a ParquetHandler.
type Option func(*sink)

// WithBatchSize sets how many records are buffered before a file is written.
func WithBatchSize(n int) Option {
	return func(s *sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewParquetHandler creates a ParquetHandler writing into outputDir.
func NewParquetHandler(next slog.Handler, outputDir string, opts ...Option) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	s := &sink{outputDir: outputDir, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	s.buffer = make([]LogRecord, 0, s.batchSize)
	return &ParquetHandler{next: next, sink: s}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = attrValue(a.Value)
		return true
	})
	attrsJSON, _ := json.Marshal(attrs)

	var sourceFile string
	var line int
	if r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		sourceFile, line = f.File, f.Line
	}

	record := LogRecord{
		ID:              uuid.New().String(),
		Timestamp:       r.Time.UTC(),
		Level:           r.Level.String(),
		Message:         r.Message,
		UserID:          contextString(ctx, types.ContextKeyUserID),
		SessionID:       contextString(ctx, types.ContextKeySessionID),
		RequestSource:   contextString(ctx, types.ContextKeyRequestSource),
		IngestionSource: contextString(ctx, types.ContextKeyIngestionSource),
		SourceFile:      sourceFile,
		LineNumber:      line,
		Attributes:      string(attrsJSON),
	}

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

// Flush writes any buffered records.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the buffer. The handler stays usable afterwards.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the buffer to a new Parquet file. Caller must hold the lock.
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("execution_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	if err := parquet.WriteFile(filepath.Join(s.outputDir, filename), s.buffer); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}
	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &ParquetHandler{next: h.next.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{next: h.next.WithGroup(name), sink: h.sink, attrs: h.attrs}
}

// ReadRecords loads every record written under dir.
func ReadRecords(dir string) ([]LogRecord, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "execution_errors_*.parquet"))
	if err != nil {
		return nil, err
	}
	var out []LogRecord
	for _, m := range matches {
		rows, err := parquet.ReadFile[LogRecord](m)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(m), err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func contextString(ctx context.Context, key types.ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

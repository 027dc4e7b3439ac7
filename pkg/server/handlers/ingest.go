package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/server/dto"
	"github.com/soundprediction/loregraph/pkg/types"
)

// IngestHandler handles data ingestion requests
type IngestHandler struct {
	lore   loregraph.Loregraph
	logger *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(g loregraph.Loregraph, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{
		lore:   g,
		logger: logger,
	}
}

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// Ingest handles POST /api/v1/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	h.ingest(c, false)
}

// AnalyzeAndIngest handles POST /api/v1/ingest/analyze. Any kinds in the
// request are ignored; the model picks them.
func (h *IngestHandler) AnalyzeAndIngest(c *gin.Context) {
	h.ingest(c, true)
}

func (h *IngestHandler) ingest(c *gin.Context, analyze bool) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if h.lore == nil {
		writeError(c, http.StatusServiceUnavailable, "not_ready", "loregraph client not initialized")
		return
	}

	opts := &loregraph.IngestOptions{
		EntityKinds:       req.EntityKinds,
		RelationshipKinds: req.RelationshipKinds,
		Persist:           req.ShouldPersist(),
		MaxRecords:        req.MaxRecords,
		Source:            req.Source,
	}
	if opts.Source == "" {
		opts.Source = "api_ingest"
	}

	ctx := c.Request.Context()
	var (
		result *types.IngestResult
		err    error
	)
	if analyze {
		result, err = h.lore.AnalyzeAndIngest(ctx, req.Text, opts)
	} else {
		result, err = h.lore.Ingest(ctx, req.Text, opts)
	}
	if err != nil {
		h.writeIngestError(c, result, err)
		return
	}

	h.logger.InfoContext(ctx, "Ingested text",
		"source", opts.Source,
		"nodes", result.NodeCount(),
		"edges", result.EdgeCount(),
		"degraded", result.Degraded)

	c.JSON(http.StatusOK, dto.IngestResponse{
		Success: true,
		Result:  result,
	})
}

func (h *IngestHandler) writeIngestError(c *gin.Context, partial *types.IngestResult, err error) {
	switch {
	case errors.Is(err, &mapper.UnregisteredKindError{}):
		writeError(c, http.StatusBadRequest, "unknown_kind", err.Error())
	case errors.Is(err, loregraph.ErrEmptyText):
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.logger.WarnContext(c.Request.Context(), "Ingest cancelled", "error", err)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, dto.IngestResponse{
			Success: false,
			Message: err.Error(),
			Result:  partial,
		})
	default:
		h.logger.ErrorContext(c.Request.Context(), "Ingest failed", "error", err)
		writeError(c, http.StatusInternalServerError, "ingest_failed", err.Error())
	}
}

// ClearGraph handles DELETE /api/v1/graph. The caller must pass
// confirm=true.
func (h *IngestHandler) ClearGraph(c *gin.Context) {
	if c.Query("confirm") != "true" {
		writeError(c, http.StatusBadRequest, "invalid_request", "clearing the graph requires confirm=true")
		return
	}
	if h.lore == nil {
		writeError(c, http.StatusServiceUnavailable, "not_ready", "loregraph client not initialized")
		return
	}
	if err := h.lore.ClearGraph(c.Request.Context()); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Error clearing graph", "error", err)
		writeError(c, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	h.logger.InfoContext(c.Request.Context(), "Cleared graph")
	c.JSON(http.StatusOK, dto.IngestResponse{
		Success: true,
		Message: "graph cleared",
	})
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/server/dto"
)

// WorldHandler serves lookups and hand-authored edits over the world.
type WorldHandler struct {
	lore   loregraph.Loregraph
	logger *slog.Logger
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(g loregraph.Loregraph, logger *slog.Logger) *WorldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorldHandler{
		lore:   g,
		logger: logger,
	}
}

// Kinds handles GET /api/v1/kinds
func (h *WorldHandler) Kinds(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	entityKinds, relationshipKinds := h.lore.Kinds()
	c.JSON(http.StatusOK, dto.KindsResponse{
		EntityKinds:       nonNil(entityKinds),
		RelationshipKinds: nonNil(relationshipKinds),
	})
}

// Location handles GET /api/v1/locations/:name. Passing ?id= also lists
// the items and characters found there.
func (h *WorldHandler) Location(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	ctx := c.Request.Context()
	name := c.Param("name")

	loc, err := h.lore.LocationDetails(ctx, name)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	exits, err := h.lore.Exits(ctx, name)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}

	resp := dto.LocationResponse{
		Name:        loc.Name,
		Description: loc.Description,
		Exits:       toExitResults(exits),
	}

	if id := c.Query("id"); id != "" {
		items, err := h.lore.ItemsAt(ctx, id)
		if err != nil {
			h.writeLookupError(c, err)
			return
		}
		characters, err := h.lore.CharactersAt(ctx, id)
		if err != nil {
			h.writeLookupError(c, err)
			return
		}
		resp.Items = toEntityResults(items)
		resp.Characters = toEntityResults(characters)
	}

	c.JSON(http.StatusOK, resp)
}

// Exits handles GET /api/v1/locations/:name/exits
func (h *WorldHandler) Exits(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	exits, err := h.lore.Exits(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExitResults(exits))
}

// Inventory handles GET /api/v1/characters/:id/inventory
func (h *WorldHandler) Inventory(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.lore.Inventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntityResults(items))
}

// CurrentLocation handles GET /api/v1/characters/:id/location
func (h *WorldHandler) CurrentLocation(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	loc, err := h.lore.CurrentLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// GetNode handles GET /api/v1/nodes/:label/:id
func (h *WorldHandler) GetNode(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	node, err := h.lore.GetNode(c.Request.Context(), c.Param("label"), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *WorldHandler) ready(c *gin.Context) bool {
	if h.lore == nil {
		writeError(c, http.StatusServiceUnavailable, "not_ready", "loregraph client not initialized")
		return false
	}
	return true
}

func (h *WorldHandler) writeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, loregraph.ErrLocationNotFound), errors.Is(err, driver.ErrNodeNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.ErrorContext(c.Request.Context(), "Lookup failed", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "lookup_failed", err.Error())
	}
}

func toExitResults(exits []loregraph.Exit) []dto.ExitResult {
	out := make([]dto.ExitResult, 0, len(exits))
	for _, e := range exits {
		out = append(out, dto.ExitResult{Direction: e.Direction, Target: e.Target, Description: e.Description})
	}
	return out
}

func toEntityResults(entities []loregraph.Entity) []dto.EntityResult {
	out := make([]dto.EntityResult, 0, len(entities))
	for _, e := range entities {
		out = append(out, dto.EntityResult{Name: e.Name, Description: e.Description})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CreateItem handles POST /api/v1/items
func (h *WorldHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !h.ready(c) {
		return
	}
	node, err := h.lore.CreateItem(c.Request.Context(), req.Name, req.Description, req.Location)
	if err != nil {
		h.writeWriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// CreateCharacter handles POST /api/v1/characters
func (h *WorldHandler) CreateCharacter(c *gin.Context) {
	var req dto.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !h.ready(c) {
		return
	}
	node, err := h.lore.CreateCharacter(c.Request.Context(), req.ID, req.Name, req.Description, req.Location)
	if err != nil {
		h.writeWriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// TakeItem handles POST /api/v1/characters/:id/take
func (h *WorldHandler) TakeItem(c *gin.Context) {
	var req dto.TakeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !h.ready(c) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.lore.TakeItem(ctx, id, req.Item, req.Location); err != nil {
		h.writeWriteError(c, err)
		return
	}
	items, err := h.lore.Inventory(ctx, id)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntityResults(items))
}

// SeedWorld handles POST /api/v1/world/seed. An empty body seeds the default
// world.
func (h *WorldHandler) SeedWorld(c *gin.Context) {
	var world *loregraph.World
	if c.Request.ContentLength != 0 {
		world = &loregraph.World{}
		if err := c.ShouldBindJSON(world); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}
	if !h.ready(c) {
		return
	}
	if err := h.lore.SeedWorld(c.Request.Context(), world); err != nil {
		h.writeWriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.IngestResponse{Success: true, Message: "world seeded"})
}

func (h *WorldHandler) writeWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, &mapper.UnregisteredKindError{}):
		writeError(c, http.StatusBadRequest, "unknown_kind", err.Error())
	case errors.Is(err, loregraph.ErrItemNotFound),
		errors.Is(err, driver.ErrEndpointNotFound),
		errors.Is(err, driver.ErrNodeNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.ErrorContext(c.Request.Context(), "World update failed", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "update_failed", err.Error())
	}
}

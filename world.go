package loregraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/types"
)

// World is a hand-authored starting world for SeedWorld.
type World struct {
	Locations  []WorldLocation  `json:"locations" yaml:"locations"`
	Exits      []WorldExit      `json:"exits" yaml:"exits"`
	Items      []WorldItem      `json:"items" yaml:"items"`
	Characters []WorldCharacter `json:"characters" yaml:"characters"`
}

// WorldLocation is a location to create.
type WorldLocation struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// WorldExit is a one-way exit between two locations.
type WorldExit struct {
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Direction   string `json:"direction" yaml:"direction"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorldItem is an item placed in a location or held by a character. Holder
// wins when both are set.
type WorldItem struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Holder      string `json:"holder,omitempty" yaml:"holder,omitempty"`
}

// WorldCharacter is a character placed in a location. An empty ID is derived
// from the name the way ingestion derives it.
type WorldCharacter struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
}

// DefaultWorld returns the small forest world used for demos and tests. The
// player starts in the Forest Clearing holding the Rusty Key.
func DefaultWorld() *World {
	return &World{
		Locations: []WorldLocation{
			{Name: "Forest Clearing", Description: "A peaceful clearing in the forest. Sunlight filters through the canopy above."},
			{Name: "Forest Edge", Description: "The edge of a mysterious forest. Tall trees loom ahead, while a meadow stretches behind you."},
			{Name: "River Bank", Description: "A serene river bank. The water flows gently, and fish can be seen swimming beneath the surface."},
			{Name: "Cave Entrance", Description: "A dark cave entrance. Stalactites hang from the ceiling, and the air feels cool and damp."},
		},
		Exits: []WorldExit{
			{From: "Forest Clearing", To: "Forest Edge", Direction: "north", Description: "A path leading deeper into the forest."},
			{From: "Forest Edge", To: "Forest Clearing", Direction: "south", Description: "A path leading back to the clearing."},
			{From: "Forest Clearing", To: "River Bank", Direction: "east", Description: "A narrow trail leading to a river."},
			{From: "River Bank", To: "Forest Clearing", Direction: "west", Description: "A trail leading back to the forest clearing."},
			{From: "River Bank", To: "Cave Entrance", Direction: "north", Description: "A rocky path leading to a cave."},
			{From: "Cave Entrance", To: "River Bank", Direction: "south", Description: "A path leading back to the river bank."},
		},
		Items: []WorldItem{
			{Name: "Old Map", Description: "A weathered map showing the forest and surrounding areas.", Location: "Forest Clearing"},
			{Name: "Glowing Berries", Description: "Small berries that emit a soft blue glow. They look edible.", Location: "Forest Edge"},
			{Name: "Fishing Rod", Description: "A simple fishing rod. Perfect for catching fish in the river.", Location: "River Bank"},
			{Name: "Torch", Description: "An unlit torch. It could be useful in dark places.", Location: "Cave Entrance"},
			{Name: "Rusty Key", Description: "An old iron key with intricate patterns.", Holder: registry.PlayerCharacterID},
		},
		Characters: []WorldCharacter{
			{ID: "char_guardian", Name: "Forest Guardian", Description: "A mysterious figure who protects the forest.", Location: "Forest Edge"},
			{ID: "char_fisherman", Name: "Old Fisherman", Description: "An elderly man who spends his days fishing by the river.", Location: "River Bank"},
			{ID: registry.PlayerCharacterID, Name: "Player", Description: "You, the player character.", Location: "Forest Clearing"},
		},
	}
}

// SeedWorld writes world into the store through the registered kinds. A nil
// world seeds DefaultWorld. Seeding is idempotent: every write is an upsert.
func (c *Client) SeedWorld(ctx context.Context, world *World) error {
	if world == nil {
		world = DefaultWorld()
	}

	for _, loc := range world.Locations {
		if _, err := c.writeEntity(ctx, "Location", "", map[string]any{"name": loc.Name, "description": loc.Description}); err != nil {
			return err
		}
	}
	for _, exit := range world.Exits {
		from, err := c.entityID("Location", exit.From)
		if err != nil {
			return err
		}
		to, err := c.entityID("Location", exit.To)
		if err != nil {
			return err
		}
		props := map[string]any{"direction": exit.Direction, "description": exit.Description}
		if err := c.link(ctx, "EXITS_TO", from, to, props); err != nil {
			return err
		}
	}
	// characters first so held items have a holder
	for _, ch := range world.Characters {
		if _, err := c.CreateCharacter(ctx, ch.ID, ch.Name, ch.Description, ch.Location); err != nil {
			return err
		}
	}
	for _, it := range world.Items {
		location := it.Location
		if it.Holder != "" {
			location = ""
		}
		item, err := c.CreateItem(ctx, it.Name, it.Description, location)
		if err != nil {
			return err
		}
		if it.Holder != "" {
			if err := c.link(ctx, "HAS_ITEM", it.Holder, item.ID, nil); err != nil {
				return err
			}
		}
	}

	c.logger.InfoContext(ctx, "Seeded world",
		"locations", len(world.Locations),
		"exits", len(world.Exits),
		"items", len(world.Items),
		"characters", len(world.Characters))
	return nil
}

// CreateItem stores an item and, when locationName is set, places it in that
// location. The location must already exist.
func (c *Client) CreateItem(ctx context.Context, name, description, locationName string) (*types.Node, error) {
	item, err := c.writeEntity(ctx, "Item", "", map[string]any{"name": name, "description": description})
	if err != nil {
		return nil, err
	}
	if locationName == "" {
		return item, nil
	}
	locationID, err := c.entityID("Location", locationName)
	if err != nil {
		return nil, err
	}
	if err := c.link(ctx, "CONTAINS", locationID, item.ID, nil); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateCharacter stores a character. When locationName is set the location
// contains the character and the character is located there.
func (c *Client) CreateCharacter(ctx context.Context, id, name, description, locationName string) (*types.Node, error) {
	ch, err := c.writeEntity(ctx, "Character", id, map[string]any{"name": name, "description": description})
	if err != nil {
		return nil, err
	}
	if locationName == "" {
		return ch, nil
	}
	locationID, err := c.entityID("Location", locationName)
	if err != nil {
		return nil, err
	}
	if err := c.link(ctx, "CONTAINS_CHARACTER", locationID, ch.ID, nil); err != nil {
		return nil, err
	}
	if err := c.link(ctx, "LOCATED_AT", ch.ID, locationID, nil); err != nil {
		return nil, err
	}
	return ch, nil
}

// TakeItem moves an item from a location into a character's inventory. An
// empty characterID means the player. It returns ErrItemNotFound when the
// location does not contain the item.
func (c *Client) TakeItem(ctx context.Context, characterID, itemName, locationName string) error {
	if characterID == "" {
		characterID = registry.PlayerCharacterID
	}
	itemID, err := c.entityID("Item", itemName)
	if err != nil {
		return err
	}
	locationID, err := c.entityID("Location", locationName)
	if err != nil {
		return err
	}

	characterLabel, err := c.registry.EntityLabel("Character")
	if err != nil {
		return &mapper.UnregisteredKindError{Kind: "Character", Err: err}
	}
	sctx, cancel := c.storeContext(ctx)
	exists, err := c.store.NodeExists(sctx, characterLabel, characterID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to look up character %s: %w", characterID, err)
	}
	if !exists {
		return fmt.Errorf("%w: Character %q", driver.ErrNodeNotFound, characterID)
	}

	contains, err := c.newMapper().MapRelationship("CONTAINS", locationID, itemID, nil)
	if err != nil {
		return err
	}
	sctx, cancel = c.storeContext(ctx)
	removed, err := c.store.DeleteEdge(sctx, contains.Key())
	cancel()
	if err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", itemName, locationName, err)
	}
	if !removed {
		c.logger.WarnContext(ctx, "Item not found at location", "item", itemName, "location", locationName)
		return fmt.Errorf("%w: %s at %s", ErrItemNotFound, itemName, locationName)
	}

	if err := c.link(ctx, "HAS_ITEM", characterID, itemID, nil); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Item taken", "item", itemName, "location", locationName, "character", characterID)
	return nil
}

// writeEntity maps record as kind and upserts it. A non-empty id replaces the
// mapped id.
func (c *Client) writeEntity(ctx context.Context, kind, id string, record map[string]any) (*types.Node, error) {
	node, err := c.newMapper().MapEntity(kind, record)
	if err != nil {
		return nil, err
	}
	if id != "" {
		node.ID = id
	}
	if err := c.upsertNode(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to store %s %s: %w", kind, node.ID, err)
	}
	return node, nil
}

// link upserts a kind relationship between two node ids.
func (c *Client) link(ctx context.Context, kind, sourceID, targetID string, props map[string]any) error {
	edge, err := c.newMapper().MapRelationship(kind, sourceID, targetID, props)
	if err != nil {
		return err
	}
	if err := c.upsertEdge(ctx, edge); err != nil {
		if errors.Is(err, driver.ErrEndpointNotFound) {
			return err
		}
		return fmt.Errorf("failed to store %s %s -> %s: %w", kind, sourceID, targetID, err)
	}
	return nil
}

// entityID returns the id ingestion gives a kind whose identity value is name.
func (c *Client) entityID(kind, name string) (string, error) {
	spec, err := c.registry.ResolveEntity(kind)
	if err != nil {
		return "", &mapper.UnregisteredKindError{Kind: kind, Err: err}
	}
	return c.newMapper().NodeID(kind, map[string]any{spec.IdentityField: name})
}

func (c *Client) newMapper() *mapper.Mapper {
	return mapper.New(c.registry, mapper.WithLogger(c.logger))
}

package loregraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/types"
)

// Location is a place in the world as the read path sees it.
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Exit is a way out of a location.
type Exit struct {
	Direction   string `json:"direction"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// Entity is a named thing found by a lookup: an item or a character.
type Entity struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LocationDetails returns the location called name, or ErrLocationNotFound.
func (c *Client) LocationDetails(ctx context.Context, name string) (*Location, error) {
	records, err := c.query(ctx, driver.QueryLocationDetails, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, name)
	}
	return &Location{Name: records[0].String("name"), Description: records[0].String("description")}, nil
}

// Exits lists the exits leading out of the named location.
func (c *Client) Exits(ctx context.Context, locationName string) ([]Exit, error) {
	records, err := c.query(ctx, driver.QueryExits, map[string]any{"location_name": locationName})
	if err != nil {
		return nil, err
	}
	exits := make([]Exit, 0, len(records))
	for _, r := range records {
		exits = append(exits, Exit{
			Direction:   r.String("direction"),
			Target:      r.String("target"),
			Description: r.String("description"),
		})
	}
	return exits, nil
}

// ItemsAt lists items contained in a location.
func (c *Client) ItemsAt(ctx context.Context, locationID string) ([]Entity, error) {
	return c.entities(ctx, driver.QueryItemsAtLocation, map[string]any{"location_id": locationID})
}

// CharactersAt lists characters present in a location.
func (c *Client) CharactersAt(ctx context.Context, locationID string) ([]Entity, error) {
	return c.entities(ctx, driver.QueryCharactersAtLocation, map[string]any{"location_id": locationID})
}

// Inventory lists the items a character holds.
func (c *Client) Inventory(ctx context.Context, characterID string) ([]Entity, error) {
	return c.entities(ctx, driver.QueryInventory, map[string]any{"player_id": characterID})
}

// CurrentLocation returns where a character is, or ErrLocationNotFound.
func (c *Client) CurrentLocation(ctx context.Context, characterID string) (*Location, error) {
	records, err := c.query(ctx, driver.QueryCurrentLocation, map[string]any{"player_id": characterID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: character %s has no location", ErrLocationNotFound, characterID)
	}
	return &Location{Name: records[0].String("name"), Description: records[0].String("description")}, nil
}

// GetNode returns one node by label and id.
func (c *Client) GetNode(ctx context.Context, label, id string) (*types.Node, error) {
	ctx, cancel := c.storeContext(ctx)
	defer cancel()
	node, err := c.store.GetNode(ctx, label, id)
	if err != nil {
		if errors.Is(err, driver.ErrNodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get node %s/%s: %w", label, id, err)
	}
	return node, nil
}

func (c *Client) entities(ctx context.Context, statement string, params map[string]any) ([]Entity, error) {
	records, err := c.query(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(records))
	for _, r := range records {
		out = append(out, Entity{Name: r.String("name"), Description: r.String("description")})
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, statement string, params map[string]any) ([]types.Record, error) {
	ctx, cancel := c.storeContext(ctx)
	defer cancel()
	records, err := c.store.Query(ctx, statement, params)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return records, nil
}

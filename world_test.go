package loregraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/mapper"
	"github.com/soundprediction/loregraph/pkg/registry"
)

func seededClient(t *testing.T) (*Client, *driver.MemoryStore) {
	t.Helper()
	store := driver.NewMemoryStore()
	client := newTestClient(t, store, newScriptedCompleter(nil))
	require.NoError(t, client.SeedWorld(context.Background(), nil))
	return client, store
}

func names(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

func TestSeedWorld(t *testing.T) {
	ctx := context.Background()
	client, store := seededClient(t)

	// 4 locations, 5 items, 3 characters
	assert.Equal(t, 12, store.NodeCount())
	// 6 exits, 4 placed items, 3 x (contains + located at), the key
	assert.Equal(t, 6+4+6+1, store.EdgeCount())

	exits, err := client.Exits(ctx, "Forest Clearing")
	require.NoError(t, err)
	directions := make([]string, 0, len(exits))
	for _, e := range exits {
		directions = append(directions, e.Direction+":"+e.Target)
	}
	assert.ElementsMatch(t, []string{"north:Forest Edge", "east:River Bank"}, directions)

	items, err := client.ItemsAt(ctx, "Forest Clearing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Old Map"}, names(items))

	people, err := client.CharactersAt(ctx, "River Bank")
	require.NoError(t, err)
	assert.Equal(t, []string{"Old Fisherman"}, names(people))

	inventory, err := client.Inventory(ctx, registry.PlayerCharacterID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rusty Key"}, names(inventory))

	loc, err := client.CurrentLocation(ctx, registry.PlayerCharacterID)
	require.NoError(t, err)
	assert.Equal(t, "Forest Clearing", loc.Name)

	// seeding again changes nothing
	require.NoError(t, client.SeedWorld(ctx, nil))
	assert.Equal(t, 12, store.NodeCount())
	assert.Equal(t, 17, store.EdgeCount())
}

func TestTakeItem(t *testing.T) {
	ctx := context.Background()
	client, _ := seededClient(t)

	require.NoError(t, client.TakeItem(ctx, "", "Old Map", "Forest Clearing"))

	items, err := client.ItemsAt(ctx, "Forest Clearing")
	require.NoError(t, err)
	assert.Empty(t, items)

	inventory, err := client.Inventory(ctx, registry.PlayerCharacterID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Rusty Key", "Old Map"}, names(inventory))

	err = client.TakeItem(ctx, "", "Old Map", "Forest Clearing")
	assert.ErrorIs(t, err, ErrItemNotFound, "the map is no longer there")

	err = client.TakeItem(ctx, "", "Torch", "Forest Clearing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestTakeItemUnknownCharacterLeavesItemInPlace(t *testing.T) {
	ctx := context.Background()
	client, _ := seededClient(t)

	err := client.TakeItem(ctx, "char_nobody", "Torch", "Cave Entrance")
	require.ErrorIs(t, err, driver.ErrNodeNotFound)

	items, err := client.ItemsAt(ctx, "Cave Entrance")
	require.NoError(t, err)
	assert.Equal(t, []string{"Torch"}, names(items))
}

func TestCreateItemAndCharacter(t *testing.T) {
	ctx := context.Background()
	client, _ := seededClient(t)

	item, err := client.CreateItem(ctx, "Lantern", "Rusty but working.", "Cave Entrance")
	require.NoError(t, err)
	assert.Equal(t, "Lantern", item.ID, "ids match the ones ingestion assigns")

	items, err := client.ItemsAt(ctx, "Cave Entrance")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Torch", "Lantern"}, names(items))

	mara, err := client.CreateCharacter(ctx, "", "Mara", "The miller's daughter.", "Cave Entrance")
	require.NoError(t, err)
	assert.Equal(t, "Mara", mara.ID)

	loc, err := client.CurrentLocation(ctx, "Mara")
	require.NoError(t, err)
	assert.Equal(t, "Cave Entrance", loc.Name)

	_, err = client.CreateItem(ctx, "Compass", "", "Atlantis")
	assert.ErrorIs(t, err, driver.ErrEndpointNotFound)

	loose, err := client.CreateItem(ctx, "Feather", "", "")
	require.NoError(t, err)
	node, err := client.GetNode(ctx, "Item", loose.ID)
	require.NoError(t, err)
	name, _ := node.Properties.Get("name")
	assert.Equal(t, "Feather", name)
}

func TestWorldWritesNeedRegisteredKinds(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterEntityType(registry.EntityTypeSpec{Kind: "Location", Label: "Location", IdentityField: "name"}))
	client, err := NewClient(driver.NewMemoryStore(), newScriptedCompleter(nil), reg, nil, nil)
	require.NoError(t, err)

	_, err = client.CreateItem(context.Background(), "Lantern", "", "")
	assert.ErrorIs(t, err, &mapper.UnregisteredKindError{})
}

package driver_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/types"
)

// getNeo4jConnectionInfo returns connection info from environment or defaults.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD env vars to override.
func getNeo4jConnectionInfo() (uri, user, password string) {
	uri = os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user = os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password = os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}
	return
}

// skipIfNeo4jUnavailable skips the test if Neo4j is not available.
func skipIfNeo4jUnavailable(t *testing.T) *driver.Neo4jStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Neo4j integration test in short mode")
	}

	uri, user, password := getNeo4jConnectionInfo()
	store, err := driver.NewNeo4jStore(uri, user, password, "neo4j")
	if err != nil {
		t.Skipf("Neo4j not available at %s: %v", uri, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.VerifyConnectivity(ctx); err != nil {
		_ = store.Close(context.Background())
		t.Skipf("Neo4j connection failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestNeo4jStoreRoundTrip(t *testing.T) {
	store := skipIfNeo4jUnavailable(t)
	ctx := context.Background()
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.EnsureIndexes(ctx, []string{"Location"}))

	mill := types.NewNode("Location", "The Old Mill")
	mill.Properties.Set("name", "The Old Mill")
	mill.Properties.Set("tags", []any{"eerie", "wooden"})
	require.NoError(t, store.UpsertNode(ctx, mill))

	bank := types.NewNode("Location", "Riverbank")
	require.NoError(t, store.UpsertNode(ctx, bank))

	exit := &types.Edge{
		Label: "EXITS_TO", SourceLabel: "Location", SourceID: "The Old Mill",
		TargetLabel: "Location", TargetID: "Riverbank", Properties: types.NewProperties(),
	}
	exit.Properties.Set("direction", "north")
	require.NoError(t, store.UpsertEdge(ctx, exit))
	require.NoError(t, store.UpsertEdge(ctx, exit), "edge upsert is idempotent")

	got, err := store.GetNode(ctx, "Location", "The Old Mill")
	require.NoError(t, err)
	name, _ := got.Properties.Get("name")
	assert.Equal(t, "The Old Mill", name)

	exists, err := store.NodeExists(ctx, "Location", "Riverbank")
	require.NoError(t, err)
	assert.True(t, exists)

	records, err := store.Query(ctx, driver.QueryExits, map[string]any{"location_name": "The Old Mill"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "north", records[0].String("direction"))

	missing := *exit
	missing.TargetID = "Cellar"
	assert.ErrorIs(t, store.UpsertEdge(ctx, &missing), driver.ErrEndpointNotFound)

	deleted, err := store.DeleteEdge(ctx, exit.Key())
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteEdge(ctx, exit.Key())
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, store.Clear(ctx))
}

func TestNeo4jStoreUnreachable(t *testing.T) {
	store, err := driver.NewNeo4jStore("bolt://127.0.0.1:1", "neo4j", "password", "neo4j")
	require.NoError(t, err)
	defer store.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = store.VerifyConnectivity(ctx)
	require.Error(t, err)
	assert.True(t, driver.IsUnavailable(err))
}

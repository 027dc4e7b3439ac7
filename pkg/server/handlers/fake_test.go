package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeLore is a canned Loregraph for handler tests.
type fakeLore struct {
	result    *types.IngestResult
	ingestErr error
	lastText  string
	lastOpts  *loregraph.IngestOptions
	analyzed  bool
	cleared   bool
	clearErr  error
	degraded  bool

	locations map[string]*loregraph.Location
	exits     map[string][]loregraph.Exit
	items     map[string][]loregraph.Entity
	people    map[string][]loregraph.Entity
	inventory map[string][]loregraph.Entity
	whereIs   map[string]*loregraph.Location

	writeErr error
	seeded   bool
	world    *loregraph.World
	taken    []string
}

var _ loregraph.Loregraph = (*fakeLore)(nil)

func (f *fakeLore) Ingest(ctx context.Context, text string, opts *loregraph.IngestOptions) (*types.IngestResult, error) {
	f.lastText, f.lastOpts = text, opts
	return f.result, f.ingestErr
}

func (f *fakeLore) AnalyzeAndIngest(ctx context.Context, text string, opts *loregraph.IngestOptions) (*types.IngestResult, error) {
	f.analyzed = true
	return f.Ingest(ctx, text, opts)
}

func (f *fakeLore) LocationDetails(ctx context.Context, name string) (*loregraph.Location, error) {
	if loc, ok := f.locations[name]; ok {
		return loc, nil
	}
	return nil, loregraph.ErrLocationNotFound
}

func (f *fakeLore) Exits(ctx context.Context, name string) ([]loregraph.Exit, error) {
	return f.exits[name], nil
}

func (f *fakeLore) ItemsAt(ctx context.Context, id string) ([]loregraph.Entity, error) {
	return f.items[id], nil
}

func (f *fakeLore) CharactersAt(ctx context.Context, id string) ([]loregraph.Entity, error) {
	return f.people[id], nil
}

func (f *fakeLore) Inventory(ctx context.Context, id string) ([]loregraph.Entity, error) {
	return f.inventory[id], nil
}

func (f *fakeLore) CurrentLocation(ctx context.Context, id string) (*loregraph.Location, error) {
	if loc, ok := f.whereIs[id]; ok {
		return loc, nil
	}
	return nil, loregraph.ErrLocationNotFound
}

func (f *fakeLore) GetNode(ctx context.Context, label, id string) (*types.Node, error) {
	if label == "Item" && id == "lantern" {
		return types.NewNode("Item", "lantern"), nil
	}
	return nil, driver.ErrNodeNotFound
}

func (f *fakeLore) CreateItem(ctx context.Context, name, description, location string) (*types.Node, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	n := types.NewNode("Item", name)
	n.Properties.Set("description", description)
	return n, nil
}

func (f *fakeLore) CreateCharacter(ctx context.Context, id, name, description, location string) (*types.Node, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if id == "" {
		id = name
	}
	return types.NewNode("Character", id), nil
}

func (f *fakeLore) TakeItem(ctx context.Context, characterID, item, location string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.taken = append(f.taken, characterID+":"+item+"@"+location)
	if f.inventory == nil {
		f.inventory = map[string][]loregraph.Entity{}
	}
	f.inventory[characterID] = append(f.inventory[characterID], loregraph.Entity{Name: item})
	return nil
}

func (f *fakeLore) SeedWorld(ctx context.Context, world *loregraph.World) error {
	f.seeded, f.world = true, world
	return f.writeErr
}

func (f *fakeLore) Kinds() ([]string, []string) {
	return []string{"Location", "Item"}, []string{"EXITS_TO"}
}

func (f *fakeLore) ClearGraph(ctx context.Context) error {
	f.cleared = true
	return f.clearErr
}

func (f *fakeLore) Degraded() bool { return f.degraded }

func (f *fakeLore) Close(ctx context.Context) error { return nil }

// serve runs a single request through a router with one route registered.
func serve(method, route, target, body string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/driver"
	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/registry"
	"github.com/soundprediction/loregraph/pkg/types"
)

var extractPrompt = regexp.MustCompile(`Please extract (\S+) (objects|relationships)`)

// cannedCompleter answers extraction prompts by kind and returns an empty
// list for anything else.
type cannedCompleter map[string]string

func (c cannedCompleter) Complete(ctx context.Context, req nlp.CompletionRequest) (string, error) {
	if m := extractPrompt.FindStringSubmatch(req.Prompt); m != nil {
		if resp, ok := c[m[1]]; ok {
			return resp, nil
		}
	}
	return "[]", nil
}

func (c cannedCompleter) Stream(ctx context.Context, req nlp.CompletionRequest) (<-chan nlp.StreamChunk, error) {
	content, _ := c.Complete(ctx, req)
	ch := make(chan nlp.StreamChunk, 1)
	ch <- nlp.StreamChunk{Content: content}
	close(ch)
	return ch, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: gin.TestMode,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New()
	require.NoError(t, registry.RegisterDefaults(reg))

	completer := cannedCompleter{
		"Location": `[{"name":"The Old Mill","description":"A crumbling mill"},{"name":"Riverbank","description":"Muddy and quiet"}]`,
		"Item":     `[{"name":"Lantern","description":"Rusty"}]`,
		"EXITS_TO": `[{"source_id":"The Old Mill","target_id":"Riverbank","properties":{"direction":"North"}}]`,
		"CONTAINS": `[{"source_id":"The Old Mill","target_id":"Lantern"}]`,
	}
	client, err := loregraph.NewClient(driver.NewMemoryStore(), completer, reg, nil, nil)
	require.NoError(t, err)

	s := New(testConfig(), client, nil)
	s.Setup()
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestNew(t *testing.T) {
	cfg := testConfig()

	server := New(cfg, nil, nil)
	require.NotNil(t, server)
	assert.Equal(t, cfg, server.config)
	assert.NotNil(t, server.logger)
}

func TestSetup(t *testing.T) {
	server := New(testConfig(), nil, nil)
	server.Setup()

	if server.router == nil {
		t.Error("expected router to be initialized")
	}
	if server.server == nil {
		t.Fatal("expected http.Server to be initialized")
	}
	if server.server.Addr != "localhost:8080" {
		t.Errorf("expected addr localhost:8080, got %s", server.server.Addr)
	}
}

func TestHealthEndpointsWithoutClient(t *testing.T) {
	server := New(testConfig(), nil, nil)
	server.Setup()

	assert.Equal(t, http.StatusOK, do(server, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(server, http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(server, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(server, http.MethodGet, "/health/detailed", "").Code)
}

func TestRouteExists(t *testing.T) {
	server := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/ready"},
		{http.MethodGet, "/api/v1/kinds"},
		{http.MethodPost, "/api/v1/ingest"},
		{http.MethodPost, "/api/v1/ingest/analyze"},
		{http.MethodDelete, "/api/v1/graph"},
		{http.MethodGet, "/api/v1/locations/Nowhere"},
		{http.MethodGet, "/api/v1/locations/Nowhere/exits"},
		{http.MethodGet, "/api/v1/characters/nobody/inventory"},
		{http.MethodGet, "/api/v1/characters/nobody/location"},
		{http.MethodGet, "/api/v1/nodes/Item/nothing"},
		{http.MethodPost, "/api/v1/items"},
		{http.MethodPost, "/api/v1/characters"},
		{http.MethodPost, "/api/v1/characters/nobody/take"},
		{http.MethodPost, "/api/v1/world/seed"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := do(server, route.method, route.path, "")
			if w.Code == http.StatusNotFound && strings.Contains(w.Body.String(), "404 page not found") {
				t.Errorf("route %s %s not registered", route.method, route.path)
			}
		})
	}
}

func TestIngestThenExplore(t *testing.T) {
	server := newTestServer(t)

	w := do(server, http.MethodPost, "/api/v1/ingest", `{"text":"The Old Mill creaks beside the river. A lantern hangs inside. A path leads north."}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ingest struct {
		Success bool `json:"success"`
		Result  struct {
			Stats types.IngestStats `json:"stats"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingest))
	assert.True(t, ingest.Success)
	assert.Equal(t, 3, ingest.Result.Stats.NodesPersisted)
	assert.Equal(t, 2, ingest.Result.Stats.EdgesPersisted)

	w = do(server, http.MethodGet, "/api/v1/locations/The%20Old%20Mill/exits", "")
	require.Equal(t, http.StatusOK, w.Code)
	var exits []struct {
		Direction string `json:"direction"`
		Target    string `json:"target"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exits))
	require.Len(t, exits, 1)
	assert.Equal(t, "Riverbank", exits[0].Target)

	w = do(server, http.MethodDelete, "/api/v1/graph?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(server, http.MethodGet, "/api/v1/locations/The%20Old%20Mill/exits", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestIngestUnknownKind(t *testing.T) {
	server := newTestServer(t)

	w := do(server, http.MethodPost, "/api/v1/ingest", `{"text":"a dragon sleeps","entity_kinds":["Dragon"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_kind")
}

func TestCORSMiddleware(t *testing.T) {
	server := newTestServer(t)

	w := do(server, http.MethodOptions, "/api/v1/ingest", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestContextMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(contextMiddleware())

	var userID, source any
	r.GET("/ctx-check", func(c *gin.Context) {
		userID = c.Request.Context().Value(types.ContextKeyUserID)
		source = c.Request.Context().Value(types.ContextKeyRequestSource)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ctx-check", nil)
	req.Header.Set("X-User-ID", "player-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "player-1", userID)
	assert.Equal(t, "server", source)
}

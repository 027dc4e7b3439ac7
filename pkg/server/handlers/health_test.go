package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	handler := NewHealthHandler(nil)

	w := serve(http.MethodGet, "/health", "/health", "", handler.HealthCheck)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "loregraph", response["service"])
	assert.Contains(t, response, "timestamp")
	assert.Contains(t, response, "version")
}

func TestLivenessCheck(t *testing.T) {
	handler := NewHealthHandler(nil)

	w := serve(http.MethodGet, "/live", "/live", "", handler.LivenessCheck)
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		lore       *fakeLore
		nilClient  bool
		wantStatus int
		wantStore  string
	}{
		{name: "healthy", lore: &fakeLore{}, wantStatus: http.StatusOK, wantStore: "healthy"},
		{name: "degraded is still ready", lore: &fakeLore{degraded: true}, wantStatus: http.StatusOK, wantStore: "degraded"},
		{name: "no client", nilClient: true, wantStatus: http.StatusServiceUnavailable, wantStore: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.lore)
			if tt.nilClient {
				handler = NewHealthHandler(nil)
			}

			w := serve(http.MethodGet, "/ready", "/ready", "", handler.ReadinessCheck)
			require.Equal(t, tt.wantStatus, w.Code)

			var response struct {
				Status string                    `json:"status"`
				Checks map[string]map[string]any `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStore, response.Checks["store"]["status"])
		})
	}
}

func TestDetailedHealthCheck(t *testing.T) {
	handler := NewHealthHandler(&fakeLore{})

	w := serve(http.MethodGet, "/health/detailed", "/health/detailed", "", handler.DetailedHealthCheck)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.EqualValues(t, 2, response.Checks["registry"]["entity_kinds"])
	assert.EqualValues(t, 1, response.Checks["registry"]["relationship_kinds"])
	assert.Contains(t, response.Checks["system"], "goroutines")
}

func TestGetSystemMetrics(t *testing.T) {
	m := getSystemMetrics()
	if m.Goroutines <= 0 {
		t.Errorf("expected positive goroutine count, got %d", m.Goroutines)
	}
	if m.MemoryUsage == "" {
		t.Error("expected memory usage to be set")
	}
}

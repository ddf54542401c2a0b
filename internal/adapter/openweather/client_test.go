package openweather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"agent-orchestrator/internal/adapter/openweather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Berlin", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Berlin",
			"weather": [{"description": "light rain"}],
			"main": {"temp": 7.5, "humidity": 81},
			"wind": {"speed": 4.1}
		}`))
	}))
	defer server.Close()

	client := openweather.NewClient(server.URL, "test-key", server.Client(), 0)
	payload, err := client.Fetch(context.Background(), "Berlin")

	require.NoError(t, err)
	assert.Equal(t, "Berlin", payload.LocationName)
	assert.Equal(t, 7.5, payload.TemperatureC)
	assert.Equal(t, "light rain", payload.Condition)
	assert.Equal(t, 81, payload.Humidity)
	assert.Equal(t, 4.1, payload.WindSpeed)
}

func TestClient_Fetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := openweather.NewClient(server.URL, "test-key", server.Client(), 0)
	_, err := client.Fetch(context.Background(), "Nowhere")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_Fetch_MissingAPIKey(t *testing.T) {
	client := openweather.NewClient("http://unused", "", nil, 0)
	_, err := client.Fetch(context.Background(), "Berlin")
	assert.Error(t, err)
}

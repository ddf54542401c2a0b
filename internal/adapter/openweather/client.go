// Package openweather implements the weather capability against the
// OpenWeatherMap current-weather API.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"agent-orchestrator/internal/domain"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client fetches current weather conditions. Requests are rate limited to
// stay inside the provider's free-tier quota.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a weather client. baseURL may be empty to use the
// public API endpoint. requestsPerSecond <= 0 disables rate limiting.
func NewClient(baseURL, apiKey string, client *http.Client, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		limiter: limiter,
	}
}

var _ domain.WeatherClient = (*Client)(nil)

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Fetch returns the current weather for the location, in metric units.
func (c *Client) Fetch(ctx context.Context, location string) (*domain.WeatherPayload, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("weather api key is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather api returned status %d: %s", resp.StatusCode, string(msg))
	}

	var body weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	payload := &domain.WeatherPayload{
		LocationName: body.Name,
		TemperatureC: body.Main.Temp,
		Humidity:     body.Main.Humidity,
		WindSpeed:    body.Wind.Speed,
	}
	if len(body.Weather) > 0 {
		payload.Condition = body.Weather[0].Description
	}
	if payload.LocationName == "" {
		payload.LocationName = location
	}
	return payload, nil
}

package domain

import "context"

// WeatherPayload is the normalized result of a live weather lookup.
type WeatherPayload struct {
	LocationName string
	TemperatureC float64
	Condition    string
	Humidity     int
	WindSpeed    float64
}

// WeatherClient defines the capability to fetch current weather for a
// location.
type WeatherClient interface {
	Fetch(ctx context.Context, location string) (*WeatherPayload, error)
}

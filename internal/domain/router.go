package domain

import "strings"

// Route identifies the fulfillment path selected for a query.
type Route string

const (
	RouteWeather     Route = "weather"
	RouteRAG         Route = "rag"
	RouteUnsupported Route = "unsupported"
)

// RouteDecision carries the selected route together with the signals that
// produced it, so callers can surface why a query went where it did.
type RouteDecision struct {
	Route          Route
	MatchedSignals []string
	IndexAvailable bool
}

// DefaultWeatherSignals are the lexical cues that mark a query as a weather
// question. The list is configuration, not policy: deployments can extend it
// via ROUTER_WEATHER_SIGNALS without touching the state machine.
var DefaultWeatherSignals = []string{
	"weather",
	"temperature",
	"forecast",
	"humidity",
	"rain",
	"snow",
}

// Router classifies incoming queries by lexical signals and index state.
// It holds no mutable state; Classify is a pure function of its inputs.
type Router struct {
	weatherSignals []string
}

// NewRouter creates a router with the given weather signal list. An empty
// list falls back to DefaultWeatherSignals.
func NewRouter(weatherSignals []string) *Router {
	if len(weatherSignals) == 0 {
		weatherSignals = DefaultWeatherSignals
	}
	lowered := make([]string, len(weatherSignals))
	for i, s := range weatherSignals {
		lowered[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return &Router{weatherSignals: lowered}
}

// Classify selects a fulfillment path for the query.
//
// Weather signals take precedence over RAG eligibility: an ambiguous query
// mentioning both weather terms and document content goes to the weather
// path. Without a weather signal the query goes to RAG iff an index exists
// for the session, otherwise it is unsupported.
func (r *Router) Classify(query string, indexAvailable bool) RouteDecision {
	lowered := strings.ToLower(query)

	var matched []string
	for _, signal := range r.weatherSignals {
		if strings.Contains(lowered, signal) {
			matched = append(matched, signal)
		}
	}

	decision := RouteDecision{
		MatchedSignals: matched,
		IndexAvailable: indexAvailable,
	}

	switch {
	case len(matched) > 0:
		decision.Route = RouteWeather
	case indexAvailable:
		decision.Route = RouteRAG
	default:
		decision.Route = RouteUnsupported
	}
	return decision
}

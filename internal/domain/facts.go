package domain

import "encoding/json"

// ForecastDay is one entry of the fixed 3-day weather horizon.
type ForecastDay struct {
	Date      string  `json:"date"`
	MinC      float64 `json:"minC"`
	MaxC      float64 `json:"maxC"`
	Condition string  `json:"condition"`
}

// WeatherSnapshot is the weather provider's answer for one coordinate.
type WeatherSnapshot struct {
	TemperatureC float64       `json:"temperatureC"`
	Condition    string        `json:"condition"`
	Humidity     int           `json:"humidity"`
	WindKph      float64       `json:"windKph"`
	Forecast     []ForecastDay `json:"forecast"`
}

// Restaurant is the typed shape of the dining agent's contribution.
type Restaurant struct {
	Name     string   `json:"name"`
	Position GeoPoint `json:"position"`
	Rating   float64  `json:"rating"`
	Cuisine  string   `json:"cuisine"`
	Address  string   `json:"address"`
}

// RouteAnalysis is the typed shape of the route agent's contribution.
type RouteAnalysis struct {
	OriginRisk      string `json:"originRisk"`
	DestinationRisk string `json:"destinationRisk"`
}

// AggregatedFacts is the merged result of all upstream calls made for
// one user turn. Known agent contributions are lifted into typed fields;
// everything else stays opaque under its agent key.
type AggregatedFacts struct {
	Intent          IntentKind
	Confidence      float64
	Primary         string
	Recommendations []string
	Warnings        []string
	Weather         *WeatherSnapshot
	Route           *RouteAnalysis
	Restaurants     []Restaurant
	Opaque          map[string]json.RawMessage
}

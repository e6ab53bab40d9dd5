package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
)

func fullFacts() *domain.AggregatedFacts {
	return &domain.AggregatedFacts{
		Intent:          domain.IntentTravel,
		Confidence:      0.874,
		Primary:         "Area is generally safe",
		Recommendations: []string{"leave early", "carry water"},
		Warnings:        []string{"heavy rain expected", "road work on NH48"},
		Weather: &domain.WeatherSnapshot{
			TemperatureC: 28,
			Condition:    "Partly Cloudy",
			Humidity:     65,
			WindKph:      12,
			Forecast: []domain.ForecastDay{
				{Date: "2026-08-28", MinC: 24, MaxC: 31, Condition: "Partly Cloudy"},
				{Date: "2026-08-29", MinC: 23, MaxC: 30, Condition: "Sunny"},
			},
		},
		Route: &domain.RouteAnalysis{OriginRisk: "low", DestinationRisk: "toll zone"},
	}
}

func TestSynthesize_Travel(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentTravel, Destination: "Pune"}, fullFacts())

	require.Contains(t, got, "DESTINATION: Pune")
	require.Contains(t, got, "WEATHER: 28°C, Partly Cloudy")
	require.Contains(t, got, "FORECAST: 2026-08-28: 24-31°C | 2026-08-29: 23-30°C")
	require.Contains(t, got, "RESPONSE FORMAT (Maximum 10 bullet points):")
	require.Contains(t, got, "Keep each bullet point under 15 words.")
	require.Contains(t, got, "WARNINGS: heavy rain expected; road work on NH48")
	require.Contains(t, got, "CONFIDENCE: 87%")
}

func TestSynthesize_Travel_MissingEverything(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentTravel}, nil)

	require.Contains(t, got, "DESTINATION: Current Location")
	require.Contains(t, got, "WEATHER: not available")
	require.Contains(t, got, "FORECAST: not available")
	require.Contains(t, got, "WARNINGS: None")
	require.Contains(t, got, "CONFIDENCE: 0%")
}

func TestSynthesize_Food(t *testing.T) {
	facts := fullFacts()
	facts.Restaurants = []domain.Restaurant{{Name: "Cafe Leela"}}
	in := domain.Intent{
		Kind: domain.IntentFood,
		Preferences: domain.IntentPreferences{
			Budget:   domain.BudgetLow,
			Cuisines: []string{"indian", "chinese"},
		},
	}
	got := Synthesize(in, facts)

	require.Contains(t, got, "RESPONSE FORMAT (Maximum 8 bullet points):")
	require.Contains(t, got, "Keep each bullet point under 12 words.")
	require.Contains(t, got, "USER PREFERENCES: indian, chinese cuisine, low budget")
	require.Contains(t, got, "RESTAURANT DATA: Available")
}

func TestSynthesize_Food_NoPreferencesNoData(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentFood}, &domain.AggregatedFacts{})
	require.Contains(t, got, "USER PREFERENCES: Any cuisine, Any budget")
	require.Contains(t, got, "RESTAURANT DATA: not available")
}

func TestSynthesize_Route(t *testing.T) {
	in := domain.Intent{Kind: domain.IntentRoute, Destination: "Lonavala", Vehicle: domain.VehicleBike}
	got := Synthesize(in, fullFacts())

	require.Contains(t, got, "- Origin Risk: low")
	require.Contains(t, got, "- Destination Risk: toll zone")
	require.Contains(t, got, "- Warnings: heavy rain expected; road work on NH48")
	require.Contains(t, got, "- Current: Partly Cloudy, 28°C")
	require.Contains(t, got, "- Wind: 12 km/h")
	require.Contains(t, got, "- Forecast: Partly Cloudy")
	require.Contains(t, got, "VEHICLE: bike")
	require.Contains(t, got, "DESTINATION: Lonavala")
}

func TestSynthesize_Route_Defaults(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentRoute}, nil)
	require.Contains(t, got, "- Origin Risk: Not analyzed")
	require.Contains(t, got, "- Destination Risk: Not analyzed")
	require.Contains(t, got, "VEHICLE: Car")
	require.Contains(t, got, "DESTINATION: Not specified")
}

func TestSynthesize_General(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentGeneral}, fullFacts())

	require.Contains(t, got, "- Location Assessment: Area is generally safe")
	require.Contains(t, got, "- Confidence: 87%")
	require.Contains(t, got, "- Key Recommendations: leave early; carry water")
	require.Contains(t, got, "- Weather: Partly Cloudy, 28°C")
}

func TestSynthesize_General_Empty(t *testing.T) {
	got := Synthesize(domain.Intent{Kind: domain.IntentGeneral}, nil)
	require.Contains(t, got, "- Location Assessment: Not available")
	require.Contains(t, got, "- Key Recommendations: Not available")
	require.Contains(t, got, "- Warnings: None")
	require.Contains(t, got, "- Weather: Not available")
}

func TestSynthesize_NeverEmpty(t *testing.T) {
	for _, kind := range []domain.IntentKind{
		domain.IntentTravel, domain.IntentFood, domain.IntentRoute, domain.IntentGeneral,
	} {
		got := Synthesize(domain.Intent{Kind: kind}, nil)
		require.NotEmpty(t, got, "kind=%s", kind)
		require.False(t, strings.HasSuffix(got, "\n"), "no trailing newline for kind=%s", kind)
	}
}

// Package prompt renders the per-intent instruction templates sent to the
// generator. Section labels, bullet ceilings and word ceilings are a
// contract with the downstream model, not decoration: the generator is
// told to honor them, the synthesizer never fails and never enforces them
// on the output.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"travel-assistant/internal/domain"
)

const notAvailable = "not available"

// Synthesize builds the instruction prompt for one intent from the
// aggregated facts. Pure; missing data renders as placeholders. A nil
// facts value still yields a usable degraded template.
func Synthesize(intent domain.Intent, facts *domain.AggregatedFacts) string {
	switch intent.Kind {
	case domain.IntentTravel:
		return travelPrompt(intent, facts)
	case domain.IntentFood:
		return foodPrompt(intent, facts)
	case domain.IntentRoute:
		return routePrompt(intent, facts)
	default:
		return generalPrompt(facts)
	}
}

func travelPrompt(intent domain.Intent, facts *domain.AggregatedFacts) string {
	destination := intent.Destination
	if destination == "" {
		destination = "Current Location"
	}
	return strings.Join([]string{
		"You are a concise travel assistant. Provide ONLY bullet points with essential information.",
		"",
		"DESTINATION: " + destination,
		"WEATHER: " + weatherSummary(weatherOf(facts)),
		"FORECAST: " + forecastSummary(weatherOf(facts)),
		"",
		"RESPONSE FORMAT (Maximum 10 bullet points):",
		"• **Route**: Best path with timing",
		"• **Weather Prep**: What to pack/wear",
		"• **Key Stops**: 2-3 must-visit places",
		"• **Food**: Top restaurant recommendation",
		"• **Safety**: Important warnings only",
		"• **Transport**: Best travel mode",
		"• **Timing**: Optimal departure/arrival",
		"• **Cost**: Estimated budget range",
		"• **Duration**: Total travel time",
		"• **Navigation**: Include this at the end: [START NAVIGATION - Click to open directions]",
		"",
		"Keep each bullet point under 15 words. No lengthy explanations.",
		"",
		"WARNINGS: " + warningsSummary(facts),
		"CONFIDENCE: " + confidenceSummary(facts),
	}, "\n")
}

func foodPrompt(intent domain.Intent, facts *domain.AggregatedFacts) string {
	cuisines := "Any"
	if len(intent.Preferences.Cuisines) > 0 {
		cuisines = strings.Join(intent.Preferences.Cuisines, ", ")
	}
	budget := "Any"
	if intent.Preferences.Budget != "" {
		budget = string(intent.Preferences.Budget)
	}
	restaurantData := notAvailable
	if facts != nil && len(facts.Restaurants) > 0 {
		restaurantData = "Available"
	}
	return strings.Join([]string{
		"You are a local food expert. Provide ONLY bullet points for restaurant recommendations.",
		"",
		"RESPONSE FORMAT (Maximum 8 bullet points):",
		"• **Top Pick**: Highest rated restaurant with cuisine type",
		"• **Budget**: Best affordable option",
		"• **Specialty**: Unique local cuisine recommendation",
		"• **Location**: Walking distance/transport info",
		"• **Timing**: Operating hours or best visit time",
		"• **Price Range**: Average cost per person",
		"• **Safety**: Any food safety notes",
		"• **Navigation**: [VIEW ON MAP - Restaurants marked on map, click to navigate]",
		"",
		"Keep each bullet point under 12 words. No lengthy descriptions.",
		"",
		fmt.Sprintf("USER PREFERENCES: %s cuisine, %s budget", cuisines, budget),
		"RESTAURANT DATA: " + restaurantData,
	}, "\n")
}

func routePrompt(intent domain.Intent, facts *domain.AggregatedFacts) string {
	originRisk, destRisk := "Not analyzed", "Not analyzed"
	if facts != nil && facts.Route != nil {
		if facts.Route.OriginRisk != "" {
			originRisk = facts.Route.OriginRisk
		}
		if facts.Route.DestinationRisk != "" {
			destRisk = facts.Route.DestinationRisk
		}
	}
	vehicle := "Car"
	if intent.Vehicle != "" {
		vehicle = string(intent.Vehicle)
	}
	destination := "Not specified"
	if intent.Destination != "" {
		destination = intent.Destination
	}

	w := weatherOf(facts)
	current, wind, outlook := notAvailable, notAvailable, notAvailable
	if w != nil {
		current = fmt.Sprintf("%s, %s°C", w.Condition, formatTemp(w.TemperatureC))
		wind = formatTemp(w.WindKph) + " km/h"
		if len(w.Forecast) > 0 {
			outlook = w.Forecast[0].Condition
		}
	}

	return strings.Join([]string{
		"You are a route planning expert with access to traffic, safety, and weather data.",
		"",
		"ROUTE ANALYSIS:",
		"- Origin Risk: " + originRisk,
		"- Destination Risk: " + destRisk,
		"- Warnings: " + warningsSummary(facts),
		"",
		"WEATHER CONDITIONS:",
		"- Current: " + current,
		"- Wind: " + wind,
		"- Forecast: " + outlook,
		"",
		"VEHICLE: " + vehicle,
		"DESTINATION: " + destination,
		"",
		"Provide:",
		"1. Best route options with timing",
		"2. Traffic and safety warnings",
		"3. Weather-appropriate travel advice",
		"4. Vehicle-specific recommendations",
		"5. Alternative routes if needed",
		"6. Estimated travel time and costs",
		"7. Parking and stopping suggestions",
		"",
		"Be specific about road conditions, enforcement zones, and optimal departure times.",
	}, "\n")
}

func generalPrompt(facts *domain.AggregatedFacts) string {
	assessment := "Not available"
	recommendations := "Not available"
	if facts != nil {
		if facts.Primary != "" {
			assessment = facts.Primary
		}
		if len(facts.Recommendations) > 0 {
			recommendations = strings.Join(facts.Recommendations, "; ")
		}
	}

	conditions := "- Weather: Not available"
	if w := weatherOf(facts); w != nil {
		conditions = fmt.Sprintf("- Weather: %s, %s°C", w.Condition, formatTemp(w.TemperatureC))
	}

	return strings.Join([]string{
		"You are a comprehensive city guide with real-time data access.",
		"",
		"AREA ANALYSIS:",
		"- Location Assessment: " + assessment,
		"- Confidence: " + confidenceSummary(facts),
		"- Key Recommendations: " + recommendations,
		"- Warnings: " + warningsSummary(facts),
		"",
		"CURRENT CONDITIONS:",
		conditions,
		"",
		"Provide helpful, contextual information based on the user's query. Include:",
		"1. Relevant local insights",
		"2. Safety considerations",
		"3. Best times to visit/travel",
		"4. Practical tips and recommendations",
		"5. Specific locations and details",
		"",
		"Be conversational, informative, and actionable in your response.",
	}, "\n")
}

func weatherOf(facts *domain.AggregatedFacts) *domain.WeatherSnapshot {
	if facts == nil {
		return nil
	}
	return facts.Weather
}

func weatherSummary(w *domain.WeatherSnapshot) string {
	if w == nil {
		return notAvailable
	}
	return fmt.Sprintf("%s°C, %s", formatTemp(w.TemperatureC), w.Condition)
}

func forecastSummary(w *domain.WeatherSnapshot) string {
	if w == nil || len(w.Forecast) == 0 {
		return notAvailable
	}
	parts := make([]string, 0, len(w.Forecast))
	for _, f := range w.Forecast {
		parts = append(parts, fmt.Sprintf("%s: %s-%s°C", f.Date, formatTemp(f.MinC), formatTemp(f.MaxC)))
	}
	return strings.Join(parts, " | ")
}

func warningsSummary(facts *domain.AggregatedFacts) string {
	if facts == nil || len(facts.Warnings) == 0 {
		return "None"
	}
	return strings.Join(facts.Warnings, "; ")
}

func confidenceSummary(facts *domain.AggregatedFacts) string {
	if facts == nil {
		return "0%"
	}
	return fmt.Sprintf("%d%%", int(math.Round(facts.Confidence*100)))
}

func formatTemp(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}

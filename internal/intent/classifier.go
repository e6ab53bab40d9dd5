package intent

import (
	"regexp"
	"strings"

	"travel-assistant/internal/domain"
)

// Keyword tables checked in fixed priority order: travel wins over food,
// food wins over route, anything else is general.
var (
	travelKeywords = []string{"travel", "go to", "visit", "trip", "journey", "destination"}
	foodKeywords   = []string{"food", "restaurant", "eat", "dining", "hungry", "meal"}
	routeKeywords  = []string{"route", "path", "directions", "way to", "how to reach"}

	cuisineKeywords = []string{
		"indian", "chinese", "italian", "mexican", "thai",
		"japanese", "continental", "local", "vegetarian", "vegan",
	}
)

var destinationLead = regexp.MustCompile(`(?i)\b(?:go to|visit|to)\s+`)

// destinationStops end the destination phrase: everything after the
// place name ("to Pune by bike") belongs to other slots.
var destinationStops = map[string]bool{
	"by": true, "on": true, "for": true, "with": true, "in": true,
	"at": true, "via": true, "from": true, "using": true, "and": true,
	"or": true, "this": true, "next": true, "tomorrow": true, "today": true,
}

// leadVerbs disqualify a candidate phrase that starts with another verb,
// as in "want to travel to Pune" where the first "to" captures "travel".
var leadVerbs = map[string]bool{
	"travel": true, "go": true, "visit": true, "reach": true,
	"eat": true, "find": true, "get": true, "see": true, "take": true,
}

// Classify maps raw user text to a best-effort intent. It never fails:
// unrecognized input yields kind=general with empty slots.
func Classify(text string) domain.Intent {
	lower := strings.ToLower(text)

	kind := domain.IntentGeneral
	switch {
	case containsAny(lower, travelKeywords):
		kind = domain.IntentTravel
	case containsAny(lower, foodKeywords):
		kind = domain.IntentFood
	case containsAny(lower, routeKeywords):
		kind = domain.IntentRoute
	}

	return domain.Intent{
		Kind:        kind,
		Destination: extractDestination(text),
		Vehicle:     extractVehicle(lower),
		Preferences: domain.IntentPreferences{
			Budget:        extractBudget(lower),
			Accommodation: extractAccommodation(lower),
			Cuisines:      extractCuisines(lower),
			TimeOfDay:     extractTimeOfDay(lower),
		},
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractDestination(text string) string {
	for _, loc := range destinationLead.FindAllStringIndex(text, -1) {
		words := strings.Fields(letterPrefix(text[loc[1]:]))
		if len(words) == 0 || leadVerbs[strings.ToLower(words[0])] {
			continue
		}
		var kept []string
		for _, w := range words {
			if destinationStops[strings.ToLower(w)] {
				break
			}
			kept = append(kept, w)
		}
		if len(kept) > 0 {
			return strings.Join(kept, " ")
		}
	}
	return ""
}

// letterPrefix returns the leading run of letters and spaces, mirroring
// the [a-zA-Z\s]+ capture the phrase grammar allows.
func letterPrefix(s string) string {
	for i, r := range s {
		if !(r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return s[:i]
		}
	}
	return s
}

func extractVehicle(lower string) domain.Vehicle {
	switch {
	case strings.Contains(lower, "bike") || strings.Contains(lower, "motorcycle"):
		return domain.VehicleBike
	case strings.Contains(lower, "car") || strings.Contains(lower, "drive"):
		return domain.VehicleCar
	case strings.Contains(lower, "auto") || strings.Contains(lower, "rickshaw"):
		return domain.VehicleAuto
	}
	return ""
}

func extractBudget(lower string) domain.Budget {
	switch {
	case strings.Contains(lower, "budget") || strings.Contains(lower, "cheap"):
		return domain.BudgetLow
	case strings.Contains(lower, "luxury") || strings.Contains(lower, "expensive"):
		return domain.BudgetHigh
	case strings.Contains(lower, "mid-range") || strings.Contains(lower, "moderate"):
		return domain.BudgetMedium
	}
	return ""
}

func extractAccommodation(lower string) domain.Accommodation {
	switch {
	case strings.Contains(lower, "budget hotel") || strings.Contains(lower, "hostel"):
		return domain.AccommodationBudget
	case strings.Contains(lower, "luxury") || strings.Contains(lower, "5 star"):
		return domain.AccommodationLuxury
	case strings.Contains(lower, "business hotel"):
		return domain.AccommodationBusiness
	}
	return ""
}

func extractCuisines(lower string) []string {
	var cuisines []string
	for _, c := range cuisineKeywords {
		if strings.Contains(lower, c) {
			cuisines = append(cuisines, c)
		}
	}
	return cuisines
}

func extractTimeOfDay(lower string) domain.TimeOfDay {
	switch {
	case strings.Contains(lower, "morning") || strings.Contains(lower, "breakfast"):
		return domain.TimeMorning
	case strings.Contains(lower, "afternoon") || strings.Contains(lower, "lunch"):
		return domain.TimeAfternoon
	case strings.Contains(lower, "evening") || strings.Contains(lower, "dinner"):
		return domain.TimeEvening
	case strings.Contains(lower, "night") || strings.Contains(lower, "late"):
		return domain.TimeNight
	}
	return ""
}

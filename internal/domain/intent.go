package domain

// IntentKind is the classified purpose of a user utterance.
type IntentKind string

const (
	IntentTravel  IntentKind = "travel"
	IntentFood    IntentKind = "food"
	IntentRoute   IntentKind = "route"
	IntentGeneral IntentKind = "general"
)

// Vehicle is the travel mode extracted from the utterance or kept as a
// stored preference.
type Vehicle string

const (
	VehicleBike Vehicle = "bike"
	VehicleCar  Vehicle = "car"
	VehicleAuto Vehicle = "auto"
)

// Budget buckets a price preference.
type Budget string

const (
	BudgetLow    Budget = "low"
	BudgetMedium Budget = "medium"
	BudgetHigh   Budget = "high"
)

// Accommodation buckets a lodging preference.
type Accommodation string

const (
	AccommodationBudget   Accommodation = "budget"
	AccommodationLuxury   Accommodation = "luxury"
	AccommodationBusiness Accommodation = "business"
)

// TimeOfDay is the time slot an utterance refers to.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// IntentPreferences are the slot values extracted alongside the intent
// kind. Zero values mean the slot was absent from the utterance.
type IntentPreferences struct {
	Budget        Budget
	Accommodation Accommodation
	Cuisines      []string
	TimeOfDay     TimeOfDay
}

// Intent is a parsed user utterance: a kind plus extracted slots. It is
// derived, stateless and discarded after the cycle that produced it.
type Intent struct {
	Kind        IntentKind
	Destination string
	Vehicle     Vehicle
	Preferences IntentPreferences
}

// Preferences is the persistent per-conversation preference state.
type Preferences struct {
	Vehicle      Vehicle `json:"vehicleType"`
	Budget       Budget  `json:"budget"`
	RadiusMeters int     `json:"radius"`
}

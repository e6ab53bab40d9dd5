package domain

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Destination is a resolved geocoding result with its display name.
type Destination struct {
	GeoPoint
	Name string `json:"name"`
}

// MarkerKind categorizes a map annotation.
type MarkerKind string

const (
	MarkerFood       MarkerKind = "food"
	MarkerHotel      MarkerKind = "hotel"
	MarkerAttraction MarkerKind = "attraction"
	MarkerWarning    MarkerKind = "warning"
	MarkerRoute      MarkerKind = "route"
)

// MapMarker is a point annotation produced by one aggregation cycle.
// The marker set is always replaced wholesale, never merged.
type MapMarker struct {
	ID          string     `json:"id"`
	Kind        MarkerKind `json:"kind"`
	Position    GeoPoint   `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

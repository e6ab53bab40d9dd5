package decisionagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/upstream"
)

// Response is the decision agent's answer shape, shared by all three
// endpoints. Agent contributions stay opaque here; typed views are
// exposed through DiningData and RouteData.
type Response struct {
	DecisionID              string                     `json:"decision_id"`
	PrimaryRecommendation   string                     `json:"primary_recommendation"`
	ConfidenceScore         float64                    `json:"confidence_score"`
	AgentContributions      map[string]json.RawMessage `json:"agent_contributions"`
	CombinedRecommendations []string                   `json:"combined_recommendations"`
	Warnings                []string                   `json:"warnings"`
	AdditionalInfo          map[string]json.RawMessage `json:"additional_info"`
	Location                struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// diningContribution is the known shape under agent_contributions["food"].
type diningContribution struct {
	Data struct {
		Restaurants []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Rating    float64 `json:"rating"`
			Cuisine   string  `json:"cuisine"`
			Address   string  `json:"address"`
		} `json:"restaurants"`
	} `json:"data"`
}

// DiningData decodes the dining agent's contribution. The second return
// is false when the contribution is absent or does not match the known
// shape; callers then treat it as opaque.
func (r *Response) DiningData() ([]domain.Restaurant, bool) {
	raw, ok := r.AgentContributions["food"]
	if !ok {
		return nil, false
	}
	var c diningContribution
	if err := json.Unmarshal(raw, &c); err != nil || len(c.Data.Restaurants) == 0 {
		return nil, false
	}
	out := make([]domain.Restaurant, 0, len(c.Data.Restaurants))
	for _, e := range c.Data.Restaurants {
		out = append(out, domain.Restaurant{
			Name:     e.Name,
			Position: domain.GeoPoint{Lat: e.Latitude, Lng: e.Longitude},
			Rating:   e.Rating,
			Cuisine:  e.Cuisine,
			Address:  e.Address,
		})
	}
	return out, true
}

// RouteData decodes the regulatory-risk contributions of a route-safety
// response.
func (r *Response) RouteData() (domain.RouteAnalysis, bool) {
	origin, okOrigin := stringContribution(r.AgentContributions, "origin_regulatory")
	dest, okDest := stringContribution(r.AgentContributions, "destination_regulatory")
	if !okOrigin && !okDest {
		return domain.RouteAnalysis{}, false
	}
	return domain.RouteAnalysis{OriginRisk: origin, DestinationRisk: dest}, true
}

// OpaqueContributions returns every contribution that has no typed view.
func (r *Response) OpaqueContributions() map[string]json.RawMessage {
	known := map[string]bool{"food": true, "origin_regulatory": true, "destination_regulatory": true}
	var out map[string]json.RawMessage
	for k, v := range r.AgentContributions {
		if known[k] {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = v
	}
	return out
}

func stringContribution(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Client talks to the decision-agent service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a decision-agent client. The default base URL is the
// agent's local deployment.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "http://localhost:8004",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuickAnalysis runs an area analysis at the given coordinate.
func (c *Client) QuickAnalysis(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, analysisType string) (*Response, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lng))
	q.Set("vehicle_type", vehicleParam(vehicle))
	q.Set("analysis_type", analysisType)
	return c.call(ctx, http.MethodPost, "/quick-analysis", q)
}

// RouteSafety analyzes the route between two coordinates.
func (c *Client) RouteSafety(ctx context.Context, origin, dest domain.GeoPoint, vehicle domain.Vehicle) (*Response, error) {
	q := url.Values{}
	q.Set("origin_lat", formatCoord(origin.Lat))
	q.Set("origin_lng", formatCoord(origin.Lng))
	q.Set("dest_lat", formatCoord(dest.Lat))
	q.Set("dest_lng", formatCoord(dest.Lng))
	q.Set("vehicle_type", vehicleParam(vehicle))
	return c.call(ctx, http.MethodGet, "/route-safety", q)
}

// DiningRecommendation asks for ranked restaurants around a coordinate.
func (c *Client) DiningRecommendation(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, radiusMeters int) (*Response, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lng))
	q.Set("vehicle_type", vehicleParam(vehicle))
	q.Set("radius", strconv.Itoa(radiusMeters))
	return c.call(ctx, http.MethodGet, "/dining-recommendation", q)
}

func (c *Client) call(ctx context.Context, method, path string, q url.Values) (*Response, error) {
	if c.baseURL == "" {
		return nil, errors.New("decisionagent: base URL must not be empty")
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("decisionagent: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("decisionagent: request failed: %w", err)
	}

	var payload Response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decisionagent: decode response: %w", err)
	}
	return &payload, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// vehicleParam falls back to car, the wire default when no vehicle
// preference is known.
func vehicleParam(v domain.Vehicle) string {
	if v == "" {
		return string(domain.VehicleCar)
	}
	return string(v)
}

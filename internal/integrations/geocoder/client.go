package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/upstream"
)

// geocodeResponse is the minimal response shape of the Google Geocoding API.
type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API key.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client resolves free-text addresses to coordinates.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
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

// NewClient creates a geocoding client. The Maps API key is fetched from
// SSM on the first Geocode call and cached for the process lifetime.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("geocoder: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("geocoder: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://maps.googleapis.com/maps/api",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchKey(ctx, c.getter, c.paramPrefix+"/maps-api-key")
	})
	return c.apiKey, c.keyErr
}

// Geocode resolves an address to its first result's location. A lookup
// with no results returns ok=false and no error: absence of a match is a
// degradation, not a failure.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeoPoint, bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.GeoPoint{}, false, errors.New("geocoder: address must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.GeoPoint{}, false, err
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", apiKey)
	endpoint := c.baseURL + "/geocode/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GeoPoint{}, false, fmt.Errorf("geocoder: create request: %w", err)
	}

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return domain.GeoPoint{}, false, fmt.Errorf("geocoder: request failed: %w", err)
	}

	var payload geocodeResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.GeoPoint{}, false, fmt.Errorf("geocoder: decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return domain.GeoPoint{}, false, nil
	}
	loc := payload.Results[0].Geometry.Location
	return domain.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

func fetchKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("geocoder: fetch key from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("geocoder: unmarshal paramstore key value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("geocoder: API key is empty")
	}
	return tp.Token, nil
}

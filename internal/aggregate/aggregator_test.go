package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/decisionagent"
)

var (
	mumbai = domain.GeoPoint{Lat: 19.0760, Lng: 72.8777}
	pune   = domain.GeoPoint{Lat: 18.5204, Lng: 73.8567}
)

type geocoderMock struct {
	geocode func(ctx context.Context, address string) (domain.GeoPoint, bool, error)
}

func (m *geocoderMock) Geocode(ctx context.Context, address string) (domain.GeoPoint, bool, error) {
	return m.geocode(ctx, address)
}

type agentMock struct {
	quickAnalysis func(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, analysisType string) (*decisionagent.Response, error)
	routeSafety   func(ctx context.Context, origin, dest domain.GeoPoint, vehicle domain.Vehicle) (*decisionagent.Response, error)
	dining        func(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, radiusMeters int) (*decisionagent.Response, error)
}

func (m *agentMock) QuickAnalysis(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, analysisType string) (*decisionagent.Response, error) {
	return m.quickAnalysis(ctx, loc, vehicle, analysisType)
}

func (m *agentMock) RouteSafety(ctx context.Context, origin, dest domain.GeoPoint, vehicle domain.Vehicle) (*decisionagent.Response, error) {
	return m.routeSafety(ctx, origin, dest, vehicle)
}

func (m *agentMock) DiningRecommendation(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, radiusMeters int) (*decisionagent.Response, error) {
	return m.dining(ctx, loc, vehicle, radiusMeters)
}

type weatherMock struct {
	current func(ctx context.Context, loc domain.GeoPoint) (domain.WeatherSnapshot, error)
}

func (m *weatherMock) Current(ctx context.Context, loc domain.GeoPoint) (domain.WeatherSnapshot, error) {
	return m.current(ctx, loc)
}

func punyGeocoder(t *testing.T) *geocoderMock {
	t.Helper()
	return &geocoderMock{geocode: func(_ context.Context, address string) (domain.GeoPoint, bool, error) {
		require.Equal(t, "Pune", address)
		return pune, true, nil
	}}
}

func sunnyWeather() *weatherMock {
	return &weatherMock{current: func(_ context.Context, _ domain.GeoPoint) (domain.WeatherSnapshot, error) {
		return domain.WeatherSnapshot{TemperatureC: 28, Condition: "Partly Cloudy"}, nil
	}}
}

func brokenWeather() *weatherMock {
	return &weatherMock{current: func(_ context.Context, _ domain.GeoPoint) (domain.WeatherSnapshot, error) {
		return domain.WeatherSnapshot{}, errors.New("weather down")
	}}
}

func routeResponse() *decisionagent.Response {
	return &decisionagent.Response{
		PrimaryRecommendation:   "Route is generally safe",
		ConfidenceScore:         0.82,
		CombinedRecommendations: []string{"leave before noon"},
		Warnings:                []string{"toll booth congestion"},
		AgentContributions: map[string]json.RawMessage{
			"origin_regulatory":      json.RawMessage(`"low"`),
			"destination_regulatory": json.RawMessage(`"medium"`),
			"traffic":                json.RawMessage(`{"level":"moderate"}`),
		},
	}
}

func diningResponse(count int) *decisionagent.Response {
	restaurants := make([]string, 0, count)
	for i := 0; i < count; i++ {
		restaurants = append(restaurants, fmt.Sprintf(
			`{"name":"Place %d","latitude":%d.5,"longitude":72.9,"rating":4.2,"cuisine":"indian","address":"Lane %d"}`,
			i, 18+i%2, i))
	}
	contribution := fmt.Sprintf(`{"data":{"restaurants":[%s]}}`, joinComma(restaurants))
	return &decisionagent.Response{
		PrimaryRecommendation: "Good dining options nearby",
		ConfidenceScore:       0.7,
		AgentContributions: map[string]json.RawMessage{
			"food": json.RawMessage(contribution),
		},
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func newTestAggregator(t *testing.T, g Geocoder, a DecisionAgent, w WeatherProvider) *Aggregator {
	t.Helper()
	agg, err := New(g, a, w)
	require.NoError(t, err)
	seq := 0
	agg.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return agg
}

func travelInput() Input {
	return Input{
		Intent:      domain.Intent{Kind: domain.IntentTravel, Destination: "Pune", Vehicle: domain.VehicleBike},
		Location:    mumbai,
		Preferences: domain.Preferences{Vehicle: domain.VehicleCar, Budget: domain.BudgetMedium, RadiusMeters: 2000},
	}
}

func TestNew_NilDependencies(t *testing.T) {
	g := &geocoderMock{}
	a := &agentMock{}
	w := &weatherMock{}

	_, err := New(nil, a, w)
	require.Error(t, err)
	_, err = New(g, nil, w)
	require.Error(t, err)
	_, err = New(g, a, nil)
	require.Error(t, err)
}

func TestAggregate_Travel(t *testing.T) {
	agent := &agentMock{
		routeSafety: func(_ context.Context, origin, dest domain.GeoPoint, vehicle domain.Vehicle) (*decisionagent.Response, error) {
			require.Equal(t, mumbai, origin)
			require.Equal(t, pune, dest)
			require.Equal(t, domain.VehicleBike, vehicle, "intent vehicle wins over preferences")
			return routeResponse(), nil
		},
		dining: func(_ context.Context, loc domain.GeoPoint, _ domain.Vehicle, radius int) (*decisionagent.Response, error) {
			require.Equal(t, pune, loc, "travel dining is anchored at the destination")
			require.Equal(t, 2000, radius)
			return diningResponse(2), nil
		},
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), travelInput())
	require.NoError(t, err)

	require.NotNil(t, got.Facts)
	require.Equal(t, domain.IntentTravel, got.Facts.Intent)
	require.Equal(t, "Route is generally safe", got.Facts.Primary)
	require.Equal(t, 0.82, got.Facts.Confidence)
	require.Equal(t, []string{"toll booth congestion"}, got.Facts.Warnings)
	require.NotNil(t, got.Facts.Route)
	require.Equal(t, "low", got.Facts.Route.OriginRisk)
	require.Equal(t, "medium", got.Facts.Route.DestinationRisk)
	require.NotNil(t, got.Facts.Weather)
	require.Len(t, got.Facts.Restaurants, 2)
	require.Contains(t, got.Facts.Opaque, "traffic")

	require.Len(t, got.Markers, 1)
	require.Equal(t, domain.MarkerAttraction, got.Markers[0].Kind)
	require.Equal(t, pune, got.Markers[0].Position)
	require.Equal(t, "Pune", got.Markers[0].Title)

	require.NotNil(t, got.Destination)
	require.Equal(t, "Pune", got.Destination.Name)
	require.Equal(t, pune, got.Destination.GeoPoint)
}

func TestAggregate_Travel_UnresolvableDestination(t *testing.T) {
	g := &geocoderMock{geocode: func(_ context.Context, _ string) (domain.GeoPoint, bool, error) {
		return domain.GeoPoint{}, false, nil
	}}
	got, err := newTestAggregator(t, g, &agentMock{}, sunnyWeather()).
		Aggregate(context.Background(), travelInput())
	require.NoError(t, err)
	require.Nil(t, got.Facts)
	require.Empty(t, got.Markers)
	require.Nil(t, got.Destination)
}

func TestAggregate_Travel_GeocodeError(t *testing.T) {
	g := &geocoderMock{geocode: func(_ context.Context, _ string) (domain.GeoPoint, bool, error) {
		return domain.GeoPoint{}, false, errors.New("maps unavailable")
	}}
	_, err := newTestAggregator(t, g, &agentMock{}, sunnyWeather()).
		Aggregate(context.Background(), travelInput())
	require.ErrorContains(t, err, "resolve_destination")
}

func TestAggregate_Travel_RouteSafetyError(t *testing.T) {
	agent := &agentMock{
		routeSafety: func(_ context.Context, _, _ domain.GeoPoint, _ domain.Vehicle) (*decisionagent.Response, error) {
			return nil, errors.New("agent down")
		},
	}
	_, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), travelInput())
	require.ErrorContains(t, err, "route_safety")
}

func TestAggregate_Travel_EnrichmentFailuresAreTolerated(t *testing.T) {
	agent := &agentMock{
		routeSafety: func(_ context.Context, _, _ domain.GeoPoint, _ domain.Vehicle) (*decisionagent.Response, error) {
			return routeResponse(), nil
		},
		dining: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, _ int) (*decisionagent.Response, error) {
			return nil, errors.New("dining down")
		},
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, brokenWeather()).
		Aggregate(context.Background(), travelInput())
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.Nil(t, got.Facts.Weather)
	require.Empty(t, got.Facts.Restaurants)
}

func TestAggregate_Food(t *testing.T) {
	agent := &agentMock{
		dining: func(_ context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, radius int) (*decisionagent.Response, error) {
			require.Equal(t, mumbai, loc, "food dining is anchored at the caller")
			require.Equal(t, domain.VehicleCar, vehicle, "preferences fill in a missing intent vehicle")
			require.Equal(t, 3000, radius)
			return diningResponse(12), nil
		},
	}
	weather := &weatherMock{current: func(_ context.Context, _ domain.GeoPoint) (domain.WeatherSnapshot, error) {
		t.Fatal("the food pipeline has no weather step")
		return domain.WeatherSnapshot{}, nil
	}}
	in := Input{
		Intent:      domain.Intent{Kind: domain.IntentFood},
		Location:    mumbai,
		Preferences: domain.Preferences{Vehicle: domain.VehicleCar, RadiusMeters: 3000},
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, weather).
		Aggregate(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, got.Facts)
	require.Equal(t, domain.IntentFood, got.Facts.Intent)
	require.Len(t, got.Facts.Restaurants, 12, "facts keep the full list")
	require.Nil(t, got.Facts.Weather)
	require.Nil(t, got.Destination)

	require.Len(t, got.Markers, 10, "markers are capped")
	for i, m := range got.Markers {
		require.Equal(t, domain.MarkerFood, m.Kind)
		require.Equal(t, fmt.Sprintf("Place %d", i), m.Title, "ranking order is preserved")
		require.NotEmpty(t, m.ID)
	}
	require.Equal(t, "indian · Lane 0", got.Markers[0].Description)
}

func TestAggregate_Food_MalformedDiningContribution(t *testing.T) {
	agent := &agentMock{
		dining: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, _ int) (*decisionagent.Response, error) {
			return &decisionagent.Response{
				PrimaryRecommendation: "no structured data",
				AgentContributions: map[string]json.RawMessage{
					"food": json.RawMessage(`"just a sentence"`),
				},
			}, nil
		},
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentFood}, Location: mumbai})
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.Empty(t, got.Facts.Restaurants)
	require.Empty(t, got.Markers)
}

func TestAggregate_Food_AgentError(t *testing.T) {
	agent := &agentMock{
		dining: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, _ int) (*decisionagent.Response, error) {
			return nil, errors.New("agent down")
		},
	}
	_, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentFood}, Location: mumbai})
	require.ErrorContains(t, err, "nearby_dining")
}

func TestAggregate_Route(t *testing.T) {
	agent := &agentMock{
		routeSafety: func(_ context.Context, origin, dest domain.GeoPoint, _ domain.Vehicle) (*decisionagent.Response, error) {
			require.Equal(t, mumbai, origin)
			require.Equal(t, pune, dest)
			return routeResponse(), nil
		},
	}
	weather := &weatherMock{current: func(_ context.Context, loc domain.GeoPoint) (domain.WeatherSnapshot, error) {
		require.Equal(t, mumbai, loc, "route weather describes departure conditions")
		return domain.WeatherSnapshot{Condition: "Sunny"}, nil
	}}
	in := Input{
		Intent:   domain.Intent{Kind: domain.IntentRoute, Destination: "Pune"},
		Location: mumbai,
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, weather).
		Aggregate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.NotNil(t, got.Facts.Route)
	require.Empty(t, got.Markers)
	require.NotNil(t, got.Destination)
	require.Equal(t, "Pune", got.Destination.Name)
}

func TestAggregate_Route_NoDestination(t *testing.T) {
	got, err := newTestAggregator(t, punyGeocoder(t), &agentMock{}, sunnyWeather()).
		Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentRoute}, Location: mumbai})
	require.NoError(t, err)
	require.Nil(t, got.Facts)
}

func TestAggregate_General(t *testing.T) {
	agent := &agentMock{
		quickAnalysis: func(_ context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, analysisType string) (*decisionagent.Response, error) {
			require.Equal(t, mumbai, loc)
			require.Equal(t, domain.VehicleAuto, vehicle)
			require.Equal(t, "area_analysis", analysisType)
			return &decisionagent.Response{
				PrimaryRecommendation:   "Area is generally safe",
				ConfidenceScore:         0.9,
				CombinedRecommendations: []string{"use main roads"},
			}, nil
		},
	}
	in := Input{
		Intent:      domain.Intent{Kind: domain.IntentGeneral},
		Location:    mumbai,
		Preferences: domain.Preferences{Vehicle: domain.VehicleAuto},
	}

	got, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.Equal(t, "Area is generally safe", got.Facts.Primary)
	require.Nil(t, got.Facts.Route)
	require.Empty(t, got.Markers)
	require.Nil(t, got.Destination)
}

func TestAggregate_General_AgentError(t *testing.T) {
	agent := &agentMock{
		quickAnalysis: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, _ string) (*decisionagent.Response, error) {
			return nil, errors.New("agent down")
		},
	}
	_, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentGeneral}, Location: mumbai})
	require.ErrorContains(t, err, "area_analysis")
}

func TestAggregate_UnknownIntentFallsBackToGeneral(t *testing.T) {
	agent := &agentMock{
		quickAnalysis: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, analysisType string) (*decisionagent.Response, error) {
			require.Equal(t, "area_analysis", analysisType)
			return &decisionagent.Response{PrimaryRecommendation: "ok"}, nil
		},
	}
	got, err := newTestAggregator(t, punyGeocoder(t), agent, sunnyWeather()).
		Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentKind("unknown")}, Location: mumbai})
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.Equal(t, "ok", got.Facts.Primary)
}

func TestAggregate_OptionalStepFailureIsLogged(t *testing.T) {
	agent := &agentMock{
		quickAnalysis: func(_ context.Context, _ domain.GeoPoint, _ domain.Vehicle, _ string) (*decisionagent.Response, error) {
			return &decisionagent.Response{PrimaryRecommendation: "ok"}, nil
		},
	}
	agg := newTestAggregator(t, punyGeocoder(t), agent, brokenWeather())
	var buf bytes.Buffer
	agg.log = slog.New(slog.NewTextHandler(&buf, nil))

	got, err := agg.Aggregate(context.Background(), Input{Intent: domain.Intent{Kind: domain.IntentGeneral}, Location: mumbai})
	require.NoError(t, err)
	require.NotNil(t, got.Facts)
	require.Nil(t, got.Facts.Weather)
	require.Contains(t, buf.String(), "optional fetch step failed")
	require.Contains(t, buf.String(), "local_weather")
}

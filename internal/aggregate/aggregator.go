// Package aggregate gathers external facts for one classified request.
// Each intent runs an ordered pipeline of named fetch steps; steps that
// only enrich the answer are optional and degrade on failure, steps the
// answer depends on fail the aggregation.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/decisionagent"
)

const maxRestaurantMarkers = 10

type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.GeoPoint, bool, error)
}

type DecisionAgent interface {
	QuickAnalysis(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, analysisType string) (*decisionagent.Response, error)
	RouteSafety(ctx context.Context, origin, dest domain.GeoPoint, vehicle domain.Vehicle) (*decisionagent.Response, error)
	DiningRecommendation(ctx context.Context, loc domain.GeoPoint, vehicle domain.Vehicle, radiusMeters int) (*decisionagent.Response, error)
}

type WeatherProvider interface {
	Current(ctx context.Context, loc domain.GeoPoint) (domain.WeatherSnapshot, error)
}

// Input carries everything a pipeline may need: the classified intent,
// the caller's position and their stored preferences.
type Input struct {
	Intent      domain.Intent
	Location    domain.GeoPoint
	Preferences domain.Preferences
}

// Result is what one aggregation cycle produced. A nil Facts with a nil
// error means the pipeline could not anchor the request (for example an
// unresolvable destination); the conversation then proceeds without
// grounding data.
type Result struct {
	Facts       *domain.AggregatedFacts
	Markers     []domain.MapMarker
	Destination *domain.Destination
}

// step is one named fetch in an intent pipeline. Steps run in order, so
// a step may rely on what earlier steps wrote into the run. An optional
// step's failure is logged and its data omitted; a required step's
// failure aborts the aggregation.
type step struct {
	name     string
	optional bool
	run      func(a *Aggregator, ctx context.Context, r *run) error
}

// run is the mutable state threaded through one pipeline execution.
type run struct {
	in          Input
	destination *domain.Destination
	facts       *domain.AggregatedFacts
	markers     []domain.MapMarker
}

// errNoAnchor stops a pipeline whose request cannot be tied to a place.
// It is not a failure: the cycle continues without facts.
var errNoAnchor = errors.New("no resolvable anchor")

// pipelines maps each intent to its ordered fetch steps.
var pipelines = map[domain.IntentKind][]step{
	domain.IntentTravel: {
		{name: "resolve_destination", run: (*Aggregator).resolveDestination},
		{name: "route_safety", run: (*Aggregator).routeSafety},
		{name: "destination_weather", optional: true, run: (*Aggregator).destinationWeather},
		{name: "destination_dining", optional: true, run: (*Aggregator).destinationDining},
		{name: "destination_marker", run: (*Aggregator).destinationMarker},
	},
	domain.IntentFood: {
		{name: "nearby_dining", run: (*Aggregator).nearbyDining},
		{name: "restaurant_markers", run: (*Aggregator).restaurantMarkers},
	},
	domain.IntentRoute: {
		{name: "resolve_destination", run: (*Aggregator).resolveDestination},
		{name: "route_safety", run: (*Aggregator).routeSafety},
		{name: "local_weather", optional: true, run: (*Aggregator).localWeather},
	},
	domain.IntentGeneral: {
		{name: "area_analysis", run: (*Aggregator).areaAnalysis},
		{name: "local_weather", optional: true, run: (*Aggregator).localWeather},
	},
}

type Aggregator struct {
	geocoder Geocoder
	agent    DecisionAgent
	weather  WeatherProvider

	log   *slog.Logger
	newID func() string
}

func New(geocoder Geocoder, agent DecisionAgent, weather WeatherProvider) (*Aggregator, error) {
	if geocoder == nil {
		return nil, errors.New("aggregate: geocoder must not be nil")
	}
	if agent == nil {
		return nil, errors.New("aggregate: decision agent must not be nil")
	}
	if weather == nil {
		return nil, errors.New("aggregate: weather provider must not be nil")
	}
	return &Aggregator{
		geocoder: geocoder,
		agent:    agent,
		weather:  weather,
		log:      slog.Default(),
		newID:    uuid.NewString,
	}, nil
}

// Aggregate runs the pipeline for the input's intent. Unknown kinds fall
// back to the general pipeline.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) (Result, error) {
	steps, ok := pipelines[in.Intent.Kind]
	if !ok {
		steps = pipelines[domain.IntentGeneral]
	}

	r := &run{in: in}
	for _, st := range steps {
		err := st.run(a, ctx, r)
		if err == nil {
			continue
		}
		if errors.Is(err, errNoAnchor) {
			return Result{}, nil
		}
		if st.optional {
			a.log.Warn("optional fetch step failed",
				"step", st.name, "intent", in.Intent.Kind, "err", err)
			continue
		}
		return Result{}, fmt.Errorf("aggregate: %s: %w", st.name, err)
	}
	return Result{Facts: r.facts, Markers: r.markers, Destination: r.destination}, nil
}

// resolveDestination geocodes the extracted destination phrase. A missing
// phrase or a lookup with no results stops the pipeline without error.
func (a *Aggregator) resolveDestination(ctx context.Context, r *run) error {
	name := r.in.Intent.Destination
	if name == "" {
		return errNoAnchor
	}
	point, ok, err := a.geocoder.Geocode(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return errNoAnchor
	}
	r.destination = &domain.Destination{GeoPoint: point, Name: name}
	return nil
}

func (a *Aggregator) routeSafety(ctx context.Context, r *run) error {
	resp, err := a.agent.RouteSafety(ctx, r.in.Location, r.destination.GeoPoint, effectiveVehicle(r.in))
	if err != nil {
		return err
	}
	r.facts = factsFrom(r.in.Intent.Kind, resp)
	return nil
}

func (a *Aggregator) areaAnalysis(ctx context.Context, r *run) error {
	resp, err := a.agent.QuickAnalysis(ctx, r.in.Location, effectiveVehicle(r.in), "area_analysis")
	if err != nil {
		return err
	}
	r.facts = factsFrom(r.in.Intent.Kind, resp)
	return nil
}

// nearbyDining asks for ranked restaurants around the caller.
func (a *Aggregator) nearbyDining(ctx context.Context, r *run) error {
	resp, err := a.agent.DiningRecommendation(ctx, r.in.Location, effectiveVehicle(r.in), r.in.Preferences.RadiusMeters)
	if err != nil {
		return err
	}
	r.facts = factsFrom(r.in.Intent.Kind, resp)
	if restaurants, ok := resp.DiningData(); ok {
		r.facts.Restaurants = restaurants
	}
	return nil
}

// destinationDining enriches a travel answer with restaurants around the
// destination rather than the caller.
func (a *Aggregator) destinationDining(ctx context.Context, r *run) error {
	resp, err := a.agent.DiningRecommendation(ctx, r.destination.GeoPoint, effectiveVehicle(r.in), r.in.Preferences.RadiusMeters)
	if err != nil {
		return err
	}
	if restaurants, ok := resp.DiningData(); ok {
		r.facts.Restaurants = restaurants
	}
	return nil
}

func (a *Aggregator) destinationWeather(ctx context.Context, r *run) error {
	return a.fetchWeather(ctx, r, r.destination.GeoPoint)
}

func (a *Aggregator) localWeather(ctx context.Context, r *run) error {
	return a.fetchWeather(ctx, r, r.in.Location)
}

func (a *Aggregator) fetchWeather(ctx context.Context, r *run, loc domain.GeoPoint) error {
	snapshot, err := a.weather.Current(ctx, loc)
	if err != nil {
		return err
	}
	r.facts.Weather = &snapshot
	return nil
}

func (a *Aggregator) destinationMarker(_ context.Context, r *run) error {
	r.markers = append(r.markers, domain.MapMarker{
		ID:       a.newID(),
		Kind:     domain.MarkerAttraction,
		Position: r.destination.GeoPoint,
		Title:    r.destination.Name,
	})
	return nil
}

// restaurantMarkers materializes the decoded restaurant list, rank order
// preserved, capped so the map stays readable.
func (a *Aggregator) restaurantMarkers(_ context.Context, r *run) error {
	for i, rest := range r.facts.Restaurants {
		if i == maxRestaurantMarkers {
			break
		}
		r.markers = append(r.markers, domain.MapMarker{
			ID:          a.newID(),
			Kind:        domain.MarkerFood,
			Position:    rest.Position,
			Title:       rest.Name,
			Description: restaurantDescription(rest),
		})
	}
	return nil
}

func factsFrom(kind domain.IntentKind, resp *decisionagent.Response) *domain.AggregatedFacts {
	facts := &domain.AggregatedFacts{
		Intent:          kind,
		Confidence:      resp.ConfidenceScore,
		Primary:         resp.PrimaryRecommendation,
		Recommendations: resp.CombinedRecommendations,
		Warnings:        resp.Warnings,
		Opaque:          resp.OpaqueContributions(),
	}
	if route, ok := resp.RouteData(); ok {
		facts.Route = &route
	}
	return facts
}

func effectiveVehicle(in Input) domain.Vehicle {
	if in.Intent.Vehicle != "" {
		return in.Intent.Vehicle
	}
	return in.Preferences.Vehicle
}

func restaurantDescription(r domain.Restaurant) string {
	switch {
	case r.Cuisine != "" && r.Address != "":
		return r.Cuisine + " · " + r.Address
	case r.Cuisine != "":
		return r.Cuisine
	default:
		return r.Address
	}
}

// Package weather defines the weather lookup contract and a fixed-value
// provider. A real provider only has to implement Provider.
package weather

import (
	"context"
	"time"

	"travel-assistant/internal/domain"
)

// Provider looks up current conditions and a 3-day forecast for a coordinate.
type Provider interface {
	Current(ctx context.Context, loc domain.GeoPoint) (domain.WeatherSnapshot, error)
}

// StubProvider returns fixed conditions; only the forecast dates move.
type StubProvider struct {
	now func() time.Time
}

func NewStubProvider() *StubProvider {
	return &StubProvider{now: time.Now}
}

func (p *StubProvider) Current(_ context.Context, _ domain.GeoPoint) (domain.WeatherSnapshot, error) {
	today := p.now().UTC()
	day := func(offset int) string {
		return today.AddDate(0, 0, offset).Format("2006-01-02")
	}
	return domain.WeatherSnapshot{
		TemperatureC: 28,
		Condition:    "Partly Cloudy",
		Humidity:     65,
		WindKph:      12,
		Forecast: []domain.ForecastDay{
			{Date: day(0), MinC: 24, MaxC: 31, Condition: "Partly Cloudy"},
			{Date: day(1), MinC: 23, MaxC: 30, Condition: "Sunny"},
			{Date: day(2), MinC: 25, MaxC: 32, Condition: "Light Rain"},
		},
	}, nil
}

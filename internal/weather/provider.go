package weather

import (
	"context"
)

// Source fetches current conditions and forecasts with units pre-converted upstream.
type Source interface {
	Name() string
	CurrentWeather(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (CurrentWeather, error)
	Forecast(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (Forecast, error)
}

// Geocoder resolves free-text place names into ranked candidates.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int, lang Language) ([]LocationCandidate, error)
}

// ReverseGeocoder resolves coordinates into at most one named place.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c Coordinates, lang Language) ([]LocationCandidate, error)
}

// Cache is the contract of the process-wide query cache used by Service.
type Cache interface {
	Get(ctx context.Context, op, key string, load func(ctx context.Context) (any, error)) (any, error)
	Invalidate(op, key string)
}

package weather

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Cache operation names. Each has its own staleness window.
const (
	OpCurrent  = "current"
	OpForecast = "forecast"
	OpSearch   = "search"
	OpReverse  = "reverse"
)

const (
	// MinQueryLength is the shortest query that is sent to the geocoder.
	MinQueryLength = 3
	// DefaultSearchLimit is used when the caller passes a non-positive limit.
	DefaultSearchLimit = 5
	// MaxSearchLimit is the largest count the geocoding endpoint accepts.
	MaxSearchLimit = 100
)

// Service orchestrates the weather source, geocoders and the query cache.
type Service struct {
	source   Source
	geocoder Geocoder
	reverse  ReverseGeocoder
	cache    Cache
	log      *zap.Logger
}

// NewService creates a new Service. cache may be nil, in which case every call goes upstream.
func NewService(source Source, geocoder Geocoder, reverse ReverseGeocoder, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		source:   source,
		geocoder: geocoder,
		reverse:  reverse,
		cache:    cache,
		log:      log,
	}
}

func weatherKey(c Coordinates, units UnitSystem, lang Language) string {
	return c.Key() + ":" + string(units) + ":" + string(lang)
}

func (s *Service) cached(ctx context.Context, op, key string, load func(ctx context.Context) (any, error)) (any, error) {
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.Get(ctx, op, key, load)
}

func validateRequest(c Coordinates, units UnitSystem) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !units.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnits, units)
	}
	return nil
}

// GetCurrentWeather returns current conditions for the coordinates.
func (s *Service) GetCurrentWeather(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (CurrentWeather, error) {
	if err := validateRequest(c, units); err != nil {
		return CurrentWeather{}, err
	}
	if s.source == nil {
		return CurrentWeather{}, fmt.Errorf("no weather source configured")
	}
	lang = ParseLanguage(string(lang))

	v, err := s.cached(ctx, OpCurrent, weatherKey(c, units, lang), func(ctx context.Context) (any, error) {
		return s.source.CurrentWeather(ctx, c, units, lang)
	})
	if err != nil {
		s.log.Warn("current weather fetch failed", zap.String("coords", c.Key()), zap.Error(err))
		return CurrentWeather{}, err
	}
	return v.(CurrentWeather), nil
}

// GetForecast returns the hourly forecast for the coordinates.
func (s *Service) GetForecast(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (Forecast, error) {
	if err := validateRequest(c, units); err != nil {
		return Forecast{}, err
	}
	if s.source == nil {
		return Forecast{}, fmt.Errorf("no weather source configured")
	}
	lang = ParseLanguage(string(lang))

	v, err := s.cached(ctx, OpForecast, weatherKey(c, units, lang), func(ctx context.Context) (any, error) {
		return s.source.Forecast(ctx, c, units, lang)
	})
	if err != nil {
		s.log.Warn("forecast fetch failed", zap.String("coords", c.Key()), zap.Error(err))
		return Forecast{}, err
	}
	return v.(Forecast), nil
}

// GetDashboard fetches current conditions and the forecast concurrently.
// A failure of either fetch fails the whole call.
func (s *Service) GetDashboard(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (Dashboard, error) {
	if err := validateRequest(c, units); err != nil {
		return Dashboard{}, err
	}

	var (
		wg          sync.WaitGroup
		current     CurrentWeather
		forecast    Forecast
		currentErr  error
		forecastErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.GetCurrentWeather(ctx, c, units, lang)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = s.GetForecast(ctx, c, units, lang)
	}()
	wg.Wait()

	if currentErr != nil {
		return Dashboard{}, currentErr
	}
	if forecastErr != nil {
		return Dashboard{}, forecastErr
	}

	return Dashboard{
		Current:  current,
		Forecast: forecast,
		Daily:    AggregateDaily(forecast),
	}, nil
}

// Refresh drops cached weather for the coordinates and fetches it again.
func (s *Service) Refresh(ctx context.Context, c Coordinates, units UnitSystem, lang Language) (Dashboard, error) {
	if s.cache != nil {
		key := weatherKey(c, units, ParseLanguage(string(lang)))
		s.cache.Invalidate(OpCurrent, key)
		s.cache.Invalidate(OpForecast, key)
	}
	return s.GetDashboard(ctx, c, units, lang)
}

// SearchCities returns at most limit candidates ranked by the geocoder.
// Queries shorter than MinQueryLength return no candidates and no error.
func (s *Service) SearchCities(ctx context.Context, query string, limit int, lang Language) ([]LocationCandidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []LocationCandidate{}, nil
	}
	if s.geocoder == nil {
		return nil, fmt.Errorf("no geocoder configured")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	lang = ParseLanguage(string(lang))

	key := string(lang) + ":" + strconv.Itoa(limit) + ":" + strings.ToLower(query)
	v, err := s.cached(ctx, OpSearch, key, func(ctx context.Context) (any, error) {
		return s.geocoder.Search(ctx, query, limit, lang)
	})
	if err != nil {
		s.log.Warn("city search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	results := v.([]LocationCandidate)
	if results == nil {
		results = []LocationCandidate{}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetCityByCoords resolves the coordinates into at most one named place.
// Errors from the reverse geocoding call are returned unchanged.
func (s *Service) GetCityByCoords(ctx context.Context, c Coordinates, lang Language) ([]LocationCandidate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if s.reverse == nil {
		return nil, fmt.Errorf("no reverse geocoder configured")
	}
	lang = ParseLanguage(string(lang))

	v, err := s.cached(ctx, OpReverse, c.Key()+":"+string(lang), func(ctx context.Context) (any, error) {
		return s.reverse.Reverse(ctx, c, lang)
	})
	if err != nil {
		s.log.Warn("reverse geocoding failed", zap.String("coords", c.Key()), zap.Error(err))
		return nil, err
	}

	results := v.([]LocationCandidate)
	if len(results) > 1 {
		results = results[:1]
	}
	if results == nil {
		results = []LocationCandidate{}
	}
	return results, nil
}

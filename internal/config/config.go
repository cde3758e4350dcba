package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

var validate = validator.New()

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string

	OpenMeteoURL       string
	GeocodingURL       string
	NominatimURL       string
	NominatimUserAgent string
	NominatimRPS       float64
	ForecastDays       int `validate:"min=1,max=16"`

	// Staleness windows of the query cache.
	CacheTTLCurrent    time.Duration
	CacheTTLForecast   time.Duration
	CacheTTLSearch     time.Duration
	CacheTTLReverse    time.Duration
	CachePurgeInterval time.Duration

	DefaultUnits    weather.UnitSystem `validate:"oneof=metric imperial"`
	DefaultLanguage weather.Language

	PrefsBackend string `validate:"oneof=file sqlite"`
	PrefsPath    string `validate:"required"`

	// FetchInterval controls how often prewarm locations are refreshed.
	FetchInterval    time.Duration
	PrewarmLocations []weather.Coordinates

	// DeviceLocation backs the geolocation resolver; nil means unsupported.
	DeviceLocation     *weather.Coordinates
	GeolocationTimeout time.Duration
	GeolocationMaxAge  time.Duration
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               getenvDefault("PORT", "8080"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("LOG_FORMAT", "json"),
		OpenMeteoURL:       getenvDefault("OPENMETEO_BASE_URL", providers.DefaultOpenMeteoURL),
		GeocodingURL:       getenvDefault("GEOCODING_BASE_URL", providers.DefaultGeocodingURL),
		NominatimURL:       getenvDefault("NOMINATIM_BASE_URL", providers.DefaultNominatimURL),
		NominatimUserAgent: getenvDefault("NOMINATIM_USER_AGENT", providers.DefaultNominatimUserAgent),
		ForecastDays:       getenvInt("FORECAST_DAYS", 5),
		DefaultUnits:       weather.UnitSystem(strings.ToLower(getenvDefault("DEFAULT_UNITS", string(weather.UnitsMetric)))),
		DefaultLanguage:    weather.ParseLanguage(getenvDefault("DEFAULT_LANGUAGE", string(weather.DefaultLanguage))),
		PrefsBackend:       strings.ToLower(getenvDefault("PREFS_BACKEND", "file")),
	}

	var err error
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"CACHE_TTL_CURRENT", "5m", &cfg.CacheTTLCurrent},
		{"CACHE_TTL_FORECAST", "10m", &cfg.CacheTTLForecast},
		{"CACHE_TTL_SEARCH", "30m", &cfg.CacheTTLSearch},
		{"CACHE_TTL_REVERSE", "60m", &cfg.CacheTTLReverse},
		{"CACHE_PURGE_INTERVAL", "1m", &cfg.CachePurgeInterval},
		{"FETCH_INTERVAL", "15m", &cfg.FetchInterval},
		{"GEOLOCATION_TIMEOUT", "15s", &cfg.GeolocationTimeout},
		{"GEOLOCATION_MAX_AGE", "5m", &cfg.GeolocationMaxAge},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.NominatimRPS, err = getenvFloat("NOMINATIM_RPS", 1); err != nil {
		return nil, err
	}

	cfg.PrefsPath = getenvDefault("PREFS_PATH", defaultPrefsPath(cfg.PrefsBackend))

	if cfg.PrewarmLocations, err = parseLocations(os.Getenv("PREWARM_LOCATIONS")); err != nil {
		return nil, err
	}

	if cfg.DeviceLocation, err = loadDeviceLocation(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Windows returns the staleness window of each cached operation.
func (c *AppConfig) Windows() map[string]time.Duration {
	return map[string]time.Duration{
		weather.OpCurrent:  c.CacheTTLCurrent,
		weather.OpForecast: c.CacheTTLForecast,
		weather.OpSearch:   c.CacheTTLSearch,
		weather.OpReverse:  c.CacheTTLReverse,
	}
}

func defaultPrefsPath(backend string) string {
	if backend == "sqlite" {
		return "preferences.db"
	}
	return "preferences.yaml"
}

// parseLocations parses "lat,lon;lat,lon".
func parseLocations(raw string) ([]weather.Coordinates, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var locs []weather.Coordinates
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		c, err := parseCoordinates(pair)
		if err != nil {
			return nil, fmt.Errorf("invalid PREWARM_LOCATIONS entry %q: %w", pair, err)
		}
		locs = append(locs, c)
	}
	return locs, nil
}

func parseCoordinates(pair string) (weather.Coordinates, error) {
	parts := strings.Split(pair, ",")
	if len(parts) != 2 {
		return weather.Coordinates{}, fmt.Errorf("expected lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return weather.Coordinates{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return weather.Coordinates{}, err
	}
	c := weather.Coordinates{Lat: lat, Lon: lon}
	return c, c.Validate()
}

func loadDeviceLocation() (*weather.Coordinates, error) {
	lat, lon := os.Getenv("DEVICE_LATITUDE"), os.Getenv("DEVICE_LONGITUDE")
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, fmt.Errorf("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}
	c, err := parseCoordinates(lat + "," + lon)
	if err != nil {
		return nil, fmt.Errorf("invalid device location: %w", err)
	}
	return &c, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

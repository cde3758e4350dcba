package providers

import (
	"context"
	"strconv"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DefaultNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent = "WeatherApp/1.0"
)

// fallbackPlaceNames is used when the address carries none of the place fields.
var fallbackPlaceNames = map[weather.Language]string{
	weather.LangPT: "Localização Atual",
	weather.LangEN: "Current Location",
	weather.LangES: "Ubicación Actual",
}

// NominatimAddress is the subset of a Nominatim address object used for naming.
type NominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// PlaceName picks city, then town, village, municipality, county, then the language fallback.
func (a NominatimAddress) PlaceName(lang weather.Language) string {
	fallback, ok := fallbackPlaceNames[lang]
	if !ok {
		fallback = fallbackPlaceNames[weather.DefaultLanguage]
	}
	return common.FirstNonEmpty(a.City, a.Town, a.Village, a.Municipality, a.County, fallback)
}

// NominatimProvider implements weather.ReverseGeocoder against OpenStreetMap Nominatim.
type NominatimProvider struct {
	api *upstream
}

// NewNominatimProvider creates the provider. Nominatim's usage policy requires a
// User-Agent and at most one request per second; cfg.RPS defaults to 1.
func NewNominatimProvider(cfg ClientConfig) *NominatimProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultNominatimUserAgent
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	return &NominatimProvider{api: newUpstream("nominatim", cfg)}
}

// Reverse returns at most one candidate. A response without an address yields an empty slice.
func (p *NominatimProvider) Reverse(ctx context.Context, c weather.Coordinates, lang weather.Language) ([]weather.LocationCandidate, error) {
	params := map[string]string{
		"format":          "json",
		"lat":             formatFloat(c.Lat),
		"lon":             formatFloat(c.Lon),
		"accept-language": string(lang),
		"addressdetails":  "1",
	}

	var payload struct {
		Lat     string            `json:"lat"`
		Lon     string            `json:"lon"`
		Address *NominatimAddress `json:"address"`
	}
	if err := p.api.getJSON(ctx, "reverse geocode", "/reverse", params, &payload); err != nil {
		return nil, err
	}
	if payload.Address == nil {
		return []weather.LocationCandidate{}, nil
	}

	coords := c
	if lat, err := strconv.ParseFloat(payload.Lat, 64); err == nil {
		coords.Lat = lat
	}
	if lon, err := strconv.ParseFloat(payload.Lon, 64); err == nil {
		coords.Lon = lon
	}

	return []weather.LocationCandidate{{
		Name:        payload.Address.PlaceName(lang),
		Country:     payload.Address.Country,
		State:       payload.Address.State,
		Coordinates: coords,
	}}, nil
}

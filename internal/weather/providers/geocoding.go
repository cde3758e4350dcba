package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1"

// GeocodingProvider implements weather.Geocoder for the Open-Meteo geocoding API.
type GeocodingProvider struct {
	api *upstream
}

func NewGeocodingProvider(cfg ClientConfig) *GeocodingProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeocodingURL
	}
	return &GeocodingProvider{api: newUpstream("geocoding", cfg)}
}

type geocodingResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country"`
	Admin1      string  `json:"admin1"`
}

// Search returns candidates in upstream relevance order. An unmatched query yields an empty slice.
func (p *GeocodingProvider) Search(ctx context.Context, query string, limit int, lang weather.Language) ([]weather.LocationCandidate, error) {
	params := map[string]string{
		"name":     query,
		"count":    strconv.Itoa(limit),
		"language": string(lang),
		"format":   "json",
	}

	var payload struct {
		Results []geocodingResult `json:"results"`
	}
	if err := p.api.getJSON(ctx, "search cities", "/search", params, &payload); err != nil {
		return nil, err
	}

	out := make([]weather.LocationCandidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		country := strings.ToUpper(r.CountryCode)
		if country == "" {
			country = r.Country
		}
		out = append(out, weather.LocationCandidate{
			Name:    r.Name,
			Country: country,
			State:   r.Admin1,
			Coordinates: weather.Coordinates{
				Lat: r.Latitude,
				Lon: r.Longitude,
			},
		})
	}
	return out, nil
}

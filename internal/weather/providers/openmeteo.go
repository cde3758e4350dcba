package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	DefaultOpenMeteoURL = "https://api.open-meteo.com/v1"

	defaultPressureHpa  = 1013
	defaultVisibilityM  = 10000
	defaultForecastDays = 5
)

var (
	currentFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "is_day",
		"precipitation", "weather_code", "cloud_cover", "pressure_msl", "surface_pressure",
		"wind_speed_10m", "wind_direction_10m", "wind_gusts_10m", "visibility",
	}
	hourlyFields = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation_probability",
		"precipitation", "rain", "showers", "snowfall", "weather_code", "pressure_msl",
		"surface_pressure", "cloud_cover", "visibility", "wind_speed_10m", "wind_direction_10m",
		"wind_gusts_10m", "uv_index", "is_day",
	}
	dailyFields = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min", "sunrise", "sunset",
		"uv_index_max", "precipitation_sum", "precipitation_probability_max",
		"wind_speed_10m_max", "wind_gusts_10m_max", "wind_direction_10m_dominant",
	}
)

// OpenMeteoProvider implements weather.Source for the Open-Meteo forecast API.
type OpenMeteoProvider struct {
	name         string
	forecastDays int
	api          *upstream
}

// NewOpenMeteoProvider creates the provider. forecastDays <= 0 uses the default of 5.
func NewOpenMeteoProvider(cfg ClientConfig, forecastDays int) *OpenMeteoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenMeteoURL
	}
	if forecastDays <= 0 {
		forecastDays = defaultForecastDays
	}
	return &OpenMeteoProvider{
		name:         "openmeteo",
		forecastDays: forecastDays,
		api:          newUpstream("openmeteo", cfg),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoCurrent struct {
	Time            int64    `json:"time"`
	Temperature     *float64 `json:"temperature_2m"`
	Humidity        *float64 `json:"relative_humidity_2m"`
	Apparent        *float64 `json:"apparent_temperature"`
	IsDay           *int     `json:"is_day"`
	WeatherCode     *int     `json:"weather_code"`
	CloudCover      *float64 `json:"cloud_cover"`
	PressureMSL     *float64 `json:"pressure_msl"`
	SurfacePressure *float64 `json:"surface_pressure"`
	WindSpeed       *float64 `json:"wind_speed_10m"`
	WindDirection   *float64 `json:"wind_direction_10m"`
	WindGusts       *float64 `json:"wind_gusts_10m"`
	Visibility      *float64 `json:"visibility"`
}

type openMeteoDaily struct {
	Time       []int64    `json:"time"`
	TempMax    []*float64 `json:"temperature_2m_max"`
	TempMin    []*float64 `json:"temperature_2m_min"`
	Sunrise    []*int64   `json:"sunrise"`
	Sunset     []*int64   `json:"sunset"`
	UVIndexMax []*float64 `json:"uv_index_max"`
}

type openMeteoHourly struct {
	Time            []int64    `json:"time"`
	Temperature     []*float64 `json:"temperature_2m"`
	Humidity        []*float64 `json:"relative_humidity_2m"`
	Apparent        []*float64 `json:"apparent_temperature"`
	PrecipProb      []*float64 `json:"precipitation_probability"`
	Rain            []*float64 `json:"rain"`
	Snowfall        []*float64 `json:"snowfall"`
	WeatherCode     []*int     `json:"weather_code"`
	PressureMSL     []*float64 `json:"pressure_msl"`
	SurfacePressure []*float64 `json:"surface_pressure"`
	CloudCover      []*float64 `json:"cloud_cover"`
	Visibility      []*float64 `json:"visibility"`
	WindSpeed       []*float64 `json:"wind_speed_10m"`
	WindDirection   []*float64 `json:"wind_direction_10m"`
	WindGusts       []*float64 `json:"wind_gusts_10m"`
	UVIndex         []*float64 `json:"uv_index"`
	IsDay           []*int     `json:"is_day"`
}

type openMeteoResponse struct {
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Current          *openMeteoCurrent `json:"current"`
	Hourly           *openMeteoHourly  `json:"hourly"`
	Daily            *openMeteoDaily   `json:"daily"`
}

func (p *OpenMeteoProvider) params(c weather.Coordinates, units weather.UnitSystem) map[string]string {
	tempUnit, windUnit := "celsius", "ms"
	if units == weather.UnitsImperial {
		tempUnit, windUnit = "fahrenheit", "mph"
	}
	return map[string]string{
		"latitude":           formatFloat(c.Lat),
		"longitude":          formatFloat(c.Lon),
		"daily":              strings.Join(dailyFields, ","),
		"temperature_unit":   tempUnit,
		"wind_speed_unit":    windUnit,
		"precipitation_unit": "mm",
		"timezone":           "auto",
		"timeformat":         "unixtime",
	}
}

func (p *OpenMeteoProvider) CurrentWeather(ctx context.Context, c weather.Coordinates, units weather.UnitSystem, _ weather.Language) (weather.CurrentWeather, error) {
	params := p.params(c, units)
	params["current"] = strings.Join(currentFields, ",")
	params["forecast_days"] = "1"

	var payload openMeteoResponse
	if err := p.api.getJSON(ctx, "fetch current weather", "/forecast", params, &payload); err != nil {
		return weather.CurrentWeather{}, err
	}
	if payload.Current == nil {
		return weather.CurrentWeather{}, fmt.Errorf("fetch current weather: response has no current block")
	}
	return transformCurrent(payload, c, units), nil
}

func (p *OpenMeteoProvider) Forecast(ctx context.Context, c weather.Coordinates, units weather.UnitSystem, _ weather.Language) (weather.Forecast, error) {
	params := p.params(c, units)
	params["hourly"] = strings.Join(hourlyFields, ",")
	params["forecast_days"] = fmt.Sprintf("%d", p.forecastDays)

	var payload openMeteoResponse
	if err := p.api.getJSON(ctx, "fetch forecast", "/forecast", params, &payload); err != nil {
		return weather.Forecast{}, err
	}
	if payload.Hourly == nil {
		return weather.Forecast{}, fmt.Errorf("fetch forecast: response has no hourly block")
	}
	return transformForecast(payload, c, units), nil
}

func transformCurrent(payload openMeteoResponse, c weather.Coordinates, units weather.UnitSystem) weather.CurrentWeather {
	cur := payload.Current
	daily := payload.Daily
	if daily == nil {
		daily = &openMeteoDaily{}
	}

	ts := time.Now().UTC()
	if cur.Time != 0 {
		ts = time.Unix(cur.Time, 0).UTC()
	}

	isDay := cur.IsDay != nil && *cur.IsDay == 1
	code := intOr(0, cur.WeatherCode)

	return weather.CurrentWeather{
		Coordinates: c,
		Timestamp:   ts,
		Units:       units,
		Temperature: floatOr(0, cur.Temperature),
		FeelsLike:   floatOr(0, cur.Apparent, cur.Temperature),
		TempMin:     floatOr(0, at(daily.TempMin, 0), cur.Temperature),
		TempMax:     floatOr(0, at(daily.TempMax, 0), cur.Temperature),
		Humidity:    floatOr(0, cur.Humidity),
		Pressure:    floatOr(defaultPressureHpa, cur.PressureMSL, cur.SurfacePressure),
		SeaLevel:    floatOr(defaultPressureHpa, cur.PressureMSL),
		GroundLevel: floatOr(defaultPressureHpa, cur.SurfacePressure),
		Visibility:  floatOr(defaultVisibilityM, cur.Visibility),
		CloudCover:  floatOr(0, cur.CloudCover),
		UVIndex:     floatOr(0, at(daily.UVIndexMax, 0)),
		Wind: weather.Wind{
			Speed:     floatOr(0, cur.WindSpeed),
			Direction: floatOr(0, cur.WindDirection),
			Gust:      floatOr(0, cur.WindGusts),
		},
		Sunrise:        unixOrZero(at(daily.Sunrise, 0)),
		Sunset:         unixOrZero(at(daily.Sunset, 0)),
		Condition:      weather.NewCondition(code, isDay),
		TimezoneOffset: payload.UTCOffsetSeconds,
	}
}

func transformForecast(payload openMeteoResponse, c weather.Coordinates, units weather.UnitSystem) weather.Forecast {
	h := payload.Hourly
	daily := payload.Daily
	if daily == nil {
		daily = &openMeteoDaily{}
	}

	entries := make([]weather.ForecastEntry, 0, len(h.Time))
	for i, t := range h.Time {
		dayIndex := i / 24
		temp := at(h.Temperature, i)
		isDay := at(h.IsDay, i)

		entries = append(entries, weather.ForecastEntry{
			Timestamp:   time.Unix(t, 0).UTC(),
			Temperature: floatOr(0, temp),
			FeelsLike:   floatOr(0, at(h.Apparent, i), temp),
			TempMin:     floatOr(0, at(daily.TempMin, dayIndex), temp),
			TempMax:     floatOr(0, at(daily.TempMax, dayIndex), temp),
			Humidity:    floatOr(0, at(h.Humidity, i)),
			Pressure:    floatOr(defaultPressureHpa, at(h.PressureMSL, i), at(h.SurfacePressure, i)),
			Visibility:  floatOr(defaultVisibilityM, at(h.Visibility, i)),
			CloudCover:  floatOr(0, at(h.CloudCover, i)),
			UVIndex:     floatOr(0, at(h.UVIndex, i)),
			Wind: weather.Wind{
				Speed:     floatOr(0, at(h.WindSpeed, i)),
				Direction: floatOr(0, at(h.WindDirection, i)),
				Gust:      floatOr(0, at(h.WindGusts, i)),
			},
			PrecipProbability: floatOr(0, at(h.PrecipProb, i)) / 100,
			RainMM:            floatOr(0, at(h.Rain, i)),
			SnowCM:            floatOr(0, at(h.Snowfall, i)),
			Condition:         weather.NewCondition(intOr(0, at(h.WeatherCode, i)), isDay != nil && *isDay == 1),
		})
	}

	return weather.Forecast{
		Coordinates:    c,
		Units:          units,
		TimezoneOffset: payload.UTCOffsetSeconds,
		Sunrise:        unixOrZero(at(daily.Sunrise, 0)),
		Sunset:         unixOrZero(at(daily.Sunset, 0)),
		Entries:        entries,
	}
}

// at returns s[i], or nil when i is out of range.
func at[T any](s []*T, i int) *T {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}

// floatOr returns the first non-nil value, or def.
func floatOr(def float64, vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func intOr(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func unixOrZero(v *int64) time.Time {
	if v == nil || *v == 0 {
		return time.Time{}
	}
	return time.Unix(*v, 0).UTC()
}

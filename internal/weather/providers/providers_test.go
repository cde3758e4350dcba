package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type capture struct {
	mu      sync.Mutex
	path    string
	query   url.Values
	headers http.Header
}

func (c *capture) set(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = r.URL.Path
	c.query = r.URL.Query()
	c.headers = r.Header.Clone()
}

func newServer(t *testing.T, status int, body string, c *capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c != nil {
			c.set(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var saoPaulo = weather.Coordinates{Lat: -23.55, Lon: -46.63}

const currentBody = `{
  "utc_offset_seconds": -10800,
  "current": {
    "time": 1704639600,
    "temperature_2m": 25.7,
    "relative_humidity_2m": 64,
    "apparent_temperature": null,
    "is_day": 0,
    "weather_code": 3,
    "cloud_cover": 90,
    "pressure_msl": null,
    "surface_pressure": 925.3,
    "wind_speed_10m": 5.6,
    "wind_direction_10m": 140,
    "visibility": null
  },
  "daily": {
    "time": [1704596400],
    "temperature_2m_max": [29.9],
    "temperature_2m_min": [null],
    "sunrise": [1704615600],
    "sunset": [1704664200],
    "uv_index_max": [9.1]
  }
}`

func TestOpenMeteoCurrentWeather(t *testing.T) {
	c := &capture{}
	srv := newServer(t, http.StatusOK, currentBody, c)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 0)

	got, err := p.CurrentWeather(context.Background(), saoPaulo, weather.UnitsImperial, weather.LangEN)
	require.NoError(t, err)

	assert.Equal(t, "/forecast", c.path)
	assert.Equal(t, "-23.55", c.query.Get("latitude"))
	assert.Equal(t, "fahrenheit", c.query.Get("temperature_unit"))
	assert.Equal(t, "mph", c.query.Get("wind_speed_unit"))
	assert.Equal(t, "unixtime", c.query.Get("timeformat"))
	assert.Equal(t, "auto", c.query.Get("timezone"))
	assert.Equal(t, "1", c.query.Get("forecast_days"))
	assert.Contains(t, c.query.Get("current"), "weather_code")

	assert.Equal(t, 25.7, got.Temperature)
	assert.Equal(t, 25.7, got.FeelsLike, "feels-like falls back to temperature")
	assert.Equal(t, 25.7, got.TempMin, "min falls back to temperature")
	assert.Equal(t, 29.9, got.TempMax)
	assert.Equal(t, 925.3, got.Pressure, "pressure falls back to surface pressure")
	assert.Equal(t, 10000.0, got.Visibility)
	assert.Equal(t, 9.1, got.UVIndex)
	assert.Equal(t, 0.0, got.Wind.Gust)
	assert.Equal(t, -10800, got.TimezoneOffset)
	assert.Equal(t, weather.Condition{Code: 3, Icon: "04n", IsDay: false}, got.Condition)
	assert.Equal(t, time.Unix(1704615600, 0).UTC(), got.Sunrise)
	assert.Equal(t, weather.UnitsImperial, got.Units)
}

func TestOpenMeteoPressureDefault(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"current": {"time": 1704639600, "temperature_2m": 10}}`, nil)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 0)

	got, err := p.CurrentWeather(context.Background(), saoPaulo, weather.UnitsMetric, weather.LangPT)
	require.NoError(t, err)
	assert.Equal(t, 1013.0, got.Pressure)
	assert.Equal(t, 10.0, got.TempMax)
	assert.False(t, got.Condition.IsDay, "a missing is_day is treated as night")
	assert.Equal(t, "01n", got.Condition.Icon)
}

func TestOpenMeteoForecast(t *testing.T) {
	body := `{
	  "utc_offset_seconds": 0,
	  "hourly": {
	    "time": [1704585600, 1704589200],
	    "temperature_2m": [20.1, 19.4],
	    "precipitation_probability": [35, null],
	    "weather_code": [61, 80],
	    "is_day": [0, 1],
	    "wind_gusts_10m": [12.5, null]
	  },
	  "daily": {"temperature_2m_max": [24], "temperature_2m_min": [15]}
	}`
	c := &capture{}
	srv := newServer(t, http.StatusOK, body, c)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 3)

	got, err := p.Forecast(context.Background(), saoPaulo, weather.UnitsMetric, weather.LangPT)
	require.NoError(t, err)

	assert.Equal(t, "3", c.query.Get("forecast_days"))
	assert.Equal(t, "ms", c.query.Get("wind_speed_unit"))
	assert.Contains(t, c.query.Get("hourly"), "precipitation_probability")

	require.Len(t, got.Entries, 2)
	first := got.Entries[0]
	assert.Equal(t, time.Unix(1704585600, 0).UTC(), first.Timestamp)
	assert.InDelta(t, 0.35, first.PrecipProbability, 1e-9)
	assert.Equal(t, 24.0, first.TempMax)
	assert.Equal(t, 15.0, first.TempMin)
	assert.Equal(t, 12.5, first.Wind.Gust)
	assert.Equal(t, "10n", first.Condition.Icon)
	assert.Equal(t, 10000.0, first.Visibility)

	second := got.Entries[1]
	assert.Equal(t, 0.0, second.PrecipProbability)
	assert.Equal(t, "09d", second.Condition.Icon)
}

func TestOpenMeteoStatusError(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, `{"error": true}`, nil)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 0)

	_, err := p.CurrentWeather(context.Background(), saoPaulo, weather.UnitsMetric, weather.LangPT)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.True(t, fe.Retryable())
}

func TestOpenMeteoUndecodableBody(t *testing.T) {
	srv := newServer(t, http.StatusOK, `<html>gateway hiccup</html>`, nil)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 0)

	_, err := p.Forecast(context.Background(), saoPaulo, weather.UnitsMetric, weather.LangPT)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "fetch forecast", fe.Op)
	assert.Contains(t, fe.Error(), "decode response")
	assert.True(t, fe.Retryable())
}

func TestOpenMeteoForecastMissingIsDay(t *testing.T) {
	body := `{"hourly": {"time": [1704585600], "temperature_2m": [20], "weather_code": [0]}}`
	srv := newServer(t, http.StatusOK, body, nil)
	p := NewOpenMeteoProvider(ClientConfig{BaseURL: srv.URL}, 1)

	got, err := p.Forecast(context.Background(), saoPaulo, weather.UnitsMetric, weather.LangPT)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "01n", got.Entries[0].Condition.Icon)
}

func TestGeocodingSearch(t *testing.T) {
	body := `{"results": [
	  {"name": "Lisbon", "latitude": 38.72, "longitude": -9.13, "country_code": "pt", "country": "Portugal", "admin1": "Lisbon"},
	  {"name": "Lisbon", "latitude": 44.03, "longitude": -70.1, "country": "United States", "admin1": "Maine"}
	]}`
	c := &capture{}
	srv := newServer(t, http.StatusOK, body, c)
	p := NewGeocodingProvider(ClientConfig{BaseURL: srv.URL})

	got, err := p.Search(context.Background(), "Lisbon", 5, weather.LangEN)
	require.NoError(t, err)

	assert.Equal(t, "/search", c.path)
	assert.Equal(t, "Lisbon", c.query.Get("name"))
	assert.Equal(t, "5", c.query.Get("count"))
	assert.Equal(t, "en", c.query.Get("language"))

	require.Len(t, got, 2)
	assert.Equal(t, weather.LocationCandidate{
		Name:        "Lisbon",
		Country:     "PT",
		State:       "Lisbon",
		Coordinates: weather.Coordinates{Lat: 38.72, Lon: -9.13},
	}, got[0])
	assert.Equal(t, "United States", got[1].Country)
}

func TestGeocodingNoResults(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"generationtime_ms": 0.2}`, nil)
	p := NewGeocodingProvider(ClientConfig{BaseURL: srv.URL})

	got, err := p.Search(context.Background(), "Nowhereville", 5, weather.LangPT)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNominatimReverse(t *testing.T) {
	body := `{"lat": "-23.5505", "lon": "-46.6333", "address": {"town": "Vila Madalena", "county": "São Paulo", "state": "São Paulo", "country": "Brasil"}}`
	c := &capture{}
	srv := newServer(t, http.StatusOK, body, c)
	p := NewNominatimProvider(ClientConfig{BaseURL: srv.URL})

	got, err := p.Reverse(context.Background(), saoPaulo, weather.LangPT)
	require.NoError(t, err)

	assert.Equal(t, "/reverse", c.path)
	assert.Equal(t, "pt", c.query.Get("accept-language"))
	assert.Equal(t, "1", c.query.Get("addressdetails"))
	assert.Equal(t, DefaultNominatimUserAgent, c.headers.Get("User-Agent"))

	require.Len(t, got, 1)
	assert.Equal(t, "Vila Madalena", got[0].Name)
	assert.Equal(t, "São Paulo", got[0].State)
	assert.Equal(t, weather.Coordinates{Lat: -23.5505, Lon: -46.6333}, got[0].Coordinates)
}

func TestNominatimNoAddress(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"error": "Unable to geocode"}`, nil)
	p := NewNominatimProvider(ClientConfig{BaseURL: srv.URL, UserAgent: "test-agent"})

	got, err := p.Reverse(context.Background(), saoPaulo, weather.LangEN)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNominatimPlaceNamePrecedence(t *testing.T) {
	cases := []struct {
		addr NominatimAddress
		lang weather.Language
		want string
	}{
		{NominatimAddress{City: "Porto", Town: "x", County: "y"}, weather.LangPT, "Porto"},
		{NominatimAddress{Town: "Sintra", Village: "x"}, weather.LangPT, "Sintra"},
		{NominatimAddress{Village: "Monsaraz", Municipality: "x"}, weather.LangPT, "Monsaraz"},
		{NominatimAddress{Municipality: "Reguengos", County: "x"}, weather.LangPT, "Reguengos"},
		{NominatimAddress{County: "Évora"}, weather.LangPT, "Évora"},
		{NominatimAddress{State: "Alentejo"}, weather.LangPT, "Localização Atual"},
		{NominatimAddress{}, weather.LangEN, "Current Location"},
		{NominatimAddress{}, weather.LangES, "Ubicación Actual"},
		{NominatimAddress{}, weather.Language("de"), "Localização Atual"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.addr.PlaceName(tc.lang))
	}
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []int
}

func (r *recordingRecorder) UpstreamRequest(_, _ string, status int, _ time.Duration, _ error) {
	r.mu.Lock()
	r.events = append(r.events, status)
	r.mu.Unlock()
}

func TestUpstreamRecordsRequests(t *testing.T) {
	srv := newServer(t, http.StatusNotFound, `{}`, nil)
	rec := &recordingRecorder{}
	p := NewGeocodingProvider(ClientConfig{BaseURL: srv.URL, Recorder: rec})

	_, err := p.Search(context.Background(), "Lisbon", 1, weather.LangPT)
	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.False(t, fe.Retryable())
	assert.Equal(t, []int{http.StatusNotFound}, rec.events)
}

func TestUpstreamTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewGeocodingProvider(ClientConfig{BaseURL: srv.URL, Client: &http.Client{Timeout: time.Second}})
	_, err := p.Search(context.Background(), "Lisbon", 1, weather.LangPT)

	var fe *weather.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.True(t, weather.IsRetryable(err))
}

package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type table map[string]string

func (t table) Lookup(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

func TestTemperature(t *testing.T) {
	assert.Equal(t, "26°C", Temperature(25.7, weather.UnitsMetric))
	assert.Equal(t, "-5°C", Temperature(-5.2, weather.UnitsMetric))
	assert.Equal(t, "78°F", Temperature(78.26, weather.UnitsImperial))
	assert.Equal(t, "0°C", Temperature(-0.4, weather.UnitsMetric))
	assert.Equal(t, "-2°C", Temperature(-2.5, weather.UnitsMetric))
}

func TestWindSpeedAndPressure(t *testing.T) {
	assert.Equal(t, "6 m/s", WindSpeed(5.5, weather.UnitsMetric))
	assert.Equal(t, "16 mph", WindSpeed(15.6, weather.UnitsImperial))
	assert.Equal(t, "1013 hPa", Pressure(1013.2))
	assert.Equal(t, "64%", Humidity(64.4))
	assert.Equal(t, "25%", Percent(0.25))
	assert.Equal(t, "0%", Percent(0))
}

func TestVisibility(t *testing.T) {
	cases := []struct {
		meters float64
		units  weather.UnitSystem
		want   string
	}{
		{999, weather.UnitsMetric, "999 m"},
		{999.4, weather.UnitsMetric, "999 m"},
		{999.6, weather.UnitsMetric, "1.0 km"},
		{1000, weather.UnitsMetric, "1.0 km"},
		{10000, weather.UnitsMetric, "10.0 km"},
		{0, weather.UnitsMetric, "0 m"},
		{10000, weather.UnitsImperial, "6.2 mi"},
		{1609, weather.UnitsImperial, "1.0 mi"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Visibility(tc.meters, tc.units), "%v %s", tc.meters, tc.units)
	}
}

func TestWindDirection(t *testing.T) {
	cases := map[float64]string{
		0:      "N",
		11.24:  "N",
		11.25:  "NNE",
		45:     "NE",
		90:     "E",
		180:    "S",
		270:    "W",
		348.75: "N",
		360:    "N",
		361:    "N",
		-90:    "W",
		-360:   "N",
	}
	for deg, want := range cases {
		assert.Equal(t, want, WindDirection(deg), "%v", deg)
	}
	assert.Equal(t, "N", WindDirection(math.NaN()))
}

func TestUVIndexLevel(t *testing.T) {
	cases := []struct {
		uv   float64
		key  string
		want string
	}{
		{0, "low", "Baixo"},
		{2, "low", "Baixo"},
		{2.1, "moderate", "Moderado"},
		{5, "moderate", "Moderado"},
		{7, "high", "Alto"},
		{10, "veryHigh", "Muito Alto"},
		{10.5, "extreme", "Extremo"},
	}
	for _, tc := range cases {
		got := UVIndexLevel(tc.uv, nil)
		assert.Equal(t, tc.key, got.Key, "%v", tc.uv)
		assert.Equal(t, tc.want, got.Label, "%v", tc.uv)
	}

	tr := table{"uvIndex.veryHigh": "Very High"}
	assert.Equal(t, "Very High", UVIndexLevel(9, tr).Label)
	assert.Equal(t, "text-red-500", UVIndexLevel(9, tr).Color)
	// Missing translations fall back to the built-in label.
	assert.Equal(t, "Alto", UVIndexLevel(6, tr).Label)
}

func TestTimeAndDate(t *testing.T) {
	ts := time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "23:30", Time(ts, 0))
	assert.Equal(t, "20:30", Time(ts, -3*3600))
	assert.Equal(t, "01:30", Time(ts, 2*3600))

	assert.Equal(t, "Sun, 7 Jan", Date(ts, 0, weather.LangEN))
	assert.Equal(t, "Seg, 8 Jan", Date(ts, 2*3600, weather.LangPT))
	assert.Equal(t, "Dom, 7 Ene", Date(ts, 0, weather.LangES))
	assert.Equal(t, "Dom, 7 Jan", Date(ts, 0, weather.Language("de")))
}

func TestCapitalizeFirst(t *testing.T) {
	assert.Equal(t, "Céu limpo", CapitalizeFirst("céu limpo"))
	assert.Equal(t, "Éxito", CapitalizeFirst("éxito"))
	assert.Equal(t, "", CapitalizeFirst(""))
	assert.Equal(t, "A", CapitalizeFirst("a"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "Lisbon, PT", Join("Lisbon", "", "PT"))
	assert.Equal(t, "", Join("", ""))
}

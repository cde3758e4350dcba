package weather

import (
	"fmt"
	"math"
	"time"
)

// UnitSystem selects the unit convention requested from the provider and used for display.
type UnitSystem string

const (
	UnitsMetric   UnitSystem = "metric"
	UnitsImperial UnitSystem = "imperial"
)

// Valid reports whether u is a supported unit system.
func (u UnitSystem) Valid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

// ParseUnits validates a unit system string.
func ParseUnits(s string) (UnitSystem, error) {
	u := UnitSystem(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
	return u, nil
}

// Language is a supported display language.
type Language string

const (
	LangPT Language = "pt"
	LangEN Language = "en"
	LangES Language = "es"

	DefaultLanguage = LangPT
)

// Languages lists every supported language, default first.
var Languages = []Language{LangPT, LangEN, LangES}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LangPT, LangEN, LangES:
		return true
	}
	return false
}

// ParseLanguage never fails: unknown codes are coerced to DefaultLanguage.
func ParseLanguage(s string) Language {
	l := Language(s)
	if l.Valid() {
		return l
	}
	return DefaultLanguage
}

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("%w: not finite", ErrInvalidCoordinates)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: %.4f,%.4f out of range", ErrInvalidCoordinates, c.Lat, c.Lon)
	}
	return nil
}

// Key returns a canonical string key for indexing these coordinates in caches.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon)
}

// LocationCandidate is a named place returned by city search or reverse geocoding.
type LocationCandidate struct {
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	State       string      `json:"state,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// Condition groups the condition code with its resolved icon.
type Condition struct {
	Code  int    `json:"code"`
	Icon  string `json:"icon"`
	IsDay bool   `json:"isDay"`
}

// Wind holds speed, gust and bearing in the requested unit system.
// Gust is zero when the provider did not report one.
type Wind struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"deg"`
	Gust      float64 `json:"gust,omitempty"`
}

// CurrentWeather is the normalized current-conditions snapshot.
// Every numeric field is populated; missing upstream values are defaulted.
type CurrentWeather struct {
	Coordinates Coordinates `json:"coordinates"`
	Timestamp   time.Time   `json:"timestamp"`
	Units       UnitSystem  `json:"units"`

	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	SeaLevel    float64 `json:"seaLevel"`
	GroundLevel float64 `json:"groundLevel"`
	Visibility  float64 `json:"visibility"`
	CloudCover  float64 `json:"cloudCover"`
	UVIndex     float64 `json:"uvIndex"`
	Wind        Wind    `json:"wind"`

	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`

	Condition Condition `json:"condition"`

	// TimezoneOffset is the location's offset from UTC in seconds.
	TimezoneOffset int `json:"timezoneOffset"`
}

// ForecastEntry is one hourly forecast sample.
type ForecastEntry struct {
	Timestamp time.Time `json:"timestamp"`

	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Visibility  float64 `json:"visibility"`
	CloudCover  float64 `json:"cloudCover"`
	UVIndex     float64 `json:"uvIndex"`
	Wind        Wind    `json:"wind"`

	// PrecipProbability is in [0,1].
	PrecipProbability float64 `json:"pop"`
	RainMM            float64 `json:"rainMm,omitempty"`
	SnowCM            float64 `json:"snowCm,omitempty"`

	Condition Condition `json:"condition"`
}

// Forecast holds hourly entries ordered by Timestamp ascending,
// one entry per upstream hourly sample.
type Forecast struct {
	Coordinates    Coordinates     `json:"coordinates"`
	Units          UnitSystem      `json:"units"`
	TimezoneOffset int             `json:"timezoneOffset"`
	Sunrise        time.Time       `json:"sunrise"`
	Sunset         time.Time       `json:"sunset"`
	Entries        []ForecastEntry `json:"entries"`
}

// DailySummary condenses one local calendar day of hourly entries.
type DailySummary struct {
	Date              time.Time `json:"date"`
	TempMin           float64   `json:"tempMin"`
	TempMax           float64   `json:"tempMax"`
	PrecipProbability float64   `json:"pop"`
	UVIndexMax        float64   `json:"uvIndexMax"`
	Condition         Condition `json:"condition"`
	Samples           int       `json:"samples"`
}

// Dashboard is the combined view for one location: both fetches succeeded.
type Dashboard struct {
	Current  CurrentWeather `json:"current"`
	Forecast Forecast       `json:"forecast"`
	Daily    []DailySummary `json:"daily"`
}

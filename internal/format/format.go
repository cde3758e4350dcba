// Package format turns raw weather values into display strings.
// Every function is pure and total over its inputs.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// MetersPerMile converts meters to miles.
const MetersPerMile = 0.000621371

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// round rounds halves toward positive infinity, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Temperature rounds to a whole degree and appends °C or °F.
func Temperature(t float64, units weather.UnitSystem) string {
	if units == weather.UnitsImperial {
		return fmt.Sprintf("%d°F", round(t))
	}
	return fmt.Sprintf("%d°C", round(t))
}

// WindSpeed rounds to a whole unit and appends m/s or mph.
func WindSpeed(speed float64, units weather.UnitSystem) string {
	if units == weather.UnitsImperial {
		return fmt.Sprintf("%d mph", round(speed))
	}
	return fmt.Sprintf("%d m/s", round(speed))
}

// Pressure formats hectopascals.
func Pressure(hpa float64) string {
	return fmt.Sprintf("%d hPa", round(hpa))
}

// Visibility takes meters. Metric values below 1000 are shown in meters, otherwise
// kilometers with one decimal; imperial values are always miles with one decimal.
func Visibility(meters float64, units weather.UnitSystem) string {
	if units == weather.UnitsImperial {
		return fmt.Sprintf("%.1f mi", meters*MetersPerMile)
	}
	m := round(meters)
	if m >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%d m", m)
}

// Humidity formats a relative humidity percentage.
func Humidity(pct float64) string {
	return fmt.Sprintf("%d%%", round(pct))
}

// Time renders HH:MM at the location, given its UTC offset in seconds.
func Time(ts time.Time, tzOffset int) string {
	return ts.UTC().Add(time.Duration(tzOffset) * time.Second).Format("15:04")
}

var (
	weekdays = map[weather.Language][7]string{
		weather.LangPT: {"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"},
		weather.LangEN: {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		weather.LangES: {"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"},
	}
	months = map[weather.Language][12]string{
		weather.LangPT: {"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
		weather.LangEN: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		weather.LangES: {"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"},
	}
)

// Date renders "Weekday, day Month" at the location, e.g. "Sun, 2 Jan".
// Unknown languages fall back to Portuguese names.
func Date(ts time.Time, tzOffset int, lang weather.Language) string {
	lang = weather.ParseLanguage(string(lang))
	t := ts.UTC().Add(time.Duration(tzOffset) * time.Second)
	return fmt.Sprintf("%s, %d %s", weekdays[lang][t.Weekday()], t.Day(), months[lang][t.Month()-1])
}

// WindDirection maps a bearing in degrees to one of 16 compass points.
// Bearings wrap, so 360 and -360 are both "N".
func WindDirection(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return compassPoints[0]
	}
	idx := round(math.Mod(degrees, 360)/22.5) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// UVLevel is one of the five UV index severity bands.
type UVLevel struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type uvBand struct {
	max   float64
	key   string
	label string
	color string
}

var uvBands = []uvBand{
	{2, "low", "Baixo", "text-green-500"},
	{5, "moderate", "Moderado", "text-yellow-500"},
	{7, "high", "Alto", "text-orange-500"},
	{10, "veryHigh", "Muito Alto", "text-red-500"},
	{math.Inf(1), "extreme", "Extremo", "text-purple-500"},
}

// UVIndexLevel buckets an index into its band: <=2, <=5, <=7, <=10, above.
// Labels come from t when it has them, otherwise Portuguese defaults.
func UVIndexLevel(uv float64, t weather.Translator) UVLevel {
	band := uvBands[len(uvBands)-1]
	for _, b := range uvBands {
		if uv <= b.max || math.IsNaN(uv) {
			band = b
			break
		}
	}

	label := band.label
	if t != nil {
		if l, ok := t.Lookup("uvIndex." + band.key); ok {
			label = l
		}
	}
	return UVLevel{Key: band.key, Label: label, Color: band.color}
}

// CapitalizeFirst upper-cases the first rune and leaves the rest untouched.
func CapitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Percent formats a [0,1] probability as a whole percentage.
func Percent(p float64) string {
	return fmt.Sprintf("%d%%", round(p*100))
}

// Join joins non-empty parts with ", ".
func Join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

package httpapi

import (
	"strings"

	"github.com/i474232898/weather-dashboard/internal/format"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// hourlySlots is how many upcoming forecast entries the view shows.
const hourlySlots = 8

// LocalePath rewrites the leading locale segment of path to lang, adding one
// when path has none. The query string is kept.
func LocalePath(path string, lang weather.Language) string {
	lang = weather.ParseLanguage(string(lang))

	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i:]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	rest := path
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if weather.Language(seg).Valid() {
		rest = strings.TrimPrefix(path, "/"+seg)
	}
	if rest == "/" {
		rest = ""
	}
	return "/" + string(lang) + rest + query
}

type currentView struct {
	Place       string         `json:"place,omitempty"`
	Description string         `json:"description"`
	IconURL     string         `json:"iconUrl"`
	Temperature string         `json:"temperature"`
	FeelsLike   string         `json:"feelsLike"`
	Range       string         `json:"range"`
	Humidity    string         `json:"humidity"`
	Pressure    string         `json:"pressure"`
	Visibility  string         `json:"visibility"`
	Wind        string         `json:"wind"`
	UVIndex     format.UVLevel `json:"uvIndex"`
	Sunrise     string         `json:"sunrise"`
	Sunset      string         `json:"sunset"`
	Date        string         `json:"date"`
}

type hourView struct {
	Time          string `json:"time"`
	Temperature   string `json:"temperature"`
	IconURL       string `json:"iconUrl"`
	Precipitation string `json:"precipitation"`
}

type dayView struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	IconURL       string `json:"iconUrl"`
	Max           string `json:"max"`
	Min           string `json:"min"`
	Precipitation string `json:"precipitation"`
}

type dashboardView struct {
	Language weather.Language   `json:"language"`
	Units    weather.UnitSystem `json:"units"`
	Current  currentView        `json:"current"`
	Hourly   []hourView         `json:"hourly"`
	Daily    []dayView          `json:"daily"`
}

// buildView renders a dashboard into display strings for lang.
func buildView(d weather.Dashboard, place string, lang weather.Language, t weather.Translator) dashboardView {
	cur := d.Current
	units := cur.Units
	tz := cur.TimezoneOffset

	v := dashboardView{
		Language: lang,
		Units:    units,
		Current: currentView{
			Place:       place,
			Description: format.CapitalizeFirst(weather.Description(cur.Condition.Code, t)),
			IconURL:     weather.IconURL(cur.Condition.Code, cur.Condition.IsDay),
			Temperature: format.Temperature(cur.Temperature, units),
			FeelsLike:   format.Temperature(cur.FeelsLike, units),
			Range:       format.Temperature(cur.TempMin, units) + " / " + format.Temperature(cur.TempMax, units),
			Humidity:    format.Humidity(cur.Humidity),
			Pressure:    format.Pressure(cur.Pressure),
			Visibility:  format.Visibility(cur.Visibility, units),
			Wind:        format.WindSpeed(cur.Wind.Speed, units) + " " + format.WindDirection(cur.Wind.Direction),
			UVIndex:     format.UVIndexLevel(cur.UVIndex, t),
			Sunrise:     format.Time(cur.Sunrise, tz),
			Sunset:      format.Time(cur.Sunset, tz),
			Date:        format.Date(cur.Timestamp, tz, lang),
		},
		Hourly: make([]hourView, 0, hourlySlots),
		Daily:  make([]dayView, 0, len(d.Daily)),
	}

	for i, e := range d.Forecast.Entries {
		if i == hourlySlots {
			break
		}
		v.Hourly = append(v.Hourly, hourView{
			Time:          format.Time(e.Timestamp, d.Forecast.TimezoneOffset),
			Temperature:   format.Temperature(e.Temperature, d.Forecast.Units),
			IconURL:       weather.IconURL(e.Condition.Code, e.Condition.IsDay),
			Precipitation: format.Percent(e.PrecipProbability),
		})
	}

	for _, day := range d.Daily {
		v.Daily = append(v.Daily, dayView{
			Date:          format.Date(day.Date, d.Forecast.TimezoneOffset, lang),
			Description:   format.CapitalizeFirst(weather.Description(day.Condition.Code, t)),
			IconURL:       weather.IconURL(day.Condition.Code, true),
			Max:           format.Temperature(day.TempMax, d.Forecast.Units),
			Min:           format.Temperature(day.TempMin, d.Forecast.Units),
			Precipitation: format.Percent(day.PrecipProbability),
		})
	}

	return v
}

// placeName joins the parts of a candidate for display, e.g. "Lisbon, Lisboa, PT".
func placeName(c weather.LocationCandidate) string {
	return format.Join(c.Name, c.State, c.Country)
}

package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// coordinatesQuery holds the lat/lon query parameters.
type coordinatesQuery struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

func (q coordinatesQuery) coordinates() weather.Coordinates {
	return weather.Coordinates{Lat: *q.Lat, Lon: *q.Lon}
}

// weatherQuery adds display options; empty values fall back to the stored settings.
type weatherQuery struct {
	coordinatesQuery
	Units string `validate:"omitempty,oneof=metric imperial"`
	Lang  string
}

type searchQuery struct {
	Q     string
	Limit int `validate:"gte=0,lte=100"`
	Lang  string
}

type settingsUpdate struct {
	Units    *string `json:"units" validate:"omitempty,oneof=metric imperial"`
	Language *string `json:"language"`

	// Path is the page the client is on; it is rewritten for the new language.
	Path string `json:"path"`
}

// searchInput is the body of a search box query.
type searchInput struct {
	Query string `json:"query"`
}

// queryParam copies the value out of the request buffer, which fasthttp reuses
// once the handler returns. Parsed values end up in cached records.
func queryParam(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Query(name))
}

func parseFloatParam(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

func parseCoordinatesQuery(c *fiber.Ctx) (coordinatesQuery, error) {
	var (
		q   coordinatesQuery
		err error
	)
	if q.Lat, err = parseFloatParam(c, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = parseFloatParam(c, "lon"); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func parseWeatherQuery(c *fiber.Ctx) (weatherQuery, error) {
	coords, err := parseCoordinatesQuery(c)
	if err != nil {
		return weatherQuery{}, err
	}
	q := weatherQuery{
		coordinatesQuery: coords,
		Units:            strings.ToLower(queryParam(c, "units")),
		Lang:             queryParam(c, "lang"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// display resolves units and language against the current settings.
func (q weatherQuery) display(current settings.Settings) (weather.UnitSystem, weather.Language) {
	units := current.Units
	if q.Units != "" {
		units = weather.UnitSystem(q.Units)
	}
	return units, resolveLanguage(q.Lang, current)
}

func resolveLanguage(raw string, current settings.Settings) weather.Language {
	if raw == "" {
		return current.Language
	}
	return weather.ParseLanguage(raw)
}

func parseSearchQuery(c *fiber.Ctx) (searchQuery, error) {
	q := searchQuery{
		Q:    queryParam(c, "q"),
		Lang: queryParam(c, "lang"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

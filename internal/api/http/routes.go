package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/geolocation"
	"github.com/i474232898/weather-dashboard/internal/i18n"
	"github.com/i474232898/weather-dashboard/internal/search"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Deps are the components served over HTTP.
type Deps struct {
	Service  *weather.Service
	Settings *settings.Manager
	Locator  *geolocation.Resolver
	// Search is the dashboard's search box; selecting a city hands it to the
	// session's onSelect callback.
	Search   *search.Session
	I18n     *i18n.Bundle
	Log      *zap.Logger
}

type handlers struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.I18n == nil {
		d.I18n = i18n.New(nil)
	}
	h := &handlers{Deps: d}

	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", h.current)
	v1.Get("/weather/forecast", h.forecast)
	v1.Get("/weather/dashboard", h.dashboard)
	v1.Post("/weather/refresh", h.refresh)
	v1.Get("/weather/icon", h.icon)
	v1.Get("/weather/description", h.description)

	v1.Get("/cities/search", h.searchCities)
	v1.Get("/cities/reverse", h.reverseCity)
	v1.Post("/cities/select", h.selectCity)

	v1.Get("/search", h.searchView)
	v1.Post("/search", h.typeQuery)

	v1.Get("/settings", h.getSettings)
	v1.Put("/settings", h.putSettings)

	v1.Get("/location", h.location)
	v1.Post("/location/locate", h.locate)

	app.Get("/:lang/view", h.view)
}

func (h *handlers) prefs() settings.Settings {
	if h.Settings == nil {
		return settings.Settings{Units: weather.UnitsMetric, Language: weather.DefaultLanguage}
	}
	return h.Settings.Get()
}

func (h *handlers) current(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return badRequest(err)
	}
	units, lang := q.display(h.prefs())

	cw, err := h.Service.GetCurrentWeather(c.UserContext(), q.coordinates(), units, lang)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"weather":     cw,
		"description": weather.Description(cw.Condition.Code, h.I18n.For(lang)),
		"iconUrl":     weather.IconURL(cw.Condition.Code, cw.Condition.IsDay),
	})
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return badRequest(err)
	}
	units, lang := q.display(h.prefs())

	f, err := h.Service.GetForecast(c.UserContext(), q.coordinates(), units, lang)
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return badRequest(err)
	}
	units, lang := q.display(h.prefs())

	d, err := h.Service.GetDashboard(c.UserContext(), q.coordinates(), units, lang)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// refresh is the explicit retry action: cached weather is dropped and refetched.
func (h *handlers) refresh(c *fiber.Ctx) error {
	q, err := parseWeatherQuery(c)
	if err != nil {
		return badRequest(err)
	}
	units, lang := q.display(h.prefs())

	d, err := h.Service.Refresh(c.UserContext(), q.coordinates(), units, lang)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *handlers) icon(c *fiber.Ctx) error {
	code, err := strconv.Atoi(c.Query("code"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "code must be an integer")
	}
	isDay := true
	if raw := c.Query("day"); raw != "" {
		if isDay, err = strconv.ParseBool(raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "day must be a boolean")
		}
	}
	return c.JSON(fiber.Map{
		"code":  code,
		"icon":  weather.Icon(code, isDay),
		"url":   weather.IconURL(code, isDay),
		"known": weather.KnownCode(code),
	})
}

// description never fails: unknown or malformed codes get the unknown-condition text.
func (h *handlers) description(c *fiber.Ctx) error {
	lang := resolveLanguage(queryParam(c, "lang"), h.prefs())
	return c.JSON(fiber.Map{
		"description": weather.DescriptionString(c.Query("code"), h.I18n.For(lang)),
		"language":    lang,
	})
}

func (h *handlers) searchCities(c *fiber.Ctx) error {
	q, err := parseSearchQuery(c)
	if err != nil {
		return badRequest(err)
	}
	lang := resolveLanguage(q.Lang, h.prefs())

	results, err := h.Service.SearchCities(c.UserContext(), q.Q, q.Limit, lang)
	if err != nil {
		return err
	}
	return c.JSON(results)
}

func (h *handlers) reverseCity(c *fiber.Ctx) error {
	q, err := parseCoordinatesQuery(c)
	if err != nil {
		return badRequest(err)
	}
	lang := resolveLanguage(queryParam(c, "lang"), h.prefs())

	results, err := h.Service.GetCityByCoords(c.UserContext(), q.coordinates(), lang)
	if err != nil {
		return err
	}
	return c.JSON(results)
}

func (h *handlers) searchView(c *fiber.Ctx) error {
	if h.Search == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "search is not available")
	}
	return c.JSON(h.Search.View())
}

// typeQuery records what the user typed. Lookup failures are part of the
// returned view, not an HTTP error.
func (h *handlers) typeQuery(c *fiber.Ctx) error {
	if h.Search == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "search is not available")
	}
	var in searchInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return c.JSON(h.Search.Query(c.UserContext(), in.Query))
}

func (h *handlers) selectCity(c *fiber.Ctx) error {
	if h.Search == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "search is not available")
	}
	var city weather.LocationCandidate
	if err := c.BodyParser(&city); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := city.Coordinates.Validate(); err != nil {
		return badRequest(err)
	}

	resp := fiber.Map{"search": h.Search.Select(city)}
	if h.Locator != nil {
		resp["location"] = h.locationResponse(h.Locator.Snapshot())
	}
	return c.JSON(resp)
}

func (h *handlers) getSettings(c *fiber.Ctx) error {
	return c.JSON(h.prefs())
}

func (h *handlers) putSettings(c *fiber.Ctx) error {
	if h.Settings == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "settings are not available")
	}

	var req settingsUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(err)
	}

	before := h.Settings.Get()
	after := before
	var err error
	if req.Units != nil {
		if after, err = h.Settings.SetUnits(c.UserContext(), weather.UnitSystem(*req.Units)); err != nil {
			return err
		}
	}
	if req.Language != nil {
		if after, err = h.Settings.SetLanguage(c.UserContext(), weather.Language(*req.Language)); err != nil {
			return err
		}
	}

	resp := fiber.Map{"settings": after}
	if after.Language != before.Language && req.Path != "" {
		resp["redirect"] = LocalePath(req.Path, after.Language)
	}
	return c.JSON(resp)
}

type locationResponse struct {
	geolocation.Snapshot
	Message string `json:"message,omitempty"`
}

func (h *handlers) locationResponse(s geolocation.Snapshot) locationResponse {
	resp := locationResponse{Snapshot: s}
	if s.Error != nil {
		lang := h.prefs().Language
		resp.Message = h.I18n.Text(lang, s.Error.MessageKey(), s.Error.Message)
	}
	return resp
}

func (h *handlers) location(c *fiber.Ctx) error {
	if h.Locator == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "geolocation is not available")
	}
	return c.JSON(h.locationResponse(h.Locator.Snapshot()))
}

func (h *handlers) locate(c *fiber.Ctx) error {
	if h.Locator == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "geolocation is not available")
	}
	return c.JSON(h.locationResponse(h.Locator.Locate(c.UserContext())))
}

// view renders the localized dashboard. Unsupported locales are redirected to the default one.
func (h *handlers) view(c *fiber.Ctx) error {
	lang := weather.Language(utils.CopyString(c.Params("lang")))
	if !lang.Valid() {
		return c.Redirect(LocalePath("/view"+queryString(c), weather.DefaultLanguage), fiber.StatusPermanentRedirect)
	}

	q, err := parseWeatherQuery(c)
	if err != nil {
		return badRequest(err)
	}
	units, _ := q.display(h.prefs())
	coords := q.coordinates()

	d, err := h.Service.GetDashboard(c.UserContext(), coords, units, lang)
	if err != nil {
		return err
	}

	// The place name is decorative; the forecast is served without it.
	place := ""
	if candidates, err := h.Service.GetCityByCoords(c.UserContext(), coords, lang); err != nil {
		h.Log.Warn("reverse geocoding for view failed", zap.Error(err))
	} else if len(candidates) > 0 {
		place = placeName(candidates[0])
	}

	return c.JSON(buildView(d, place, lang, h.I18n.For(lang)))
}

func queryString(c *fiber.Ctx) string {
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		return "?" + qs
	}
	return ""
}

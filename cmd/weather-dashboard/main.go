package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/geolocation"
	"github.com/i474232898/weather-dashboard/internal/i18n"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/search"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logg.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logg *zap.Logger) error {
	rec := metrics.NewRecorder()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	source := providers.NewOpenMeteoProvider(providers.ClientConfig{
		Client:   httpClient,
		BaseURL:  cfg.OpenMeteoURL,
		Recorder: rec,
	}, cfg.ForecastDays)
	geocoder := providers.NewGeocodingProvider(providers.ClientConfig{
		Client:   httpClient,
		BaseURL:  cfg.GeocodingURL,
		Recorder: rec,
	})
	reverse := providers.NewNominatimProvider(providers.ClientConfig{
		Client:    httpClient,
		BaseURL:   cfg.NominatimURL,
		UserAgent: cfg.NominatimUserAgent,
		RPS:       cfg.NominatimRPS,
		Recorder:  rec,
	})

	cache := store.NewQueryCache(store.Options{
		Windows:       cfg.Windows(),
		DefaultWindow: cfg.CacheTTLCurrent,
		Retries:       1,
		RetryDelay:    time.Second,
		Recorder:      rec,
		Logger:        logg.Named("cache"),
	})

	service := weather.NewService(source, geocoder, reverse, cache, logg.Named("weather"))

	bundle, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	prefStore, err := openPreferences(cfg)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	defer prefStore.Close()

	prefs, err := settings.NewManager(ctx, prefStore, settings.Settings{
		Units:    cfg.DefaultUnits,
		Language: cfg.DefaultLanguage,
	}, logg.Named("settings"))
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	locator := geolocation.NewResolver(geolocation.StaticSource{Coordinates: cfg.DeviceLocation}, geolocation.Options{
		HighAccuracy: true,
		Timeout:      cfg.GeolocationTimeout,
		MaxAge:       cfg.GeolocationMaxAge,
	}, logg.Named("geolocation"))
	go locator.Start(ctx)

	// A city picked in the search box becomes the dashboard location and its
	// weather is fetched ahead of the next view.
	finder := search.NewSession(service, prefs.Get().Language, weather.DefaultSearchLimit, func(city weather.LocationCandidate) {
		if _, err := locator.Use(city.Coordinates); err != nil {
			logg.Warn("ignoring selected city", zap.String("name", city.Name), zap.Error(err))
			return
		}
		go func() {
			p := prefs.Get()
			fetchCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
			defer cancel()
			if _, err := service.GetDashboard(fetchCtx, city.Coordinates, p.Units, p.Language); err != nil {
				logg.Warn("prefetching selected city failed", zap.String("name", city.Name), zap.Error(err))
			}
		}()
	}, logg.Named("search"))

	// Scheduler that purges the cache and keeps configured locations warm.
	sched := scheduler.New(scheduler.Config{
		PurgeInterval: cfg.CachePurgeInterval,
		FetchInterval: cfg.FetchInterval,
		Locations:     cfg.PrewarmLocations,
	}, cache, service, prefs, logg.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Prewarm again with the new preferences whenever they change.
	updates, unsubscribe := prefs.Subscribe()
	defer unsubscribe()
	go func() {
		for s := range updates {
			logg.Info("preferences changed", zap.String("units", string(s.Units)), zap.String("language", string(s.Language)))
			finder.SetLanguage(s.Language)
			if len(cfg.PrewarmLocations) > 0 {
				sched.Prewarm()
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(logg),
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(rec.Handler()))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:  service,
		Settings: prefs,
		Locator:  locator,
		Search:   finder,
		I18n:     bundle,
		Log:      logg.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		logg.Info("listening", zap.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error("error during shutdown", zap.Error(err))
	}
	return nil
}

func openPreferences(cfg *config.AppConfig) (settings.Store, error) {
	if cfg.PrefsBackend == "sqlite" {
		return settings.NewSQLiteStore(cfg.PrefsPath)
	}
	return settings.NewFileStore(cfg.PrefsPath), nil
}

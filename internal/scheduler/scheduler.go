package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Purger drops stale cache entries.
type Purger interface {
	Purge() int
}

// Dashboards loads the combined weather view of a location.
type Dashboards interface {
	GetDashboard(ctx context.Context, c weather.Coordinates, units weather.UnitSystem, lang weather.Language) (weather.Dashboard, error)
}

// Preferences supplies the units and language used for prewarming.
type Preferences interface {
	Get() settings.Settings
}

// Config holds the job intervals.
type Config struct {
	PurgeInterval time.Duration
	FetchInterval time.Duration
	Locations     []weather.Coordinates
	// FetchTimeout bounds one prewarm fetch.
	FetchTimeout time.Duration
}

// Scheduler runs the cache purge and keeps configured locations warm in the cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	cache     Purger
	service   Dashboards
	prefs     Preferences
	log       *zap.Logger
}

// New creates a new Scheduler.
func New(cfg Config, cache Purger, service Dashboards, prefs Preferences, log *zap.Logger) *Scheduler {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cfg:       cfg,
		cache:     cache,
		service:   service,
		prefs:     prefs,
		log:       log,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.cache != nil && s.cfg.PurgeInterval > 0 {
		if _, err := s.scheduler.Every(s.cfg.PurgeInterval).Do(s.Purge); err != nil {
			return err
		}
	}

	if len(s.cfg.Locations) == 0 || s.service == nil {
		s.log.Info("scheduler: no prewarm locations configured")
	} else {
		interval := s.cfg.FetchInterval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		if _, err := s.scheduler.Every(interval).Do(s.Prewarm); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Purge removes stale cache entries.
func (s *Scheduler) Purge() {
	if n := s.cache.Purge(); n > 0 {
		s.log.Debug("scheduler: purged stale cache entries", zap.Int("count", n))
	}
}

// Prewarm fetches the dashboard of every configured location with the current preferences.
func (s *Scheduler) Prewarm() {
	units, lang := weather.UnitsMetric, weather.DefaultLanguage
	if s.prefs != nil {
		p := s.prefs.Get()
		units, lang = p.Units, p.Language
	}

	s.log.Info("scheduler: running prewarm job", zap.Int("locations", len(s.cfg.Locations)))

	var wg sync.WaitGroup
	for _, loc := range s.cfg.Locations {
		wg.Add(1)
		go func(loc weather.Coordinates) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
			defer cancel()

			if _, err := s.service.GetDashboard(ctx, loc, units, lang); err != nil {
				s.log.Warn("scheduler: prewarm failed", zap.String("coords", loc.Key()), zap.Error(err))
			}
		}(loc)
	}
	wg.Wait()
	s.log.Info("scheduler: completed prewarm job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

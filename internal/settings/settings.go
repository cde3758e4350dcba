// Package settings owns the user's display preferences (unit system and language).
//
// Manager is the single writer; consumers read snapshots with Get or follow
// changes through Subscribe.
package settings

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Settings is an immutable snapshot of the preferences.
type Settings struct {
	Units    weather.UnitSystem `json:"units"`
	Language weather.Language   `json:"language"`
}

// Manager holds the current settings, persists changes and notifies subscribers.
type Manager struct {
	mu      sync.RWMutex
	current Settings
	store   Store
	subs    map[int]chan Settings
	nextSub int
	log     *zap.Logger
}

// NewManager loads persisted preferences over defaults. Invalid stored units are
// ignored and invalid stored languages are coerced.
func NewManager(ctx context.Context, store Store, defaults Settings, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !defaults.Units.Valid() {
		defaults.Units = weather.UnitsMetric
	}
	defaults.Language = weather.ParseLanguage(string(defaults.Language))

	m := &Manager{
		current: defaults,
		store:   store,
		subs:    make(map[int]chan Settings),
		log:     log,
	}
	if store == nil {
		return m, nil
	}

	if v, ok, err := store.Get(ctx, KeyUnits); err != nil {
		return nil, err
	} else if ok {
		if u, err := weather.ParseUnits(v); err == nil {
			m.current.Units = u
		} else {
			log.Warn("ignoring stored unit system", zap.String("value", v))
		}
	}
	if v, ok, err := store.Get(ctx, KeyLanguage); err != nil {
		return nil, err
	} else if ok {
		m.current.Language = weather.ParseLanguage(v)
	}

	return m, nil
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetUnits validates, persists and publishes a unit system change.
func (m *Manager) SetUnits(ctx context.Context, units weather.UnitSystem) (Settings, error) {
	if !units.Valid() {
		_, err := weather.ParseUnits(string(units))
		return m.Get(), err
	}
	return m.update(ctx, KeyUnits, string(units), func(s *Settings) { s.Units = units })
}

// SetLanguage persists and publishes a language change. Unknown codes are coerced to the default.
func (m *Manager) SetLanguage(ctx context.Context, lang weather.Language) (Settings, error) {
	lang = weather.ParseLanguage(string(lang))
	return m.update(ctx, KeyLanguage, string(lang), func(s *Settings) { s.Language = lang })
}

func (m *Manager) update(ctx context.Context, key, value string, apply func(*Settings)) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	apply(&next)
	if next == m.current {
		return next, nil
	}

	if m.store != nil {
		if err := m.store.Set(ctx, key, value); err != nil {
			return m.current, err
		}
	}
	m.current = next
	m.log.Info("settings updated", zap.String("key", key), zap.String("value", value))

	for _, ch := range m.subs {
		publish(ch, next)
	}
	return next, nil
}

// publish replaces any undelivered snapshot so subscribers always see the latest.
func publish(ch chan Settings, s Settings) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Subscribe returns a channel that receives each new settings snapshot and a
// function that ends the subscription and closes the channel.
func (m *Manager) Subscribe() (<-chan Settings, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Settings, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var defaults = Settings{Units: weather.UnitsMetric, Language: weather.LangPT}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s := NewFileStore(path)

	_, ok, err := s.Get(ctx, KeyUnits)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyUnits, "imperial"))
	require.NoError(t, s.Set(ctx, KeyLanguage, "es"))

	reopened := NewFileStore(path)
	v, ok, err := reopened.Get(ctx, KeyUnits)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "imperial", v)
	require.NoError(t, reopened.Close())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyLanguage, "en"))
	require.NoError(t, s.Set(ctx, KeyLanguage, "es"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, KeyLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "es", v)
}

func TestManagerLoadsPersistedValues(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, store.Set(ctx, KeyUnits, "imperial"))
	require.NoError(t, store.Set(ctx, KeyLanguage, "klingon"))

	m, err := NewManager(ctx, store, defaults, nil)
	require.NoError(t, err)
	assert.Equal(t, Settings{Units: weather.UnitsImperial, Language: weather.LangPT}, m.Get())

	require.NoError(t, store.Set(ctx, KeyUnits, "kelvin"))
	m, err = NewManager(ctx, store, defaults, nil)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsMetric, m.Get().Units)
}

func TestManagerUpdatesPersistAndPublish(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	m, err := NewManager(ctx, NewFileStore(path), defaults, nil)
	require.NoError(t, err)

	updates, cancel := m.Subscribe()
	defer cancel()

	got, err := m.SetUnits(ctx, weather.UnitsImperial)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsImperial, got.Units)

	select {
	case s := <-updates:
		assert.Equal(t, weather.UnitsImperial, s.Units)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}

	_, err = m.SetUnits(ctx, weather.UnitSystem("kelvin"))
	assert.True(t, errors.Is(err, weather.ErrInvalidUnits))

	got, err = m.SetLanguage(ctx, weather.Language("fr"))
	require.NoError(t, err)
	assert.Equal(t, weather.LangPT, got.Language)
	select {
	case s := <-updates:
		t.Fatalf("unexpected update for unchanged settings: %+v", s)
	default:
	}

	reloaded, err := NewManager(ctx, NewFileStore(path), defaults, nil)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsImperial, reloaded.Get().Units)
}

func TestSubscribeKeepsLatest(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, nil, defaults, nil)
	require.NoError(t, err)

	updates, cancel := m.Subscribe()

	_, err = m.SetLanguage(ctx, weather.LangEN)
	require.NoError(t, err)
	_, err = m.SetLanguage(ctx, weather.LangES)
	require.NoError(t, err)

	s := <-updates
	assert.Equal(t, weather.LangES, s.Language)

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)

	// Updates after unsubscribing do not block.
	_, err = m.SetUnits(ctx, weather.UnitsImperial)
	require.NoError(t, err)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }
func (failingStore) Close() error { return nil }

func TestManagerKeepsStateWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, failingStore{}, defaults, nil)
	require.NoError(t, err)

	_, err = m.SetUnits(ctx, weather.UnitsImperial)
	assert.Error(t, err)
	assert.Equal(t, defaults, m.Get())
}

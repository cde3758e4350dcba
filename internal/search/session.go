// Package search implements the city search box: querying with last-write-wins
// results and candidate selection.
package search

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Searcher resolves a free-text query to candidates.
type Searcher interface {
	SearchCities(ctx context.Context, query string, limit int, lang weather.Language) ([]weather.LocationCandidate, error)
}

// View is the state rendered by the search box.
type View struct {
	Query   string                      `json:"query"`
	Results []weather.LocationCandidate `json:"results"`
	Open    bool                        `json:"open"`
	Loading bool                        `json:"loading"`
	Err     string                      `json:"error,omitempty"`
}

// Session is one search box. Results of a query that was superseded by a newer
// one are discarded.
type Session struct {
	mu       sync.Mutex
	searcher Searcher
	lang     weather.Language
	limit    int

	query   string
	results []weather.LocationCandidate
	open    bool
	loading bool
	err     error
	gen     uint64

	onSelect func(weather.LocationCandidate)
	log      *zap.Logger
}

// NewSession creates an empty session. onSelect receives the chosen candidate.
func NewSession(searcher Searcher, lang weather.Language, limit int, onSelect func(weather.LocationCandidate), log *zap.Logger) *Session {
	if limit <= 0 {
		limit = weather.DefaultSearchLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		searcher: searcher,
		lang:     weather.ParseLanguage(string(lang)),
		limit:    limit,
		results:  []weather.LocationCandidate{},
		onSelect: onSelect,
		log:      log,
	}
}

// SetLanguage changes the language of subsequent queries.
func (s *Session) SetLanguage(lang weather.Language) {
	s.mu.Lock()
	s.lang = weather.ParseLanguage(string(lang))
	s.mu.Unlock()
}

// Query records q and, when it is long enough, fetches candidates. Shorter
// queries clear and close the result list without a lookup.
func (s *Session) Query(ctx context.Context, q string) View {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.query = q
	s.err = nil

	trimmed := strings.TrimSpace(q)
	if utf8.RuneCountInString(trimmed) < weather.MinQueryLength {
		s.results = []weather.LocationCandidate{}
		s.open = false
		s.loading = false
		v := s.viewLocked()
		s.mu.Unlock()
		return v
	}
	s.loading = true
	lang, limit := s.lang, s.limit
	s.mu.Unlock()

	results, err := s.searcher.SearchCities(ctx, trimmed, limit, lang)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("discarding superseded search results", zap.String("query", trimmed))
		return s.viewLocked()
	}
	s.loading = false
	if err != nil {
		s.log.Warn("city search failed", zap.String("query", trimmed), zap.Error(err))
		s.err = err
		s.results = []weather.LocationCandidate{}
		s.open = false
		return s.viewLocked()
	}
	if results == nil {
		results = []weather.LocationCandidate{}
	}
	s.results = results
	s.open = len(results) > 0
	return s.viewLocked()
}

// Select clears the query, closes the list and hands the candidate to onSelect.
// Any query still in flight is superseded.
func (s *Session) Select(c weather.LocationCandidate) View {
	s.mu.Lock()
	s.gen++
	s.query = ""
	s.results = []weather.LocationCandidate{}
	s.open = false
	s.loading = false
	s.err = nil
	v := s.viewLocked()
	cb := s.onSelect
	s.mu.Unlock()

	if cb != nil {
		cb(c)
	}
	return v
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Query:   s.query,
		Results: append([]weather.LocationCandidate(nil), s.results...),
		Open:    s.open,
		Loading: s.loading,
	}
	if v.Results == nil {
		v.Results = []weather.LocationCandidate{}
	}
	if s.err != nil {
		v.Err = s.err.Error()
	}
	return v
}

// Package i18n holds the translation tables for the supported languages.
//
// Lookups report presence explicitly: a translation that happens to equal its
// key is still a hit.
package i18n

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Table is the flat key/value translation table of one language.
type Table map[string]string

// Lookup implements weather.Translator.
func (t Table) Lookup(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Bundle holds one Table per supported language.
type Bundle struct {
	tables map[weather.Language]Table
}

// Load parses the embedded locale files.
func Load() (*Bundle, error) {
	b := &Bundle{tables: make(map[weather.Language]Table, len(weather.Languages))}
	for _, lang := range weather.Languages {
		data, err := localeFS.ReadFile("locales/" + string(lang) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		table, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}
		b.tables[lang] = table
	}
	return b, nil
}

// Parse decodes a flat YAML mapping of keys to translated strings.
func Parse(data []byte) (Table, error) {
	t := Table{}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// New builds a Bundle from in-memory tables.
func New(tables map[weather.Language]Table) *Bundle {
	return &Bundle{tables: tables}
}

// For returns the table of lang; unsupported languages get the default language's table.
func (b *Bundle) For(lang weather.Language) Table {
	if t, ok := b.tables[lang]; ok {
		return t
	}
	return b.tables[weather.DefaultLanguage]
}

// Lookup reports the translation of key in lang and whether it exists.
func (b *Bundle) Lookup(lang weather.Language, key string) (string, bool) {
	return b.For(lang).Lookup(key)
}

// Text returns the translation of key in lang, or def when it is missing.
func (b *Bundle) Text(lang weather.Language, key, def string) string {
	if v, ok := b.Lookup(lang, key); ok {
		return v
	}
	return def
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ZaguanLabs/langsys"
)

// StaticSource serves fixed translation maps, for offline use. A locale
// without a map of its own gets Fallback.
type StaticSource struct {
	Maps     map[string]langsys.TranslationMap
	Fallback langsys.TranslationMap
}

var _ langsys.TranslationSource = (*StaticSource)(nil)

// LoadStaticSource reads one TranslationMap JSON file, served for every locale.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translation map: %w", err)
	}
	var m langsys.TranslationMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding translation map %s: %w", path, err)
	}
	return &StaticSource{Fallback: m}, nil
}

// Fetch returns the map of locale.
func (s *StaticSource) Fetch(_ context.Context, locale string) (langsys.TranslationMap, error) {
	if m, ok := s.Maps[langsys.NormalizeLocale(locale)]; ok {
		return m, nil
	}
	if s.Fallback == nil {
		return langsys.TranslationMap{}, nil
	}
	return s.Fallback, nil
}

// Invalidate does nothing.
func (s *StaticSource) Invalidate(context.Context, string) error {
	return nil
}

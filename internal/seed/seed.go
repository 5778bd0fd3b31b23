// Package seed loads conflicts and sources from a sources.yml file into the store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/conflict-radar/backend/internal/logger"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

const defaultZoom = 5

// File is the sources.yml document.
type File struct {
	Conflicts []Conflict               `yaml:"conflicts"`
	Sources   map[string][]SourceEntry `yaml:"sources"`
}

// Conflict is one conflicts entry.
type Conflict struct {
	Name              string   `yaml:"name"`
	ShortCode         string   `yaml:"short_code"`
	InvolvedCountries []string `yaml:"involved_countries"`
	MapCenterLat      *float64 `yaml:"map_center_lat"`
	MapCenterLon      *float64 `yaml:"map_center_lon"`
	MapZoomLevel      *int     `yaml:"map_zoom_level"`
}

// SourceEntry is one source under a platform key.
type SourceEntry struct {
	Identifier      string   `yaml:"identifier"`
	DisplayName     string   `yaml:"display_name"`
	DefaultConflict string   `yaml:"default_conflict"`
	ReliabilityTier string   `yaml:"reliability_tier"`
	GeoWeight       *float64 `yaml:"geo_weight"`
	DomWeight       *float64 `yaml:"dom_weight"`
}

// Store is the write side seeding needs.
type Store interface {
	UpsertConflict(ctx context.Context, c models.Conflict) (int64, error)
	UpsertSource(ctx context.Context, src models.Source) (int64, error)
	ActiveConflicts(ctx context.Context) (map[string]int64, error)
}

// Summary reports what Apply wrote.
type Summary struct {
	Conflicts int
	Sources   int
}

// LoadFile reads and validates a sources file.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a sources document.
func Parse(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) validate() error {
	codes := make(map[string]bool, len(f.Conflicts))
	for i, c := range f.Conflicts {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.ShortCode) == "" {
			return fmt.Errorf("conflict #%d: name and short_code are required", i+1)
		}
		if codes[c.ShortCode] {
			return fmt.Errorf("conflict %q declared twice", c.ShortCode)
		}
		codes[c.ShortCode] = true
	}
	for platform, entries := range f.Sources {
		for i, s := range entries {
			if strings.TrimSpace(s.Identifier) == "" {
				return fmt.Errorf("source %s #%d: identifier is required", platform, i+1)
			}
		}
	}
	return nil
}

// Apply upserts every conflict, then every source. Running it twice leaves
// the store unchanged. A default_conflict that names no known conflict is
// logged and stored as no default.
func Apply(ctx context.Context, st Store, f *File, log *slog.Logger) (Summary, error) {
	log = logger.OrDiscard(log)
	var sum Summary

	ids := make(map[string]int64, len(f.Conflicts))
	for _, c := range f.Conflicts {
		zoom := defaultZoom
		if c.MapZoomLevel != nil {
			zoom = *c.MapZoomLevel
		}
		id, err := st.UpsertConflict(ctx, models.Conflict{
			Name:              c.Name,
			ShortCode:         c.ShortCode,
			InvolvedCountries: c.InvolvedCountries,
			MapCenterLat:      c.MapCenterLat,
			MapCenterLon:      c.MapCenterLon,
			MapZoomLevel:      zoom,
		})
		if err != nil {
			return sum, fmt.Errorf("upsert conflict %s: %w", c.ShortCode, err)
		}
		ids[c.ShortCode] = id
		sum.Conflicts++
		log.Info("conflict upserted", slog.String("conflict", c.ShortCode), slog.Int64("id", id))
	}

	// Sources may point at conflicts seeded by an earlier file.
	active, err := st.ActiveConflicts(ctx)
	if err != nil {
		return sum, fmt.Errorf("load conflicts: %w", err)
	}
	known := make(map[string]int64, len(active)+len(ids))
	maps.Copy(known, active)
	maps.Copy(known, ids)

	platforms := make([]string, 0, len(f.Sources))
	for p := range f.Sources {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		for _, s := range f.Sources[platform] {
			src := models.Source{
				Platform:        platform,
				Identifier:      s.Identifier,
				DisplayName:     s.DisplayName,
				ReliabilityTier: s.ReliabilityTier,
			}
			if s.DefaultConflict != "" {
				if id, ok := known[s.DefaultConflict]; ok {
					src.DefaultConflictID = &id
				} else {
					log.Warn("unknown default conflict", slog.String("source", s.Identifier), slog.String("conflict", s.DefaultConflict))
				}
			}
			if s.GeoWeight != nil || s.DomWeight != nil {
				src.FilterRules = &models.FilterRules{GeoWeight: s.GeoWeight, DomWeight: s.DomWeight}
			}

			id, err := st.UpsertSource(ctx, src)
			if err != nil {
				return sum, fmt.Errorf("upsert source %s/%s: %w", platform, s.Identifier, err)
			}
			sum.Sources++
			log.Info("source upserted", slog.String("platform", platform), slog.String("source", s.Identifier), slog.Int64("id", id))
		}
	}

	return sum, nil
}

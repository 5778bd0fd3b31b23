package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

// GetGeocode returns the cached result for key, or (nil, nil) on a miss.
func (s *Store) GetGeocode(ctx context.Context, key string) (*models.GeoResult, error) {
	var r models.GeoResult
	err := s.db.QueryRowContext(ctx, `
		SELECT place_name, lat, lon, display_name, confidence
		FROM geocode_cache WHERE cache_key = ?
	`, key).Scan(&r.Name, &r.Lat, &r.Lon, &r.DisplayName, &r.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading geocode cache: %w", err)
	}
	return &r, nil
}

// PutGeocode stores a resolved place unless key is already present.
func (s *Store) PutGeocode(ctx context.Context, key string, r models.GeoResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (cache_key, place_name, lat, lon, display_name, confidence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO NOTHING
	`, key, r.Name, r.Lat, r.Lon, r.DisplayName, r.Confidence)
	if err != nil {
		return fmt.Errorf("writing geocode cache: %w", err)
	}
	return nil
}

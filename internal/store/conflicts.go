package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

// ActiveConflicts returns the short code → id mapping of active conflicts.
func (s *Store) ActiveConflicts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, short_code FROM conflicts WHERE is_active = 1")
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			code string
		)
		if err := rows.Scan(&id, &code); err != nil {
			return nil, fmt.Errorf("scanning conflict: %w", err)
		}
		out[code] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}
	return out, nil
}

// Conflicts returns every conflict ordered by short code.
func (s *Store) Conflicts(ctx context.Context) ([]models.Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, short_code, involved_countries, map_center_lat, map_center_lon, map_zoom_level, is_active
		FROM conflicts ORDER BY short_code
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	var out []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}
	return out, nil
}

// ConflictByCode returns one conflict by short code.
func (s *Store) ConflictByCode(ctx context.Context, code string) (*models.Conflict, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, short_code, involved_countries, map_center_lat, map_center_lon, map_zoom_level, is_active
		FROM conflicts WHERE short_code = ?
	`, code)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*models.Conflict, error) {
	var (
		c         models.Conflict
		countries string
		lat, lon  sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.ShortCode, &countries, &lat, &lon, &c.MapZoomLevel, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning conflict: %w", err)
	}
	if countries != "" {
		if err := json.Unmarshal([]byte(countries), &c.InvolvedCountries); err != nil {
			return nil, fmt.Errorf("decoding involved countries for %s: %w", c.ShortCode, err)
		}
	}
	if lat.Valid {
		c.MapCenterLat = &lat.Float64
	}
	if lon.Valid {
		c.MapCenterLon = &lon.Float64
	}
	return &c, nil
}

// UpsertConflict inserts or updates a conflict by short code and returns its id.
// The active flag is only set on insert.
func (s *Store) UpsertConflict(ctx context.Context, c models.Conflict) (int64, error) {
	countries := c.InvolvedCountries
	if countries == nil {
		countries = []string{}
	}
	countriesJSON, err := json.Marshal(countries)
	if err != nil {
		return 0, fmt.Errorf("marshalling involved countries: %w", err)
	}
	zoom := c.MapZoomLevel
	if zoom == 0 {
		zoom = 5
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO conflicts (name, short_code, involved_countries, map_center_lat, map_center_lon, map_zoom_level)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (short_code) DO UPDATE SET
			name = excluded.name,
			involved_countries = excluded.involved_countries,
			map_center_lat = excluded.map_center_lat,
			map_center_lon = excluded.map_center_lon,
			map_zoom_level = excluded.map_zoom_level
		RETURNING id
	`, c.Name, c.ShortCode, string(countriesJSON), nullFloat64(c.MapCenterLat), nullFloat64(c.MapCenterLon), zoom).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting conflict %s: %w", c.ShortCode, err)
	}
	return id, nil
}

// SetConflictActive toggles whether a conflict takes part in tagging.
func (s *Store) SetConflictActive(ctx context.Context, code string, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE conflicts SET is_active = ? WHERE short_code = ?", active, code)
	if err != nil {
		return fmt.Errorf("updating conflict %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating conflict %s: %w", code, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

// UpsertSource inserts or updates a source by (platform, identifier) and returns its id.
func (s *Store) UpsertSource(ctx context.Context, src models.Source) (int64, error) {
	rules, err := encodeFilterRules(src.FilterRules)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO sources (platform, identifier, display_name, default_conflict_id, content_filter_rules, reliability_tier)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, identifier) DO UPDATE SET
			display_name = excluded.display_name,
			default_conflict_id = excluded.default_conflict_id,
			content_filter_rules = excluded.content_filter_rules,
			reliability_tier = excluded.reliability_tier
		RETURNING id
	`, src.Platform, src.Identifier, nullString(src.DisplayName), nullInt64(src.DefaultConflictID), rules, nullString(src.ReliabilityTier)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting source %s/%s: %w", src.Platform, src.Identifier, err)
	}
	return id, nil
}

// SourceByID returns one source.
func (s *Store) SourceByID(ctx context.Context, id int64) (*models.Source, error) {
	var (
		src         models.Source
		displayName sql.NullString
		defaultID   sql.NullInt64
		rules       sql.NullString
		tier        sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, platform, identifier, display_name, default_conflict_id, content_filter_rules, reliability_tier
		FROM sources WHERE id = ?
	`, id).Scan(&src.ID, &src.Platform, &src.Identifier, &displayName, &defaultID, &rules, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying source %d: %w", id, err)
	}

	src.DisplayName = displayName.String
	src.ReliabilityTier = tier.String
	if defaultID.Valid {
		src.DefaultConflictID = &defaultID.Int64
	}
	src.FilterRules = decodeFilterRules(rules)
	return &src, nil
}

func encodeFilterRules(r *models.FilterRules) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling filter rules: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeFilterRules returns nil (neutral weights) for missing or malformed rules.
func decodeFilterRules(raw sql.NullString) *models.FilterRules {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	var r models.FilterRules
	if err := json.Unmarshal([]byte(raw.String), &r); err != nil {
		return nil
	}
	return &r
}

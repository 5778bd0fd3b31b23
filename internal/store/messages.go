package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

const messageColumns = `
	m.id, m.source_id, m.platform, m.external_id, m.text, m.raw_json, m.timestamp, m.processed,
	s.identifier, s.default_conflict_id, s.content_filter_rules, s.reliability_tier
	FROM messages m
	JOIN sources s ON s.id = m.source_id`

// InsertMessage stores a new message. Ingesters use it; the processor only
// needs it in tests and admin tooling. Returns ErrDuplicate when the
// (platform, external_id) pair already exists.
func (s *Store) InsertMessage(ctx context.Context, m models.Message) (int64, error) {
	var raw sql.NullString
	if len(m.RawPayload) > 0 {
		raw = sql.NullString{String: string(m.RawPayload), Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (source_id, platform, external_id, text, raw_json, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, external_id) DO NOTHING
		RETURNING id
	`, m.SourceID, m.Platform, m.ExternalID, m.Text, raw, formatTime(m.Timestamp)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}
	return id, nil
}

// MessageByID returns a message joined with its source, processed or not.
func (s *Store) MessageByID(ctx context.Context, id int64) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+messageColumns+" WHERE m.id = ?", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message %d: %w", id, err)
	}
	return m, nil
}

// UnprocessedMessage returns the message only while it is still unprocessed.
// Missing and already processed messages both yield ErrNotFound.
func (s *Store) UnprocessedMessage(ctx context.Context, id int64) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+messageColumns+" WHERE m.id = ? AND m.processed = 0", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message %d: %w", id, err)
	}
	return m, nil
}

// UnprocessedMessages returns up to limit unprocessed messages, oldest first.
func (s *Store) UnprocessedMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+messageColumns+`
		WHERE m.processed = 0
		ORDER BY m.timestamp ASC, m.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unprocessed messages: %w", err)
	}
	return out, nil
}

// MarkProcessed flips the processed flag. It never reverts.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE messages SET processed = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("marking message %d processed: %w", id, err)
	}
	return nil
}

// CountUnprocessed returns the size of the backlog.
func (s *Store) CountUnprocessed(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE processed = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unprocessed messages: %w", err)
	}
	return n, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m         models.Message
		raw       sql.NullString
		ts        string
		defaultID sql.NullInt64
		rules     sql.NullString
		tier      sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.SourceID, &m.Platform, &m.ExternalID, &m.Text, &raw, &ts, &m.Processed,
		&m.SourceIdentifier, &defaultID, &rules, &tier,
	)
	if err != nil {
		return nil, err
	}

	if m.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	if raw.Valid {
		m.RawPayload = []byte(raw.String)
	}
	if defaultID.Valid {
		m.DefaultConflictID = &defaultID.Int64
	}
	m.FilterRules = decodeFilterRules(rules)
	m.ReliabilityTier = tier.String
	return &m, nil
}

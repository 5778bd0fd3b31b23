package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

// InsertEvent persists an event and returns its id. Location-less events are
// stored with zero coordinates and an empty location name.
func (s *Store) InsertEvent(ctx context.Context, e models.Event) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO events (message_id, conflict_id, event_type, latitude, longitude, location_name, confidence, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, e.MessageID, e.ConflictID, nullString(e.EventType), e.Latitude, e.Longitude, e.LocationName, e.Confidence,
		formatTime(e.Timestamp)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting event for message %d: %w", e.MessageID, err)
	}
	return id, nil
}

// EventsForMessage returns the events created from one message in insertion order.
func (s *Store) EventsForMessage(ctx context.Context, messageID int64) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.message_id, e.conflict_id, c.short_code, e.event_type,
		       e.latitude, e.longitude, e.location_name, e.confidence, e.timestamp
		FROM events e
		JOIN conflicts c ON c.id = e.conflict_id
		WHERE e.message_id = ?
		ORDER BY e.id
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e         models.Event
			eventType sql.NullString
			ts        string
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &e.ConflictID, &e.ShortCode, &eventType,
			&e.Latitude, &e.Longitude, &e.LocationName, &e.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.EventType = eventType.String
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

// CountEvents returns the total number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

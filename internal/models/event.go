package models

import "time"

// Category is the classifier verdict.
type Category string

const (
	CategoryGeopolitical     Category = "geopolitical"
	CategoryDomesticPolitics Category = "domestic_politics"
	CategorySatire           Category = "satire"
	CategoryUnclassified     Category = "unclassified"
)

// Classification is the result of scoring a message text.
type Classification struct {
	Category     Category `json:"category"`
	Confidence   float64  `json:"confidence"`
	Relevant     bool     `json:"is_relevant"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	EventType    string   `json:"event_type,omitempty"`
}

// ConflictMatch ties a message to one tracked conflict. Not persisted.
type ConflictMatch struct {
	ConflictID   int64    `json:"conflict_id"`
	ShortCode    string   `json:"short_code"`
	Score        int      `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// GeoResult is a resolved place.
type GeoResult struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"`
}

// Event is one occurrence inferred from a message for one conflict.
// Location-less events carry zero coordinates, an empty LocationName and zero confidence.
type Event struct {
	ID           int64     `json:"id"`
	MessageID    int64     `json:"message_id"`
	ConflictID   int64     `json:"conflict_id"`
	ShortCode    string    `json:"conflict"`
	EventType    string    `json:"event_type,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName string    `json:"location_name"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
	Text         string    `json:"text,omitempty"`
}

// HasLocation reports whether the event was geocoded.
func (e Event) HasLocation() bool {
	return e.LocationName != ""
}

// Broadcast is the payload published on the processed events topic.
type Broadcast struct {
	EventID   int64     `json:"event_id"`
	MessageID int64     `json:"message_id"`
	Conflict  string    `json:"conflict"`
	EventType *string   `json:"event_type"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	Location  *string   `json:"location"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// BroadcastTextLimit caps the text carried in a Broadcast, in characters.
const BroadcastTextLimit = 500

// NewBroadcast builds the outbound payload for a persisted event.
func NewBroadcast(e Event, text string) Broadcast {
	b := Broadcast{
		EventID:   e.ID,
		MessageID: e.MessageID,
		Conflict:  e.ShortCode,
		Text:      truncateRunes(text, BroadcastTextLimit),
		Timestamp: e.Timestamp,
	}
	if e.EventType != "" {
		et := e.EventType
		b.EventType = &et
	}
	if e.HasLocation() {
		lat, lon, loc := e.Latitude, e.Longitude, e.LocationName
		b.Lat, b.Lon, b.Location = &lat, &lon, &loc
	}
	return b
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

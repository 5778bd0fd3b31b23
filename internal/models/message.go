package models

import (
	"encoding/json"
	"time"
)

// Message is a stored post joined with the source fields the pipeline needs.
type Message struct {
	ID         int64           `json:"id"`
	SourceID   int64           `json:"source_id"`
	Platform   string          `json:"platform"`
	ExternalID string          `json:"external_id,omitempty"`
	Text       string          `json:"text"`
	RawPayload json.RawMessage `json:"raw_json,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Processed  bool            `json:"processed"`

	SourceIdentifier  string       `json:"source_identifier"`
	DefaultConflictID *int64       `json:"default_conflict_id,omitempty"`
	FilterRules       *FilterRules `json:"content_filter_rules,omitempty"`
	ReliabilityTier   string       `json:"reliability_tier,omitempty"`
}

// Source is a registered ingestion channel or account.
type Source struct {
	ID                int64        `json:"id"`
	Platform          string       `json:"platform"`
	Identifier        string       `json:"identifier"`
	DisplayName       string       `json:"display_name,omitempty"`
	DefaultConflictID *int64       `json:"default_conflict_id,omitempty"`
	FilterRules       *FilterRules `json:"content_filter_rules,omitempty"`
	ReliabilityTier   string       `json:"reliability_tier,omitempty"`
}

// FilterRules carries per-source multipliers applied to classifier scores.
// A nil field means neutral (1.0).
type FilterRules struct {
	GeoWeight *float64 `json:"geo_weight,omitempty"`
	DomWeight *float64 `json:"dom_weight,omitempty"`
}

// Geo returns the geopolitical weight, defaulting to 1.0.
func (r *FilterRules) Geo() float64 {
	if r == nil || r.GeoWeight == nil {
		return 1.0
	}
	return *r.GeoWeight
}

// Dom returns the domestic-politics weight, defaulting to 1.0.
func (r *FilterRules) Dom() float64 {
	if r == nil || r.DomWeight == nil {
		return 1.0
	}
	return *r.DomWeight
}

// Conflict is a tracked geopolitical situation.
type Conflict struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	ShortCode         string   `json:"short_code"`
	InvolvedCountries []string `json:"involved_countries,omitempty"`
	MapCenterLat      *float64 `json:"map_center_lat,omitempty"`
	MapCenterLon      *float64 `json:"map_center_lon,omitempty"`
	MapZoomLevel      int      `json:"map_zoom_level"`
	Active            bool     `json:"is_active"`
}

// Notification is published by ingesters for each newly stored message.
type Notification struct {
	MessageID int64  `json:"db_id"`
	Platform  string `json:"platform,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceRecordStatus tracks a scraped listing through the pipeline.
type SourceRecordStatus string

const (
	SourceRecordStatusPending   SourceRecordStatus = "pending"
	SourceRecordStatusMatched   SourceRecordStatus = "matched"
	SourceRecordStatusUnmatched SourceRecordStatus = "unmatched"
	SourceRecordStatusDiscarded SourceRecordStatus = "discarded"
)

// SourceRecord is one scraped listing awaiting reconciliation. RawName is
// kept verbatim; the canonical key is derived at resolve time so that
// normalization changes re-apply cleanly.
type SourceRecord struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	RawName   string             `json:"raw_name" db:"raw_name"`
	Source    VenueSource        `json:"source" db:"source"`
	SourceID  string             `json:"source_id" db:"source_id"`
	Latitude  *float64           `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64           `json:"longitude,omitempty" db:"longitude"`
	Payload   json.RawMessage    `json:"payload,omitempty" db:"payload"`
	Status    SourceRecordStatus `json:"status" db:"status"`
	VenueID   *uuid.UUID         `json:"venue_id,omitempty" db:"venue_id"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

// ListingMessage is the kafka payload for one scraped listing.
type ListingMessage struct {
	RawName   string          `json:"raw_name" validate:"required"`
	Source    VenueSource     `json:"source" validate:"required,oneof=google yelp resy opentable editorial"`
	SourceID  string          `json:"source_id" validate:"required"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ScrapedAt time.Time       `json:"scraped_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// VenueSource identifies where a venue record originally came from.
type VenueSource string

const (
	VenueSourceGoogle    VenueSource = "google"
	VenueSourceYelp      VenueSource = "yelp"
	VenueSourceResy      VenueSource = "resy"
	VenueSourceOpenTable VenueSource = "opentable"
	VenueSourceEditorial VenueSource = "editorial"
)

// Venue is one row of the venue lookup table. CanonicalKey is unique: two
// names that canonicalize to the same key are the same venue.
type Venue struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	CanonicalKey  string      `json:"canonical_key" db:"canonical_key"`
	DisplayName   string      `json:"display_name" db:"display_name"`
	Source        VenueSource `json:"source" db:"source"`
	GooglePlaceID *string     `json:"google_place_id,omitempty" db:"google_place_id"`
	ResySlug      *string     `json:"resy_slug,omitempty" db:"resy_slug"`
	ResyURL       *string     `json:"resy_url,omitempty" db:"resy_url"`
	OpenTableSlug *string     `json:"opentable_slug,omitempty" db:"opentable_slug"`
	OpenTableURL  *string     `json:"opentable_url,omitempty" db:"opentable_url"`
	Latitude      *float64    `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64    `json:"longitude,omitempty" db:"longitude"`
	Neighborhood  *string     `json:"neighborhood,omitempty" db:"neighborhood"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// CreateVenueRequest is the request for creating a venue. CanonicalKey is
// derived server-side from DisplayName.
type CreateVenueRequest struct {
	DisplayName   string      `json:"display_name" validate:"required"`
	Source        VenueSource `json:"source" validate:"required,oneof=google yelp resy opentable editorial"`
	GooglePlaceID *string     `json:"google_place_id,omitempty"`
	ResySlug      *string     `json:"resy_slug,omitempty"`
	ResyURL       *string     `json:"resy_url,omitempty" validate:"omitempty,url"`
	OpenTableSlug *string     `json:"opentable_slug,omitempty"`
	OpenTableURL  *string     `json:"opentable_url,omitempty" validate:"omitempty,url"`
	Latitude      *float64    `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64    `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Neighborhood  *string     `json:"neighborhood,omitempty"`
}

// VenueListResponse is the response for listing venues
type VenueListResponse struct {
	Items      []Venue `json:"items"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchReviewStatus tracks a queued match decision.
type MatchReviewStatus string

const (
	MatchReviewStatusPending  MatchReviewStatus = "pending"
	MatchReviewStatusApproved MatchReviewStatus = "approved"
	MatchReviewStatusRejected MatchReviewStatus = "rejected"
	MatchReviewStatusDeferred MatchReviewStatus = "deferred"
)

// MatchReview is a review-queue row: a resolution that scored below the
// auto-accept bar (or found no candidate at all) waiting for a human call.
// CandidateVenueID is nil when the resolution was fully unmatched.
type MatchReview struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	SourceRecordID   uuid.UUID         `json:"source_record_id" db:"source_record_id"`
	CandidateVenueID *uuid.UUID        `json:"candidate_venue_id,omitempty" db:"candidate_venue_id"`
	Score            float64           `json:"score" db:"score"`
	Method           string            `json:"method" db:"method"`
	Status           MatchReviewStatus `json:"status" db:"status"`
	ReviewedBy       *string           `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt       *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// ReviewDecisionRequest carries the reviewer identity for a decision.
type ReviewDecisionRequest struct {
	ReviewedBy string `json:"reviewed_by" validate:"required"`
}

// MatchReviewListResponse is the response for listing match reviews
type MatchReviewListResponse struct {
	Items      []MatchReview `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

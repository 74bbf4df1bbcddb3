// Package matchreview persists the manual review queue.
package matchreview

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/seatwize/reconciler/pkg/database"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/tracing"
)

// Repository handles match review persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create queues a resolution for review. candidateVenueID is nil when the
// resolution found nothing at all.
func (r *Repository) Create(ctx context.Context, sourceRecordID uuid.UUID, candidateVenueID *uuid.UUID, score float64, method string) (*models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	review := &models.MatchReview{
		ID:               uuid.New(),
		SourceRecordID:   sourceRecordID,
		CandidateVenueID: candidateVenueID,
		Score:            score,
		Method:           method,
		Status:           models.MatchReviewStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_reviews")
	sb.Cols("id", "source_record_id", "candidate_venue_id", "score", "method", "status", "created_at", "updated_at")
	sb.Values(review.ID, review.SourceRecordID, review.CandidateVenueID, review.Score, review.Method, review.Status, review.CreatedAt, review.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_record_id": sourceRecordID,
		}).Error("Failed to create match review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match review")
	}
	return review, nil
}

// GetByID returns one review, 404 when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("match_reviews")
	sb.Where(sb.Equal("id", id))

	var review models.MatchReview
	query, args := sb.Build()
	if err := r.db.GetContext(ctx, &review, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "match review not found")
		}
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load match review")
	}
	return &review, nil
}

// List returns a page of reviews filtered by status, oldest first.
func (r *Repository) List(ctx context.Context, status models.MatchReviewStatus, page, pageSize int) (*models.MatchReviewListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("match_reviews")
	countSb.Where(countSb.Equal("status", status))

	var total int
	query, args := countSb.Build()
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count match reviews")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("match_reviews")
	sb.Where(sb.Equal("status", status))
	sb.OrderBy("created_at ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	items := []models.MatchReview{}
	query, args = sb.Build()
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match reviews")
	}

	return &models.MatchReviewListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Decide records a reviewer's decision on a pending review. Only pending
// reviews can be decided; anything else is a 409.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, status models.MatchReviewStatus, reviewedBy string) (*models.MatchReview, error) {
	ctx, span := tracing.StartSpan(ctx, "matchreview.Repository.Decide")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("match_reviews")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("reviewed_by", reviewedBy),
		ub.Assign("reviewed_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("status", models.MatchReviewStatusPending))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"match_review_id": id,
			"status":          status,
		}).Error("Failed to decide match review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decide match review")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		// distinguish missing from already-decided
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, "match review already decided")
	}

	return r.GetByID(ctx, id)
}

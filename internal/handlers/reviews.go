package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seatwize/reconciler/pkg/metrics"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/normalize"
)

// ReviewStore is the review persistence the review endpoints need.
type ReviewStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MatchReview, error)
	List(ctx context.Context, status models.MatchReviewStatus, page, pageSize int) (*models.MatchReviewListResponse, error)
	Decide(ctx context.Context, id uuid.UUID, status models.MatchReviewStatus, reviewedBy string) (*models.MatchReview, error)
}

// RecordStore is the source record persistence the review endpoints need.
type RecordStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SourceRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SourceRecordStatus, venueID *uuid.UUID) error
}

// MatchEmitter publishes match events for approved reviews.
type MatchEmitter interface {
	VenueMatched(ctx context.Context, recordID, venueID uuid.UUID, source models.VenueSource, rawName string, score float64, method string) error
}

// ReviewHandler handles the manual review queue
type ReviewHandler struct {
	reviews   ReviewStore
	records   RecordStore
	venues    VenueCatalog
	emitter   MatchEmitter
	refresher Refresher
	logger    ectologger.Logger
}

func NewReviewHandler(reviews ReviewStore, records RecordStore, venues VenueCatalog, emitter MatchEmitter, refresher Refresher, logger ectologger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		records:   records,
		venues:    venues,
		emitter:   emitter,
		refresher: refresher,
		logger:    logger,
	}
}

// RegisterRoutes registers the review routes
func (h *ReviewHandler) RegisterRoutes(g *echo.Group) {
	reviews := g.Group("/reviews")
	reviews.GET("", h.List)
	reviews.GET("/:id", h.Get)
	reviews.POST("/:id/approve", h.Approve)
	reviews.POST("/:id/reject", h.Reject)
	reviews.POST("/:id/defer", h.Defer)
}

// List handles GET /reviews
func (h *ReviewHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	status := models.MatchReviewStatus(c.QueryParam("status"))
	if status == "" {
		status = models.MatchReviewStatusPending
	}
	page, pageSize := parsePagination(c)

	resp, err := h.reviews.List(ctx, status, page, pageSize)
	if err != nil {
		return err
	}
	return SuccessResponse(c, resp)
}

// Get handles GET /reviews/:id
func (h *ReviewHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	review, err := h.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, review)
}

// Approve handles POST /reviews/:id/approve. A review with a candidate venue
// links the listing to it; a review without one creates a new venue from the
// listing's raw name first.
func (h *ReviewHandler) Approve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	reviewer, err := GetReviewer(c)
	if err != nil {
		return err
	}

	review, err := h.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	record, err := h.records.GetByID(ctx, review.SourceRecordID)
	if err != nil {
		return err
	}

	venueID := review.CandidateVenueID
	if venueID == nil {
		venue, err := h.venues.Create(ctx, &models.CreateVenueRequest{
			DisplayName: record.RawName,
			Source:      record.Source,
			Latitude:    record.Latitude,
			Longitude:   record.Longitude,
		})
		if err != nil {
			if httperror.GetStatusCode(err) != http.StatusConflict {
				return err
			}
			// the venue appeared since the review was queued; link to it
			// instead of failing the approval
			venue, err = h.venues.GetByCanonicalKey(ctx, normalize.Canonical(record.RawName))
			if err != nil {
				return err
			}
		}
		venueID = &venue.ID
		if h.refresher != nil {
			if err := h.refresher.Refresh(ctx); err != nil {
				h.logger.WithContext(ctx).WithError(err).Error("Failed to refresh venue table after approval")
			}
		}
	}

	decided, err := h.reviews.Decide(ctx, id, models.MatchReviewStatusApproved, reviewer)
	if err != nil {
		return err
	}
	if err := h.records.UpdateStatus(ctx, record.ID, models.SourceRecordStatusMatched, venueID); err != nil {
		return err
	}
	if err := h.emitter.VenueMatched(ctx, record.ID, *venueID, record.Source, record.RawName, review.Score, review.Method); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to emit match event for approved review")
	}
	metrics.RecordReviewDecision(string(models.MatchReviewStatusApproved))

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id": id,
		"venue_id":  venueID,
		"reviewer":  reviewer,
	}).Info("Approved match review")

	return SuccessResponse(c, decided)
}

// Reject handles POST /reviews/:id/reject. The listing is discarded.
func (h *ReviewHandler) Reject(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	reviewer, err := GetReviewer(c)
	if err != nil {
		return err
	}

	decided, err := h.reviews.Decide(ctx, id, models.MatchReviewStatusRejected, reviewer)
	if err != nil {
		return err
	}
	if err := h.records.UpdateStatus(ctx, decided.SourceRecordID, models.SourceRecordStatusDiscarded, nil); err != nil {
		return err
	}
	metrics.RecordReviewDecision(string(models.MatchReviewStatusRejected))

	return SuccessResponse(c, decided)
}

// Defer handles POST /reviews/:id/defer. The listing stays where it is.
func (h *ReviewHandler) Defer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}
	reviewer, err := GetReviewer(c)
	if err != nil {
		return err
	}

	decided, err := h.reviews.Decide(ctx, id, models.MatchReviewStatusDeferred, reviewer)
	if err != nil {
		return err
	}
	metrics.RecordReviewDecision(string(models.MatchReviewStatusDeferred))

	return SuccessResponse(c, decided)
}

func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	return page, pageSize
}

package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwize/reconciler/pkg/middleware"
	"github.com/seatwize/reconciler/pkg/models"
)

type fakeReviewStore struct {
	reviews map[uuid.UUID]*models.MatchReview
}

func (f *fakeReviewStore) GetByID(_ context.Context, id uuid.UUID) (*models.MatchReview, error) {
	review, ok := f.reviews[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "match review not found")
	}
	return review, nil
}

func (f *fakeReviewStore) List(_ context.Context, status models.MatchReviewStatus, page, pageSize int) (*models.MatchReviewListResponse, error) {
	resp := &models.MatchReviewListResponse{Page: page, PageSize: pageSize}
	for _, review := range f.reviews {
		if review.Status == status {
			resp.Items = append(resp.Items, *review)
			resp.TotalCount++
		}
	}
	return resp, nil
}

func (f *fakeReviewStore) Decide(_ context.Context, id uuid.UUID, status models.MatchReviewStatus, reviewedBy string) (*models.MatchReview, error) {
	review, ok := f.reviews[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "match review not found")
	}
	if review.Status != models.MatchReviewStatusPending {
		return nil, httperror.NewHTTPError(http.StatusConflict, "match review already decided")
	}
	review.Status = status
	review.ReviewedBy = &reviewedBy
	return review, nil
}

type fakeRecordStore struct {
	records map[uuid.UUID]*models.SourceRecord
	updates []statusUpdate
}

type statusUpdate struct {
	id      uuid.UUID
	status  models.SourceRecordStatus
	venueID *uuid.UUID
}

func (f *fakeRecordStore) GetByID(_ context.Context, id uuid.UUID) (*models.SourceRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "source record not found")
	}
	return record, nil
}

func (f *fakeRecordStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.SourceRecordStatus, venueID *uuid.UUID) error {
	f.updates = append(f.updates, statusUpdate{id: id, status: status, venueID: venueID})
	return nil
}

type fakeMatchEmitter struct {
	matched []uuid.UUID
}

func (f *fakeMatchEmitter) VenueMatched(_ context.Context, _, venueID uuid.UUID, _ models.VenueSource, _ string, _ float64, _ string) error {
	f.matched = append(f.matched, venueID)
	return nil
}

type reviewFixture struct {
	e       *echo.Echo
	reviews *fakeReviewStore
	records *fakeRecordStore
	catalog *fakeCatalog
	emitter *fakeMatchEmitter
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		reviews: &fakeReviewStore{reviews: map[uuid.UUID]*models.MatchReview{}},
		records: &fakeRecordStore{records: map[uuid.UUID]*models.SourceRecord{}},
		catalog: &fakeCatalog{},
		emitter: &fakeMatchEmitter{},
	}
	f.e = newTestEcho()
	f.e.Use(middleware.Context())
	handler := NewReviewHandler(f.reviews, f.records, f.catalog, f.emitter, f.catalog, noopLogger())
	handler.RegisterRoutes(f.e.Group("/api/v1"))
	return f
}

func (f *reviewFixture) addReview(candidate *uuid.UUID, rawName string) *models.MatchReview {
	record := &models.SourceRecord{
		ID:      uuid.New(),
		RawName: rawName,
		Source:  models.VenueSourceGoogle,
		Status:  models.SourceRecordStatusPending,
	}
	f.records.records[record.ID] = record

	review := &models.MatchReview{
		ID:               uuid.New(),
		SourceRecordID:   record.ID,
		CandidateVenueID: candidate,
		Score:            0.7,
		Method:           "word_overlap",
		Status:           models.MatchReviewStatusPending,
	}
	f.reviews.reviews[review.ID] = review
	return review
}

func (f *reviewFixture) decide(t *testing.T, id uuid.UUID, action, reviewer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+id.String()+"/"+action, bytes.NewBuffer(nil))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if reviewer != "" {
		req.Header.Set(middleware.HeaderReviewer, reviewer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestReviewDecisions(t *testing.T) {
	t.Run("should link the record to the candidate on approval", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		review := f.addReview(&venueID, "Blue Ribbon")

		rec := f.decide(t, review.ID, "approve", "ops@seatwize.io")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, models.MatchReviewStatusApproved, review.Status)
		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusMatched, f.records.updates[0].status)
		assert.Equal(t, venueID, *f.records.updates[0].venueID)
		assert.Equal(t, []uuid.UUID{venueID}, f.emitter.matched)
	})

	t.Run("should create a venue when approving an unmatched review", func(t *testing.T) {
		f := newReviewFixture()
		review := f.addReview(nil, "Wildair")

		rec := f.decide(t, review.ID, "approve", "ops@seatwize.io")
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, f.catalog.created, 1)
		assert.Equal(t, "Wildair", f.catalog.created[0].DisplayName)
		assert.Equal(t, 1, f.catalog.refreshed)
		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusMatched, f.records.updates[0].status)
	})

	t.Run("should discard the record on rejection", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		review := f.addReview(&venueID, "Kyuramen")

		rec := f.decide(t, review.ID, "reject", "ops@seatwize.io")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, models.MatchReviewStatusRejected, review.Status)
		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusDiscarded, f.records.updates[0].status)
		assert.Empty(t, f.emitter.matched)
	})

	t.Run("should defer without touching the record", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		review := f.addReview(&venueID, "Canto")

		rec := f.decide(t, review.ID, "defer", "ops@seatwize.io")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, models.MatchReviewStatusDeferred, review.Status)
		assert.Empty(t, f.records.updates)
	})

	t.Run("should require a reviewer identity", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		review := f.addReview(&venueID, "Carbone")

		rec := f.decide(t, review.ID, "approve", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, models.MatchReviewStatusPending, review.Status)
	})

	t.Run("should conflict on an already decided review", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		review := f.addReview(&venueID, "Lilia")

		require.Equal(t, http.StatusOK, f.decide(t, review.ID, "reject", "ops@seatwize.io").Code)
		assert.Equal(t, http.StatusConflict, f.decide(t, review.ID, "approve", "ops@seatwize.io").Code)
	})
}

func TestReviewList(t *testing.T) {
	t.Run("should default to pending reviews", func(t *testing.T) {
		f := newReviewFixture()
		venueID := uuid.New()
		f.addReview(&venueID, "Carbone")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[models.MatchReviewListResponse](t, rec)
		assert.Equal(t, 1, resp.TotalCount)
	})
}

package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwize/reconciler/pkg/kafka"
	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/models"
)

type fakeVenues struct {
	venues []models.Venue
}

func (f *fakeVenues) Snapshot(_ context.Context) ([]models.Venue, error) {
	return f.venues, nil
}

type statusUpdate struct {
	id      uuid.UUID
	status  models.SourceRecordStatus
	venueID *uuid.UUID
}

type fakeRecords struct {
	created  []*models.SourceRecord
	updates  []statusUpdate
	existing models.SourceRecordStatus
}

func (f *fakeRecords) Create(_ context.Context, msg *models.ListingMessage) (*models.SourceRecord, error) {
	status := models.SourceRecordStatusPending
	if f.existing != "" {
		status = f.existing
	}
	record := &models.SourceRecord{
		ID:      uuid.New(),
		RawName: msg.RawName,
		Source:  msg.Source,
		Status:  status,
	}
	f.created = append(f.created, record)
	return record, nil
}

func (f *fakeRecords) UpdateStatus(_ context.Context, id uuid.UUID, status models.SourceRecordStatus, venueID *uuid.UUID) error {
	f.updates = append(f.updates, statusUpdate{id: id, status: status, venueID: venueID})
	return nil
}

type fakeReviews struct {
	created []*models.MatchReview
}

func (f *fakeReviews) Create(_ context.Context, sourceRecordID uuid.UUID, candidateVenueID *uuid.UUID, score float64, method string) (*models.MatchReview, error) {
	review := &models.MatchReview{
		ID:               uuid.New(),
		SourceRecordID:   sourceRecordID,
		CandidateVenueID: candidateVenueID,
		Score:            score,
		Method:           method,
		Status:           models.MatchReviewStatusPending,
	}
	f.created = append(f.created, review)
	return review, nil
}

type emittedEvent struct {
	eventType string
	venueID   *uuid.UUID
	score     float64
}

type fakeEmitter struct {
	events []emittedEvent
}

func (f *fakeEmitter) VenueMatched(_ context.Context, _, venueID uuid.UUID, _ models.VenueSource, _ string, score float64, _ string) error {
	f.events = append(f.events, emittedEvent{eventType: "venue.matched", venueID: &venueID, score: score})
	return nil
}

func (f *fakeEmitter) ReviewQueued(_ context.Context, _, _ uuid.UUID, _ models.VenueSource, _ string, score float64, _ string) error {
	f.events = append(f.events, emittedEvent{eventType: "venue.review_queued", score: score})
	return nil
}

func (f *fakeEmitter) Unmatched(_ context.Context, _ uuid.UUID, _ models.VenueSource, _ string, score float64) error {
	f.events = append(f.events, emittedEvent{eventType: "venue.unmatched", score: score})
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fixture struct {
	processor *Processor
	venues    *fakeVenues
	records   *fakeRecords
	reviews   *fakeReviews
	emitter   *fakeEmitter
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	venues := &fakeVenues{}
	for _, name := range names {
		venues.venues = append(venues.venues, models.Venue{ID: uuid.New(), DisplayName: name})
	}

	records := &fakeRecords{}
	reviews := &fakeReviews{}
	emitter := &fakeEmitter{}

	p := New(venues, records, reviews, emitter, matching.NewScorer(), testLogger(), Config{})
	require.NoError(t, p.Refresh(context.Background()))

	return &fixture{processor: p, venues: venues, records: records, reviews: reviews, emitter: emitter}
}

func listing(rawName string) *models.ListingMessage {
	return &models.ListingMessage{
		RawName:  rawName,
		Source:   models.VenueSourceGoogle,
		SourceID: "place-" + rawName,
	}
}

func TestProcessListing(t *testing.T) {
	t.Run("should auto-match an exact canonical hit", func(t *testing.T) {
		f := newFixture(t, "Carbone", "Lilia")

		err := f.processor.ProcessListing(context.Background(), listing("Carbone - New York, NY"))
		require.NoError(t, err)

		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusMatched, f.records.updates[0].status)
		require.NotNil(t, f.records.updates[0].venueID)
		assert.Equal(t, f.venues.venues[0].ID, *f.records.updates[0].venueID)

		require.Len(t, f.emitter.events, 1)
		assert.Equal(t, "venue.matched", f.emitter.events[0].eventType)
		assert.Empty(t, f.reviews.created)
	})

	t.Run("should queue ambiguous scores for review", func(t *testing.T) {
		f := newFixture(t, "Blue Ribbon Sushi")

		// shares two of the shorter side's three significant words: scores in
		// the review band
		err := f.processor.ProcessListing(context.Background(), listing("Blue Ribbon Fried Chicken"))
		require.NoError(t, err)

		require.Len(t, f.reviews.created, 1)
		review := f.reviews.created[0]
		require.NotNil(t, review.CandidateVenueID)
		assert.Equal(t, f.venues.venues[0].ID, *review.CandidateVenueID)
		assert.Greater(t, review.Score, matching.DefaultThreshold)
		assert.Less(t, review.Score, DefaultAcceptThreshold)

		// the record stays pending until the reviewer decides
		assert.Empty(t, f.records.updates)

		require.Len(t, f.emitter.events, 1)
		assert.Equal(t, "venue.review_queued", f.emitter.events[0].eventType)
	})

	t.Run("should mark unrelated listings unmatched", func(t *testing.T) {
		f := newFixture(t, "Carbone", "Lilia")

		err := f.processor.ProcessListing(context.Background(), listing("Wildair"))
		require.NoError(t, err)

		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusUnmatched, f.records.updates[0].status)
		assert.Nil(t, f.records.updates[0].venueID)

		// unmatched listings still land in the review queue for venue creation
		require.Len(t, f.reviews.created, 1)
		assert.Nil(t, f.reviews.created[0].CandidateVenueID)

		require.Len(t, f.emitter.events, 1)
		assert.Equal(t, "venue.unmatched", f.emitter.events[0].eventType)
	})

	t.Run("should skip listings that were already reconciled", func(t *testing.T) {
		f := newFixture(t, "Carbone")
		f.records.existing = models.SourceRecordStatusMatched

		err := f.processor.ProcessListing(context.Background(), listing("Carbone"))
		require.NoError(t, err)

		assert.Empty(t, f.records.updates)
		assert.Empty(t, f.emitter.events)
	})
}

func TestHandleMessage(t *testing.T) {
	t.Run("should drop invalid listings without retrying", func(t *testing.T) {
		f := newFixture(t)

		payload, err := json.Marshal(map[string]any{"source": "google"})
		require.NoError(t, err)

		msg := &kafka.IncomingMessage{Value: payload}
		require.NoError(t, msg.ParseListing())

		err = f.processor.HandleMessage(context.Background(), msg)
		require.NoError(t, err)
		assert.Empty(t, f.records.created)
	})

	t.Run("should parse and process a raw message", func(t *testing.T) {
		f := newFixture(t, "Carbone")

		payload, err := json.Marshal(listing("Carbone"))
		require.NoError(t, err)

		err = f.processor.HandleMessage(context.Background(), &kafka.IncomingMessage{Value: payload})
		require.NoError(t, err)

		require.Len(t, f.records.updates, 1)
		assert.Equal(t, models.SourceRecordStatusMatched, f.records.updates[0].status)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("should make newly created venues matchable", func(t *testing.T) {
		f := newFixture(t)

		err := f.processor.ProcessListing(context.Background(), listing("Wildair"))
		require.NoError(t, err)
		assert.Equal(t, models.SourceRecordStatusUnmatched, f.records.updates[0].status)

		f.venues.venues = append(f.venues.venues, models.Venue{ID: uuid.New(), DisplayName: "Wildair"})
		require.NoError(t, f.processor.Refresh(context.Background()))

		err = f.processor.ProcessListing(context.Background(), listing("Wildair"))
		require.NoError(t, err)
		assert.Equal(t, models.SourceRecordStatusMatched, f.records.updates[1].status)
	})
}

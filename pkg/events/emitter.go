package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/seatwize/reconciler/pkg/kafka"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/tracing"
)

// Event types emitted on the outcome topic
const (
	TypeVenueMatched = "venue.matched"
	TypeReviewQueued = "venue.review_queued"
	TypeUnmatched    = "venue.unmatched"
)

// MatchEvent is the payload published for every reconciled listing. Downstream
// consumers key on Type to decide what to do with it.
type MatchEvent struct {
	Type           string             `json:"type"`
	SourceRecordID uuid.UUID          `json:"source_record_id"`
	Source         models.VenueSource `json:"source"`
	RawName        string             `json:"raw_name"`
	VenueID        *uuid.UUID         `json:"venue_id,omitempty"`
	ReviewID       *uuid.UUID         `json:"review_id,omitempty"`
	Score          float64            `json:"score"`
	Method         string             `json:"method,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// Emitter publishes reconciliation outcomes to Kafka
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// VenueMatched announces that a listing was attached to a venue, either
// automatically or via review approval.
func (e *Emitter) VenueMatched(ctx context.Context, recordID, venueID uuid.UUID, source models.VenueSource, rawName string, score float64, method string) error {
	return e.emit(ctx, MatchEvent{
		Type:           TypeVenueMatched,
		SourceRecordID: recordID,
		Source:         source,
		RawName:        rawName,
		VenueID:        &venueID,
		Score:          score,
		Method:         method,
	})
}

// ReviewQueued announces that a listing needs a human decision.
func (e *Emitter) ReviewQueued(ctx context.Context, recordID, reviewID uuid.UUID, source models.VenueSource, rawName string, score float64, method string) error {
	return e.emit(ctx, MatchEvent{
		Type:           TypeReviewQueued,
		SourceRecordID: recordID,
		Source:         source,
		RawName:        rawName,
		ReviewID:       &reviewID,
		Score:          score,
		Method:         method,
	})
}

// Unmatched announces that a listing matched nothing in the registry.
func (e *Emitter) Unmatched(ctx context.Context, recordID uuid.UUID, source models.VenueSource, rawName string, score float64) error {
	return e.emit(ctx, MatchEvent{
		Type:           TypeUnmatched,
		SourceRecordID: recordID,
		Source:         source,
		RawName:        rawName,
		Score:          score,
	})
}

func (e *Emitter) emit(ctx context.Context, event MatchEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	event.OccurredAt = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// key by source record so replays for one listing land in order
	if err := e.producer.Publish(ctx, event.SourceRecordID.String(), payload, event.Type); err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"type":             event.Type,
		"source_record_id": event.SourceRecordID,
		"score":            event.Score,
	}).Info("Emitted match event")
	return nil
}

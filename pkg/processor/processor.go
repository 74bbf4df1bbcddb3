// Package processor runs scraped listings through the reconciliation
// pipeline: store, resolve against the venue table, then auto-match, queue
// for review, or mark unmatched.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/seatwize/reconciler/pkg/events"
	"github.com/seatwize/reconciler/pkg/kafka"
	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/metrics"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/reconcile"
	"github.com/seatwize/reconciler/pkg/tracing"
)

// DefaultAcceptThreshold is the score at or above which a resolution is
// attached to a venue without human review.
const DefaultAcceptThreshold = 0.85

// DefaultRefreshInterval is how often the in-memory venue table is rebuilt
// from the database.
const DefaultRefreshInterval = 5 * time.Minute

// VenueStore is the slice of venue persistence the processor needs.
type VenueStore interface {
	Snapshot(ctx context.Context) ([]models.Venue, error)
}

// RecordStore persists listings moving through the pipeline.
type RecordStore interface {
	Create(ctx context.Context, msg *models.ListingMessage) (*models.SourceRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SourceRecordStatus, venueID *uuid.UUID) error
}

// ReviewStore queues ambiguous resolutions for a human.
type ReviewStore interface {
	Create(ctx context.Context, sourceRecordID uuid.UUID, candidateVenueID *uuid.UUID, score float64, method string) (*models.MatchReview, error)
}

// OutcomeEmitter publishes reconciliation outcomes.
type OutcomeEmitter interface {
	VenueMatched(ctx context.Context, recordID, venueID uuid.UUID, source models.VenueSource, rawName string, score float64, method string) error
	ReviewQueued(ctx context.Context, recordID, reviewID uuid.UUID, source models.VenueSource, rawName string, score float64, method string) error
	Unmatched(ctx context.Context, recordID uuid.UUID, source models.VenueSource, rawName string, score float64) error
}

// Config tunes the processor.
type Config struct {
	// AcceptThreshold is the auto-match score floor. Resolutions scoring
	// between the session threshold and this go to review instead.
	AcceptThreshold float64

	// SessionConfig is passed through to each reconciliation session.
	SessionConfig reconcile.Config

	// RefreshInterval controls periodic venue table rebuilds.
	RefreshInterval time.Duration
}

// Processor consumes listings and reconciles them against the venue table.
// The table is a point-in-time snapshot rebuilt on an interval and on venue
// writes, so a freshly created venue becomes matchable without a restart.
type Processor struct {
	venues   VenueStore
	records  RecordStore
	reviews  ReviewStore
	emitter  OutcomeEmitter
	scorer   *matching.Scorer
	validate *validator.Validate
	logger   ectologger.Logger
	config   Config

	mu    sync.RWMutex
	table *reconcile.Table

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(venues VenueStore, records RecordStore, reviews ReviewStore, emitter OutcomeEmitter, scorer *matching.Scorer, logger ectologger.Logger, config Config) *Processor {
	if config.AcceptThreshold <= 0 {
		config.AcceptThreshold = DefaultAcceptThreshold
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	return &Processor{
		venues:   venues,
		records:  records,
		reviews:  reviews,
		emitter:  emitter,
		scorer:   scorer,
		validate: validator.New(),
		logger:   logger,
		config:   config,
		table:    reconcile.NewTable(scorer),
	}
}

// Start builds the initial venue table and begins periodic refreshes.
func (p *Processor) Start(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.refreshLoop(ctx)
	return nil
}

// Stop halts the refresh loop.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Refresh rebuilds the in-memory venue table from the database.
func (p *Processor) Refresh(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.Refresh")
	defer span.End()

	venues, err := p.venues.Snapshot(ctx)
	if err != nil {
		return err
	}

	table := reconcile.NewTable(p.scorer)
	for _, v := range venues {
		if err := table.Add(v.ID, v.DisplayName); err != nil {
			// duplicate canonical keys cannot happen past the unique
			// constraint, but a bad row should not sink the whole rebuild
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"venue_id": v.ID,
			}).Warn("Skipping venue during table rebuild")
		}
	}

	p.mu.Lock()
	p.table = table
	p.mu.Unlock()

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"venues": table.Len(),
	}).Info("Venue table rebuilt")
	return nil
}

func (p *Processor) refreshLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.WithContext(ctx).WithError(err).Error("Venue table refresh failed")
			}
		}
	}
}

// HandleMessage is the kafka handler entrypoint. Returning an error leaves
// the message uncommitted for redelivery.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if msg.Listing == nil {
		if err := msg.ParseListing(); err != nil {
			return err
		}
	}

	if err := p.validate.Struct(msg.Listing); err != nil {
		// invalid listings are dropped, not retried
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":    msg.GetSource(),
			"source_id": msg.GetSourceID(),
		}).Warn("Dropping invalid listing")
		metrics.KafkaMessagesConsumed.WithLabelValues("invalid").Inc()
		return nil
	}

	if err := p.ProcessListing(ctx, msg.Listing); err != nil {
		metrics.KafkaMessagesConsumed.WithLabelValues("error").Inc()
		return err
	}
	metrics.KafkaMessagesConsumed.WithLabelValues("ok").Inc()
	return nil
}

// ProcessListing stores one listing and routes it by resolution outcome:
// auto-match at or above the accept threshold, review queue for scores in
// the ambiguous band, unmatched below the session threshold.
func (p *Processor) ProcessListing(ctx context.Context, listing *models.ListingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessListing")
	defer span.End()

	start := time.Now()
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"source":    listing.Source,
		"source_id": listing.SourceID,
		"raw_name":  listing.RawName,
	})

	record, err := p.records.Create(ctx, listing)
	if err != nil {
		return err
	}
	if record.Status != models.SourceRecordStatusPending {
		// replayed listing that was already decided; the upsert refreshed
		// its payload and there is nothing left to do
		log.WithField("status", record.Status).Debug("Listing already reconciled")
		return nil
	}

	p.mu.RLock()
	table := p.table
	p.mu.RUnlock()

	session := reconcile.NewSession(table, p.scorer, p.config.SessionConfig)
	resolution := session.Resolve(listing.RawName)

	elapsed := time.Since(start).Seconds()
	switch {
	case resolution.Matched && (resolution.Method == matching.MethodExact || resolution.Score >= p.config.AcceptThreshold):
		if err := p.records.UpdateStatus(ctx, record.ID, models.SourceRecordStatusMatched, &resolution.Entry.ID); err != nil {
			return err
		}
		if err := p.emitter.VenueMatched(ctx, record.ID, resolution.Entry.ID, listing.Source, listing.RawName, resolution.Score, string(resolution.Method)); err != nil {
			return err
		}
		metrics.RecordResolution(string(listing.Source), string(resolution.Method), "matched", resolution.Score, elapsed)
		log.WithFields(map[string]any{
			"venue_id": resolution.Entry.ID,
			"score":    resolution.Score,
			"method":   resolution.Method,
		}).Info("Listing matched")
		return nil

	case resolution.Matched:
		review, err := p.reviews.Create(ctx, record.ID, &resolution.Entry.ID, resolution.Score, string(resolution.Method))
		if err != nil {
			return err
		}
		if err := p.emitter.ReviewQueued(ctx, record.ID, review.ID, listing.Source, listing.RawName, resolution.Score, string(resolution.Method)); err != nil {
			return err
		}
		metrics.RecordResolution(string(listing.Source), string(resolution.Method), "review", resolution.Score, elapsed)
		log.WithFields(map[string]any{
			"review_id": review.ID,
			"score":     resolution.Score,
		}).Info("Listing queued for review")
		return nil

	default:
		if err := p.records.UpdateStatus(ctx, record.ID, models.SourceRecordStatusUnmatched, nil); err != nil {
			return err
		}
		if _, err := p.reviews.Create(ctx, record.ID, nil, resolution.Score, string(resolution.Method)); err != nil {
			return err
		}
		if err := p.emitter.Unmatched(ctx, record.ID, listing.Source, listing.RawName, resolution.Score); err != nil {
			return err
		}
		metrics.RecordResolution(string(listing.Source), string(resolution.Method), "unmatched", resolution.Score, elapsed)
		log.WithField("score", resolution.Score).Info("Listing unmatched")
		return nil
	}
}

// ensure the emitter satisfies the pipeline interface
var _ OutcomeEmitter = (*events.Emitter)(nil)

// Package sourcerecord persists scraped listings moving through the pipeline.
package sourcerecord

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

// Repository handles source record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create stores a scraped listing in pending status. A listing already seen
// from the same source with the same source id is upserted, keeping the
// newest payload but not resetting a terminal status.
func (r *Repository) Create(ctx context.Context, msg *models.ListingMessage) (*models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	record := &models.SourceRecord{
		ID:        uuid.New(),
		RawName:   msg.RawName,
		Source:    msg.Source,
		SourceID:  msg.SourceID,
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
		Payload:   msg.Payload,
		Status:    models.SourceRecordStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ib := database.NewInsertBuilder().InsertInto("source_records").
		Cols("id", "raw_name", "source", "source_id", "latitude", "longitude",
			"payload", "status", "created_at", "updated_at").
		Values(record.ID, record.RawName, record.Source, record.SourceID, record.Latitude, record.Longitude,
			record.Payload, record.Status, record.CreatedAt, record.UpdatedAt)
	ub := ib.OnConflict("source", "source_id")
	ub.Set(
		ub.Assign("raw_name", database.Excluded("raw_name")),
		ub.Assign("payload", database.Excluded("payload")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	ib = ib.Returning("id", "status", "created_at")

	query, args := ib.Build()
	row := r.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&record.ID, &record.Status, &record.CreatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":    msg.Source,
			"source_id": msg.SourceID,
		}).Error("Failed to upsert source record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store source record")
	}

	return record, nil
}

// GetByID returns one source record, 404 when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("source_records")
	sb.Where(sb.Equal("id", id))

	var record models.SourceRecord
	query, args := sb.Build()
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "source record not found")
		}
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load source record")
	}
	return &record, nil
}

// UpdateStatus moves a record to a new status, attaching the matched venue
// when there is one.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SourceRecordStatus, venueID *uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.UpdateStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("source_records")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("venue_id", venueID),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_record_id": id,
			"status":           status,
		}).Error("Failed to update source record status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update source record")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "source record not found")
	}
	return nil
}

// ListByStatus returns a page of records in a given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status models.SourceRecordStatus, page, pageSize int) ([]models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.ListByStatus")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("source_records")
	sb.Where(sb.Equal("status", status))
	sb.OrderBy("created_at ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	items := []models.SourceRecord{}
	query, args := sb.Build()
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list source records")
	}
	return items, nil
}

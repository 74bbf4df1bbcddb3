// Package venue persists the venue lookup table.
package venue

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/seatwize/reconciler/pkg/database"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/normalize"
	"github.com/seatwize/reconciler/pkg/tracing"
)

const uniqueViolation = "23505"

// Repository handles venue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts a venue. The canonical key is derived from the display name
// here so callers cannot insert a row that disagrees with normalization.
// Returns 409 when the key already exists.
func (r *Repository) Create(ctx context.Context, req *models.CreateVenueRequest) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.Create")
	defer span.End()

	key := normalize.Canonical(req.DisplayName)
	if key == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "display name normalizes to empty")
	}

	now := time.Now().UTC()
	venue := &models.Venue{
		ID:            uuid.New(),
		CanonicalKey:  key,
		DisplayName:   req.DisplayName,
		Source:        req.Source,
		GooglePlaceID: req.GooglePlaceID,
		ResySlug:      req.ResySlug,
		ResyURL:       req.ResyURL,
		OpenTableSlug: req.OpenTableSlug,
		OpenTableURL:  req.OpenTableURL,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Neighborhood:  req.Neighborhood,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("venues")
	sb.Cols("id", "canonical_key", "display_name", "source", "google_place_id",
		"resy_slug", "resy_url", "opentable_slug", "opentable_url",
		"latitude", "longitude", "neighborhood", "created_at", "updated_at")
	sb.Values(venue.ID, venue.CanonicalKey, venue.DisplayName, venue.Source, venue.GooglePlaceID,
		venue.ResySlug, venue.ResyURL, venue.OpenTableSlug, venue.OpenTableURL,
		venue.Latitude, venue.Longitude, venue.Neighborhood, venue.CreatedAt, venue.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "venue already exists for canonical key "+key)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"canonical_key": key,
		}).Error("Failed to insert venue")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert venue")
	}

	return venue, nil
}

// GetByID returns one venue, 404 when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("venues")
	sb.Where(sb.Equal("id", id))

	var venue models.Venue
	query, args := sb.Build()
	if err := r.db.GetContext(ctx, &venue, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "venue not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("venue_id", id).Error("Failed to load venue")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load venue")
	}
	return &venue, nil
}

// GetByCanonicalKey returns the venue for a canonical key, 404 when missing.
func (r *Repository) GetByCanonicalKey(ctx context.Context, key string) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.GetByCanonicalKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("venues")
	sb.Where(sb.Equal("canonical_key", key))

	var venue models.Venue
	query, args := sb.Build()
	if err := r.db.GetContext(ctx, &venue, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "venue not found")
		}
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load venue")
	}
	return &venue, nil
}

// List returns a page of venues ordered by display name.
func (r *Repository) List(ctx context.Context, page, pageSize int) (*models.VenueListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM venues"); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count venues")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("venues")
	sb.OrderBy("display_name ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	items := []models.Venue{}
	query, args := sb.Build()
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list venues")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list venues")
	}

	return &models.VenueListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Search finds venues whose display name or canonical key contains the term.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.Search")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("venues")
	pattern := "%" + term + "%"
	sb.Where(sb.Or(
		sb.ILike("display_name", pattern),
		sb.ILike("canonical_key", pattern),
	))
	sb.OrderBy("display_name ASC")
	sb.Limit(limit)

	items := []models.Venue{}
	query, args := sb.Build()
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search venues")
	}
	return items, nil
}

// Snapshot loads every venue for building an in-memory lookup table.
func (r *Repository) Snapshot(ctx context.Context) ([]models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.Snapshot")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("venues")
	sb.OrderBy("created_at ASC")

	items := []models.Venue{}
	query, args := sb.Build()
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to snapshot venues")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot venues")
	}
	return items, nil
}

// SetBookingSlug records a confirmed booking-platform slug and URL.
func (r *Repository) SetBookingSlug(ctx context.Context, id uuid.UUID, source models.VenueSource, slug, url string) error {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.SetBookingSlug")
	defer span.End()

	var slugCol, urlCol string
	switch source {
	case models.VenueSourceResy:
		slugCol, urlCol = "resy_slug", "resy_url"
	case models.VenueSourceOpenTable:
		slugCol, urlCol = "opentable_slug", "opentable_url"
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "source has no booking slug column")
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("venues")
	ub.Set(
		ub.Assign(slugCol, slug),
		ub.Assign(urlCol, url),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"venue_id": id,
			"source":   source,
		}).Error("Failed to set booking slug")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set booking slug")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "venue not found")
	}
	return nil
}

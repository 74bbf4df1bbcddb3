package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/reconcile"
)

// VenueCatalog is the venue persistence the reconcile and review endpoints
// need.
type VenueCatalog interface {
	Snapshot(ctx context.Context) ([]models.Venue, error)
	Create(ctx context.Context, req *models.CreateVenueRequest) (*models.Venue, error)
	GetByCanonicalKey(ctx context.Context, key string) (*models.Venue, error)
}

// Refresher rebuilds the ingest pipeline's in-memory table after writes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ReconcileHandler runs ad-hoc batches of names through a reconciliation
// session: editorial imports, backfills, and threshold calibration runs.
type ReconcileHandler struct {
	venues    VenueCatalog
	refresher Refresher
	scorer    *matching.Scorer
	logger    ectologger.Logger
}

func NewReconcileHandler(venues VenueCatalog, refresher Refresher, scorer *matching.Scorer, logger ectologger.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		venues:    venues,
		refresher: refresher,
		scorer:    scorer,
		logger:    logger,
	}
}

// RegisterRoutes registers the reconcile routes
func (h *ReconcileHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/reconcile", h.Reconcile)
}

// ReconcileRequest is the request body for a batch reconciliation run.
// StageUnmatched stages unmatched names as new venues; Apply persists the
// staged additions. Staging without applying is a dry run.
type ReconcileRequest struct {
	Names          []string `json:"names"`
	Threshold      float64  `json:"threshold,omitempty"`
	Strategy       string   `json:"strategy,omitempty"`
	StageUnmatched bool     `json:"stage_unmatched,omitempty"`
	Apply          bool     `json:"apply,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// ReconcileResolution is one resolved name in the response
type ReconcileResolution struct {
	Query     string     `json:"query"`
	Key       string     `json:"key"`
	Matched   bool       `json:"matched"`
	Score     float64    `json:"score"`
	Method    string     `json:"method"`
	VenueID   *uuid.UUID `json:"venue_id,omitempty"`
	VenueName string     `json:"venue_name,omitempty"`
	Staged    bool       `json:"staged,omitempty"`
}

// ReconcilePatchOp is one staged change in the response
type ReconcilePatchOp struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
	Key  string    `json:"key"`
	Name string    `json:"name"`
}

// ReconcileResponse is the outcome of a batch reconciliation run
type ReconcileResponse struct {
	Resolutions []ReconcileResolution `json:"resolutions"`
	Patch       []ReconcilePatchOp    `json:"patch,omitempty"`
	Report      reconcile.Report      `json:"report"`
	MatchRate   float64               `json:"match_rate"`
	Created     int                   `json:"created,omitempty"`
}

// Reconcile handles POST /reconcile
func (h *ReconcileHandler) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if len(req.Names) == 0 {
		return BadRequest("names are required")
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		return err
	}
	if req.Apply && !req.StageUnmatched {
		return BadRequest("apply requires stage_unmatched")
	}

	venues, err := h.venues.Snapshot(ctx)
	if err != nil {
		return err
	}
	table := reconcile.NewTable(h.scorer)
	for _, v := range venues {
		if err := table.Add(v.ID, v.DisplayName); err != nil {
			h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"venue_id": v.ID,
			}).Warn("Skipping venue during reconcile table build")
		}
	}

	session := reconcile.NewSession(table, h.scorer, reconcile.Config{
		Threshold: req.Threshold,
		Strategy:  strategy,
	})

	resolutions := make([]ReconcileResolution, 0, len(req.Names))
	for _, name := range req.Names {
		res := session.Resolve(name)
		out := ReconcileResolution{
			Query:   res.Query,
			Key:     res.Key,
			Matched: res.Matched,
			Score:   res.Score,
			Method:  string(res.Method),
		}
		if res.Matched {
			id := res.Entry.ID
			out.VenueID = &id
			out.VenueName = res.Entry.Name
		} else if req.StageUnmatched {
			// staged names become matchable for the rest of the batch, so
			// duplicates within the input collapse onto one new venue
			_, out.Staged = session.StageAdd(uuid.New(), name)
		}
		resolutions = append(resolutions, out)
	}

	report := session.Report()
	report.NearMisses = report.RankedNearMisses()
	resp := ReconcileResponse{
		Resolutions: resolutions,
		Report:      report,
	}
	resp.MatchRate = resp.Report.MatchRate()

	patch := session.Patch()
	for _, op := range patch {
		resp.Patch = append(resp.Patch, ReconcilePatchOp{
			Kind: string(op.Kind),
			ID:   op.ID,
			Key:  op.Key,
			Name: op.Name,
		})
	}

	if req.Apply {
		source := models.VenueSource(req.Source)
		if source == "" {
			source = models.VenueSourceEditorial
		}
		for _, op := range patch {
			if op.Kind != reconcile.OpAdd {
				continue
			}
			if _, err := h.venues.Create(ctx, &models.CreateVenueRequest{
				DisplayName: op.Name,
				Source:      source,
			}); err != nil {
				return err
			}
			resp.Created++
		}
		if resp.Created > 0 && h.refresher != nil {
			if err := h.refresher.Refresh(ctx); err != nil {
				h.logger.WithContext(ctx).WithError(err).Error("Failed to refresh venue table after reconcile")
			}
		}
	}

	return SuccessResponse(c, resp)
}

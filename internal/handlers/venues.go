package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/probe"
	"github.com/seatwize/reconciler/pkg/slugs"
)

// VenueStore is the venue persistence the venue endpoints need.
type VenueStore interface {
	Create(ctx context.Context, req *models.CreateVenueRequest) (*models.Venue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	List(ctx context.Context, page, pageSize int) (*models.VenueListResponse, error)
	Search(ctx context.Context, term string, limit int) ([]models.Venue, error)
	SetBookingSlug(ctx context.Context, id uuid.UUID, source models.VenueSource, slug, url string) error
}

// SlugProber checks booking platforms for a venue's reservation page.
type SlugProber interface {
	Find(ctx context.Context, platform probe.Platform, name string, slugs []string) (probe.Outcome, error)
}

// VenueHandler handles venue CRUD and booking-page discovery
type VenueHandler struct {
	store     VenueStore
	prober    SlugProber
	refresher Refresher
	validate  *validator.Validate
	logger    ectologger.Logger
}

func NewVenueHandler(store VenueStore, prober SlugProber, refresher Refresher, logger ectologger.Logger) *VenueHandler {
	return &VenueHandler{
		store:     store,
		prober:    prober,
		refresher: refresher,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes registers the venue routes
func (h *VenueHandler) RegisterRoutes(g *echo.Group) {
	venues := g.Group("/venues")
	venues.POST("", h.Create)
	venues.GET("", h.List)
	venues.GET("/search", h.Search)
	venues.GET("/:id", h.Get)
	venues.POST("/:id/probe", h.Probe)
}

// Create handles POST /venues
func (h *VenueHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateVenueRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	venue, err := h.store.Create(ctx, &req)
	if err != nil {
		return err
	}

	// make the new venue matchable without waiting for the refresh tick
	if h.refresher != nil {
		if err := h.refresher.Refresh(ctx); err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to refresh venue table after create")
		}
	}

	return CreatedResponse(c, venue)
}

// List handles GET /venues
func (h *VenueHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	resp, err := h.store.List(ctx, page, pageSize)
	if err != nil {
		return err
	}
	return SuccessResponse(c, resp)
}

// Search handles GET /venues/search
func (h *VenueHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	term := c.QueryParam("q")
	if term == "" {
		return BadRequest("q query parameter is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	venues, err := h.store.Search(ctx, term, limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, venues)
}

// Get handles GET /venues/:id
func (h *VenueHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	venue, err := h.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, venue)
}

// ProbeRequest is the request body for booking-page discovery
type ProbeRequest struct {
	Platform     string `json:"platform"`
	LocationHint string `json:"location_hint,omitempty"`
}

// ProbeResponse reports the discovery outcome for one platform
type ProbeResponse struct {
	Confirmed bool    `json:"confirmed"`
	Slug      string  `json:"slug,omitempty"`
	URL       string  `json:"url,omitempty"`
	PageName  string  `json:"page_name,omitempty"`
	Score     float64 `json:"score,omitempty"`
	Tried     int     `json:"tried"`
}

// Probe handles POST /venues/:id/probe: generates slug candidates for the
// venue, checks them against the booking platform, and stores a confirmed
// slug on the venue row.
func (h *VenueHandler) Probe(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req ProbeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	platform := probe.Platform(req.Platform)
	if platform != probe.PlatformResy && platform != probe.PlatformOpenTable {
		return BadRequest("platform must be resy or opentable")
	}
	if h.prober == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "probing is not configured")
	}

	venue, err := h.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hint := req.LocationHint
	if hint == "" && venue.Neighborhood != nil {
		hint = *venue.Neighborhood
	}
	candidates := slugs.Candidates(venue.DisplayName, slugs.Options{LocationHint: hint})
	if len(candidates) == 0 {
		return BadRequest("venue name is too short to generate slug candidates")
	}

	outcome, err := h.prober.Find(ctx, platform, venue.DisplayName, candidates)
	if err != nil {
		if errors.Is(err, probe.ErrBlocked) {
			return httperror.NewHTTPError(http.StatusTooManyRequests, "platform is rate limiting; retry later")
		}
		return err
	}

	if outcome.Confirmed {
		if err := h.store.SetBookingSlug(ctx, id, platform.Source(), outcome.Slug, outcome.URL); err != nil {
			return err
		}
	}

	return SuccessResponse(c, ProbeResponse{
		Confirmed: outcome.Confirmed,
		Slug:      outcome.Slug,
		URL:       outcome.URL,
		PageName:  outcome.PageName,
		Score:     outcome.Score,
		Tried:     len(candidates),
	})
}

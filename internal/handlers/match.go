package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/normalize"
	"github.com/seatwize/reconciler/pkg/slugs"
)

// MatchHandler exposes the scoring primitives directly, mostly for threshold
// calibration and debugging from the admin UI.
type MatchHandler struct {
	scorer *matching.Scorer
}

func NewMatchHandler(scorer *matching.Scorer) *MatchHandler {
	return &MatchHandler{scorer: scorer}
}

// RegisterRoutes registers the match routes
func (h *MatchHandler) RegisterRoutes(g *echo.Group) {
	match := g.Group("/match")
	match.POST("/normalize", h.Normalize)
	match.POST("/score", h.Score)
	match.POST("/best", h.Best)
	match.POST("/slugs", h.Slugs)
}

// NormalizeRequest is the request body for normalizing a name
type NormalizeRequest struct {
	Name string `json:"name"`
}

// NormalizeResponse holds both normalization levels for a name
type NormalizeResponse struct {
	Name       string   `json:"name"`
	Comparable string   `json:"comparable"`
	Canonical  string   `json:"canonical"`
	Tokens     []string `json:"tokens"`
}

// Normalize handles POST /match/normalize
func (h *MatchHandler) Normalize(c echo.Context) error {
	var req NormalizeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if req.Name == "" {
		return BadRequest("name is required")
	}

	return SuccessResponse(c, NormalizeResponse{
		Name:       req.Name,
		Comparable: normalize.Comparable(req.Name),
		Canonical:  normalize.Canonical(req.Name),
		Tokens:     h.scorer.Tokens(req.Name),
	})
}

// ScoreRequest is the request body for scoring a name pair
type ScoreRequest struct {
	NameA    string `json:"name_a"`
	NameB    string `json:"name_b"`
	Strategy string `json:"strategy,omitempty"`
}

// ScoreResponse reports the similarity of a name pair
type ScoreResponse struct {
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

// Score handles POST /match/score
func (h *MatchHandler) Score(c echo.Context) error {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if req.NameA == "" || req.NameB == "" {
		return BadRequest("name_a and name_b are required")
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		return err
	}

	score, method := h.scorer.ScoreDetail(req.NameA, req.NameB, strategy)
	return SuccessResponse(c, ScoreResponse{Score: score, Method: string(method)})
}

// BestRequest is the request body for picking the best match from a pool
type BestRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Strategy   string   `json:"strategy,omitempty"`
	Threshold  float64  `json:"threshold,omitempty"`
}

// BestResponse reports the best candidate for a query
type BestResponse struct {
	Matched   bool    `json:"matched"`
	Candidate string  `json:"candidate,omitempty"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
}

// Best handles POST /match/best
func (h *MatchHandler) Best(c echo.Context) error {
	var req BestRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if req.Query == "" {
		return BadRequest("query is required")
	}
	if len(req.Candidates) == 0 {
		return BadRequest("candidates are required")
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		return err
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = matching.DefaultThreshold
	}

	result := matching.BestMatchNames(h.scorer, req.Query, req.Candidates, strategy, threshold)
	resp := BestResponse{
		Matched: result.Matched,
		Score:   result.Score,
		Method:  string(result.Method),
	}
	if result.Matched {
		resp.Candidate = result.Candidate.Value
	}
	return SuccessResponse(c, resp)
}

// SlugsRequest is the request body for generating booking-page slug candidates
type SlugsRequest struct {
	Name         string `json:"name"`
	LocationHint string `json:"location_hint,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// SlugsResponse lists slug candidates in probe order
type SlugsResponse struct {
	Slugs []string `json:"slugs"`
}

// Slugs handles POST /match/slugs
func (h *MatchHandler) Slugs(c echo.Context) error {
	var req SlugsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if req.Name == "" {
		return BadRequest("name is required")
	}

	candidates := slugs.Candidates(req.Name, slugs.Options{
		LocationHint: req.LocationHint,
		Limit:        req.Limit,
	})
	return SuccessResponse(c, SlugsResponse{Slugs: candidates})
}

func parseStrategy(s string) (matching.Strategy, error) {
	switch s {
	case "", string(matching.StrategyLenient):
		return matching.StrategyLenient, nil
	case string(matching.StrategyStrict):
		return matching.StrategyStrict, nil
	default:
		return "", BadRequest("strategy must be lenient or strict")
	}
}

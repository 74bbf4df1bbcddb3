package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwize/reconciler/pkg/matching"
)

func performJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func matchEcho() *echo.Echo {
	e := newTestEcho()
	NewMatchHandler(matching.NewScorer()).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func TestMatchNormalize(t *testing.T) {
	e := matchEcho()

	t.Run("should return both normalization levels", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/normalize",
			map[string]any{"name": "Kyuramen - Union Square"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[NormalizeResponse](t, rec)
		assert.Equal(t, "kyuramen", resp.Canonical)
		assert.Equal(t, "kyuramen", resp.Comparable)
	})

	t.Run("should keep place qualifiers in the comparable form", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/normalize",
			map[string]any{"name": "Carbone New York"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[NormalizeResponse](t, rec)
		assert.Equal(t, "carbone", resp.Canonical)
		assert.Equal(t, "carbone new york", resp.Comparable)
	})

	t.Run("should reject an empty name", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/normalize", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatchScore(t *testing.T) {
	e := matchEcho()

	t.Run("should score a containment pair", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/score",
			map[string]any{"name_a": "Carbone", "name_b": "Carbone New York"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[ScoreResponse](t, rec)
		assert.InDelta(t, 0.9, resp.Score, 1e-9)
		assert.Equal(t, string(matching.MethodContainment), resp.Method)
	})

	t.Run("should honor the strict strategy", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/score",
			map[string]any{"name_a": "Ribbon Blue", "name_b": "Blue Ribbon Sushi Izakaya", "strategy": "strict"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[ScoreResponse](t, rec)
		assert.InDelta(t, 0.5, resp.Score, 1e-9)
	})

	t.Run("should reject an unknown strategy", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/score",
			map[string]any{"name_a": "a", "name_b": "b", "strategy": "fuzzy"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatchBest(t *testing.T) {
	e := matchEcho()

	t.Run("should pick the best candidate", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/best", map[string]any{
			"query":      "The Odeon Restaurant",
			"candidates": []string{"Carbone", "Odeon", "Lilia"},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[BestResponse](t, rec)
		assert.True(t, resp.Matched)
		assert.Equal(t, "Odeon", resp.Candidate)
		assert.InDelta(t, 1.0, resp.Score, 1e-9)
	})

	t.Run("should omit the candidate when nothing clears the threshold", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/best", map[string]any{
			"query":      "Wildair",
			"candidates": []string{"Carbone", "Lilia"},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[BestResponse](t, rec)
		assert.False(t, resp.Matched)
		assert.Empty(t, resp.Candidate)
	})
}

func TestMatchSlugs(t *testing.T) {
	e := matchEcho()

	t.Run("should lead with the direct slug", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/slugs",
			map[string]any{"name": "L'Artusi"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[SlugsResponse](t, rec)
		require.NotEmpty(t, resp.Slugs)
		assert.Equal(t, "lartusi", resp.Slugs[0])
	})

	t.Run("should include the location hint variant", func(t *testing.T) {
		rec := performJSON(t, e, http.MethodPost, "/api/v1/match/slugs",
			map[string]any{"name": "Carbone", "location_hint": "greenwich village"})

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeJSON[SlugsResponse](t, rec)
		assert.Contains(t, resp.Slugs, "carbone-greenwich-village")
	})
}

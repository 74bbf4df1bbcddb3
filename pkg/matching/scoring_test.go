package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorerExact(t *testing.T) {
	scorer := NewScorer()

	t.Run("should score identical names 1.0", func(t *testing.T) {
		score, method := scorer.ScoreDetail("Carbone", "Carbone", StrategyLenient)
		assert.Equal(t, 1.0, score)
		assert.Equal(t, MethodExact, method)
	})

	t.Run("should be case and punctuation invariant", func(t *testing.T) {
		score, method := scorer.ScoreDetail("L'Artusi", "lartusi", StrategyLenient)
		assert.Equal(t, 1.0, score)
		assert.Equal(t, MethodExact, method)
	})

	t.Run("should match after stripping articles and venue nouns", func(t *testing.T) {
		score, method := scorer.ScoreDetail("The Odeon Restaurant", "Odeon", StrategyLenient)
		assert.Equal(t, 1.0, score)
		assert.Equal(t, MethodExact, method)
	})

	t.Run("should score empty input 0 without error", func(t *testing.T) {
		score, method := scorer.ScoreDetail("", "Carbone", StrategyLenient)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, MethodNone, method)
	})
}

func TestScorerContainment(t *testing.T) {
	scorer := NewScorer()

	t.Run("should score whole-word containment 0.9", func(t *testing.T) {
		score, method := scorer.ScoreDetail("Carbone", "Carbone New York", StrategyLenient)
		assert.Equal(t, 0.9, score)
		assert.Equal(t, MethodContainment, method)
	})

	t.Run("should be symmetric", func(t *testing.T) {
		a := scorer.Score("Carbone", "Carbone New York", StrategyLenient)
		b := scorer.Score("Carbone New York", "Carbone", StrategyLenient)
		assert.Equal(t, a, b)
	})

	t.Run("should require word alignment", func(t *testing.T) {
		// "ramen" appears inside "kyuramen" but not on a word boundary
		score, method := scorer.ScoreDetail("Ramen", "Kyuramen", StrategyLenient)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, MethodNone, method)
	})

	t.Run("should not apply below the length floor", func(t *testing.T) {
		score, method := scorer.ScoreDetail("Kin", "Kin Shop Downtown Special", StrategyStrict)
		assert.NotEqual(t, MethodContainment, method)
		assert.Less(t, score, 0.9)
	})
}

func TestScorerWordOverlap(t *testing.T) {
	scorer := NewScorer()

	t.Run("should score unrelated names near zero", func(t *testing.T) {
		score := scorer.Score("Kyuramen - Union Square", "Canto Upper West Side", StrategyLenient)
		assert.Less(t, score, 0.3)
		score = scorer.Score("Kyuramen - Union Square", "Canto Upper West Side", StrategyStrict)
		assert.Less(t, score, 0.3)
	})

	t.Run("should divide by the smaller side under lenient", func(t *testing.T) {
		score, method := scorer.ScoreDetail("Ribbon Blue", "Blue Ribbon Sushi Izakaya", StrategyLenient)
		assert.Equal(t, MethodWordOverlap, method)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("should divide by the larger side under strict", func(t *testing.T) {
		score, method := scorer.ScoreDetail("Ribbon Blue", "Blue Ribbon Sushi Izakaya", StrategyStrict)
		assert.Equal(t, MethodWordOverlap, method)
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("should ignore stop words", func(t *testing.T) {
		// "new york" contributes nothing: overlap comes only from "carbone"
		score := scorer.Score("Carbone New York", "Pastis New York", StrategyLenient)
		assert.Equal(t, 0.0, score)
	})

	t.Run("should discard one and two rune tokens", func(t *testing.T) {
		// "wo" is too short to count toward overlap on either side
		score, method := scorer.ScoreDetail("Lil Wo", "Wo Hop", StrategyLenient)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, MethodNone, method)
	})

	t.Run("should count duplicate words as a multiset", func(t *testing.T) {
		score := scorer.Score("Pang Pang Num", "Num Pang", StrategyStrict)
		assert.InDelta(t, 2.0/3.0, score, 1e-9)
	})

	t.Run("should stay within [0, 1]", func(t *testing.T) {
		pairs := [][2]string{
			{"Carbone", "Carbone New York"},
			{"Joe's Pizza", "Joe's Pizza Broadway"},
			{"Wildair", "Contra"},
			{"", ""},
		}
		for _, p := range pairs {
			for _, strategy := range []Strategy{StrategyLenient, StrategyStrict} {
				score := scorer.Score(p[0], p[1], strategy)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 1.0)
			}
		}
	})
}

func TestBestMatch(t *testing.T) {
	scorer := NewScorer()

	t.Run("should pick the first candidate on a containment tie", func(t *testing.T) {
		pool := []Candidate[int]{
			{Name: "Carbone New York", Value: 1},
			{Name: "Carbone Beverly Hills", Value: 2},
		}
		result := BestMatch(scorer, "Carbone", pool, StrategyLenient, DefaultThreshold)
		assert.True(t, result.Matched)
		assert.Equal(t, 0.9, result.Score)
		assert.Equal(t, MethodContainment, result.Method)
		assert.Equal(t, 1, result.Candidate.Value)
	})

	t.Run("should break word-overlap ties by input order", func(t *testing.T) {
		pool := []Candidate[int]{
			{Name: "Ribbon Market", Value: 1},
			{Name: "Blue Market", Value: 2},
		}
		result := BestMatch(scorer, "Blue Ribbon", pool, StrategyLenient, 0.4)
		assert.True(t, result.Matched)
		assert.Equal(t, MethodWordOverlap, result.Method)
		assert.Equal(t, 1, result.Candidate.Value)
	})

	t.Run("should return an unmatched result below threshold", func(t *testing.T) {
		pool := []Candidate[int]{
			{Name: "Canto Upper West Side", Value: 1},
		}
		result := BestMatch(scorer, "Kyuramen - Union Square", pool, StrategyLenient, DefaultThreshold)
		assert.False(t, result.Matched)
		assert.Equal(t, MethodNone, result.Method)
		assert.Zero(t, result.Candidate.Value)
	})

	t.Run("should handle an empty pool", func(t *testing.T) {
		result := BestMatch[int](scorer, "Carbone", nil, StrategyLenient, DefaultThreshold)
		assert.False(t, result.Matched)
	})

	t.Run("should never match with score below threshold", func(t *testing.T) {
		pool := []Candidate[string]{
			{Name: "Blue Ribbon Sushi Izakaya", Value: "a"},
			{Name: "Ribbon Factory Outlet Store", Value: "b"},
		}
		for _, threshold := range []float64{0.3, 0.6, 0.9} {
			result := BestMatch(scorer, "Ribbon Blue", pool, StrategyStrict, threshold)
			if result.Matched {
				assert.GreaterOrEqual(t, result.Score, threshold)
			}
		}
	})

	t.Run("should prefer exact over containment regardless of order", func(t *testing.T) {
		pool := []Candidate[int]{
			{Name: "Carbone New York Downtown", Value: 1},
			{Name: "Carbone", Value: 2},
		}
		result := BestMatch(scorer, "Carbone", pool, StrategyLenient, DefaultThreshold)
		assert.True(t, result.Matched)
		assert.Equal(t, MethodExact, result.Method)
		assert.Equal(t, 2, result.Candidate.Value)
	})

	t.Run("should wrap plain name lists", func(t *testing.T) {
		result := BestMatchNames(scorer, "Odeon", []string{"The Odeon Restaurant", "Balthazar"}, StrategyLenient, DefaultThreshold)
		assert.True(t, result.Matched)
		assert.Equal(t, "The Odeon Restaurant", result.Candidate.Value)
	})
}

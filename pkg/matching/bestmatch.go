package matching

// Candidate pairs a name with an arbitrary payload carried through matching.
type Candidate[T any] struct {
	Name  string
	Value T
}

// Result is the outcome of a BestMatch call. A no-match is a normal value,
// not an error: Matched is false while Score, Method, and Candidate still
// describe the best sub-threshold candidate seen, which callers use for
// threshold calibration. Check Matched before trusting Candidate.
type Result[T any] struct {
	Matched   bool
	Score     float64
	Method    Method
	Candidate Candidate[T]
}

// BestMatch scores query against every candidate and returns the highest
// score at or above threshold. Ties always go to the earlier candidate, so
// the result is deterministic in pool order.
func BestMatch[T any](scorer *Scorer, query string, pool []Candidate[T], strategy Strategy, threshold float64) Result[T] {
	best := Result[T]{Method: MethodNone}

	for _, candidate := range pool {
		score, method := scorer.ScoreDetail(query, candidate.Name, strategy)
		if score <= best.Score {
			continue
		}
		best = Result[T]{
			Score:     score,
			Method:    method,
			Candidate: candidate,
		}
	}

	best.Matched = best.Score >= threshold && best.Method != MethodNone
	return best
}

// BestMatchNames is BestMatch over a plain list of names.
func BestMatchNames(scorer *Scorer, query string, names []string, strategy Strategy, threshold float64) Result[string] {
	pool := make([]Candidate[string], len(names))
	for i, name := range names {
		pool[i] = Candidate[string]{Name: name, Value: name}
	}
	return BestMatch(scorer, query, pool, strategy, threshold)
}

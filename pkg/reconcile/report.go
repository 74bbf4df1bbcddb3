package reconcile

import (
	"sort"

	"github.com/hbollon/go-edlib"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/normalize"
)

// histogramBuckets is the number of equal-width score buckets in [0, 1].
const histogramBuckets = 10

// nearMissMargin is how far below threshold a score may fall and still be
// recorded for manual review.
const nearMissMargin = 0.1

// NearMiss is an unmatched query that scored close to the threshold. These
// are the cases worth eyeballing when calibrating thresholds. Similarity is
// the Jaro-Winkler similarity between the comparable forms of the query and
// the best candidate; it never affects match decisions, only review order.
type NearMiss struct {
	Query      string
	BestName   string
	Score      float64
	Method     matching.Method
	Similarity float64
}

// Report accumulates resolution statistics for threshold calibration.
type Report struct {
	Total     int
	Matched   int
	Unmatched int

	// ByMethod counts matched resolutions per scoring rule.
	ByMethod map[matching.Method]int

	// Histogram buckets scores into ten equal-width bins; scores of exactly
	// 1.0 land in the last bin.
	Histogram [histogramBuckets]int

	NearMisses []NearMiss
}

func (r *Report) observe(res Resolution, bestName string, threshold float64) {
	if r.ByMethod == nil {
		r.ByMethod = make(map[matching.Method]int)
	}
	r.Total++
	if res.Matched {
		r.Matched++
		r.ByMethod[res.Method]++
	} else {
		r.Unmatched++
		if res.Score > 0 && res.Score >= threshold-nearMissMargin {
			similarity := edlib.JaroWinklerSimilarity(
				normalize.Comparable(res.Query), normalize.Comparable(bestName))
			r.NearMisses = append(r.NearMisses, NearMiss{
				Query:      res.Query,
				BestName:   bestName,
				Score:      res.Score,
				Method:     res.Method,
				Similarity: float64(similarity),
			})
		}
	}

	bucket := int(res.Score * histogramBuckets)
	if bucket >= histogramBuckets {
		bucket = histogramBuckets - 1
	}
	if bucket < 0 {
		bucket = 0
	}
	r.Histogram[bucket]++
}

// RankedNearMisses returns the near misses ordered for review, most similar
// first. Ties keep observation order. The stored list is left untouched.
func (r *Report) RankedNearMisses() []NearMiss {
	out := make([]NearMiss, len(r.NearMisses))
	copy(out, r.NearMisses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// MatchRate returns the fraction of resolutions that matched.
func (r *Report) MatchRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(r.Total)
}

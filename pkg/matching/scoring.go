// Package matching implements restaurant name matching algorithms
package matching

import (
	"strings"

	"github.com/seatwize/reconciler/pkg/normalize"
)

// Unified thresholds. Discovery compares a scraped name against the local
// lookup table; verification compares a probed page title against the name we
// asked for, which warrants a stricter bar.
const (
	DefaultThreshold       = 0.6
	DefaultVerifyThreshold = 0.7

	// DefaultMinContainmentLen is the minimum length of the shorter name for
	// the containment rule to apply. Below it, short names like "Kin" match
	// inside too many unrelated names.
	DefaultMinContainmentLen = 4

	containmentScore = 0.9
)

// Strategy selects the denominator for word-overlap scoring.
type Strategy string

const (
	// StrategyLenient divides overlap by the smaller significant-word count.
	// A short query fully contained in a longer name scores high. Used for
	// discovery against the lookup table.
	StrategyLenient Strategy = "lenient"

	// StrategyStrict divides overlap by the larger significant-word count.
	// Extra words on either side drag the score down. Used to verify names
	// returned by a remote probe.
	StrategyStrict Strategy = "strict"
)

// Method reports which rule produced a score.
type Method string

const (
	MethodExact       Method = "exact"
	MethodContainment Method = "containment"
	MethodWordOverlap Method = "word_overlap"
	MethodNone        Method = "none"
)

// defaultStopWords are tokens ignored by word-overlap scoring: glue words,
// generic venue nouns, and city tags that would otherwise inflate overlap
// between unrelated venues.
var defaultStopWords = []string{
	"the", "a", "an", "and", "of", "at", "in", "on", "by",
	"restaurant", "cafe", "bar", "kitchen", "grill", "house",
	"nyc", "ny", "new", "york", "city",
}

// Scorer scores pairs of restaurant names. The zero value is not usable; use
// NewScorer. Safe for concurrent use.
type Scorer struct {
	stopWords         map[string]struct{}
	minContainmentLen int
}

// ScorerOption customizes a Scorer.
type ScorerOption func(*Scorer)

// WithStopWords replaces the default stop-word set.
func WithStopWords(words []string) ScorerOption {
	return func(s *Scorer) {
		s.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			s.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithMinContainmentLen overrides the containment length floor.
func WithMinContainmentLen(n int) ScorerOption {
	return func(s *Scorer) {
		s.minContainmentLen = n
	}
}

// NewScorer creates a Scorer with the default stop words and containment floor.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{minContainmentLen: DefaultMinContainmentLen}
	WithStopWords(defaultStopWords)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score compares two raw names and returns a similarity in [0, 1].
func (s *Scorer) Score(a, b string, strategy Strategy) float64 {
	score, _ := s.ScoreDetail(a, b, strategy)
	return score
}

// ScoreDetail is Score plus the rule that produced the result. Rules are
// tried in order: exact match on the comparable forms (1.0), whole-word
// containment of the shorter name in the longer (0.9, shorter side at least
// minContainmentLen runes), then significant-word overlap. Exact and
// containment are symmetric in a and b; word overlap under StrategyLenient is
// not, which is intentional.
func (s *Scorer) ScoreDetail(a, b string, strategy Strategy) (float64, Method) {
	na := normalize.Comparable(a)
	nb := normalize.Comparable(b)

	if na == "" || nb == "" {
		return 0, MethodNone
	}
	if na == nb {
		return 1.0, MethodExact
	}

	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len([]rune(shorter)) >= s.minContainmentLen && containsWords(longer, shorter) {
		return containmentScore, MethodContainment
	}

	overlap := s.wordOverlap(na, nb, strategy)
	if overlap <= 0 {
		return 0, MethodNone
	}
	return overlap, MethodWordOverlap
}

// wordOverlap computes multiset intersection of significant words divided by
// min (lenient) or max (strict) of the two word counts.
func (s *Scorer) wordOverlap(na, nb string, strategy Strategy) float64 {
	wa := s.significantWords(na)
	wb := s.significantWords(nb)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(wa))
	for _, w := range wa {
		counts[w]++
	}
	shared := 0
	for _, w := range wb {
		if counts[w] > 0 {
			counts[w]--
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	denom := len(wa)
	switch strategy {
	case StrategyLenient:
		if len(wb) < denom {
			denom = len(wb)
		}
	default:
		if len(wb) > denom {
			denom = len(wb)
		}
	}
	return float64(shared) / float64(denom)
}

// Tokens returns the significant words of a raw name: the comparable form
// split on whitespace with stop words removed. Callers use it to build
// token indexes that agree with word-overlap scoring.
func (s *Scorer) Tokens(name string) []string {
	comparable := normalize.Comparable(name)
	if comparable == "" {
		return nil
	}
	return s.significantWords(comparable)
}

// significantWords splits a comparable-form name and drops stop words and
// tokens of fewer than three runes, which carry too little identity to count
// toward overlap. When nothing survives the full word list is kept, so names
// made entirely of generic tokens can still be compared.
func (s *Scorer) significantWords(name string) []string {
	words := strings.Fields(name)
	significant := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := s.stopWords[w]; stop {
			continue
		}
		if len([]rune(w)) <= 2 {
			continue
		}
		significant = append(significant, w)
	}
	if len(significant) == 0 {
		return words
	}
	return significant
}

// containsWords reports whether needle's words appear as a contiguous
// word-aligned run inside haystack. "carbone" is contained in
// "carbone new york"; "ramen" is not contained in "kyuramen".
func containsWords(haystack, needle string) bool {
	hw := strings.Fields(haystack)
	nw := strings.Fields(needle)
	if len(nw) == 0 || len(nw) > len(hw) {
		return false
	}
	for start := 0; start+len(nw) <= len(hw); start++ {
		matched := true
		for i, w := range nw {
			if hw[start+i] != w {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

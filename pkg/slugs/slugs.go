// Package slugs generates URL slug candidates for probing booking platforms.
//
// Booking sites key venue pages by slug ("carbone-new-york"), but each platform
// slugs names differently. Candidates produces an ordered guess list, most
// specific first, so a probe loop can stop at the first confirmed hit.
package slugs

import (
	"strings"
	"unicode"

	"github.com/seatwize/reconciler/pkg/normalize"
)

// DefaultLimit caps the number of candidates returned by Candidates.
const DefaultLimit = 15

// Options tunes candidate generation.
type Options struct {
	// LocationHint is an optional place name known for the venue (for example
	// a neighborhood from the scraped listing). It is slugified and appended
	// as a suffix variant.
	LocationHint string

	// Limit overrides DefaultLimit when > 0.
	Limit int
}

// Slugify converts a raw name into a hyphenated [a-z0-9-] slug. It keeps the
// leading article and any location qualifier: "Kyuramen - Union Square"
// becomes "kyuramen-union-square".
func Slugify(name string) string {
	s := normalize.Lowercase(name)
	s = normalize.StripDiacritics(s)
	s = normalize.AndSymbol(s)
	return hyphenate(s)
}

// Candidates returns an ordered, deduplicated slug guess list for a name.
// Ordering is a contract: callers probe in order and stop at the first
// confirmed hit, so specific variants come before generic ones. Degenerate
// names (fewer than 3 significant characters after canonicalization) return
// nil.
func Candidates(name string, opts Options) []string {
	canonical := normalize.Canonical(name)
	if significantChars(canonical) < 3 {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	add := func(slug string) {
		if slug == "" || len(out) >= limit {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}

	base := hyphenate(canonical)

	// Most specific: the name as written, then the comparable form that keeps
	// location words but drops articles and venue nouns. When the comparable
	// form collapses to the base slug it is held back so the city-suffixed
	// variants are probed first.
	add(Slugify(name))
	if comparable := hyphenate(normalize.Comparable(name)); comparable != base {
		add(comparable)
	}

	if hint := hyphenate(normalize.Canonical(opts.LocationHint)); hint != "" && hint != base {
		add(base + "-" + hint)
	}
	add(base + "-new-york")
	add(base + "-nyc")

	add(base)
	if !strings.HasPrefix(base, "the-") {
		add("the-" + base)
	}

	// Generic fallbacks: leading-token truncations for long names.
	words := strings.Split(canonical, " ")
	for _, n := range []int{3, 2, 1} {
		if len(words) > n {
			add(hyphenate(strings.Join(words[:n], " ")))
		}
	}

	return out
}

// hyphenate maps every non-alphanumeric run to a single hyphen and trims.
func hyphenate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		if r == '\'' || r == '’' || r == '‘' {
			// possessives stay one token: "joe's" -> "joes"
			continue
		}
		pending = true
	}
	return b.String()
}

func significantChars(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			count++
		}
	}
	return count
}

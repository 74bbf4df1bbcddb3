// Package normalize canonicalizes raw restaurant names into comparable forms.
//
// Two levels of normalization are exposed:
//   - Comparable: the form used for scoring two names against each other. It
//     keeps location qualifiers ("carbone new york") so that containment and
//     word-overlap scoring can see them.
//   - Canonical: the form used as a lookup-table key and as slug input. It
//     additionally strips location qualifiers and trailing place names, so
//     "Carbone New York" and "Carbone" share the key "carbone".
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("strip_diacritics", StripDiacritics)
	Register("strip_punctuation", StripPunctuation)
	Register("and_symbol", AndSymbol)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("strip_location_qualifier", StripLocationQualifier)
	Register("strip_place_suffix", StripPlaceSuffix)
	Register("strip_generic_suffix", StripGenericSuffix)
	Register("strip_leading_article", StripLeadingArticle)
	Register("comparable", Comparable)
	Register("canonical", Canonical)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names return the value
// unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// punctuation is the fixed set stripped from names. Dashes are handled by
// StripLocationQualifier first, then removed here.
const punctuation = `"'’‘“”.,:;!?()[]{}-–—/\`

// placeTokens are non-discriminating location qualifiers that follow a
// restaurant name: boroughs, common neighborhoods, and city tags.
var placeTokens = []string{
	"new york city",
	"new york ny",
	"new york",
	"nyc",
	"ny",
	"manhattan",
	"brooklyn",
	"queens",
	"bronx",
	"the bronx",
	"staten island",
	"union square",
	"times square",
	"upper east side",
	"upper west side",
	"lower east side",
	"east village",
	"west village",
	"greenwich village",
	"midtown",
	"downtown",
	"uptown",
	"soho",
	"noho",
	"nolita",
	"tribeca",
	"chinatown",
	"chelsea",
	"williamsburg",
	"flatiron",
	"hells kitchen",
	"hell's kitchen",
	"harlem",
	"fidi",
	"les",
}

// genericSuffixes are trailing venue-type nouns that carry no identity. Longer
// phrases are listed before their substrings so the longest match wins.
var genericSuffixes = []string{
	"bar and grill",
	"bar & grill",
	"dining room",
	"wine bar",
	"steak house",
	"steakhouse",
	"restaurant",
	"trattoria",
	"pizzeria",
	"brasserie",
	"bistro",
	"cantina",
	"taverna",
	"tavern",
	"osteria",
	"kitchen",
	"eatery",
	"grill",
	"cafe",
	"diner",
	"lounge",
	"bakery",
	"bar",
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// diacriticStripper removes combining marks after NFD decomposition.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes accents and other combining marks ("Café" -> "Cafe")
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

// AndSymbol replaces "&" with the word "and"
func AndSymbol(s string) string {
	return strings.ReplaceAll(s, "&", " and ")
}

// StripPunctuation replaces the fixed punctuation set with spaces so that
// "Joe's" becomes "joes" after whitespace collapse is applied... note
// apostrophes are removed outright to keep possessives as one token.
func StripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '’' || r == '‘':
			// drop: "joe's" -> "joes"
		case strings.ContainsRune(punctuation, r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseWhitespace collapses runs of whitespace to single spaces and trims
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}

// StripLocationQualifier removes a trailing qualifier clause introduced by a
// dash when the clause is a known place name: "Kyuramen - Union Square" ->
// "Kyuramen ". Applied once, not recursively. The input is expected to be
// lowercased already.
func StripLocationQualifier(s string) string {
	dashed := dashReplacer.Replace(s)
	idx := strings.LastIndexByte(dashed, '-')
	if idx < 0 {
		return s
	}
	clause := CollapseWhitespace(StripPunctuation(dashed[idx+1:]))
	if clause == "" {
		return s
	}
	for _, place := range placeTokens {
		if clause == place {
			return dashed[:idx]
		}
	}
	return s
}

// dashReplacer folds unicode dash variants into ASCII so qualifier detection
// works on byte offsets.
var dashReplacer = strings.NewReplacer("–", "-", "—", "-")

// StripPlaceSuffix removes trailing bare place names ("carbone new york" ->
// "carbone"). Longest match wins; applied repeatedly so "soho nyc" falls off
// in one call. The whole name is never reduced to empty: a name that IS a
// place name is left alone.
func StripPlaceSuffix(s string) string {
	for {
		stripped := stripOneSuffix(s, placeTokens)
		if stripped == s {
			return s
		}
		s = stripped
	}
}

// StripGenericSuffix removes trailing generic venue nouns ("the odeon
// restaurant" -> "the odeon"). Applied repeatedly, longest phrase first.
func StripGenericSuffix(s string) string {
	for {
		stripped := stripOneSuffix(s, genericSuffixes)
		if stripped == s {
			return s
		}
		s = stripped
	}
}

// stripOneSuffix removes the longest matching whole-word suffix from the
// candidates list. Returns s unchanged when nothing matches or when removal
// would leave an empty name.
func stripOneSuffix(s string, candidates []string) string {
	for _, suffix := range candidates {
		if s == suffix {
			return s
		}
		if strings.HasSuffix(s, " "+suffix) {
			return strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
	}
	return s
}

// StripLeadingArticle removes a leading "the "
func StripLeadingArticle(s string) string {
	return strings.TrimPrefix(s, "the ")
}

// Comparable normalizes a name for scoring: lowercase, diacritics and
// punctuation stripped, "&" spelled out, generic venue nouns and the leading
// article removed. Location qualifiers are kept so that scoring strategies
// can weigh them. Pure and idempotent; empty input yields empty output.
func Comparable(name string) string {
	s := Lowercase(name)
	s = StripDiacritics(s)
	s = AndSymbol(s)
	s = StripLocationQualifier(s)
	s = StripPunctuation(s)
	s = CollapseWhitespace(s)
	// Article first: "the grill" keeps its identity as "grill" instead of
	// collapsing to "the".
	s = StripLeadingArticle(s)
	s = StripGenericSuffix(s)
	return s
}

// Canonical normalizes a name into a lookup-table key: Comparable plus
// trailing place names stripped. Two records sharing a canonical key are
// treated as the same venue absent contrary evidence.
func Canonical(name string) string {
	s := Comparable(name)
	s = StripPlaceSuffix(s)
	s = StripGenericSuffix(s)
	s = StripLeadingArticle(s)
	return s
}

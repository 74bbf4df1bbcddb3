package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	t.Run("should lowercase and trim", func(t *testing.T) {
		assert.Equal(t, "carbone", Canonical("  CARBONE  "))
	})

	t.Run("should strip diacritics", func(t *testing.T) {
		assert.Equal(t, "cafe boulud", Canonical("Café Boulud"))
	})

	t.Run("should drop apostrophes without splitting the token", func(t *testing.T) {
		assert.Equal(t, "joes pizza", Canonical("Joe's Pizza"))
		assert.Equal(t, "lartusi", Canonical("L’Artusi"))
	})

	t.Run("should spell out ampersands", func(t *testing.T) {
		assert.Equal(t, "jack and charlies", Canonical("Jack & Charlie's"))
	})

	t.Run("should strip a dash-introduced location qualifier", func(t *testing.T) {
		assert.Equal(t, "kyuramen", Canonical("Kyuramen - Union Square"))
		assert.Equal(t, "kyuramen", Canonical("Kyuramen – Union Square"))
	})

	t.Run("should strip trailing place names without a dash", func(t *testing.T) {
		assert.Equal(t, "carbone", Canonical("Carbone New York"))
		assert.Equal(t, "canto", Canonical("Canto Upper West Side"))
		assert.Equal(t, "balthazar", Canonical("Balthazar SoHo NYC"))
	})

	t.Run("should keep dash clauses that are not place names", func(t *testing.T) {
		assert.Equal(t, "momofuku ko", Canonical("Momofuku - Ko"))
	})

	t.Run("should strip generic venue nouns", func(t *testing.T) {
		assert.Equal(t, "odeon", Canonical("The Odeon Restaurant"))
		assert.Equal(t, "peter luger", Canonical("Peter Luger Steak House"))
		assert.Equal(t, "gramercy", Canonical("Gramercy Tavern"))
	})

	t.Run("should not strip a name that is only a generic noun", func(t *testing.T) {
		assert.Equal(t, "tavern", Canonical("The Tavern"))
	})

	t.Run("should strip the leading article", func(t *testing.T) {
		assert.Equal(t, "grill", Canonical("The Grill"))
		assert.Equal(t, "modern", Canonical("The Modern"))
	})

	t.Run("should handle empty and whitespace input", func(t *testing.T) {
		assert.Equal(t, "", Canonical(""))
		assert.Equal(t, "", Canonical("   "))
	})

	t.Run("should be idempotent", func(t *testing.T) {
		names := []string{
			"Carbone New York",
			"Kyuramen - Union Square",
			"Café Boulud",
			"The Odeon Restaurant",
			"Jack & Charlie's No. 118",
		}
		for _, name := range names {
			once := Canonical(name)
			assert.Equal(t, once, Canonical(once), name)
		}
	})

	t.Run("should be case and diacritic invariant", func(t *testing.T) {
		assert.Equal(t, Canonical("carbone"), Canonical("CARBONE"))
		assert.Equal(t, Canonical("Cafe Boulud"), Canonical("Café Boulud"))
	})
}

func TestComparable(t *testing.T) {
	t.Run("should keep trailing place names", func(t *testing.T) {
		assert.Equal(t, "carbone new york", Comparable("Carbone New York"))
	})

	t.Run("should still strip dash qualifiers and generic nouns", func(t *testing.T) {
		assert.Equal(t, "kyuramen", Comparable("Kyuramen - Union Square"))
		assert.Equal(t, "odeon", Comparable("The Odeon Restaurant"))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("should apply registered normalizers by name", func(t *testing.T) {
		assert.Equal(t, "carbone", Apply("Carbone New York", "canonical"))
		assert.Equal(t, "abc", Apply("ABC", "lowercase"))
	})

	t.Run("should return value unchanged for unknown normalizer", func(t *testing.T) {
		assert.Equal(t, "Carbone", Apply("Carbone", "nope"))
	})

	t.Run("should chain normalizers in order", func(t *testing.T) {
		assert.Equal(t, "cafe", ApplyChain(" CAFÉ ", "lowercase", "strip_diacritics", "trim"))
	})

	t.Run("should expose custom normalizers", func(t *testing.T) {
		Register("reverse_noop", func(s string) string { return s })
		fn, ok := Get("reverse_noop")
		assert.True(t, ok)
		assert.Equal(t, "x", fn("x"))
	})
}

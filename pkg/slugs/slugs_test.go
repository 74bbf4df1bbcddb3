package slugs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Run("should hyphenate and lowercase", func(t *testing.T) {
		assert.Equal(t, "kyuramen-union-square", Slugify("Kyuramen - Union Square"))
		assert.Equal(t, "cafe-boulud", Slugify("Café Boulud"))
	})

	t.Run("should keep possessives as one token", func(t *testing.T) {
		assert.Equal(t, "joes-pizza", Slugify("Joe's Pizza"))
	})

	t.Run("should spell out ampersands", func(t *testing.T) {
		assert.Equal(t, "jack-and-charlies", Slugify("Jack & Charlie's"))
	})

	t.Run("should collapse punctuation runs", func(t *testing.T) {
		assert.Equal(t, "no-118", Slugify("No. 118!!"))
	})
}

func TestCandidates(t *testing.T) {
	t.Run("should order specific before generic", func(t *testing.T) {
		got := Candidates("Kyuramen - Union Square", Options{})
		require.NotEmpty(t, got)

		assert.Equal(t, "kyuramen-union-square", got[0])
		base := indexOf(got, "kyuramen")
		require.GreaterOrEqual(t, base, 0)
		assert.Greater(t, base, indexOf(got, "kyuramen-new-york"))
		assert.Greater(t, base, indexOf(got, "kyuramen-nyc"))
	})

	t.Run("should include a location hint variant", func(t *testing.T) {
		got := Candidates("Lilia", Options{LocationHint: "Williamsburg"})
		assert.Contains(t, got, "lilia-williamsburg")
		assert.Less(t, indexOf(got, "lilia-williamsburg"), indexOf(got, "lilia-new-york"))
	})

	t.Run("should deduplicate variants", func(t *testing.T) {
		got := Candidates("Carbone", Options{})
		seen := make(map[string]int)
		for _, s := range got {
			seen[s]++
		}
		for slug, n := range seen {
			assert.Equal(t, 1, n, slug)
		}
	})

	t.Run("should truncate long names", func(t *testing.T) {
		got := Candidates("Emilio's Ballato Restaurant Italian Kitchen", Options{})
		assert.Contains(t, got, "emilios")
	})

	t.Run("should return nil for degenerate input", func(t *testing.T) {
		assert.Nil(t, Candidates("", Options{}))
		assert.Nil(t, Candidates("  ", Options{}))
		assert.Nil(t, Candidates("a1", Options{}))
	})

	t.Run("should respect the limit", func(t *testing.T) {
		got := Candidates("Some Very Long Restaurant Name Downtown", Options{Limit: 3})
		assert.LessOrEqual(t, len(got), 3)
	})

	t.Run("should be deterministic", func(t *testing.T) {
		a := Candidates("Carbone New York", Options{})
		b := Candidates("Carbone New York", Options{})
		assert.Equal(t, a, b)
	})
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}

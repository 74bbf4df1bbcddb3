package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwize/reconciler/pkg/matching"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testProber(serverURL string) *Prober {
	config := DefaultConfig()
	config.BaseURLs = map[Platform]string{
		PlatformResy: serverURL + "/venues/",
	}
	config.RequestsPerSecond = 1000
	config.Burst = 1000
	return NewProber(http.DefaultClient, matching.NewScorer(), nil, nil, testLogger(), config)
}

func venuePage(name string) string {
	return fmt.Sprintf(`<html><head><title>%s | Resy</title></head><body></body></html>`, name)
}

func TestExtractName(t *testing.T) {
	t.Run("should prefer og:title", func(t *testing.T) {
		body := `<html><head>
			<title>Reservations | Resy</title>
			<meta property="og:title" content="Carbone" />
		</head></html>`
		assert.Equal(t, "Carbone", ExtractName(strings.NewReader(body)))
	})

	t.Run("should fall back to the title element", func(t *testing.T) {
		body := `<html><head><title>Carbone - New York, NY | Resy</title></head></html>`
		assert.Equal(t, "Carbone - New York, NY", ExtractName(strings.NewReader(body)))
	})

	t.Run("should return empty for pages without a name", func(t *testing.T) {
		assert.Equal(t, "", ExtractName(strings.NewReader(`<html><body>hi</body></html>`)))
	})
}

func TestProberFind(t *testing.T) {
	t.Run("should confirm the first matching slug", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/venues/carbone-new-york" {
				fmt.Fprint(w, venuePage("Carbone - New York, NY"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		prober := testProber(server.URL)
		outcome, err := prober.Find(context.Background(), PlatformResy, "Carbone",
			[]string{"carbone-new-york", "carbone"})

		require.NoError(t, err)
		assert.True(t, outcome.Confirmed)
		assert.Equal(t, "carbone-new-york", outcome.Slug)
		assert.GreaterOrEqual(t, outcome.Score, matching.DefaultVerifyThreshold)
	})

	t.Run("should treat 404 as a negative and continue", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/venues/the-odeon" {
				fmt.Fprint(w, venuePage("The Odeon Restaurant"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		prober := testProber(server.URL)
		outcome, err := prober.Find(context.Background(), PlatformResy, "The Odeon",
			[]string{"odeon-new-york", "the-odeon"})

		require.NoError(t, err)
		assert.True(t, outcome.Confirmed)
		assert.Equal(t, "the-odeon", outcome.Slug)
	})

	t.Run("should skip pages that belong to another venue", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, venuePage("Canto Upper West Side"))
		}))
		defer server.Close()

		prober := testProber(server.URL)
		outcome, err := prober.Find(context.Background(), PlatformResy, "Kyuramen",
			[]string{"kyuramen"})

		require.NoError(t, err)
		assert.False(t, outcome.Confirmed)
		assert.Empty(t, outcome.Slug)
	})

	t.Run("should report unconfirmed when every slug misses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		prober := testProber(server.URL)
		outcome, err := prober.Find(context.Background(), PlatformResy, "Wildair",
			[]string{"wildair", "wildair-nyc"})

		require.NoError(t, err)
		assert.False(t, outcome.Confirmed)
	})

	t.Run("should surface ErrBlocked on 429", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		prober := testProber(server.URL)
		_, err := prober.Find(context.Background(), PlatformResy, "Carbone", []string{"carbone"})
		assert.ErrorIs(t, err, ErrBlocked)
	})

	t.Run("should fail for an unconfigured platform", func(t *testing.T) {
		prober := testProber("http://example.invalid")
		_, err := prober.Find(context.Background(), PlatformOpenTable, "Carbone", []string{"carbone"})
		assert.Error(t, err)
	})
}

func TestProberFindBatch(t *testing.T) {
	t.Run("should return results in request order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/venues/carbone":
				fmt.Fprint(w, venuePage("Carbone"))
			case "/venues/lilia":
				fmt.Fprint(w, venuePage("Lilia"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		prober := testProber(server.URL)
		results := prober.FindBatch(context.Background(), []Request{
			{Platform: PlatformResy, Name: "Carbone", Slugs: []string{"carbone"}},
			{Platform: PlatformResy, Name: "Missing Venue", Slugs: []string{"missing-venue"}},
			{Platform: PlatformResy, Name: "Lilia", Slugs: []string{"lilia"}},
		})

		require.Len(t, results, 3)
		assert.True(t, results[0].Outcome.Confirmed)
		assert.False(t, results[1].Outcome.Confirmed)
		assert.True(t, results[2].Outcome.Confirmed)
		assert.Equal(t, "Lilia", results[2].Request.Name)
	})
}

// Package probe checks booking platforms for venue pages by trying slug
// candidates in order. A probe stops at the first slug whose page name
// verifies against the venue name under strict scoring.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/metrics"
	"github.com/seatwize/reconciler/pkg/models"
	"github.com/seatwize/reconciler/pkg/redis"
	"github.com/seatwize/reconciler/pkg/tracing"
)

// ErrBlocked is returned while a platform has told us to back off.
var ErrBlocked = errors.New("platform is rate limiting probes")

// Platform is a probeable booking platform.
type Platform string

const (
	PlatformResy      Platform = "resy"
	PlatformOpenTable Platform = "opentable"
)

// Source maps a platform to its venue source tag.
func (p Platform) Source() models.VenueSource {
	if p == PlatformOpenTable {
		return models.VenueSourceOpenTable
	}
	return models.VenueSourceResy
}

// Outcome is the result of probing one venue on one platform. Confirmed
// false with a nil error means no candidate verified, which is a normal
// outcome, not a failure.
type Outcome struct {
	Platform  Platform  `json:"platform"`
	Slug      string    `json:"slug"`
	URL       string    `json:"url"`
	PageName  string    `json:"page_name"`
	Score     float64   `json:"score"`
	Confirmed bool      `json:"confirmed"`
	CheckedAt time.Time `json:"checked_at"`
}

// Config tunes the prober.
type Config struct {
	// BaseURLs maps each platform to a URL prefix the slug is appended to.
	BaseURLs map[Platform]string

	RequestsPerSecond float64
	Burst             int
	Workers           int
	MaxRetries        int
	VerifyThreshold   float64
	RequestTimeout    time.Duration
}

// DefaultConfig returns probe settings safe for polite scraping.
func DefaultConfig() Config {
	return Config{
		BaseURLs: map[Platform]string{
			PlatformResy:      "https://resy.com/cities/new-york-ny/venues/",
			PlatformOpenTable: "https://www.opentable.com/r/",
		},
		RequestsPerSecond: 3,
		Burst:             5,
		Workers:           4,
		MaxRetries:        3,
		VerifyThreshold:   matching.DefaultVerifyThreshold,
		RequestTimeout:    10 * time.Second,
	}
}

// Doer is the HTTP client surface, satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober probes booking platforms with per-platform rate limits, a shared
// outcome cache, and a redis-backed block honoring 429 Retry-After.
type Prober struct {
	client   Doer
	scorer   *matching.Scorer
	cache    *Cache
	blocker  *redis.Blocker
	limiters map[Platform]*rate.Limiter
	logger   ectologger.Logger
	config   Config
}

// NewProber creates a Prober. cache and blocker may be nil; probing then
// skips caching and back-off bookkeeping.
func NewProber(client Doer, scorer *matching.Scorer, cache *Cache, blocker *redis.Blocker, logger ectologger.Logger, config Config) *Prober {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 3
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.VerifyThreshold <= 0 {
		config.VerifyThreshold = matching.DefaultVerifyThreshold
	}

	limiters := make(map[Platform]*rate.Limiter, len(config.BaseURLs))
	for platform := range config.BaseURLs {
		limiters[platform] = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}

	return &Prober{
		client:   client,
		scorer:   scorer,
		cache:    cache,
		blocker:  blocker,
		limiters: limiters,
		logger:   logger,
		config:   config,
	}
}

// Find probes the platform with each slug candidate in order and returns the
// first confirmed hit. Candidate order matters: callers pass specific slugs
// before generic ones and Find stops at the first page whose name verifies
// against name.
func (p *Prober) Find(ctx context.Context, platform Platform, name string, slugs []string) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "probe.Prober.Find")
	defer span.End()

	baseURL, ok := p.config.BaseURLs[platform]
	if !ok {
		return Outcome{}, errors.Errorf("no base url configured for platform %q", platform)
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"platform": platform,
		"name":     name,
	})

	for _, slug := range slugs {
		if blocked, err := p.checkBlocked(ctx, platform); err != nil {
			return Outcome{}, err
		} else if blocked {
			return Outcome{}, ErrBlocked
		}

		page, cached, err := p.lookupPage(ctx, platform, slug, baseURL)
		if err != nil {
			return Outcome{}, err
		}
		if !cached {
			log.WithField("slug", slug).Debug("Probed slug")
		}
		if !page.Found {
			continue
		}

		score := p.scorer.Score(name, page.PageName, matching.StrategyStrict)
		if score >= p.config.VerifyThreshold {
			return Outcome{
				Platform:  platform,
				Slug:      slug,
				URL:       page.URL,
				PageName:  page.PageName,
				Score:     score,
				Confirmed: true,
				CheckedAt: time.Now().UTC(),
			}, nil
		}
		// page exists but belongs to another venue; keep trying
	}

	return Outcome{Platform: platform, CheckedAt: time.Now().UTC()}, nil
}

func (p *Prober) checkBlocked(ctx context.Context, platform Platform) (bool, error) {
	if p.blocker == nil {
		return false, nil
	}
	blocked, _, err := p.blocker.IsBlocked(ctx, string(platform))
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to check probe block, continuing")
		return false, nil
	}
	return blocked, nil
}

// lookupPage resolves one slug via the cache or the network. The bool result
// reports whether the answer came from cache.
func (p *Prober) lookupPage(ctx context.Context, platform Platform, slug, baseURL string) (Page, bool, error) {
	if p.cache != nil {
		if page, ok := p.cache.Get(ctx, platform, slug); ok {
			metrics.ProbeCacheHits.WithLabelValues("hit").Inc()
			return page, true, nil
		}
		metrics.ProbeCacheHits.WithLabelValues("miss").Inc()
	}

	page, err := p.fetch(ctx, platform, slug, baseURL)
	if err != nil {
		return Page{}, false, err
	}

	if p.cache != nil {
		p.cache.Set(ctx, platform, slug, page)
	}
	return page, false, nil
}

func (p *Prober) fetch(ctx context.Context, platform Platform, slug, baseURL string) (Page, error) {
	limiter := p.limiters[platform]
	url := baseURL + slug

	var lastErr error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Page{}, err
			}
		}

		start := time.Now()
		page, retryable, err := p.fetchOnce(ctx, platform, url)
		elapsed := time.Since(start).Seconds()
		if err == nil {
			result := "miss"
			if page.Found {
				result = "found"
			}
			metrics.RecordProbeRequest(string(platform), result, elapsed)
			return page, nil
		}
		metrics.RecordProbeRequest(string(platform), "error", elapsed)
		if !retryable {
			return Page{}, err
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return Page{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	return Page{}, errors.Wrapf(lastErr, "probe %s after %d attempts", url, p.config.MaxRetries)
}

// fetchOnce performs one HTTP GET. The bool result reports whether the error
// is worth retrying.
func (p *Prober) fetchOnce(ctx context.Context, platform Platform, url string) (Page, bool, error) {
	if p.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, false, err
	}
	req.Header.Set("User-Agent", "seatwize-reconciler/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return Page{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		pageName := ExtractName(resp.Body)
		return Page{Found: pageName != "", PageName: pageName, URL: url}, false, nil

	case resp.StatusCode == http.StatusNotFound:
		// a legitimate negative, not an error
		return Page{Found: false, URL: url}, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryIn := retryAfter(resp)
		if p.blocker != nil {
			if blockErr := p.blocker.BlockFor(ctx, string(platform), retryIn); blockErr != nil {
				p.logger.WithContext(ctx).WithError(blockErr).Warn("Failed to set probe block")
			}
		}
		return Page{}, false, ErrBlocked

	case resp.StatusCode >= 500:
		return Page{}, true, errors.Errorf("probe %s: status %d", url, resp.StatusCode)

	default:
		return Page{}, false, errors.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	const fallback = 30 * time.Second
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return fallback
}

// Request is one unit of batch probing.
type Request struct {
	Platform Platform
	Name     string
	Slugs    []string
}

// BatchResult pairs a request with its outcome.
type BatchResult struct {
	Request Request
	Outcome Outcome
	Err     error
}

// FindBatch probes requests concurrently with a bounded worker pool. Results
// are returned in request order.
func (p *Prober) FindBatch(ctx context.Context, requests []Request) []BatchResult {
	ctx, span := tracing.StartSpan(ctx, "probe.Prober.FindBatch")
	defer span.End()

	results := make([]BatchResult, len(requests))
	sem := make(chan struct{}, p.config.Workers)
	var wg sync.WaitGroup

	for i, request := range requests {
		wg.Add(1)
		go func(idx int, req Request) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := p.Find(ctx, req.Platform, req.Name, req.Slugs)
			results[idx] = BatchResult{Request: req, Outcome: outcome, Err: err}
		}(i, request)
	}

	wg.Wait()
	return results
}

// String implements fmt.Stringer for log fields.
func (o Outcome) String() string {
	if !o.Confirmed {
		return fmt.Sprintf("%s: no confirmed page", o.Platform)
	}
	return fmt.Sprintf("%s: %s (%.2f)", o.Platform, o.Slug, o.Score)
}

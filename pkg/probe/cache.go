package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/seatwize/reconciler/pkg/redis"
)

// Page is the cacheable fact about one slug on one platform: whether a page
// exists there and what it calls itself. Verification against a query name
// happens per lookup, so one cached page serves many queries.
type Page struct {
	Found    bool   `json:"found"`
	PageName string `json:"page_name,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Cache stores probe pages in redis. Positive and negative results get
// separate TTLs: a 404 today may be a new venue next month.
type Cache struct {
	client      *redis.Client
	logger      ectologger.Logger
	positiveTTL time.Duration
	negativeTTL time.Duration
}

func NewCache(client *redis.Client, logger ectologger.Logger, positiveTTL, negativeTTL time.Duration) *Cache {
	if positiveTTL <= 0 {
		positiveTTL = 24 * time.Hour
	}
	if negativeTTL <= 0 {
		negativeTTL = 6 * time.Hour
	}
	return &Cache{
		client:      client,
		logger:      logger,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

func cacheKey(platform Platform, slug string) string {
	return fmt.Sprintf("probe:%s:%s", platform, slug)
}

// Get returns the cached page for a slug. Cache errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, platform Platform, slug string) (Page, bool) {
	raw, err := c.client.Get(ctx, cacheKey(platform, slug))
	if err != nil {
		if !redis.IsNil(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("Probe cache read failed")
		}
		return Page{}, false
	}

	var page Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Probe cache entry is corrupt")
		return Page{}, false
	}
	return page, true
}

// Set stores a page. Failures are logged and swallowed; the cache is an
// optimization, not a source of truth.
func (c *Cache) Set(ctx context.Context, platform Platform, slug string, page Page) {
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}

	ttl := c.positiveTTL
	if !page.Found {
		ttl = c.negativeTTL
	}
	if err := c.client.Set(ctx, cacheKey(platform, slug), string(raw), ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Probe cache write failed")
	}
}

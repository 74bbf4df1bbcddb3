package redis

import (
	"context"
	"time"
)

// Blocker fails probes closed while a remote platform has told us to back
// off (429 Retry-After). The block lives in redis so every worker and every
// replica honors it.
type Blocker struct {
	client    *Client
	keyPrefix string
}

// NewBlocker creates a Blocker. keyPrefix defaults to "probe:block:".
func NewBlocker(client *Client, keyPrefix string) *Blocker {
	if keyPrefix == "" {
		keyPrefix = "probe:block:"
	}
	return &Blocker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (b *Blocker) blockKey(key string) string {
	return b.keyPrefix + key
}

// BlockFor blocks a key for the given duration.
func (b *Blocker) BlockFor(ctx context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.blockKey(key), "1", d)
}

// IsBlocked returns whether the key is currently blocked and, if so, for how
// long.
func (b *Blocker) IsBlocked(ctx context.Context, key string) (bool, time.Duration, error) {
	exists, err := b.client.Exists(ctx, b.blockKey(key))
	if err != nil {
		return false, 0, err
	}
	if !exists {
		return false, 0, nil
	}
	ttl, err := b.client.TTL(ctx, b.blockKey(key))
	if err != nil {
		return true, 0, err
	}
	if ttl < 0 {
		ttl = 0
	}
	return true, ttl, nil
}

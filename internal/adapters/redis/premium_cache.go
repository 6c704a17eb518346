package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chorusapp/sessiond/internal/ports"
)

// premiumCacheTTL bounds how long an indefinite premium marker
// survives without the device checking in.
const premiumCacheTTL = 180 * 24 * time.Hour

// PremiumCache persists the per-device premium marker that survives a
// local storage clear. It is consulted when a fresh guest session is
// synthesized so a paying device does not lose its grant.
type PremiumCache struct {
	client redis.UniversalClient
	prefix string
}

// NewPremiumCache creates a Redis-backed premium cache.
func NewPremiumCache(client redis.UniversalClient) *PremiumCache {
	return &PremiumCache{
		client: client,
		prefix: "premium_cache:",
	}
}

// Save writes the premium record for the device. Records with an
// expiry are kept until that expiry; indefinite grants are bounded by
// premiumCacheTTL.
func (c *PremiumCache) Save(ctx context.Context, deviceID string, rec ports.PremiumCacheRecord) error {
	if deviceID == "" {
		return errors.New("device ID cannot be empty")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal premium record: %w", err)
	}

	ttl := premiumCacheTTL
	if rec.PremiumExpiry != nil {
		until := time.Until(time.UnixMilli(*rec.PremiumExpiry))
		if until <= 0 {
			// Already lapsed; drop any stale marker instead.
			return c.Delete(ctx, deviceID)
		}
		ttl = until
	}

	return c.client.Set(ctx, c.prefix+deviceID, data, ttl).Err()
}

// Load returns the premium record for the device, with ok=false when
// no marker exists.
func (c *PremiumCache) Load(ctx context.Context, deviceID string) (ports.PremiumCacheRecord, bool, error) {
	if deviceID == "" {
		return ports.PremiumCacheRecord{}, false, nil
	}

	data, err := c.client.Get(ctx, c.prefix+deviceID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.PremiumCacheRecord{}, false, nil
		}
		return ports.PremiumCacheRecord{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec ports.PremiumCacheRecord
	if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
		return ports.PremiumCacheRecord{}, false, fmt.Errorf("unmarshal premium record: %w", unmarshalErr)
	}
	return rec, true, nil
}

// Delete removes the premium marker for the device.
func (c *PremiumCache) Delete(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+deviceID).Err()
}

package profilecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blackmichael/geofeed/internal/domain"
)

const keyPrefix = "profile:"

// Cache is a read-through redis cache in front of a ProfileLookup. Redis
// failures fall through to the wrapped lookup.
type Cache struct {
	rdb    redis.Cmdable
	next   domain.ProfileLookup
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next with a redis cache whose entries expire after ttl.
func New(rdb redis.Cmdable, next domain.ProfileLookup, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Profiles returns cached profiles and loads the rest from the wrapped
// lookup, caching what it finds.
func (c *Cache) Profiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	result := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	missing := c.readCached(ctx, userIDs, result)
	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := c.next.Profiles(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for id, p := range loaded {
		result[id] = p
	}

	c.writeCached(ctx, loaded)
	return result, nil
}

func (c *Cache) readCached(ctx context.Context, userIDs []string, into map[string]domain.Profile) []string {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("profile cache read failed", "error", err)
		return userIDs
	}

	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, userIDs[i])
			continue
		}
		var p domain.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.logger.Warn("dropping malformed cached profile", "user_id", userIDs[i], "error", err)
			missing = append(missing, userIDs[i])
			continue
		}
		into[userIDs[i]] = p
	}
	return missing
}

func (c *Cache) writeCached(ctx context.Context, profiles map[string]domain.Profile) {
	if len(profiles) == 0 {
		return
	}

	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, p := range profiles {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal profile: %w", err)
			}
			pipe.Set(ctx, key(id), data, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("profile cache write failed", "error", err)
	}
}

package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UnreadCache keeps per-person unread counters in Redis so the badge query
// does not hit Postgres on every poll. A nil client disables caching.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewUnreadCache constructs the cache wrapper.
func NewUnreadCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *UnreadCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnreadCache{client: client, ttl: ttl, logger: logger}
}

func unreadKey(personID string) string {
	return fmt.Sprintf("notifications:unread:%s", personID)
}

// Get returns the cached counter; the second value reports a hit.
func (c *UnreadCache) Get(ctx context.Context, personID string) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, unreadKey(personID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("unread cache get failed", zap.Error(err))
		}
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set stores the counter with the configured TTL.
func (c *UnreadCache) Set(ctx context.Context, personID string, count int) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, unreadKey(personID), strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.logger.Warn("unread cache set failed", zap.Error(err))
	}
}

// Invalidate drops the counters of the given people, called after any
// notification write that changes their unread state.
func (c *UnreadCache) Invalidate(ctx context.Context, personIDs ...string) {
	if c == nil || c.client == nil || len(personIDs) == 0 {
		return
	}
	keys := make([]string, len(personIDs))
	for i, id := range personIDs {
		keys[i] = unreadKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("unread cache invalidate failed", zap.Error(err))
	}
}

package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// ProjectionCache keeps the history projection warm in redis. Every method
// degrades to a no-op when the cache is absent or unreachable; the read
// path always has postgres behind it.
type ProjectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProjectionCache(client *redis.Client, ttl time.Duration) *ProjectionCache {
	return &ProjectionCache{client: client, ttl: ttl}
}

func historyKey(userID string, limit int) string {
	return fmt.Sprintf("history:%s:%d", userID, limit)
}

func (c *ProjectionCache) Get(ctx context.Context, userID string, limit int) ([]HistoryEntry, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, historyKey(userID, limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("history cache read failed")
		}
		return nil, false
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		logger.Log.WithError(err).Warn("history cache entry corrupt")
		return nil, false
	}
	return entries, true
}

func (c *ProjectionCache) Set(ctx context.Context, userID string, limit int, entries []HistoryEntry) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, historyKey(userID, limit), payload, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("history cache write failed")
	}
}

func (c *ProjectionCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, fmt.Sprintf("history:%s:*", userID), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Log.WithError(err).Warn("history cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		logger.Log.WithError(err).Warn("history cache scan failed")
	}
}

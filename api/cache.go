/*
cache.go - Redis-backed leaderboard cache

PURPOSE:
  Leaderboard queries fold every commission row in the range; dashboards
  poll them constantly while the underlying rows change only on
  recompute or settlement. A short-TTL Redis cache absorbs the polling,
  and writes through the ledger invalidate the tenant's entries.

KEYING:
  lb:{tenant}:{metric}:{from}:{to}:{limit} - the full query identity.
  Invalidation scans lb:{tenant}:* so one tenant's recompute never
  evicts another tenant's entries.

FAILURE MODE:
  The cache is strictly best-effort: any Redis error falls through to
  the database. A nil *LeaderboardCache (or nil client) disables caching
  entirely - tests and single-node deployments run without Redis.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Reshigan/SalesSync-sub022/commission"
)

const leaderboardTTL = 2 * time.Minute

// LeaderboardQuery is the cache identity of one leaderboard request.
type LeaderboardQuery struct {
	TenantID commission.TenantID
	Metric   commission.LeaderboardMetric
	From     time.Time
	To       time.Time
	Limit    int
}

func (q LeaderboardQuery) key() string {
	return fmt.Sprintf("lb:%s:%s:%d:%d:%d",
		q.TenantID, q.Metric, q.From.UTC().Unix(), q.To.UTC().Unix(), q.Limit)
}

// LeaderboardCache caches leaderboard results in Redis.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache wraps a Redis client. A nil client yields a nil
// cache, which callers treat as "caching off".
func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	if client == nil {
		return nil
	}
	return &LeaderboardCache{client: client, ttl: leaderboardTTL}
}

// Get returns the cached entries for the query, if present.
func (c *LeaderboardCache) Get(ctx context.Context, q LeaderboardQuery) ([]commission.LeaderboardEntry, bool) {
	payload, err := c.client.Get(ctx, q.key()).Bytes()
	if err != nil {
		return nil, false
	}

	var entries []commission.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// Set stores the entries for the query. Best-effort.
func (c *LeaderboardCache) Set(ctx context.Context, q LeaderboardQuery, entries []commission.LeaderboardEntry) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	c.client.Set(ctx, q.key(), payload, c.ttl)
}

// Invalidate drops every cached leaderboard for the tenant.
func (c *LeaderboardCache) Invalidate(ctx context.Context, tenantID commission.TenantID) {
	pattern := fmt.Sprintf("lb:%s:*", tenantID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/poolbet/poolbet/internal/domain"
)

// MarketCache implements domain.MarketCache for resolved markets. A resolved
// market is immutable, so entries never need invalidation on write paths;
// Invalidate exists for operational cleanup only. Unresolved markets are
// deliberately not cached because their pool totals change on every stake.
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id string) string {
	return "market:resolved:" + id
}

// Set stores a resolved market. Unresolved markets are silently skipped.
func (mc *MarketCache) Set(ctx context.Context, m domain.Market) error {
	if !m.Resolved {
		return nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", m.ID, err)
	}

	if err := mc.rdb.Set(ctx, marketKey(m.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: cache market %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a cached resolved market, returning domain.ErrNotFound on a
// miss.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return m, nil
}

// Invalidate removes a cached market.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)

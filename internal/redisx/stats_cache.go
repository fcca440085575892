package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// StatsCache holds seller aggregation results until they expire or an order
// event touching the seller invalidates them.
type StatsCache struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

func (c *StatsCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLSellerStats
}

func (c *StatsCache) Get(ctx context.Context, sellerID string) (orders.SellerStats, bool, error) {
	var st orders.SellerStats
	b, err := c.Redis.Get(ctx, fmt.Sprintf(KeySellerStats, sellerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, false, fmt.Errorf("decode seller stats: %w", err)
	}
	return st, true, nil
}

func (c *StatsCache) Set(ctx context.Context, sellerID string, st orders.SellerStats) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, fmt.Sprintf(KeySellerStats, sellerID), b, c.ttl()).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context, sellerIDs ...string) error {
	if len(sellerIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		keys = append(keys, fmt.Sprintf(KeySellerStats, id))
	}
	return c.Redis.Del(ctx, keys...).Err()
}

package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per service.
type Deduper struct {
	Redis   redis.Cmdable
	Service string
}

// FirstSeen marks eventID as processed and reports whether this was the first time.
func (d *Deduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.Redis.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Result()
}

// Forget drops the mark so a failed event can be processed again.
func (d *Deduper) Forget(ctx context.Context, eventID string) error {
	return d.Redis.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID)).Err()
}

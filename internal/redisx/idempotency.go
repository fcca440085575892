package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore maps a buyer's Idempotency-Key to the order it created.
type IdempotencyStore struct {
	Redis redis.Cmdable
}

func (s *IdempotencyStore) Lookup(ctx context.Context, buyerID, key string) (string, bool, error) {
	id, err := s.Redis.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, buyerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Remember keeps the first order recorded for the key.
func (s *IdempotencyStore) Remember(ctx context.Context, buyerID, key, orderID string) error {
	return s.Redis.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, buyerID, key), orderID, TTLIdempotency).Err()
}

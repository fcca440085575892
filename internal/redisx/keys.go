package redisx

import "time"

const (
	// Idempotent order creation: idem:order:create:{buyer_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cached seller aggregation: seller_stats:{seller_id} -> SellerStats JSON
	KeySellerStats = "seller_stats:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLSellerStats = 60 * time.Second
	TTLDedup       = 48 * time.Hour
)

// Package statsync keeps cached seller statistics in step with the order
// event stream.
package statsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, sellerIDs ...string) error
}

type Service struct {
	Dedup Deduper
	Stats Invalidator
	Log   zerolog.Logger
}

// HandleOrderEvent is installed as the consumer handler. Each event drops the
// cached stats of every seller it touches.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// unparseable messages are skipped, retrying cannot fix them
		s.Log.Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("decode envelope")
		return nil
	}

	sellers, err := affectedSellers(env)
	if err != nil {
		s.Log.Error().Err(err).Str("event_id", env.EventID).Msg("decode payload")
		return nil
	}
	if len(sellers) == 0 {
		return nil
	}

	if env.EventID != "" && s.Dedup != nil {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
	}

	if err := s.Stats.Invalidate(ctx, sellers...); err != nil {
		if env.EventID != "" && s.Dedup != nil {
			_ = s.Dedup.Forget(ctx, env.EventID)
		}
		return fmt.Errorf("invalidate seller stats: %w", err)
	}
	s.Log.Debug().Str("event_id", env.EventID).Str("event_type", env.EventType).
		Strs("sellers", sellers).Msg("seller stats invalidated")
	return nil
}

// affectedSellers returns nil for event types this service does not handle
// and never returns an empty seller id.
func affectedSellers(env orders.Envelope) ([]string, error) {
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		ids := p.SellerIDs
		if len(ids) == 0 {
			for _, it := range p.Items {
				ids = append(ids, it.SellerID)
			}
		}
		return distinctSellers(ids), nil
	case orders.EventOrderItemStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.ItemStatusChangedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return distinctSellers([]string{p.SellerID}), nil
	default:
		return nil, nil
	}
}

func distinctSellers(ids []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

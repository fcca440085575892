package orders

import (
	"context"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
)

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	// Mutate applies fn to the current order under a lock and persists the
	// mutable fields. A non-nil error from fn leaves the order untouched.
	Mutate(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}

type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type IdempotencyStore interface {
	Lookup(ctx context.Context, buyerID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, buyerID, key, orderID string) error
}

// StatsCache is invalidated by this service for the sellers a write touches;
// the stats-sync consumer does the same for writes from other instances.
type StatsCache interface {
	Get(ctx context.Context, sellerID string) (SellerStats, bool, error)
	Set(ctx context.Context, sellerID string, st SellerStats) error
	Invalidate(ctx context.Context, sellerIDs ...string) error
}

type CartSource interface {
	Entries(ctx context.Context, buyerID string) ([]cart.Entry, error)
	Clear(ctx context.Context, buyerID string) error
}

// Service owns order creation, buyer and seller reads, item status changes
// and seller aggregation. Publisher, Idempotency, Stats and Cart are optional.
type Service struct {
	Store       Store
	Catalog     catalog.Lookup
	Cart        CartSource
	Publisher   EventPublisher
	Idempotency IdempotencyStore
	Stats       StatsCache
	ServiceName string
	Log         zerolog.Logger
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateOrder prices every item from the catalog and persists the order.
// Prices from the client are never consulted. The bool result is true when
// the order was replayed from an earlier request with the same idempotency key.
func (s *Service) CreateOrder(ctx context.Context, buyerID string, in CreateOrderInput) (*Order, bool, error) {
	if o, ok, err := s.replay(ctx, buyerID, in.IdempotencyKey); err != nil || ok {
		return o, ok, err
	}
	o, err := s.create(ctx, buyerID, in)
	if err != nil {
		return nil, false, err
	}
	return o, false, nil
}

// CheckoutCart places an order for everything in the buyer's cart and
// empties the cart afterwards.
func (s *Service) CheckoutCart(ctx context.Context, buyerID string, in CreateOrderInput) (*Order, bool, error) {
	if o, ok, err := s.replay(ctx, buyerID, in.IdempotencyKey); err != nil || ok {
		return o, ok, err
	}
	entries, err := s.Cart.Entries(ctx, buyerID)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, apperr.Validation("cart is empty")
	}
	in.Items = make([]ItemInput, 0, len(entries))
	for _, e := range entries {
		in.Items = append(in.Items, ItemInput{ProductID: e.ProductID, Quantity: e.Quantity})
	}

	o, err := s.create(ctx, buyerID, in)
	if err != nil {
		return nil, false, err
	}
	if err := s.Cart.Clear(ctx, buyerID); err != nil {
		// the order stands; a stale cart is the lesser problem
		s.Log.Warn().Err(err).Str("order_id", o.ID).Str("buyer_id", buyerID).Msg("clear cart after checkout")
	}
	return o, false, nil
}

// replay returns the order an earlier request with the same key created. A
// key pointing at a vanished order is ignored; any other store failure is
// returned so the caller does not create a second order for the key.
func (s *Service) replay(ctx context.Context, buyerID, key string) (*Order, bool, error) {
	if key == "" || s.Idempotency == nil {
		return nil, false, nil
	}
	orderID, ok, err := s.Idempotency.Lookup(ctx, buyerID, key)
	if err != nil {
		s.Log.Warn().Err(err).Str("buyer_id", buyerID).Msg("idempotency lookup")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	o, err := s.Store.Get(ctx, orderID)
	if apperr.Is(err, apperr.KindNotFound) {
		s.Log.Warn().Str("order_id", orderID).Str("buyer_id", buyerID).Msg("idempotency key points at missing order")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if o.BuyerID != buyerID {
		return nil, false, nil
	}
	return o, true, nil
}

func (s *Service) create(ctx context.Context, buyerID string, in CreateOrderInput) (*Order, error) {
	if buyerID == "" {
		return nil, apperr.Validation("buyer id is required")
	}
	items, err := mergeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return nil, err
	}
	if !paymentMethods[in.PaymentMethod] {
		return nil, apperr.Validation("unsupported payment method: %q", in.PaymentMethod)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:              uuid.NewString(),
		BuyerID:         buyerID,
		Items:           make([]OrderItem, 0, len(items)),
		TotalAmount:     decimal.Zero,
		OverallStatus:   StatusPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   PaymentPending,
		OrderNotes:      in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	sellers := make([]string, 0, len(items))
	seen := map[string]bool{}
	eventItems := make([]ItemPrice, 0, len(items))
	for _, in := range items {
		p, ok := products[in.ProductID]
		if !ok {
			return nil, apperr.NotFound("product not found: %s", in.ProductID)
		}
		it := OrderItem{
			ID:              uuid.NewString(),
			ProductID:       p.ID,
			Quantity:        in.Quantity,
			Price:           p.Price,
			Status:          StatusPending,
			StatusUpdatedAt: now,
		}
		o.Items = append(o.Items, it)
		o.TotalAmount = o.TotalAmount.Add(it.LineTotal())

		eventItems = append(eventItems, ItemPrice{ItemID: it.ID, ProductID: p.ID, SellerID: p.SellerID, Qty: it.Quantity, Price: it.Price})
		if !seen[p.SellerID] {
			seen[p.SellerID] = true
			sellers = append(sellers, p.SellerID)
		}
	}

	if err := s.Store.Create(ctx, o); err != nil {
		return nil, err
	}
	if in.IdempotencyKey != "" && s.Idempotency != nil {
		if err := s.Idempotency.Remember(ctx, buyerID, in.IdempotencyKey, o.ID); err != nil {
			s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("remember idempotency key")
		}
	}

	s.invalidateStats(ctx, sellers...)
	s.publish(ctx, TopicOrderPlaced, EventOrderPlaced, o.ID, OrderPlacedPayload{
		OrderID:     o.ID,
		BuyerID:     buyerID,
		Items:       eventItems,
		TotalAmount: o.TotalAmount,
		SellerIDs:   sellers,
	})
	s.Log.Info().Str("order_id", o.ID).Str("buyer_id", buyerID).Int("items", len(o.Items)).
		Str("total", o.TotalAmount.StringFixed(2)).Msg("order created")
	return o, nil
}

// mergeItems validates the requested lines and folds repeated products into one line.
func mergeItems(in []ItemInput) ([]ItemInput, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("items must not be empty")
	}
	out := make([]ItemInput, 0, len(in))
	pos := map[string]int{}
	for _, it := range in {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, apperr.Validation("productId is required for every item")
		}
		if it.Quantity < 1 || it.Quantity > cart.MaxQuantity {
			return nil, apperr.Validation("invalid quantity for product %s", id)
		}
		if i, ok := pos[id]; ok {
			if out[i].Quantity > cart.MaxQuantity-it.Quantity {
				return nil, apperr.Validation("total quantity for product %s exceeds %d", id, cart.MaxQuantity)
			}
			out[i].Quantity += it.Quantity
			continue
		}
		pos[id] = len(out)
		out = append(out, ItemInput{ProductID: id, Quantity: it.Quantity})
	}
	return out, nil
}

func validateAddress(a ShippingAddress) error {
	var missing []string
	for _, f := range [][2]string{{"name", a.Name}, {"line1", a.Line1}, {"city", a.City}, {"postalCode", a.PostalCode}} {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("shippingAddress is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) ListBuyerOrders(ctx context.Context, buyerID string) ([]*Order, error) {
	return s.Store.ListByBuyer(ctx, buyerID)
}

func (s *Service) GetBuyerOrder(ctx context.Context, buyerID, orderID string) (*Order, error) {
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, apperr.Forbidden("not your order")
	}
	return o, nil
}

// ListOrdersForSeller scans every order and keeps those with at least one of
// the seller's products. Cost is O(orders × items) per call.
func (s *Service) ListOrdersForSeller(ctx context.Context, sellerID string) ([]SellerView, error) {
	owned, err := s.Catalog.ProductIDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	views := []SellerView{}
	if len(owned) == 0 {
		return views, nil
	}
	all, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range all {
		if v, ok := ViewForSeller(o, owned); ok {
			views = append(views, v)
		}
	}
	return views, nil
}

func (s *Service) GetSellerOrder(ctx context.Context, sellerID, orderID string) (*SellerView, error) {
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	owned, err := s.Catalog.ProductIDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	v, ok := ViewForSeller(o, owned)
	if !ok {
		return nil, apperr.Forbidden("order has no items for this seller")
	}
	return &v, nil
}

// UpdateItemStatus moves one item of the order to newStatus on behalf of the
// seller owning its product, re-derives the order's overall status and
// returns the seller's view of the result.
func (s *Service) UpdateItemStatus(ctx context.Context, sellerID, orderID, itemID string, newStatus Status) (*SellerView, error) {
	owned, err := s.Catalog.ProductIDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	var from Status
	changed := false
	o, err := s.Store.Mutate(ctx, orderID, func(o *Order) error {
		it, ok := o.Item(itemID)
		if !ok {
			return apperr.Forbidden("not your item")
		}
		if _, mine := owned[it.ProductID]; !mine {
			return apperr.Forbidden("not your item")
		}
		if !newStatus.Valid() {
			return apperr.Validation("invalid status: %q", newStatus)
		}
		from = it.Status
		if from == newStatus {
			return nil
		}
		if !CanTransition(from, newStatus) {
			return apperr.Conflict("cannot move item from %s to %s", from, newStatus)
		}

		now := s.now()
		it.Status = newStatus
		it.StatusUpdatedAt = now
		o.OverallStatus = DeriveOverallStatus(o.Items)
		if o.OverallStatus == StatusDelivered && o.ActualDelivery == nil {
			o.ActualDelivery = &now
		}
		o.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.invalidateStats(ctx, sellerID)
		s.publish(ctx, TopicOrderItemStatusChanged, EventOrderItemStatusChanged, o.ID, ItemStatusChangedPayload{
			OrderID:       o.ID,
			ItemID:        itemID,
			SellerID:      sellerID,
			From:          from,
			To:            newStatus,
			OverallStatus: o.OverallStatus,
		})
		s.Log.Info().Str("order_id", o.ID).Str("item_id", itemID).Str("seller_id", sellerID).
			Str("from", string(from)).Str("to", string(newStatus)).Msg("item status updated")
	}
	v, _ := ViewForSeller(o, owned)
	return &v, nil
}

// UpdateShipment records tracking details. The seller must own at least one
// item of the order.
func (s *Service) UpdateShipment(ctx context.Context, sellerID, orderID, trackingNumber string, eta *time.Time) (*SellerView, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" && eta == nil {
		return nil, apperr.Validation("trackingNumber or estimatedDelivery is required")
	}
	owned, err := s.Catalog.ProductIDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	o, err := s.Store.Mutate(ctx, orderID, func(o *Order) error {
		if _, ok := ViewForSeller(o, owned); !ok {
			return apperr.Forbidden("order has no items for this seller")
		}
		if o.OverallStatus == StatusCancelled {
			return apperr.Conflict("order is cancelled")
		}
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
		if eta != nil {
			t := eta.UTC()
			o.EstimatedDelivery = &t
		}
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	v, _ := ViewForSeller(o, owned)
	return &v, nil
}

// SellerOrderStats aggregates the seller's views of every order. Results are
// served from the stats cache when one is configured.
func (s *Service) SellerOrderStats(ctx context.Context, sellerID string) (SellerStats, error) {
	if s.Stats != nil {
		st, ok, err := s.Stats.Get(ctx, sellerID)
		if err != nil {
			s.Log.Warn().Err(err).Str("seller_id", sellerID).Msg("stats cache get")
		} else if ok {
			return st, nil
		}
	}
	views, err := s.ListOrdersForSeller(ctx, sellerID)
	if err != nil {
		return SellerStats{}, err
	}
	st := ComputeSellerStats(views)
	if s.Stats != nil {
		if err := s.Stats.Set(ctx, sellerID, st); err != nil {
			s.Log.Warn().Err(err).Str("seller_id", sellerID).Msg("stats cache set")
		}
	}
	return st, nil
}

func (s *Service) invalidateStats(ctx context.Context, sellerIDs ...string) {
	if s.Stats == nil || len(sellerIDs) == 0 {
		return
	}
	if err := s.Stats.Invalidate(ctx, sellerIDs...); err != nil {
		s.Log.Warn().Err(err).Strs("sellers", sellerIDs).Msg("stats cache invalidate")
	}
}

func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Publisher == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Publisher.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type published struct {
	topic string
	key   []byte
	env   orders.Envelope
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(topic string, key, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: key, env: env})
}

type memIdempotency struct{ m map[string]string }

func (s *memIdempotency) Lookup(_ context.Context, buyerID, key string) (string, bool, error) {
	id, ok := s.m[buyerID+"|"+key]
	return id, ok, nil
}

func (s *memIdempotency) Remember(_ context.Context, buyerID, key, orderID string) error {
	if _, ok := s.m[buyerID+"|"+key]; !ok {
		s.m[buyerID+"|"+key] = orderID
	}
	return nil
}

type memStats struct {
	m    map[string]orders.SellerStats
	sets int
}

func (c *memStats) Get(_ context.Context, sellerID string) (orders.SellerStats, bool, error) {
	st, ok := c.m[sellerID]
	return st, ok, nil
}

func (c *memStats) Set(_ context.Context, sellerID string, st orders.SellerStats) error {
	c.sets++
	c.m[sellerID] = st
	return nil
}

func (c *memStats) Invalidate(_ context.Context, sellerIDs ...string) error {
	for _, id := range sellerIDs {
		delete(c.m, id)
	}
	return nil
}

// flakyStore fails reads with a storage error while down is set.
type flakyStore struct {
	*memstore.OrderStore
	down bool
}

func (f *flakyStore) Get(ctx context.Context, id string) (*orders.Order, error) {
	if f.down {
		return nil, apperr.Storage("get order", errors.New("connection reset"))
	}
	return f.OrderStore.Get(ctx, id)
}

var address = orders.ShippingAddress{Name: "Acme Traders", Line1: "12 MG Road", City: "Pune", PostalCode: "411001"}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *memstore.Catalog
	store   *memstore.OrderStore
	carts   *memstore.CartStore
	pub     *recordingPublisher
	svc     *orders.Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.catalog = memstore.NewCatalog(
		catalog.Product{ID: "p1", SKU: "VAL-1", Name: "Valve", Price: decimal.NewFromInt(100), SellerID: "s1"},
		catalog.Product{ID: "p2", SKU: "GSK-1", Name: "Gasket", Price: decimal.NewFromInt(50), SellerID: "s2"},
		catalog.Product{ID: "p3", SKU: "BLT-1", Name: "Bolt", Price: decimal.RequireFromString("2.50"), SellerID: "s1"},
	)
	s.store = memstore.NewOrderStore()
	s.carts = memstore.NewCartStore()
	s.pub = &recordingPublisher{}
	s.svc = &orders.Service{
		Store:       s.store,
		Catalog:     s.catalog,
		Cart:        s.carts,
		Publisher:   s.pub,
		ServiceName: "order-api-test",
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return s.now },
	}
}

func (s *ServiceSuite) place(items ...orders.ItemInput) *orders.Order {
	o, replay, err := s.svc.CreateOrder(s.ctx, "b1", orders.CreateOrderInput{
		Items: items, ShippingAddress: address, PaymentMethod: "bank_transfer",
	})
	s.Require().NoError(err)
	s.Require().False(replay)
	return o
}

func (s *ServiceSuite) TestCreateOrderSnapshotsCatalogPrices() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 2}, orders.ItemInput{ProductID: "p2", Quantity: 1})

	s.Require().Equal("250", o.TotalAmount.String())
	s.Require().Equal(orders.StatusPending, o.OverallStatus)
	s.Require().Equal(orders.PaymentPending, o.PaymentStatus)
	s.Require().Len(o.Items, 2)
	for _, it := range o.Items {
		s.Require().Equal(orders.StatusPending, it.Status)
		s.Require().NotEmpty(it.ID)
	}

	s.catalog.Put(catalog.Product{ID: "p1", SKU: "VAL-1", Name: "Valve", Price: decimal.NewFromInt(175), SellerID: "s1"})

	got, err := s.svc.GetBuyerOrder(s.ctx, "b1", o.ID)
	s.Require().NoError(err)
	s.Require().Equal("100", got.Items[0].Price.String())
	s.Require().Equal("250", got.TotalAmount.String())
}

func (s *ServiceSuite) TestCreateOrderMissingProductAbortsWholeOrder() {
	_, _, err := s.svc.CreateOrder(s.ctx, "b1", orders.CreateOrderInput{
		Items:           []orders.ItemInput{{ProductID: "p1", Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
		ShippingAddress: address,
		PaymentMethod:   "cod",
	})
	s.Require().True(apperr.Is(err, apperr.KindNotFound))
	s.Require().Contains(err.Error(), "ghost")

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Empty(all)
	s.Require().Empty(s.pub.msgs)
}

func (s *ServiceSuite) TestCreateOrderValidation() {
	cases := map[string]orders.CreateOrderInput{
		"no items":        {ShippingAddress: address, PaymentMethod: "cod"},
		"zero quantity":   {Items: []orders.ItemInput{{ProductID: "p1"}}, ShippingAddress: address, PaymentMethod: "cod"},
		"blank product":   {Items: []orders.ItemInput{{ProductID: " ", Quantity: 1}}, ShippingAddress: address, PaymentMethod: "cod"},
		"payment method":  {Items: []orders.ItemInput{{ProductID: "p1", Quantity: 1}}, ShippingAddress: address, PaymentMethod: "crypto"},
		"missing address": {Items: []orders.ItemInput{{ProductID: "p1", Quantity: 1}}, PaymentMethod: "cod"},
	}
	for name, in := range cases {
		_, _, err := s.svc.CreateOrder(s.ctx, "b1", in)
		s.Require().Truef(apperr.Is(err, apperr.KindValidation), "%s: %v", name, err)
	}
}

func (s *ServiceSuite) TestCreateOrderMergesRepeatedProducts() {
	o := s.place(orders.ItemInput{ProductID: "p3", Quantity: 4}, orders.ItemInput{ProductID: "p3", Quantity: 6})
	s.Require().Len(o.Items, 1)
	s.Require().Equal(10, o.Items[0].Quantity)
	s.Require().Equal("25", o.TotalAmount.String())
}

func (s *ServiceSuite) TestCreateOrderRejectsOversizedQuantities() {
	for _, items := range [][]orders.ItemInput{
		{{ProductID: "p1", Quantity: math.MaxInt}, {ProductID: "p1", Quantity: 1}},
		{{ProductID: "p1", Quantity: cart.MaxQuantity}, {ProductID: "p1", Quantity: 1}},
		{{ProductID: "p1", Quantity: cart.MaxQuantity + 1}},
	} {
		_, _, err := s.svc.CreateOrder(s.ctx, "b1", orders.CreateOrderInput{
			Items: items, ShippingAddress: address, PaymentMethod: "cod",
		})
		s.Require().True(apperr.Is(err, apperr.KindValidation), "%v", err)
	}

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Empty(all)

	o := s.place(orders.ItemInput{ProductID: "p3", Quantity: cart.MaxQuantity})
	s.Require().Equal(cart.MaxQuantity, o.Items[0].Quantity)
}

func (s *ServiceSuite) TestCreateOrderPublishesOrderPlaced() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1}, orders.ItemInput{ProductID: "p2", Quantity: 1})

	s.Require().Len(s.pub.msgs, 1)
	m := s.pub.msgs[0]
	s.Require().Equal(orders.TopicOrderPlaced, m.topic)
	s.Require().Equal(o.ID, string(m.key))
	s.Require().Equal(orders.EventOrderPlaced, m.env.EventType)
	s.Require().Equal("order-api-test", m.env.Producer)

	var p orders.OrderPlacedPayload
	s.Require().NoError(json.Unmarshal(m.env.Payload, &p))
	s.Require().Equal([]string{"s1", "s2"}, p.SellerIDs)
	s.Require().True(p.TotalAmount.Equal(decimal.NewFromInt(150)))
}

func (s *ServiceSuite) TestCreateOrderIdempotentReplay() {
	s.svc.Idempotency = &memIdempotency{m: map[string]string{}}
	in := orders.CreateOrderInput{
		Items:           []orders.ItemInput{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: address,
		PaymentMethod:   "card",
		IdempotencyKey:  "req-1",
	}

	first, replay, err := s.svc.CreateOrder(s.ctx, "b1", in)
	s.Require().NoError(err)
	s.Require().False(replay)

	second, replay, err := s.svc.CreateOrder(s.ctx, "b1", in)
	s.Require().NoError(err)
	s.Require().True(replay)
	s.Require().Equal(first.ID, second.ID)

	other, replay, err := s.svc.CreateOrder(s.ctx, "b2", in)
	s.Require().NoError(err)
	s.Require().False(replay)
	s.Require().NotEqual(first.ID, other.ID)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
}

func (s *ServiceSuite) TestCheckoutCartClearsCart() {
	_, err := s.carts.Increment(s.ctx, "b1", "p1", 2)
	s.Require().NoError(err)
	_, err = s.carts.Increment(s.ctx, "b1", "p2", 1)
	s.Require().NoError(err)

	o, _, err := s.svc.CheckoutCart(s.ctx, "b1", orders.CreateOrderInput{ShippingAddress: address, PaymentMethod: "upi"})
	s.Require().NoError(err)
	s.Require().Equal("250", o.TotalAmount.String())

	n, err := s.carts.Count(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().Zero(n)

	_, _, err = s.svc.CheckoutCart(s.ctx, "b1", orders.CreateOrderInput{ShippingAddress: address, PaymentMethod: "upi"})
	s.Require().True(apperr.Is(err, apperr.KindValidation))
}

func (s *ServiceSuite) TestCheckoutKeepsCartWhenOrderFails() {
	_, err := s.carts.Increment(s.ctx, "b1", "p1", 1)
	s.Require().NoError(err)

	_, _, err = s.svc.CheckoutCart(s.ctx, "b1", orders.CreateOrderInput{ShippingAddress: address, PaymentMethod: "barter"})
	s.Require().Error(err)

	n, err := s.carts.Count(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().Equal(1, n)
}

func (s *ServiceSuite) TestBuyerReadsAreOwnershipChecked() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1})

	_, err := s.svc.GetBuyerOrder(s.ctx, "b2", o.ID)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))

	_, err = s.svc.GetBuyerOrder(s.ctx, "b1", "nope")
	s.Require().True(apperr.Is(err, apperr.KindNotFound))

	mine, err := s.svc.ListBuyerOrders(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().Len(mine, 1)

	theirs, err := s.svc.ListBuyerOrders(s.ctx, "b2")
	s.Require().NoError(err)
	s.Require().Empty(theirs)
}

func (s *ServiceSuite) TestSellerIsolation() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 2}, orders.ItemInput{ProductID: "p2", Quantity: 1})

	v1, err := s.svc.GetSellerOrder(s.ctx, "s1", o.ID)
	s.Require().NoError(err)
	s.Require().Len(v1.Items, 1)
	s.Require().Equal("p1", v1.Items[0].ProductID)
	s.Require().Equal("200", v1.SellerTotal.String())

	v2, err := s.svc.GetSellerOrder(s.ctx, "s2", o.ID)
	s.Require().NoError(err)
	s.Require().Len(v2.Items, 1)
	s.Require().Equal("p2", v2.Items[0].ProductID)
	s.Require().Equal("50", v2.SellerTotal.String())

	_, err = s.svc.GetSellerOrder(s.ctx, "s3", o.ID)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))

	list, err := s.svc.ListOrdersForSeller(s.ctx, "s3")
	s.Require().NoError(err)
	s.Require().Empty(list)
}

func (s *ServiceSuite) TestUnauthorizedStatusWriteIsRejected() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1}, orders.ItemInput{ProductID: "p2", Quantity: 1})
	itemOfS2 := o.Items[1].ID

	_, err := s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, itemOfS2, orders.StatusShipped)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, "no-such-item", orders.StatusShipped)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))

	got, err := s.store.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Equal(orders.StatusPending, got.Items[1].Status)
	s.Require().Len(s.pub.msgs, 1, "only the OrderPlaced event")
}

func (s *ServiceSuite) TestUpdateItemStatusErrors() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1})
	item := o.Items[0].ID

	_, err := s.svc.UpdateItemStatus(s.ctx, "s1", "missing", item, orders.StatusShipped)
	s.Require().True(apperr.Is(err, apperr.KindNotFound))

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.Status("lost"))
	s.Require().True(apperr.Is(err, apperr.KindValidation))

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.StatusShipped)
	s.Require().NoError(err)

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.StatusConfirmed)
	s.Require().True(apperr.Is(err, apperr.KindConflict))

	v, err := s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.StatusShipped)
	s.Require().NoError(err, "same status is a no-op")
	s.Require().Equal(orders.StatusShipped, v.Items[0].Status)

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.StatusDelivered)
	s.Require().NoError(err)
	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, item, orders.StatusCancelled)
	s.Require().True(apperr.Is(err, apperr.KindConflict))
}

func (s *ServiceSuite) TestUpdateItemStatusDerivesOverallStatus() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1}, orders.ItemInput{ProductID: "p2", Quantity: 1})

	s.now = s.now.Add(time.Hour)
	v, err := s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, o.Items[0].ID, orders.StatusDelivered)
	s.Require().NoError(err)
	s.Require().Equal(orders.StatusPending, v.OverallStatus)
	s.Require().Nil(v.ActualDelivery)
	s.Require().Equal(s.now, v.Items[0].StatusUpdatedAt)

	_, err = s.svc.UpdateItemStatus(s.ctx, "s2", o.ID, o.Items[1].ID, orders.StatusCancelled)
	s.Require().NoError(err)

	got, err := s.store.Get(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Require().Equal(orders.StatusDelivered, got.OverallStatus)
	s.Require().NotNil(got.ActualDelivery)

	last := s.pub.msgs[len(s.pub.msgs)-1]
	s.Require().Equal(orders.TopicOrderItemStatusChanged, last.topic)
	var p orders.ItemStatusChangedPayload
	s.Require().NoError(json.Unmarshal(last.env.Payload, &p))
	s.Require().Equal("s2", p.SellerID)
	s.Require().Equal(orders.StatusPending, p.From)
	s.Require().Equal(orders.StatusCancelled, p.To)
	s.Require().Equal(orders.StatusDelivered, p.OverallStatus)
}

func (s *ServiceSuite) TestUpdateItemStatusReturnsSellerView() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1}, orders.ItemInput{ProductID: "p2", Quantity: 1})

	v, err := s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, o.Items[0].ID, orders.StatusConfirmed)
	s.Require().NoError(err)
	s.Require().Len(v.Items, 1)
	s.Require().Equal("p1", v.Items[0].ProductID)
}

func (s *ServiceSuite) TestUpdateShipment() {
	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1})
	eta := s.now.Add(72 * time.Hour)

	v, err := s.svc.UpdateShipment(s.ctx, "s1", o.ID, "AWB123", &eta)
	s.Require().NoError(err)
	s.Require().Equal("AWB123", v.TrackingNumber)
	s.Require().True(eta.Equal(*v.EstimatedDelivery))

	_, err = s.svc.UpdateShipment(s.ctx, "s2", o.ID, "AWB999", nil)
	s.Require().True(apperr.Is(err, apperr.KindForbidden))

	_, err = s.svc.UpdateShipment(s.ctx, "s1", o.ID, " ", nil)
	s.Require().True(apperr.Is(err, apperr.KindValidation))

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, o.Items[0].ID, orders.StatusCancelled)
	s.Require().NoError(err)
	_, err = s.svc.UpdateShipment(s.ctx, "s1", o.ID, "AWB124", nil)
	s.Require().True(apperr.Is(err, apperr.KindConflict))
}

func (s *ServiceSuite) TestSellerStatsNonExclusiveAndCached() {
	cache := &memStats{m: map[string]orders.SellerStats{}}
	s.svc.Stats = cache

	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1}, orders.ItemInput{ProductID: "p3", Quantity: 2})
	s.place(orders.ItemInput{ProductID: "p2", Quantity: 3})
	_, err := s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, o.Items[0].ID, orders.StatusDelivered)
	s.Require().NoError(err)

	st, err := s.svc.SellerOrderStats(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(1, st.TotalOrders)
	s.Require().Equal(1, st.PendingOrders)
	s.Require().Equal(1, st.CompletedOrders)
	s.Require().Equal("105", st.TotalRevenue.String())
	s.Require().Equal(1, cache.sets)

	_, err = s.svc.SellerOrderStats(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(1, cache.sets, "second call served from cache")

	st2, err := s.svc.SellerOrderStats(s.ctx, "s2")
	s.Require().NoError(err)
	s.Require().Equal(1, st2.TotalOrders)
	s.Require().Equal("150", st2.TotalRevenue.String())
}

func (s *ServiceSuite) TestOwnWritesRefreshCachedStats() {
	cache := &memStats{m: map[string]orders.SellerStats{}}
	s.svc.Stats = cache

	o := s.place(orders.ItemInput{ProductID: "p1", Quantity: 1})
	st, err := s.svc.SellerOrderStats(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(1, st.PendingOrders)
	s.Require().Equal(0, st.CompletedOrders)

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, o.Items[0].ID, orders.StatusDelivered)
	s.Require().NoError(err)
	st, err = s.svc.SellerOrderStats(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(0, st.PendingOrders)
	s.Require().Equal(1, st.CompletedOrders)

	s.place(orders.ItemInput{ProductID: "p3", Quantity: 1})
	st, err = s.svc.SellerOrderStats(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(2, st.TotalOrders)
	s.Require().Equal(1, st.PendingOrders)
}

func (s *ServiceSuite) TestReplayStoreFailureDoesNotCreateSecondOrder() {
	store := &flakyStore{OrderStore: s.store}
	s.svc.Store = store
	s.svc.Idempotency = &memIdempotency{m: map[string]string{}}
	in := orders.CreateOrderInput{
		Items:           []orders.ItemInput{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: address,
		PaymentMethod:   "cod",
		IdempotencyKey:  "req-9",
	}
	_, _, err := s.svc.CreateOrder(s.ctx, "b1", in)
	s.Require().NoError(err)

	store.down = true
	_, _, err = s.svc.CreateOrder(s.ctx, "b1", in)
	s.Require().Error(err)
	s.Require().Equal(500, apperr.HTTPStatus(err))

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
}

func (s *ServiceSuite) TestReplayOfVanishedOrderCreatesNewOne() {
	idem := &memIdempotency{m: map[string]string{"b1|req-7": "gone"}}
	s.svc.Idempotency = idem
	o, replay, err := s.svc.CreateOrder(s.ctx, "b1", orders.CreateOrderInput{
		Items:           []orders.ItemInput{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: address,
		PaymentMethod:   "cod",
		IdempotencyKey:  "req-7",
	})
	s.Require().NoError(err)
	s.Require().False(replay)
	s.Require().NotEqual("gone", o.ID)
}

// Buyer stages P1 (₹100, S1, qty 2) and P2 (₹50, S2, qty 1), checks out, and
// each seller works only on their own line.
func (s *ServiceSuite) TestEndToEndScenario() {
	cartSvc := s.carts
	_, err := cartSvc.Increment(s.ctx, "b1", "p1", 2)
	s.Require().NoError(err)
	_, err = cartSvc.Increment(s.ctx, "b1", "p2", 1)
	s.Require().NoError(err)

	o, _, err := s.svc.CheckoutCart(s.ctx, "b1", orders.CreateOrderInput{ShippingAddress: address, PaymentMethod: "cod"})
	s.Require().NoError(err)
	s.Require().Equal("250", o.TotalAmount.String())
	s.Require().Len(o.Items, 2)

	list, err := s.svc.ListOrdersForSeller(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Require().Len(list[0].Items, 1)
	s.Require().Equal("p1", list[0].Items[0].ProductID)
	s.Require().Equal("200", list[0].SellerTotal.String())

	_, err = s.svc.UpdateItemStatus(s.ctx, "s1", o.ID, list[0].Items[0].ID, orders.StatusShipped)
	s.Require().NoError(err)

	v2, err := s.svc.GetSellerOrder(s.ctx, "s2", o.ID)
	s.Require().NoError(err)
	s.Require().Equal(orders.StatusPending, v2.Items[0].Status)
}

func TestCreateOrderPublishesExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockEventPublisher(ctrl)
	pub.EXPECT().Publish(orders.TopicOrderPlaced, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	svc := &orders.Service{
		Store:     memstore.NewOrderStore(),
		Catalog:   memstore.NewCatalog(catalog.Product{ID: "p1", Price: decimal.NewFromInt(10), SellerID: "s1"}),
		Publisher: pub,
		Log:       zerolog.Nop(),
	}
	_, _, err := svc.CreateOrder(context.Background(), "b1", orders.CreateOrderInput{
		Items:           []orders.ItemInput{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: address,
		PaymentMethod:   "cod",
	})
	require.NoError(t, err)
}

func TestRejectedWritesPublishNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewMockEventPublisher(ctrl)

	store := memstore.NewOrderStore()
	require.NoError(t, store.Create(context.Background(), &orders.Order{
		ID:      "o1",
		BuyerID: "b1",
		Items: []orders.OrderItem{
			{ID: "i1", ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(10), Status: orders.StatusPending},
		},
	}))
	svc := &orders.Service{
		Store:     store,
		Catalog:   memstore.NewCatalog(catalog.Product{ID: "p1", Price: decimal.NewFromInt(10), SellerID: "s1"}),
		Publisher: pub,
		Log:       zerolog.Nop(),
	}

	_, err := svc.UpdateItemStatus(context.Background(), "s2", "o1", "i1", orders.StatusShipped)
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.UpdateItemStatus(context.Background(), "s1", "o1", "i1", orders.StatusPending)
	require.NoError(t, err)
}

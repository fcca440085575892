package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced            = "OrderPlaced"
	EventOrderItemStatusChanged = "OrderItemStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	SellerID  string          `json:"seller_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID     string          `json:"order_id"`
	BuyerID     string          `json:"buyer_id"`
	Items       []ItemPrice     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SellerIDs   []string        `json:"seller_ids"`
}

type ItemStatusChangedPayload struct {
	OrderID       string `json:"order_id"`
	ItemID        string `json:"item_id"`
	SellerID      string `json:"seller_id"`
	From          Status `json:"from"`
	To            Status `json:"to"`
	OverallStatus Status `json:"overall_status"`
}

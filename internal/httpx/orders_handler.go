package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// OrdersHandler serves the buyer side of orders.
type OrdersHandler struct {
	Orders *orders.Service
	Log    zerolog.Logger
}

// createOrderReq has no price field; anything the client sends for price is dropped by the decoder.
type createOrderReq struct {
	BuyerID         string                 `json:"buyerId"`
	Items           []orders.ItemInput     `json:"items"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
	// OrderNotes is the older name for notes, still accepted.
	OrderNotes string `json:"orderNotes"`
}

type createOrderResp struct {
	Success    bool          `json:"success"`
	Order      *orders.Order `json:"order"`
	Idempotent bool          `json:"idempotent"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(RequireRole(auth.RoleBuyer, h.Log))
		r.Post("/", h.createOrder)
		r.Post("/checkout", h.checkout)
		r.Get("/my", h.listMine)
		r.Get("/{id}", h.getOrder)
	})
}

func (h *OrdersHandler) input(r *http.Request) (string, orders.CreateOrderInput, error) {
	var req createOrderReq
	if err := decodeJSON(r, &req); err != nil {
		return "", orders.CreateOrderInput{}, err
	}
	buyerID, err := callerID(r, req.BuyerID)
	if err != nil {
		return "", orders.CreateOrderInput{}, err
	}
	notes := req.Notes
	if notes == "" {
		notes = req.OrderNotes
	}
	return buyerID, orders.CreateOrderInput{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           notes,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	}, nil
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, in, err := h.input(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, replayed, err := h.Orders.CreateOrder(ctx, buyerID, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	code := http.StatusCreated
	if replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, createOrderResp{Success: true, Order: o, Idempotent: replayed})
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	buyerID, in, err := h.input(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, replayed, err := h.Orders.CheckoutCart(ctx, buyerID, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	code := http.StatusCreated
	if replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, createOrderResp{Success: true, Order: o, Idempotent: replayed})
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerID(r, r.URL.Query().Get("buyerId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListBuyerOrders(ctx, buyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetBuyerOrder(ctx, buyerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

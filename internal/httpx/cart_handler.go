package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
)

type CartHandler struct {
	Cart *cart.Service
	Log  zerolog.Logger
}

type addToCartReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	BuyerID   string `json:"buyerId"`
}

type updateCartReq struct {
	Quantity *int   `json:"quantity"`
	BuyerID  string `json:"buyerId"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(RequireRole(auth.RoleBuyer, h.Log))
		r.Get("/", h.list)
		r.Post("/add", h.add)
		r.Put("/update/{productId}", h.update)
		r.Delete("/remove/{productId}", h.remove)
		r.Delete("/clear", h.clear)
	})
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	buyerID, err := callerID(r, req.BuyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, err := h.Cart.Add(ctx, buyerID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	count, err := h.Cart.Count(ctx, buyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item, "count": count})
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateCartReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, r, h.Log, apperr.Validation("quantity is required"))
		return
	}
	buyerID, err := callerID(r, req.BuyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, removed, err := h.Cart.UpdateQuantity(ctx, buyerID, chi.URLParam(r, "productId"), *req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	count, err := h.Cart.Count(ctx, buyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	resp := map[string]any{"success": true, "count": count}
	if removed {
		resp["removed"] = true
	} else {
		resp["item"] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerID(r, r.URL.Query().Get("buyerId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cart.Remove(ctx, buyerID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	count, err := h.Cart.Count(ctx, buyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": true, "count": count})
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerID(r, r.URL.Query().Get("buyerId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cart.Clear(ctx, buyerID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": 0})
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerID(r, r.URL.Query().Get("buyerId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, total, err := h.Cart.Items(ctx, buyerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   lines,
		"count":   count,
		"total":   total,
	})
}

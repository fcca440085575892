package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// SellerHandler serves seller-filtered order views. Every response is
// projected onto the caller's own products.
type SellerHandler struct {
	Orders *orders.Service
	Log    zerolog.Logger
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
	ItemID string        `json:"itemId"`
}

type updateShipmentReq struct {
	TrackingNumber    string     `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

func (h *SellerHandler) Register(r chi.Router) {
	r.Route("/seller/orders", func(r chi.Router) {
		r.Use(RequireRole(auth.RoleSeller, h.Log))
		r.Get("/my-orders", h.listMine)
		r.Get("/order/{id}", h.getOrder)
		r.Put("/update-status/{id}", h.updateStatus)
		r.Put("/shipment/{id}", h.updateShipment)
		r.Get("/order-stats", h.stats)
	})
}

func (h *SellerHandler) listMine(w http.ResponseWriter, r *http.Request) {
	sellerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	views, err := h.Orders.ListOrdersForSeller(ctx, sellerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": views})
}

func (h *SellerHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	sellerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Orders.GetSellerOrder(ctx, sellerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": v})
}

func (h *SellerHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if strings.TrimSpace(req.ItemID) == "" {
		writeError(w, r, h.Log, apperr.Validation("itemId is required"))
		return
	}
	sellerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Orders.UpdateItemStatus(ctx, sellerID, chi.URLParam(r, "id"), req.ItemID, req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": v})
}

func (h *SellerHandler) updateShipment(w http.ResponseWriter, r *http.Request) {
	var req updateShipmentReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sellerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Orders.UpdateShipment(ctx, sellerID, chi.URLParam(r, "id"), req.TrackingNumber, req.EstimatedDelivery)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": v})
}

func (h *SellerHandler) stats(w http.ResponseWriter, r *http.Request) {
	sellerID, err := callerID(r, "")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Orders.SellerOrderStats(ctx, sellerID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": st})
}

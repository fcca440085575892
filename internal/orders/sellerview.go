package orders

import "github.com/shopspring/decimal"

// SellerView is an order projected onto one seller's products.
type SellerView struct {
	Order
	SellerTotal decimal.Decimal `json:"sellerTotal"`
}

// ViewForSeller keeps only the items whose product is in owned. ok is false
// when nothing matches; such an order must be treated as invisible to the seller.
func ViewForSeller(o *Order, owned map[string]struct{}) (view SellerView, ok bool) {
	view.Order = *o.Clone()
	view.Order.Items = view.Order.Items[:0]
	view.SellerTotal = decimal.Zero
	for _, it := range o.Items {
		if _, mine := owned[it.ProductID]; !mine {
			continue
		}
		view.Order.Items = append(view.Order.Items, it)
		view.SellerTotal = view.SellerTotal.Add(it.LineTotal())
	}
	return view, len(view.Order.Items) > 0
}

// ComputeSellerStats aggregates non-empty seller views. An order counts as
// pending when any visible item is still pending/confirmed/processing and as
// completed when any visible item is delivered; it can be both.
func ComputeSellerStats(views []SellerView) SellerStats {
	st := SellerStats{TotalRevenue: decimal.Zero}
	for _, v := range views {
		if len(v.Items) == 0 {
			continue
		}
		st.TotalOrders++
		st.TotalRevenue = st.TotalRevenue.Add(v.SellerTotal)

		var pending, completed bool
		for _, it := range v.Items {
			switch it.Status {
			case StatusPending, StatusConfirmed, StatusProcessing:
				pending = true
			case StatusDelivered:
				completed = true
			}
		}
		if pending {
			st.PendingOrders++
		}
		if completed {
			st.CompletedOrders++
		}
	}
	return st
}

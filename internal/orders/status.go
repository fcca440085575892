package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// rank orders the forward path. cancelled sits outside it.
var rank = map[Status]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusProcessing: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok || s == StatusCancelled
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition allows any forward move along pending→delivered (steps may be
// skipped) and cancellation from any non-terminal state.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return rank[to] > rank[from]
}

// DeriveOverallStatus summarises item statuses:
// every item cancelled → cancelled; every live item delivered → delivered;
// otherwise the least advanced live item.
func DeriveOverallStatus(items []OrderItem) Status {
	least := StatusDelivered
	live := 0
	for _, it := range items {
		if it.Status == StatusCancelled {
			continue
		}
		live++
		if rank[it.Status] < rank[least] {
			least = it.Status
		}
	}
	if live == 0 {
		return StatusCancelled
	}
	return least
}

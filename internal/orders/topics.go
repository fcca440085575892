package orders

const (
	TopicOrderPlaced            = "marketplace.order.placed"
	TopicOrderItemStatusChanged = "marketplace.order.item_status_changed"
)

// Partition key = order id so events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

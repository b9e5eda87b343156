package enums

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ORDERED"
	OrderStatusInTransit OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

var validOrderStatuses = values[OrderStatus]{
	OrderStatusOrdered,
	OrderStatusInTransit,
	OrderStatusDelivered,
}

func (o OrderStatus) IsValid() bool {
	return validOrderStatuses.has(o)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return validOrderStatuses.parse("order status", value)
}

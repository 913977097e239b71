package enums

// OrderStatus is the fulfillment-side state, independent of payment.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
)

func (o OrderStatus) IsValid() bool {
	switch o {
	case OrderStatusPending, OrderStatusProcessed:
		return true
	}
	return false
}

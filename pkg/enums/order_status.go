package enums

// OrderStatus tracks the payment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "draft"
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusRejected OrderStatus = "rejected"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusRejected,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:   {OrderStatusPending, OrderStatusPaid},
	OrderStatusPending: {OrderStatusPaid, OrderStatusRejected},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	return oneOf(o, validOrderStatuses)
}

// IsTerminal reports whether no further transitions are permitted.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusPaid || o == OrderStatusRejected
}

// CanTransitionTo reports whether moving from o to next is allowed.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return oneOf(next, orderTransitions[o])
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", value, validOrderStatuses)
}

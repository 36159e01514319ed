package enums

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateProduct       OutboxAggregateType = "product"
	AggregateSellerCatalog OutboxAggregateType = "seller_catalog"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateSellerCatalog,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return oneOf(a, validAggregateTypes)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType names a domain event emitted through the outbox.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderPaid           OutboxEventType = "order_paid"
	EventOrderRejected       OutboxEventType = "order_rejected"
	EventCatalogReleased     OutboxEventType = "catalog_released"
	EventProductPriceChanged OutboxEventType = "product_price_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderRejected,
	EventCatalogReleased,
	EventProductPriceChanged,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return oneOf(e, validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}

// OutboxDLQReason explains why an outbox row was dead-lettered.
type OutboxDLQReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQReason = "max_attempts"
)

package enums

// CartStatus tracks the lifecycle of a buyer cart.
type CartStatus string

const (
	CartStatusOpen      CartStatus = "open"
	CartStatusCompleted CartStatus = "completed"
	CartStatusCancelled CartStatus = "cancelled"
)

var validCartStatuses = []CartStatus{
	CartStatusOpen,
	CartStatusCompleted,
	CartStatusCancelled,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	return oneOf(c, validCartStatuses)
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	return parse("cart status", value, validCartStatuses)
}

package enums

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodStripe   PaymentMethod = "stripe"
	PaymentMethodMoncash  PaymentMethod = "moncash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodStripe,
	PaymentMethodMoncash,
	PaymentMethodTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return oneOf(p, validPaymentMethods)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", value, validPaymentMethods)
}

// SettlesImmediately reports whether the method is confirmed by the gateway at
// checkout rather than through manual verification.
func (p PaymentMethod) SettlesImmediately() bool {
	return p == PaymentMethodStripe
}

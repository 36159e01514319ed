package enums

// Currency represents supported monetary denominations for order totals.
type Currency string

const (
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	return oneOf(c, validCurrencies)
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	return parse("currency", value, validCurrencies)
}

package enums

// PriceHistoryField names the audited product attribute.
type PriceHistoryField string

const (
	PriceHistoryFieldWholesalePrice PriceHistoryField = "wholesale_price"
	PriceHistoryFieldMOQ            PriceHistoryField = "moq"
)

var validPriceHistoryFields = []PriceHistoryField{
	PriceHistoryFieldWholesalePrice,
	PriceHistoryFieldMOQ,
}

// String implements fmt.Stringer.
func (f PriceHistoryField) String() string {
	return string(f)
}

// IsValid reports whether the value is a known PriceHistoryField.
func (f PriceHistoryField) IsValid() bool {
	return oneOf(f, validPriceHistoryFields)
}

// ParsePriceHistoryField converts raw input into a PriceHistoryField.
func ParsePriceHistoryField(value string) (PriceHistoryField, error) {
	return parse("price history field", value, validPriceHistoryFields)
}

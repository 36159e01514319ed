package enums

// StockStatus is derived from a product's physical stock and MOQ.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

var validStockStatuses = []StockStatus{
	StockStatusInStock,
	StockStatusLowStock,
	StockStatusOutOfStock,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	return oneOf(s, validStockStatuses)
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	return parse("stock status", value, validStockStatuses)
}

// DeriveStockStatus computes the status for the given stock and MOQ. Stock
// below twice the MOQ is considered low.
func DeriveStockStatus(stock, moq int) StockStatus {
	if stock <= 0 {
		return StockStatusOutOfStock
	}
	if moq < 1 {
		moq = 1
	}
	if stock < 2*moq {
		return StockStatusLowStock
	}
	return StockStatusInStock
}

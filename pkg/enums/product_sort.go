package enums

// ProductSort enumerates catalog orderings.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortMOQAsc    ProductSort = "moq_asc"
	ProductSortMOQDesc   ProductSort = "moq_desc"
)

var validProductSorts = []ProductSort{
	ProductSortNewest,
	ProductSortPriceAsc,
	ProductSortPriceDesc,
	ProductSortMOQAsc,
	ProductSortMOQDesc,
}

// String implements fmt.Stringer.
func (p ProductSort) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductSort.
func (p ProductSort) IsValid() bool {
	return oneOf(p, validProductSorts)
}

// ParseProductSort converts raw input into a ProductSort.
func ParseProductSort(value string) (ProductSort, error) {
	return parse("product sort", value, validProductSorts)
}

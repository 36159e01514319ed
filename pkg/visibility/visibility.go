package visibility

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

// Projected is a product shaped for one caller role. Implementations are
// WholesaleProduct and RetailProduct; the set of fields differs by type so a
// retail caller can never receive wholesale pricing.
type Projected interface {
	ProductID() uuid.UUID
	projected()
}

// CategoryRef is the embedded category summary.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// SupplierRef is the embedded supplier summary shown to wholesale roles.
type SupplierRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type baseProduct struct {
	ID               uuid.UUID         `json:"id"`
	SKU              string            `json:"sku"`
	Name             string            `json:"name"`
	ShortDescription *string           `json:"short_description,omitempty"`
	LongDescription  *string           `json:"long_description,omitempty"`
	StockStatus      enums.StockStatus `json:"stock_status"`
	PrimaryImage     *string           `json:"primary_image,omitempty"`
	GalleryImages    []string          `json:"gallery_images"`
	Category         *CategoryRef      `json:"category,omitempty"`
	IsActive         bool              `json:"is_active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// WholesaleProduct is the admin/seller view.
type WholesaleProduct struct {
	baseProduct
	WholesalePrice       decimal.Decimal    `json:"wholesale_price"`
	SuggestedRetailPrice *decimal.Decimal   `json:"suggested_retail_price,omitempty"`
	MOQ                  int                `json:"moq"`
	Stock                int                `json:"stock"`
	WeightKg             *decimal.Decimal   `json:"weight_kg,omitempty"`
	DimensionsCm         *models.Dimensions `json:"dimensions_cm,omitempty"`
	Supplier             *SupplierRef       `json:"supplier,omitempty"`
}

// RetailProduct is the client view.
type RetailProduct struct {
	baseProduct
	RetailPrice decimal.Decimal `json:"retail_price"`
}

func (p WholesaleProduct) ProductID() uuid.UUID { return p.ID }
func (p WholesaleProduct) projected() {}

func (p RetailProduct) ProductID() uuid.UUID { return p.ID }
func (p RetailProduct) projected() {}

// ProjectProduct returns the fields of product the role is entitled to see.
// An empty or unknown role is rejected as unauthorized.
func ProjectProduct(product *models.Product, role enums.Role) (Projected, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "a recognised role is required to view products")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	base := baseFrom(product)
	if role.SeesWholesale() {
		out := WholesaleProduct{
			baseProduct:          base,
			WholesalePrice:       product.WholesalePrice,
			SuggestedRetailPrice: product.SuggestedRetailPrice,
			MOQ:                  product.MOQ,
			Stock:                product.Stock,
			WeightKg:             product.WeightKg,
			DimensionsCm:         product.DimensionsCm,
		}
		if product.Supplier != nil {
			out.Supplier = &SupplierRef{ID: product.Supplier.ID, Name: product.Supplier.Name}
		}
		return out, nil
	}
	return RetailProduct{
		baseProduct: base,
		RetailPrice: product.RetailPrice(),
	}, nil
}

// ProjectProducts projects every product for the role.
func ProjectProducts(products []models.Product, role enums.Role) ([]Projected, error) {
	out := make([]Projected, 0, len(products))
	for i := range products {
		projected, err := ProjectProduct(&products[i], role)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func baseFrom(product *models.Product) baseProduct {
	gallery := product.GalleryImages
	if gallery == nil {
		gallery = []string{}
	}
	base := baseProduct{
		ID:               product.ID,
		SKU:              product.SKU,
		Name:             product.Name,
		ShortDescription: product.ShortDescription,
		LongDescription:  product.LongDescription,
		StockStatus:      enums.DeriveStockStatus(product.Stock, product.MOQ),
		PrimaryImage:     product.PrimaryImage,
		GalleryImages:    gallery,
		IsActive:         product.IsActive,
		CreatedAt:        product.CreatedAt,
		UpdatedAt:        product.UpdatedAt,
	}
	if product.Category != nil {
		base.Category = &CategoryRef{ID: product.Category.ID, Name: product.Category.Name, Slug: product.Category.Slug}
	}
	return base
}

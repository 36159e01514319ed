package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siver-b2b-backend/api/middleware"
	"github.com/angelmondragon/siver-b2b-backend/api/responses"
	"github.com/angelmondragon/siver-b2b-backend/api/validators"
	"github.com/angelmondragon/siver-b2b-backend/internal/categories"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

const maxImportRows = 500

type productRequest struct {
	SKU                  string             `json:"sku" validate:"required,max=64"`
	Name                 string             `json:"name" validate:"required,max=255"`
	ShortDescription     *string            `json:"short_description,omitempty" validate:"omitempty,max=500"`
	LongDescription      *string            `json:"long_description,omitempty"`
	WholesalePrice       decimal.Decimal    `json:"wholesale_price" validate:"money"`
	SuggestedRetailPrice *decimal.Decimal   `json:"suggested_retail_price,omitempty" validate:"omitempty,money"`
	MOQ                  int                `json:"moq" validate:"required,gte=1"`
	Stock                int                `json:"stock" validate:"gte=0"`
	WeightKg             *decimal.Decimal   `json:"weight_kg,omitempty"`
	DimensionsCm         *models.Dimensions `json:"dimensions_cm,omitempty"`
	PrimaryImage         *string            `json:"primary_image,omitempty" validate:"omitempty,url"`
	GalleryImages        []string           `json:"gallery_images,omitempty" validate:"omitempty,dive,url"`
	SourceURL            *string            `json:"source_url,omitempty" validate:"omitempty,url"`
	CategoryID           *uuid.UUID         `json:"category_id,omitempty"`
	SupplierID           *uuid.UUID         `json:"supplier_id,omitempty"`
	IsActive             *bool              `json:"is_active,omitempty"`
}

func (p productRequest) toInput() products.CreateProductInput {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return products.CreateProductInput{
		SKU:                  validators.SanitizeString(p.SKU, 64),
		Name:                 validators.SanitizeString(p.Name, 255),
		ShortDescription:     p.ShortDescription,
		LongDescription:      p.LongDescription,
		WholesalePrice:       p.WholesalePrice,
		SuggestedRetailPrice: p.SuggestedRetailPrice,
		MOQ:                  p.MOQ,
		Stock:                p.Stock,
		WeightKg:             p.WeightKg,
		DimensionsCm:         p.DimensionsCm,
		PrimaryImage:         p.PrimaryImage,
		GalleryImages:        p.GalleryImages,
		SourceURL:            p.SourceURL,
		CategoryID:           p.CategoryID,
		SupplierID:           p.SupplierID,
		IsActive:             active,
	}
}

type importRequest struct {
	Products []productRequest `json:"products" validate:"required,min=1,max=500,dive"`
}

type productPatchRequest struct {
	SKU                  *string            `json:"sku,omitempty" validate:"omitempty,max=64"`
	Name                 *string            `json:"name,omitempty" validate:"omitempty,max=255"`
	ShortDescription     *string            `json:"short_description,omitempty" validate:"omitempty,max=500"`
	LongDescription      *string            `json:"long_description,omitempty"`
	WholesalePrice       *decimal.Decimal   `json:"wholesale_price,omitempty" validate:"omitempty,money"`
	SuggestedRetailPrice *decimal.Decimal   `json:"suggested_retail_price,omitempty" validate:"omitempty,money"`
	MOQ                  *int               `json:"moq,omitempty" validate:"omitempty,gte=1"`
	Stock                *int               `json:"stock,omitempty" validate:"omitempty,gte=0"`
	WeightKg             *decimal.Decimal   `json:"weight_kg,omitempty"`
	DimensionsCm         *models.Dimensions `json:"dimensions_cm,omitempty"`
	PrimaryImage         *string            `json:"primary_image,omitempty" validate:"omitempty,url"`
	GalleryImages        *[]string          `json:"gallery_images,omitempty"`
	SourceURL            *string            `json:"source_url,omitempty" validate:"omitempty,url"`
	CategoryID           *uuid.UUID         `json:"category_id,omitempty"`
	SupplierID           *uuid.UUID         `json:"supplier_id,omitempty"`
	IsActive             *bool              `json:"is_active,omitempty"`
}

func (p productPatchRequest) toInput() products.UpdateProductInput {
	return products.UpdateProductInput{
		SKU:                  p.SKU,
		Name:                 p.Name,
		ShortDescription:     p.ShortDescription,
		LongDescription:      p.LongDescription,
		WholesalePrice:       p.WholesalePrice,
		SuggestedRetailPrice: p.SuggestedRetailPrice,
		MOQ:                  p.MOQ,
		Stock:                p.Stock,
		WeightKg:             p.WeightKg,
		DimensionsCm:         p.DimensionsCm,
		PrimaryImage:         p.PrimaryImage,
		GalleryImages:        p.GalleryImages,
		SourceURL:            p.SourceURL,
		CategoryID:           p.CategoryID,
		SupplierID:           p.SupplierID,
		IsActive:             p.IsActive,
	}
}

type supplierRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,max=32"`
	Country      *string `json:"country,omitempty" validate:"omitempty,max=64"`
}

type categoryRequest struct {
	Name            string     `json:"name" validate:"required,max=120"`
	Slug            string     `json:"slug,omitempty" validate:"omitempty,max=120"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	IsVisiblePublic *bool      `json:"is_visible_public,omitempty"`
	SortOrder       int        `json:"sort_order"`
}

func AdminCreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, _, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actorID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminImportProducts creates every product in the payload or none of them.
func AdminImportProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, _, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload importRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(payload.Products) > maxImportRows {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d products per import", maxImportRows))
			return
		}

		inputs := make([]products.CreateProductInput, 0, len(payload.Products))
		for _, row := range payload.Products {
			inputs = append(inputs, row.toInput())
		}

		created, err := svc.BulkImport(r.Context(), actorID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"imported": created})
	}
}

func AdminUpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, _, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), actorID, productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminDeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AdminPriceHistory(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.PriceHistory(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": history})
	}
}

func AdminKPIs(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		kpis, err := svc.KPIs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, kpis)
	}
}

func AdminListSuppliers(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		suppliers, err := svc.ListSuppliers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"suppliers": suppliers})
	}
}

func AdminCreateSupplier(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var payload supplierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.CreateSupplier(r.Context(), products.SupplierInput{
			Name:         validators.SanitizeString(payload.Name, 255),
			ContactEmail: payload.ContactEmail,
			ContactPhone: payload.ContactPhone,
			Country:      payload.Country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, supplier)
	}
}

func AdminCreateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "categories service unavailable"))
			return
		}
		var payload categoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		node, err := svc.Create(r.Context(), categories.CreateInput{
			Name:            validators.SanitizeString(payload.Name, 120),
			Slug:            payload.Slug,
			ParentID:        payload.ParentID,
			IsVisiblePublic: payload.IsVisiblePublic,
			SortOrder:       payload.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, node)
	}
}

type adjustStockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// AdminAdjustStock sets the absolute central stock of a product.
func AdminAdjustStock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		actorID, _, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), actorID, productID, *payload.Stock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

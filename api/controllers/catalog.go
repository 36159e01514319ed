package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/siver-b2b-backend/api/middleware"
	"github.com/angelmondragon/siver-b2b-backend/api/responses"
	"github.com/angelmondragon/siver-b2b-backend/api/validators"
	"github.com/angelmondragon/siver-b2b-backend/internal/categories"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

const maxSearchLength = 120

// CatalogList browses products, projected for the caller's role.
func CatalogList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		_, role, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CatalogDetail returns one projected product.
func CatalogDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		_, role, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), role, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CatalogCategories returns the category tree; hidden branches are admin-only.
func CatalogCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "categories service unavailable"))
			return
		}
		_, role, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tree, err := svc.Tree(r.Context(), role == enums.RoleAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

func parseListParams(r *http.Request) (products.ListParams, error) {
	query := r.URL.Query()
	page, err := validators.ParsePagination(r)
	if err != nil {
		return products.ListParams{}, err
	}

	params := products.ListParams{
		Search: validators.SanitizeString(query.Get("q"), maxSearchLength),
		Cursor: page.Cursor,
		Limit:  page.Limit,
	}
	// an absent limit lets the service apply its configured default
	if strings.TrimSpace(query.Get("limit")) == "" {
		params.Limit = 0
	}

	if params.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
		return products.ListParams{}, err
	}
	if params.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
		return products.ListParams{}, err
	}
	if raw := strings.TrimSpace(query.Get("stock_status")); raw != "" {
		status, err := enums.ParseStockStatus(raw)
		if err != nil {
			return products.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock_status")
		}
		params.StockStatus = &status
	}
	if raw := strings.TrimSpace(query.Get("sort")); raw != "" {
		sort, err := enums.ParseProductSort(raw)
		if err != nil {
			return products.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort")
		}
		params.Sort = sort
	}
	if raw := strings.TrimSpace(query.Get("include_inactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return products.ListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "include_inactive must be a boolean")
		}
		params.IncludeInactive = include
	}
	return params, nil
}

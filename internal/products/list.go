package products

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	"github.com/angelmondragon/siver-b2b-backend/pkg/visibility"
)

// ListParams describe the supported filter knobs for the catalog browse endpoint.
type ListParams struct {
	Search          string             `json:"q,omitempty"`
	CategoryID      *uuid.UUID         `json:"category_id,omitempty"`
	SupplierID      *uuid.UUID         `json:"supplier_id,omitempty"`
	StockStatus     *enums.StockStatus `json:"stock_status,omitempty"`
	Sort            enums.ProductSort  `json:"sort,omitempty"`
	Cursor          string             `json:"cursor,omitempty"`
	Limit           int                `json:"limit,omitempty"`
	IncludeInactive bool               `json:"include_inactive,omitempty"`
}

// ListResult is a page of role-projected products.
type ListResult struct {
	Products   []visibility.Projected `json:"products"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// productPage is the unprojected repository result; it is also the cached form.
type productPage struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type listQuery struct {
	Params      ListParams
	CategoryIDs []uuid.UUID
	ActiveOnly  bool
}

// cacheKeyParts renders the normalized query as stable key segments.
func (q listQuery) cacheKeyParts() []string {
	parts := []string{
		"sort=" + string(q.Params.Sort),
		"limit=" + strconv.Itoa(q.Params.Limit),
		"active=" + strconv.FormatBool(q.ActiveOnly),
	}
	if search := strings.ToLower(strings.TrimSpace(q.Params.Search)); search != "" {
		parts = append(parts, "q="+search)
	}
	if q.Params.CategoryID != nil {
		parts = append(parts, "cat="+q.Params.CategoryID.String())
	}
	if q.Params.SupplierID != nil {
		parts = append(parts, "sup="+q.Params.SupplierID.String())
	}
	if q.Params.StockStatus != nil {
		parts = append(parts, "stock="+string(*q.Params.StockStatus))
	}
	if q.Params.Cursor != "" {
		parts = append(parts, "cursor="+q.Params.Cursor)
	}
	return parts
}

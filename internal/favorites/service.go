package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
	"github.com/angelmondragon/siver-b2b-backend/pkg/visibility"
)

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	FavoritesRepo *Repository
	ProductRepo   *products.Repository
}

// Service exposes business rules for favorites management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (*List, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

// List is a page of favorite products projected for the caller's role.
type List struct {
	Products   []visibility.Projected `json:"products"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

type service struct {
	favoritesRepo *Repository
	productRepo   *products.Repository
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.FavoritesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "favorites repo is required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{
		favoritesRepo: params.FavoritesRepo,
		productRepo:   params.ProductRepo,
	}, nil
}

// List returns the user's favorites. Products that were deleted or, for
// non-admin callers, deactivated since being liked are left out.
func (s *service) List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (*List, error) {
	if userID == uuid.Nil || !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	page, err := s.favoritesRepo.List(ctx, userID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "list favorites")
	}

	ids := make([]uuid.UUID, 0, len(page.Favorites))
	for _, fav := range page.Favorites {
		ids = append(ids, fav.ProductID)
	}
	rows, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load favorite products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	out := &List{Products: make([]visibility.Projected, 0, len(ids)), NextCursor: page.NextCursor}
	for _, id := range ids {
		product, ok := byID[id]
		if !ok || (!product.IsActive && role != enums.RoleAdmin) {
			continue
		}
		projected, err := visibility.ProjectProduct(product, role)
		if err != nil {
			return nil, err
		}
		out.Products = append(out.Products, projected)
	}
	return out, nil
}

// Add ensures the product exists and adds it to the user's favorites.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.favoritesRepo.Add(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "add favorite")
	}
	return nil
}

// Remove deletes the favorite. Removing a product that is not a favorite is a no-op.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.favoritesRepo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "remove favorite")
	}
	return nil
}

package sellercatalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/internal/products"
	"github.com/angelmondragon/siver-b2b-backend/internal/stores"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
)

const defaultMovementReason = "manual inventory adjustment"

// Service manages the retail catalog sellers build from paid orders.
type Service interface {
	Release(ctx context.Context, orderID uuid.UUID) (*ReleaseResult, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error)
	UpdateSalePrice(ctx context.Context, ownerID, itemID uuid.UUID, price decimal.Decimal) (*ItemDTO, error)
	ToggleActive(ctx context.Context, ownerID, itemID uuid.UUID) (*ItemDTO, error)
	UpdateStock(ctx context.Context, input UpdateStockInput) (*ItemDTO, error)
	Movements(ctx context.Context, ownerID, itemID uuid.UUID) ([]MovementDTO, error)
}

// UpdateStockInput sets an absolute stock level on a catalog entry.
type UpdateStockInput struct {
	OwnerID uuid.UUID
	ItemID  uuid.UUID
	Stock   int
	Reason  string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Deps groups the collaborators of the seller catalog service.
type Deps struct {
	Repo     *Repository
	Stores   *stores.Repository
	Orders   orders.Repository
	Products *products.Repository
	Tx       txRunner
	Events   outboxEmitter
	Logger   *logger.Logger
	Metrics  *metrics.Commerce
}

type service struct {
	repo     *Repository
	stores   *stores.Repository
	orders   orders.Repository
	products *products.Repository
	tx       txRunner
	events   outboxEmitter
	logg     *logger.Logger
	metrics  *metrics.Commerce
	now      func() time.Time
}

// NewService validates the dependencies and builds the service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("seller catalog repository required")
	case deps.Stores == nil:
		return nil, fmt.Errorf("stores repository required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Products == nil:
		return nil, fmt.Errorf("products repository required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Events == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     deps.Repo,
		stores:   deps.Stores,
		orders:   deps.Orders,
		products: deps.Products,
		tx:       deps.Tx,
		events:   deps.Events,
		logg:     logg,
		metrics:  deps.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Release copies the lines of a paid order into the buyer's seller catalog.
// Lines already released for the order are skipped, so redelivery is harmless.
func (s *service) Release(ctx context.Context, orderID uuid.UUID) (*ReleaseResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *ReleaseResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s, only paid orders are released", order.Status)
		}

		store, _, err := s.stores.WithTx(tx).EnsureForOwner(ctx, order.BuyerID)
		if err != nil {
			return err
		}

		catalog, err := s.productsByID(ctx, tx, order.Items)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		result = &ReleaseResult{OrderID: order.ID, SellerStoreID: store.ID}
		importedAt := s.now()
		for _, line := range order.Items {
			exists, err := repo.ExistsForOrderProduct(ctx, order.ID, line.ProductID)
			if err != nil {
				return err
			}
			if exists {
				result.ItemsSkipped++
				continue
			}
			entry := catalogEntry(store.ID, order.ID, line, catalog[line.ProductID], importedAt)
			if err := repo.Insert(ctx, entry); err != nil {
				return err
			}
			result.ItemsReleased++
		}

		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCatalogReleased,
			AggregateType: enums.AggregateSellerCatalog,
			AggregateID:   order.ID,
			Actor:         orders.Actor(order.BuyerID, enums.RoleSeller),
			Version:       1,
			Data: payloads.CatalogReleasedEvent{
				OrderID:       order.ID,
				SellerStoreID: store.ID,
				ItemsReleased: result.ItemsReleased,
				ItemsSkipped:  result.ItemsSkipped,
			},
		})
	})
	if err != nil {
		typed := txError(err, "release catalog")
		s.metrics.CatalogRelease(string(typed.Code()))
		s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "catalog release failed", err)
		return nil, typed
	}

	outcome := "released"
	if result.ItemsReleased == 0 {
		outcome = "skipped"
	}
	s.metrics.CatalogRelease(outcome)
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"seller_store_id": result.SellerStoreID.String(),
		"items_released":  result.ItemsReleased,
		"items_skipped":   result.ItemsSkipped,
	}), "catalog released")
	return result, nil
}

func (s *service) productsByID(ctx context.Context, tx *gorm.DB, lines []models.OrderItem) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	rows, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// catalogEntry builds the retail entry for one order line. The product may have
// been deleted since checkout, in which case the frozen line is all we have.
func catalogEntry(storeID, orderID uuid.UUID, line models.OrderItem, product *models.Product, importedAt time.Time) *models.SellerCatalogItem {
	productID := line.ProductID
	sourceOrder := orderID
	entry := &models.SellerCatalogItem{
		SellerStoreID:   storeID,
		SourceProductID: &productID,
		SourceOrderID:   &sourceOrder,
		SKU:             line.SKU,
		Name:            line.Name,
		CostPrice:       line.UnitPrice,
		SalePrice:       line.UnitPrice,
		Stock:           line.Quantity,
		Images:          []string{},
		IsActive:        true,
		ImportedAt:      importedAt,
	}
	if product == nil {
		return entry
	}
	if product.SuggestedRetailPrice != nil {
		entry.SalePrice = *product.SuggestedRetailPrice
	}
	entry.Description = product.ShortDescription
	if product.PrimaryImage != nil && *product.PrimaryImage != "" {
		entry.Images = append(entry.Images, *product.PrimaryImage)
	}
	entry.Images = append(entry.Images, product.GalleryImages...)
	return entry
}

// List returns the seller's catalog. A seller without a store has an empty catalog.
func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error) {
	items, err := s.items(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, newItemDTO(item))
	}
	return out, nil
}

func (s *service) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	items, err := s.items(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := computeStats(items)
	return &stats, nil
}

func (s *service) items(ctx context.Context, ownerID uuid.UUID) ([]models.SellerCatalogItem, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	store, err := s.stores.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load store")
	}
	items, err := s.repo.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "list seller catalog")
	}
	return items, nil
}

func (s *service) UpdateSalePrice(ctx context.Context, ownerID, itemID uuid.UUID, price decimal.Decimal) (*ItemDTO, error) {
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale price must be zero or greater")
	}
	return s.mutate(ctx, ownerID, itemID, func(repo *Repository, item *models.SellerCatalogItem) error {
		item.SalePrice = price.Round(2)
		return repo.Update(ctx, item.ID, map[string]any{"sale_price": item.SalePrice, "updated_at": s.now()})
	})
}

func (s *service) ToggleActive(ctx context.Context, ownerID, itemID uuid.UUID) (*ItemDTO, error) {
	return s.mutate(ctx, ownerID, itemID, func(repo *Repository, item *models.SellerCatalogItem) error {
		item.IsActive = !item.IsActive
		return repo.Update(ctx, item.ID, map[string]any{"is_active": item.IsActive, "updated_at": s.now()})
	})
}

// UpdateStock sets the stock level and records the change as an inventory movement.
func (s *service) UpdateStock(ctx context.Context, input UpdateStockInput) (*ItemDTO, error) {
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or greater")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultMovementReason
	}
	return s.mutate(ctx, input.OwnerID, input.ItemID, func(repo *Repository, item *models.SellerCatalogItem) error {
		previous := item.Stock
		item.Stock = input.Stock
		if err := repo.Update(ctx, item.ID, map[string]any{"stock": item.Stock, "updated_at": s.now()}); err != nil {
			return err
		}
		owner := input.OwnerID
		return repo.InsertMovement(ctx, &models.InventoryMovement{
			SellerCatalogID: item.ID,
			ChangeAmount:    input.Stock - previous,
			PreviousStock:   previous,
			NewStock:        input.Stock,
			Reason:          reason,
			CreatedBy:       &owner,
		})
	})
}

func (s *service) Movements(ctx context.Context, ownerID, itemID uuid.UUID) ([]MovementDTO, error) {
	store, err := s.requireStore(ctx, s.stores, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindForStore(ctx, store.ID, itemID); err != nil {
		return nil, notFoundOr(err, "load catalog item")
	}
	rows, err := s.repo.ListMovements(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "list inventory movements")
	}
	out := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newMovementDTO(row))
	}
	return out, nil
}

func (s *service) mutate(ctx context.Context, ownerID, itemID uuid.UUID, apply func(repo *Repository, item *models.SellerCatalogItem) error) (*ItemDTO, error) {
	var updated *models.SellerCatalogItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.requireStore(ctx, s.stores.WithTx(tx), ownerID)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		item, err := repo.LockForStore(ctx, store.ID, itemID)
		if err != nil {
			return notFoundOr(err, "load catalog item")
		}
		if err := apply(repo, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, txError(err, "update catalog item")
	}
	dto := newItemDTO(*updated)
	return &dto, nil
}

func (s *service) requireStore(ctx context.Context, repo *stores.Repository, ownerID uuid.UUID) (*models.Store, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	store, err := repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, notFoundOr(err, "load store")
	}
	return store, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, message)
}

func txError(err error, message string) *pkgerrors.Error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, message)
}

package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
	"github.com/angelmondragon/siver-b2b-backend/pkg/visibility"
)

// Service exposes catalog reads for every role and admin catalog management.
type Service interface {
	List(ctx context.Context, role enums.Role, params ListParams) (*ListResult, error)
	Get(ctx context.Context, role enums.Role, id uuid.UUID) (visibility.Projected, error)
	KPIs(ctx context.Context) (*KPIs, error)
	Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (visibility.Projected, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateProductInput) (visibility.Projected, error)
	AdjustStock(ctx context.Context, actorID, id uuid.UUID, stock int) (visibility.Projected, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkImport(ctx context.Context, actorID uuid.UUID, inputs []CreateProductInput) (int, error)
	PriceHistory(ctx context.Context, id uuid.UUID) ([]PriceHistoryDTO, error)
	ListSuppliers(ctx context.Context) ([]SupplierDTO, error)
	CreateSupplier(ctx context.Context, input SupplierInput) (*SupplierDTO, error)
}

type categoryResolver interface {
	Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo         *Repository
	tx           txRunner
	categories   categoryResolver
	events       outboxEmitter
	cache        *listingCache
	defaultLimit int
	logg         *logger.Logger
}

// NewService constructs a catalog service. A nil cache store disables listing caching.
func NewService(repo *Repository, tx txRunner, categories categoryResolver, events outboxEmitter, cache cacheStore, cfg config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category resolver required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:         repo,
		tx:           tx,
		categories:   categories,
		events:       events,
		cache:        &listingCache{store: cache, ttl: cfg.CacheTTL, logg: logg},
		defaultLimit: cfg.DefaultLimit,
		logg:         logg,
	}, nil
}

func (s *service) List(ctx context.Context, role enums.Role, params ListParams) (*ListResult, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "a recognised role is required to view products")
	}
	if params.Sort == "" {
		params.Sort = enums.ProductSortNewest
	}
	if !params.Sort.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported sort %q", params.Sort)
	}
	if params.StockStatus != nil && !params.StockStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported stock_status %q", *params.StockStatus)
	}
	if params.Limit <= 0 {
		params.Limit = s.defaultLimit
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)
	if role != enums.RoleAdmin {
		params.IncludeInactive = false
	}

	query := listQuery{Params: params, ActiveOnly: !params.IncludeInactive}
	if params.CategoryID != nil {
		ids, err := s.categories.Descendants(ctx, *params.CategoryID)
		if err != nil {
			return nil, err
		}
		query.CategoryIDs = ids
	}

	page, key := s.cache.lookup(ctx, role, query)
	if page == nil {
		fresh, err := s.repo.List(ctx, query)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, typed
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
		}
		page = fresh
		s.cache.fill(ctx, key, page)
	}

	projected, err := visibility.ProjectProducts(page.Products, role)
	if err != nil {
		return nil, err
	}
	return &ListResult{Products: projected, NextCursor: page.NextCursor}, nil
}

func (s *service) Get(ctx context.Context, role enums.Role, id uuid.UUID) (visibility.Projected, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "a recognised role is required to view products")
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return visibility.ProjectProduct(product, role)
}

func (s *service) KPIs(ctx context.Context) (*KPIs, error) {
	kpis, err := s.repo.KPIs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog kpis")
	}
	return kpis, nil
}

// Create inserts a single product.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (visibility.Projected, error) {
	product, err := productFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.insert(ctx, s.repo.WithTx(tx), product)
	}); err != nil {
		return nil, txError(err, "create product")
	}
	s.cache.invalidate(ctx)

	ctx = s.logg.WithUserID(ctx, actorID.String())
	s.logg.Info(s.logg.WithField(ctx, "sku", product.SKU), "product created")
	return s.project(ctx, product.ID)
}

// BulkImport inserts every product or none of them.
func (s *service) BulkImport(ctx context.Context, actorID uuid.UUID, inputs []CreateProductInput) (int, error) {
	if len(inputs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	rows := make([]*models.Product, 0, len(inputs))
	seen := make(map[string]int, len(inputs))
	for i, input := range inputs {
		product, err := productFromInput(input)
		if err != nil {
			return 0, pkgerrors.As(err).WithDetails(map[string]any{"row": i + 1})
		}
		if first, ok := seen[strings.ToLower(product.SKU)]; ok {
			return 0, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s is repeated in rows %d and %d", product.SKU, first, i+1))
		}
		seen[strings.ToLower(product.SKU)] = i + 1
		rows = append(rows, product)
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i, product := range rows {
			if err := s.insert(ctx, txRepo, product); err != nil {
				if typed := pkgerrors.As(err); typed != nil {
					return typed.WithDetails(map[string]any{"row": i + 1})
				}
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, txError(err, "import products")
	}
	s.cache.invalidate(ctx)

	ctx = s.logg.WithUserID(ctx, actorID.String())
	s.logg.Info(s.logg.WithField(ctx, "count", len(rows)), "products imported")
	return len(rows), nil
}

func (s *service) insert(ctx context.Context, repo *Repository, product *models.Product) error {
	if err := repo.Create(ctx, product); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s already exists", product.SKU))
		}
		if dbpkg.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category or supplier does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	return nil
}

// Update applies the patch and audits wholesale price and MOQ changes in the same transaction.
func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateProductInput) (visibility.Projected, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load product")
		}

		history := priceChanges(product, input, actorID)
		if err := applyUpdate(product, input); err != nil {
			return err
		}
		if err := validateProduct(product); err != nil {
			return err
		}

		if err := txRepo.Save(ctx, product); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s already exists", product.SKU))
			}
			if dbpkg.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "category or supplier does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if err := txRepo.InsertPriceHistory(ctx, history); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert price history")
		}

		for _, entry := range history {
			event := outbox.DomainEvent{
				EventType:     enums.EventProductPriceChanged,
				AggregateType: enums.AggregateProduct,
				AggregateID:   product.ID,
				Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.RoleAdmin)},
				Data: payloads.ProductPriceChangedEvent{
					ProductID: product.ID,
					SKU:       product.SKU,
					Field:     entry.Field,
					OldValue:  entry.PreviousValue,
					NewValue:  entry.NewValue,
					ChangedBy: entry.ChangedBy,
				},
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit price change")
			}
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "update product")
	}
	s.cache.invalidate(ctx)
	return s.project(ctx, id)
}

// AdjustStock sets the physical stock of a product.
func (s *service) AdjustStock(ctx context.Context, actorID, id uuid.UUID, stock int) (visibility.Projected, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	var previous int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load product")
		}
		previous = product.Stock
		product.Stock = stock
		if err := txRepo.Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "adjust stock")
	}
	s.cache.invalidate(ctx)

	ctx = s.logg.WithUserID(ctx, actorID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": id.String(), "previous_stock": previous, "stock": stock})
	s.logg.Info(ctx, "product stock adjusted")
	return s.project(ctx, id)
}

// Delete removes a product. Products referenced by carts or orders must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if dbpkg.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by carts or orders; deactivate it instead")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	s.cache.invalidate(ctx)
	return nil
}

func (s *service) PriceHistory(ctx context.Context, id uuid.UUID) ([]PriceHistoryDTO, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPriceHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price history")
	}
	out := make([]PriceHistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newPriceHistoryDTO(row))
	}
	return out, nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]SupplierDTO, error) {
	rows, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newSupplierDTO(row))
	}
	return out, nil
}

func (s *service) CreateSupplier(ctx context.Context, input SupplierInput) (*SupplierDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	supplier := &models.Supplier{
		Name:         name,
		ContactEmail: trimmed(input.ContactEmail),
		ContactPhone: trimmed(input.ContactPhone),
		Country:      trimmed(input.Country),
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert supplier")
	}
	dto := newSupplierDTO(*supplier)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	return product, nil
}

// project reloads the product with associations and returns the admin view.
func (s *service) project(ctx context.Context, id uuid.UUID) (visibility.Projected, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return visibility.ProjectProduct(product, enums.RoleAdmin)
}

// txError passes typed errors through and wraps begin/commit failures.
func txError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func productFromInput(input CreateProductInput) (*models.Product, error) {
	product := &models.Product{
		SKU:                  strings.TrimSpace(input.SKU),
		Name:                 strings.TrimSpace(input.Name),
		ShortDescription:     trimmed(input.ShortDescription),
		LongDescription:      trimmed(input.LongDescription),
		WholesalePrice:       input.WholesalePrice,
		SuggestedRetailPrice: input.SuggestedRetailPrice,
		MOQ:                  input.MOQ,
		Stock:                input.Stock,
		WeightKg:             input.WeightKg,
		DimensionsCm:         input.DimensionsCm,
		PrimaryImage:         trimmed(input.PrimaryImage),
		GalleryImages:        input.GalleryImages,
		SourceURL:            trimmed(input.SourceURL),
		CategoryID:           input.CategoryID,
		SupplierID:           input.SupplierID,
		IsActive:             input.IsActive,
	}
	if product.MOQ == 0 {
		product.MOQ = 1
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	product.StockStatus = enums.DeriveStockStatus(product.Stock, product.MOQ)
	return product, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.SKU == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case p.WholesalePrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "wholesale_price cannot be negative")
	case p.SuggestedRetailPrice != nil && p.SuggestedRetailPrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "suggested_retail_price cannot be negative")
	case p.MOQ < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "moq must be at least 1")
	case p.Stock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return nil
}

// priceChanges diffs the patch against the stored product before it is applied.
func priceChanges(product *models.Product, input UpdateProductInput, actorID uuid.UUID) []models.PriceHistoryEntry {
	var changedBy *uuid.UUID
	if actorID != uuid.Nil {
		changedBy = &actorID
	}
	var entries []models.PriceHistoryEntry
	if input.WholesalePrice != nil && !input.WholesalePrice.Equal(product.WholesalePrice) {
		entries = append(entries, models.PriceHistoryEntry{
			ProductID:     product.ID,
			Field:         enums.PriceHistoryFieldWholesalePrice,
			PreviousValue: product.WholesalePrice.StringFixed(2),
			NewValue:      input.WholesalePrice.StringFixed(2),
			ChangedBy:     changedBy,
		})
	}
	if input.MOQ != nil && *input.MOQ != product.MOQ {
		entries = append(entries, models.PriceHistoryEntry{
			ProductID:     product.ID,
			Field:         enums.PriceHistoryFieldMOQ,
			PreviousValue: fmt.Sprint(product.MOQ),
			NewValue:      fmt.Sprint(*input.MOQ),
			ChangedBy:     changedBy,
		})
	}
	return entries
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.ShortDescription != nil {
		product.ShortDescription = trimmed(input.ShortDescription)
	}
	if input.LongDescription != nil {
		product.LongDescription = trimmed(input.LongDescription)
	}
	if input.WholesalePrice != nil {
		product.WholesalePrice = *input.WholesalePrice
	}
	if input.SuggestedRetailPrice != nil {
		value := *input.SuggestedRetailPrice
		product.SuggestedRetailPrice = &value
	}
	if input.MOQ != nil {
		product.MOQ = *input.MOQ
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.WeightKg != nil {
		value := *input.WeightKg
		product.WeightKg = &value
	}
	if input.DimensionsCm != nil {
		product.DimensionsCm = input.DimensionsCm
	}
	if input.PrimaryImage != nil {
		product.PrimaryImage = trimmed(input.PrimaryImage)
	}
	if input.GalleryImages != nil {
		product.GalleryImages = append([]string{}, (*input.GalleryImages)...)
	}
	if input.SourceURL != nil {
		product.SourceURL = trimmed(input.SourceURL)
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
		product.Category = nil
	}
	if input.SupplierID != nil {
		product.SupplierID = input.SupplierID
		product.Supplier = nil
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if product.WeightKg != nil && product.WeightKg.LessThan(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight_kg cannot be negative")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/internal/cart"
	"github.com/angelmondragon/siver-b2b-backend/internal/checkout/helpers"
	"github.com/angelmondragon/siver-b2b-backend/internal/checkout/reservation"
	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/pkg/checkout"
	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockEngine interface {
	Load(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error)
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.Request) ([]reservation.Result, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service converts a buyer's open cart into an order.
type Service interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, input CreateOrderInput) (*OrderResult, error)
}

// CreateOrderInput captures the payment choice made at checkout.
type CreateOrderInput struct {
	PaymentMethod    enums.PaymentMethod
	PaymentReference *string
	ActorRole        enums.Role
}

// OrderResult is the created (or previously created) order plus the buyer's
// cart as it stands after checkout.
type OrderResult struct {
	Order    *orders.OrderDTO `json:"order"`
	Cart     *cart.Cart       `json:"cart"`
	Replayed bool             `json:"replayed"`
}

const defaultReplayWindow = 10 * time.Minute

// Settings holds the checkout knobs read from configuration. ReplayWindow
// bounds how long after checkout a repeated call returns the same order
// instead of EMPTY_CART.
type Settings struct {
	Currency         enums.Currency
	StripeAutoSettle bool
	ReplayWindow     time.Duration
}

// SettingsFromConfig extracts checkout settings from the service config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Currency:         enums.Currency(strings.ToUpper(strings.TrimSpace(cfg.Checkout.Currency))),
		StripeAutoSettle: cfg.FeatureFlags.StripeAutoSettle,
		ReplayWindow:     cfg.Checkout.ReplayWindow,
	}
}

type service struct {
	repo     Repository
	tx       txRunner
	stock    stockEngine
	events   outboxEmitter
	settings Settings
	logg     *logger.Logger
	metrics  *metrics.Commerce
	catalog  catalogInvalidator
}

// NewService builds the checkout service. catalog may be nil when no listing
// cache is in use.
func NewService(
	repo Repository,
	tx txRunner,
	stock stockEngine,
	events outboxEmitter,
	settings Settings,
	logg *logger.Logger,
	recorder *metrics.Commerce,
	catalog catalogInvalidator,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if stock == nil {
		stock = reservation.NewEngine()
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if settings.Currency == "" {
		settings.Currency = enums.CurrencyUSD
	}
	if settings.ReplayWindow <= 0 {
		settings.ReplayWindow = defaultReplayWindow
	}
	if !settings.Currency.IsValid() {
		return nil, fmt.Errorf("unsupported currency %q", settings.Currency)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		stock:    stock,
		events:   events,
		settings: settings,
		logg:     logg,
		metrics:  recorder,
		catalog:  catalog,
	}, nil
}

// CreateOrder converts the buyer's open cart into an order in one transaction.
// When no cart is open but the buyer's latest cart was checked out within the
// replay window, that order is returned and nothing is written.
func (s *service) CreateOrder(ctx context.Context, buyerID uuid.UUID, input CreateOrderInput) (*OrderResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity is required")
	}
	if err := helpers.ValidatePaymentMethod(input.PaymentMethod); err != nil {
		return nil, err
	}

	started := time.Now()
	var result *OrderResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.LockOpenCart(ctx, buyerID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load cart")
			}
			existing, ferr := repo.FindCompletedOrder(ctx, buyerID)
			if ferr != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, ferr, "load previous order")
			}
			if existing == nil || time.Since(existing.CreatedAt) > s.settings.ReplayWindow {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			result = &OrderResult{Order: orders.NewOrderDTO(existing), Cart: cart.EmptyView(buyerID), Replayed: true}
			return nil
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		if err := s.revalidate(ctx, tx, record.Items); err != nil {
			return err
		}
		if err := s.reserve(ctx, tx, record.Items); err != nil {
			return err
		}

		order := s.buildOrder(record, input)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "orders_cart_id_key") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cart has already been checked out")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create order")
		}
		if err := repo.CompleteCart(ctx, record.ID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "complete cart")
		}

		actor := orders.Actor(buyerID, input.ActorRole)
		if err := s.events.Emit(ctx, tx, orders.CreatedEvent(order, actor)); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPaid {
			if err := s.events.Emit(ctx, tx, orders.PaidEvent(order, actor)); err != nil {
				return err
			}
		}

		result = &OrderResult{Order: orders.NewOrderDTO(order), Cart: cart.EmptyView(buyerID)}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "checkout")
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, buyerID.String()), result.Order.ID.String())
	if result.Replayed {
		s.logg.Info(logCtx, "checkout replayed existing order")
		return result, nil
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	s.metrics.OrderCreated(string(input.PaymentMethod))
	s.metrics.ObserveCheckout(time.Since(started))
	if result.Order.Status == enums.OrderStatusPaid {
		s.metrics.OrderTransition(string(enums.OrderStatusPaid))
	}
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"payment_method": input.PaymentMethod,
		"status":         result.Order.Status,
		"total_amount":   result.Order.TotalAmount.StringFixed(2),
	}), "order created")
	return result, nil
}

// revalidate checks every line against the live MOQ and stock.
func (s *service) revalidate(ctx context.Context, tx *gorm.DB, items []models.CartItem) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	live, err := s.stock.Load(ctx, tx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load products")
	}
	return checkout.ValidateLines(helpers.ValidationLines(items, live))
}

// reserve takes the stock for every line. Losing a race to another checkout
// surfaces as INSUFFICIENT_STOCK and the caller's transaction rolls back.
func (s *service) reserve(ctx context.Context, tx *gorm.DB, items []models.CartItem) error {
	requests := make([]reservation.Request, 0, len(items))
	names := make(map[uuid.UUID]string, len(items))
	for _, item := range items {
		requests = append(requests, reservation.Request{
			CartItemID: item.ID,
			ProductID:  item.ProductID,
			Qty:        item.Quantity,
		})
		names[item.ID] = item.Name
	}
	results, err := s.stock.Reserve(ctx, tx, requests)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "reserve stock")
	}
	for _, res := range results {
		if res.Reserved {
			continue
		}
		productID := res.ProductID
		return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "%s: only %d units available", names[res.CartItemID], res.Available).
			WithDetails(checkout.InsufficientStockDetail{
				ProductID:    &productID,
				AvailableQty: res.Available,
				RequestedQty: res.Qty,
			})
	}
	return nil
}

func (s *service) buildOrder(record *models.Cart, input CreateOrderInput) *models.Order {
	items, totals := helpers.BuildOrderItems(record.Items)
	order := &models.Order{
		BuyerID:       record.BuyerID,
		CartID:        record.ID,
		TotalAmount:   totals.TotalAmount,
		TotalQuantity: totals.TotalQuantity,
		PaymentMethod: input.PaymentMethod,
		Status:        helpers.InitialStatus(input.PaymentMethod, s.settings.StripeAutoSettle),
		Currency:      s.settings.Currency,
		Items:         items,
	}
	if ref := input.PaymentReference; ref != nil {
		if v := strings.TrimSpace(*ref); v != "" {
			order.PaymentReference = &v
		}
	}
	if order.Status == enums.OrderStatusPaid {
		now := time.Now().UTC()
		order.PaidAt = &now
	}
	return order
}

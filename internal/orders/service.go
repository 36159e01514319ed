package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
	"github.com/angelmondragon/siver-b2b-backend/pkg/pagination"
)

// Service gates payment status changes and exposes order reads.
type Service interface {
	Get(ctx context.Context, actorID uuid.UUID, role enums.Role, id uuid.UUID) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*OrderDTO, error)
	Reject(ctx context.Context, input RejectInput) (*OrderDTO, error)
}

// MarkPaidInput confirms receipt of payment for an order.
type MarkPaidInput struct {
	OrderID          uuid.UUID
	ActorUserID      uuid.UUID
	PaymentReference *string
}

// RejectInput records an administrative rejection of a pending payment.
type RejectInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

type service struct {
	repo      Repository
	tx        txRunner
	events    outboxEmitter
	inventory InventoryReleaser
	logg      *logger.Logger
	metrics   *metrics.Commerce
	catalog   CatalogInvalidator
}

// NewService builds an order service with the required dependencies.
// A nil catalog skips listing cache invalidation after a reject.
func NewService(repo Repository, tx txRunner, events outboxEmitter, inventory InventoryReleaser, logg *logger.Logger, recorder *metrics.Commerce, catalog CatalogInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		tx:        tx,
		events:    events,
		inventory: inventory,
		logg:      logg,
		metrics:   recorder,
		catalog:   catalog,
	}, nil
}

// Get returns an order. Buyers only see their own orders; anything else is
// reported as not found.
func (s *service) Get(ctx context.Context, actorID uuid.UUID, role enums.Role, id uuid.UUID) (*OrderDTO, error) {
	if !role.IsValid() || actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err)
	}
	if role != enums.RoleAdmin && order.BuyerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	page, err := s.repo.List(ctx, ListFilters{BuyerID: &buyerID}, params)
	if err != nil {
		return nil, wrapPersistence(err, "list orders")
	}
	return newOrderList(page), nil
}

func (s *service) ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported status %q", *status)
	}
	page, err := s.repo.List(ctx, ListFilters{Status: status}, params)
	if err != nil {
		return nil, wrapPersistence(err, "list orders")
	}
	return newOrderList(page), nil
}

// MarkPaid moves a pending or draft order to paid. Repeating it on a paid
// order returns the order without emitting a second event.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		order        *models.Order
		transitioned bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return loadError(err)
		}
		order = current

		switch order.Status {
		case enums.OrderStatusPaid:
			return nil
		case enums.OrderStatusRejected:
			return pkgerrors.New(pkgerrors.CodeOrderFinalized, "order was rejected and cannot be marked paid")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusPaid) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot mark %s order as paid", order.Status)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": now,
		}
		if ref := trimmed(input.PaymentReference); ref != nil {
			updates["payment_reference"] = *ref
			order.PaymentReference = ref
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update order status")
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		transitioned = true

		return s.events.Emit(ctx, tx, PaidEvent(order, Actor(input.ActorUserID, enums.RoleAdmin)))
	})
	if err != nil {
		return nil, wrapPersistence(err, "mark order paid")
	}

	if transitioned {
		s.metrics.OrderTransition(string(enums.OrderStatusPaid))
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order marked paid")
	}
	return NewOrderDTO(order), nil
}

// Reject moves a pending order to rejected and returns its stock to the
// catalog. Rejecting an already rejected order is a no-op.
func (s *service) Reject(ctx context.Context, input RejectInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		order        *models.Order
		transitioned bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return loadError(err)
		}
		order = current

		switch order.Status {
		case enums.OrderStatusRejected:
			return nil
		case enums.OrderStatusPaid:
			return pkgerrors.New(pkgerrors.CodeOrderFinalized, "order is already paid and cannot be rejected")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusRejected) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot reject %s order", order.Status)
		}

		for _, item := range order.Items {
			if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "restore product stock")
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":      enums.OrderStatusRejected,
			"rejected_at": now,
		}
		reason := trimmed(&input.Reason)
		if reason != nil {
			updates["rejection_reason"] = *reason
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update order status")
		}
		order.Status = enums.OrderStatusRejected
		order.RejectedAt = &now
		order.RejectionReason = reason
		transitioned = true

		return s.events.Emit(ctx, tx, rejectedEvent(order, Actor(input.ActorUserID, enums.RoleAdmin)))
	})
	if err != nil {
		return nil, wrapPersistence(err, "reject order")
	}

	if transitioned {
		if s.catalog != nil {
			s.catalog.Invalidate(ctx)
		}
		s.metrics.OrderTransition(string(enums.OrderStatusRejected))
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "restored_lines", len(order.Items)), "order rejected")
	}
	return NewOrderDTO(order), nil
}

func loadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load order")
}

func wrapPersistence(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, message)
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

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/siver-b2b-backend/internal/orders"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

const paymentWindowBatch = 100

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderRejecter interface {
	Reject(ctx context.Context, input orders.RejectInput) (*orders.OrderDTO, error)
}

type PaymentWindowJobParams struct {
	Logger  *logger.Logger
	Reader  pendingOrderReader
	Orders  orderRejecter
	Window  time.Duration
	BatchSize int
}

// NewPaymentWindowJob rejects orders that stayed pending longer than Window,
// which returns their stock to the catalog. It returns a nil Job when Window
// is zero.
func NewPaymentWindowJob(params PaymentWindowJobParams) (Job, error) {
	if params.Window <= 0 {
		return nil, nil
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = paymentWindowBatch
	}
	return &paymentWindowJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		window: params.Window,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type paymentWindowJob struct {
	logg   *logger.Logger
	reader pendingOrderReader
	orders orderRejecter
	window time.Duration
	batch  int
	now    func() time.Time
}

func (j *paymentWindowJob) Name() string { return "order-payment-window" }

// Run handles one batch per cycle; a large backlog drains over several cycles.
// Orders that were paid or rejected concurrently are skipped.
func (j *paymentWindowJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	stale, err := j.reader.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}

	reason := fmt.Sprintf("payment not received within %s", humanWindow(j.window))
	var (
		errs     error
		rejected int
	)
	for _, order := range stale {
		_, err := j.orders.Reject(ctx, orders.RejectInput{
			OrderID:     order.ID,
			ActorUserID: uuid.Nil,
			Reason:      reason,
		})
		switch {
		case err == nil:
			rejected++
		case pkgerrors.IsCode(err, pkgerrors.CodeOrderFinalized), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			j.logg.Debug(j.logg.WithOrderID(ctx, order.ID.String()), "order settled before expiry")
		default:
			errs = multierr.Append(errs, fmt.Errorf("reject order %s: %w", order.ID, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(stale),
		"rejected": rejected,
	}), "unpaid order sweep complete")
	return errs
}

func humanWindow(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"storefront-service/internal/domain"
	"storefront-service/internal/metrics"
	"storefront-service/internal/store"
)

// OrderNotifier is told about committed orders. Implementations must not block.
type OrderNotifier interface {
	SendOrderTrackingEmail(email string, trackingID int64)
}

// OrderOptions tunes tracking id collision handling.
type OrderOptions struct {
	// TrackingIDAttempts is the total number of transactions tried. 1 disables retry.
	TrackingIDAttempts int
	TrackingIDDelay    time.Duration
	Clock              clock.Clock
}

// OrderService places orders and serves the tracking view.
type OrderService struct {
	orders   store.OrderStorer
	notifier OrderNotifier
	metrics  *metrics.Collector
	opts     OrderOptions
}

func NewOrderService(orders store.OrderStorer, notifier OrderNotifier, collector *metrics.Collector, opts OrderOptions) *OrderService {
	if opts.TrackingIDAttempts < 1 {
		opts.TrackingIDAttempts = 1
	}
	if opts.TrackingIDDelay <= 0 {
		opts.TrackingIDDelay = 10 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &OrderService{orders: orders, notifier: notifier, metrics: collector, opts: opts}
}

// PlaceOrder commits the order, then queues the tracking email for the
// shipping address. A tracking id collision re-runs the whole transaction
// with a new id while attempts remain.
func (s *OrderService) PlaceOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error) {
	start := s.opts.Clock.Now()
	var (
		placed  domain.PlacedOrder
		lastErr error
	)

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			placed, lastErr = s.orders.CreateOrder(ctx, userID, payload)
			return lastErr
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, store.ErrTrackingIDConflict)
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt < s.opts.TrackingIDAttempts {
				log.Printf("WARN: Tracking id collision on attempt %d, retrying order placement", attempt)
				if s.metrics != nil {
					s.metrics.TrackingRetry()
				}
			}
		},
		Attempts: s.opts.TrackingIDAttempts,
		Delay:    s.opts.TrackingIDDelay,
		Clock:    s.opts.Clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		// retry wraps what Func returned; callers match on the store's own error.
		switch {
		case retry.IsRetryStopped(err) && ctx.Err() != nil:
			err = ctx.Err()
		case lastErr != nil:
			err = lastErr
		}
		s.recordOutcome(err, start)
		return domain.PlacedOrder{}, err
	}
	s.recordOutcome(nil, start)

	if s.notifier != nil {
		s.notifier.SendOrderTrackingEmail(payload.ShippingAddress.Email, placed.TrackingID)
	}
	log.Printf("INFO: Order %d placed with tracking id %d", placed.OrderID, placed.TrackingID)
	return placed, nil
}

func (s *OrderService) recordOutcome(err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomePlaced
	switch {
	case errors.Is(err, store.ErrTrackingIDConflict):
		outcome = metrics.OutcomeConflict
	case err != nil:
		outcome = metrics.OutcomeFailed
	}
	s.metrics.OrderOutcome(outcome, s.opts.Clock.Now().Sub(start))
}

// TrackOrder returns the public view of an order, or store.ErrOrderNotFound.
func (s *OrderService) TrackOrder(ctx context.Context, trackingID string) (*domain.OrderView, error) {
	view, err := s.orders.GetOrderByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, store.ErrOrderNotFound
	}
	return view, nil
}

func (s *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error) {
	return s.orders.ListOrders(ctx, limit, offset)
}

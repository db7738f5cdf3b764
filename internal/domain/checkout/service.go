// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/infrastructure/events"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrUnknownIntent       = errors.New("unknown payment intent")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrFinalizeFailed      = errors.New("checkout failed")
	ErrIntentRequired      = errors.New("payment intent required")
	ErrAmountMismatch      = errors.New("cart total does not match the amount paid")
)

// Service turns a paid cart into an order. Finalizing the same payment
// intent twice yields the same order.
type Service struct {
	db        *gorm.DB
	carts     *cart.Service
	orders    *order.Service
	payments  *payment.Service
	publisher events.Publisher
	log       *logrus.Logger

	allowUnpaid bool
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, carts *cart.Service, orders *order.Service, payments *payment.Service, publisher events.Publisher, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:          db,
		carts:       carts,
		orders:      orders,
		payments:    payments,
		publisher:   publisher,
		log:         log,
		allowUnpaid: cfg.Payment.AllowUnpaidCheckout,
	}
}

// Result describes a finalized checkout
type Result struct {
	OrderID          uint
	AlreadyFinalized bool
}

// Finalize converts the user's cart into an order. The intent must have
// succeeded at the processor for exactly the cart total, and the call is
// idempotent. Without an intent id the cart is converted as is, which only a
// sandbox deployment allows.
func (s *Service) Finalize(ctx context.Context, userID uint, intentID string) (*Result, error) {
	if intentID == "" {
		if !s.allowUnpaid {
			return nil, ErrIntentRequired
		}
		return s.finalizeUnpaid(ctx, userID)
	}

	record, err := s.payments.FindRecord(ctx, userID, intentID)
	if err != nil {
		if errors.Is(err, payment.ErrRecordNotFound) {
			return nil, ErrUnknownIntent
		}
		return nil, err
	}

	if record.IsFinalized() {
		return &Result{OrderID: *record.OrderID, AlreadyFinalized: true}, nil
	}

	status, err := s.payments.IntentStatus(ctx, intentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			return nil, ErrUnknownIntent
		}
		return nil, err
	}
	if status != payment.IntentStatusSucceeded {
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotSucceeded, status)
	}

	var placed *order.Order
	already := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.payments.LockRecordTx(tx, record.ID)
		if err != nil {
			return err
		}
		if locked.IsFinalized() {
			record = locked
			already = true
			return nil
		}

		c, err := s.carts.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrCartEmpty
		}
		if due := money.ToMinorUnits(c.Total); due != locked.AmountMinor {
			return fmt.Errorf("%w: cart %d, paid %d", ErrAmountMismatch, due, locked.AmountMinor)
		}
		if err := s.carts.ReserveStockTx(tx, c); err != nil {
			return err
		}

		placed, err = s.orders.CreateFromCartTx(tx, userID, c, intentID)
		if err != nil {
			return err
		}
		if err := s.carts.ClearTx(tx, userID); err != nil {
			return err
		}
		return s.payments.MarkFinalizedTx(tx, record.ID, placed.ID)
	})

	if err != nil {
		s.payments.MarkFinalizeFailed(ctx, record.ID, err)
		entry := s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "intent_id": intentID})
		if rejected(err) {
			entry.Error("paid checkout rejected, payment needs a refund")
		} else {
			entry.Error("checkout finalize failed")
		}
		return nil, finalizeError(err)
	}

	if already {
		return &Result{OrderID: *record.OrderID, AlreadyFinalized: true}, nil
	}

	s.publish(ctx, placed)
	return &Result{OrderID: placed.ID}, nil
}

func (s *Service) finalizeUnpaid(ctx context.Context, userID uint) (*Result, error) {
	var placed *order.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.carts.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrCartEmpty
		}
		if err := s.carts.ReserveStockTx(tx, c); err != nil {
			return err
		}

		placed, err = s.orders.CreateFromCartTx(tx, userID, c, "")
		if err != nil {
			return err
		}
		return s.carts.ClearTx(tx, userID)
	})
	if err != nil {
		if !errors.Is(err, ErrCartEmpty) {
			s.log.WithError(err).WithField("user_id", userID).Error("checkout failed")
		}
		return nil, finalizeError(err)
	}

	s.publish(ctx, placed)
	return &Result{OrderID: placed.ID}, nil
}

// rejected reports errors that retrying the same cart cannot fix
func rejected(err error) bool {
	return errors.Is(err, ErrAmountMismatch) || errors.Is(err, cart.ErrNotEnoughStock)
}

// finalizeError keeps errors the client can act on and folds the rest into
// ErrFinalizeFailed
func finalizeError(err error) error {
	if errors.Is(err, ErrCartEmpty) || rejected(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
}

// publish failures are logged; the order already exists
func (s *Service) publish(ctx context.Context, o *order.Order) {
	event := events.OrderPlacedEvent{
		OrderID: o.ID,
		UserID:  o.UserID,
		Total:   o.Total.StringFixed(2),
		Items:   make([]events.OrderPlacedItem, 0, len(o.Items)),
	}
	if o.PaymentIntentID != nil {
		event.PaymentIntentID = *o.PaymentIntentID
	}
	for _, it := range o.Items {
		event.Items = append(event.Items, events.OrderPlacedItem{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal.StringFixed(2),
		})
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Error("failed to publish order event")
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  o.ID,
		"user_id":   o.UserID,
		"total":     event.Total,
		"intent_id": event.PaymentIntentID,
	}).Info("order placed")
}

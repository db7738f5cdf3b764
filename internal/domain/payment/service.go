// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrCartEmpty      = errors.New("cart is empty")
	ErrRecordNotFound = errors.New("payment record not found")
)

// CartInspector is the part of the cart service payments need
type CartInspector interface {
	IsEmpty(userID uint) (bool, error)
}

// Service creates payment intents and keeps the intent ledger
type Service struct {
	db       *gorm.DB
	gateway  Gateway
	carts    CartInspector
	currency string
	log      *logrus.Logger
}

// NewService creates a new payment service
func NewService(db *gorm.DB, gateway Gateway, carts CartInspector, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:       db,
		gateway:  gateway,
		carts:    carts,
		currency: cfg.Payment.Currency,
		log:      log,
	}
}

// IntentResponse is returned to the client after creating an intent
type IntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// CreateIntent opens a payment intent for amount (major units) and records it
// as Authorized in the ledger
func (s *Service) CreateIntent(ctx context.Context, userID uint, amount decimal.Decimal) (*IntentResponse, error) {
	minor := money.ToMinorUnits(amount)
	if minor <= 0 {
		return nil, ErrInvalidAmount
	}

	empty, err := s.carts.IsEmpty(userID)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, ErrCartEmpty
	}

	intent, err := s.gateway.CreateIntent(ctx, CreateIntentParams{
		Amount:   minor,
		Currency: s.currency,
		Metadata: map[string]string{"user_id": strconv.FormatUint(uint64(userID), 10)},
	})
	if err != nil {
		return nil, err
	}

	record := PaymentRecord{
		IntentID:    intent.ID,
		UserID:      userID,
		Amount:      money.FromMinorUnits(minor),
		AmountMinor: minor,
		Currency:    s.currency,
		Status:      LedgerStatusAuthorized,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"intent_id": intent.ID,
		"amount":    minor,
		"currency":  s.currency,
	}).Info("payment intent created")

	return &IntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// IntentStatus asks the gateway for the current status of an intent
func (s *Service) IntentStatus(ctx context.Context, intentID string) (string, error) {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return "", err
	}
	return intent.Status, nil
}

// FindRecord returns the user's ledger row for an intent
func (s *Service) FindRecord(ctx context.Context, userID uint, intentID string) (*PaymentRecord, error) {
	var record PaymentRecord
	err := s.db.WithContext(ctx).Where("intent_id = ? AND user_id = ?", intentID, userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load payment record: %w", err)
	}
	return &record, nil
}

// LockRecordTx re-reads a ledger row inside tx with a row lock
func (s *Service) LockRecordTx(tx *gorm.DB, recordID uint) (*PaymentRecord, error) {
	var record PaymentRecord
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, recordID).Error; err != nil {
		return nil, fmt.Errorf("failed to lock payment record: %w", err)
	}
	return &record, nil
}

// MarkFinalizedTx links the ledger row to the created order
func (s *Service) MarkFinalizedTx(tx *gorm.DB, recordID, orderID uint) error {
	err := tx.Model(&PaymentRecord{}).Where("id = ?", recordID).Updates(map[string]interface{}{
		"status":     LedgerStatusFinalized,
		"order_id":   orderID,
		"last_error": "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize payment record: %w", err)
	}
	return nil
}

// MarkFinalizeFailed records a failed finalize attempt. The client retries.
func (s *Service) MarkFinalizeFailed(ctx context.Context, recordID uint, cause error) {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	err := s.db.WithContext(ctx).Model(&PaymentRecord{}).
		Where("id = ? AND status <> ?", recordID, LedgerStatusFinalized).
		Updates(map[string]interface{}{
			"status":     LedgerStatusFinalizeFailed,
			"last_error": msg,
		}).Error
	if err != nil {
		s.log.WithError(err).WithField("record_id", recordID).Error("failed to mark payment record as FinalizeFailed")
	}
}

// internal/domain/payment/entity.go
package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus tracks what the store has done with a payment intent
type LedgerStatus string

const (
	LedgerStatusAuthorized     LedgerStatus = "Authorized"
	LedgerStatusFinalized      LedgerStatus = "Finalized"
	LedgerStatusFinalizeFailed LedgerStatus = "FinalizeFailed"
)

// PaymentRecord is the ledger row for one payment intent
type PaymentRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	IntentID    string          `gorm:"uniqueIndex;not null;size:255" json:"intent_id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	AmountMinor int64           `gorm:"not null" json:"amount_minor"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Status      LedgerStatus    `gorm:"size:20;not null;default:'Authorized'" json:"status"`
	OrderID     *uint           `gorm:"index" json:"order_id,omitempty"`
	LastError   string          `gorm:"size:500" json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// IsFinalized reports whether an order was already created for this intent
func (r *PaymentRecord) IsFinalized() bool {
	return r.Status == LedgerStatusFinalized && r.OrderID != nil
}

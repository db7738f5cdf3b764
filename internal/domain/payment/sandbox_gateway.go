// internal/domain/payment/sandbox_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sandboxIntentTTL = 24 * time.Hour

// Test payment methods understood by the sandbox. They follow the names of
// the processor's own test tokens.
const (
	SandboxCardVisa             = "pm_card_visa"
	SandboxCardMastercard       = "pm_card_mastercard"
	SandboxCardDeclined         = "pm_card_chargeDeclined"
	SandboxCardInsufficientFund = "pm_card_chargeDeclinedInsufficientFunds"
	SandboxCardAuthRequired     = "pm_card_authenticationRequired"
)

// CardError is a processor-side refusal of a payment method
type CardError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CardError) Error() string {
	return e.Message
}

// SandboxGateway simulates a processor. Intents live in Redis so the API
// server and the sandbox confirm endpoint share them across instances.
type SandboxGateway struct {
	rdb *redis.Client
}

// NewSandboxGateway creates a new sandbox gateway
func NewSandboxGateway(rdb *redis.Client) *SandboxGateway {
	return &SandboxGateway{rdb: rdb}
}

// CreateIntent registers a new intent awaiting a payment method
func (g *SandboxGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	id := "pi_sandbox_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       IntentStatusRequiresPaymentMethod,
	}
	if err := g.save(ctx, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// GetIntent returns the stored intent
func (g *SandboxGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	raw, err := g.rdb.Get(ctx, sandboxKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to load sandbox intent: %w", err)
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox intent: %w", err)
	}
	return &intent, nil
}

// Confirm attaches a test payment method to the intent identified by the
// client secret. A refused card yields a *CardError.
func (g *SandboxGateway) Confirm(ctx context.Context, clientSecret, paymentMethod string) (*Intent, error) {
	id, err := IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return nil, &CardError{Code: "invalid_request", Message: "Invalid client secret."}
	}

	intent, err := g.GetIntent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return nil, &CardError{Code: "resource_missing", Message: fmt.Sprintf("No such payment_intent: '%s'", id)}
		}
		return nil, err
	}
	if intent.ClientSecret != clientSecret {
		return nil, &CardError{Code: "invalid_request", Message: "Invalid client secret."}
	}

	switch intent.Status {
	case IntentStatusSucceeded:
		return nil, &CardError{Code: "payment_intent_unexpected_state", Message: "This PaymentIntent has already succeeded."}
	case IntentStatusCanceled:
		return nil, &CardError{Code: "payment_intent_unexpected_state", Message: "This PaymentIntent has been canceled."}
	}

	switch paymentMethod {
	case SandboxCardVisa, SandboxCardMastercard:
		intent.Status = IntentStatusSucceeded
	case SandboxCardAuthRequired:
		intent.Status = IntentStatusRequiresAction
	case SandboxCardDeclined:
		return nil, &CardError{Code: "card_declined", Message: "Your card was declined."}
	case SandboxCardInsufficientFund:
		return nil, &CardError{Code: "card_declined", Message: "Your card has insufficient funds."}
	default:
		return nil, &CardError{Code: "resource_missing", Message: fmt.Sprintf("No such PaymentMethod: '%s'", paymentMethod)}
	}

	if err := g.save(ctx, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (g *SandboxGateway) save(ctx context.Context, intent *Intent) error {
	raw, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to encode sandbox intent: %w", err)
	}
	if err := g.rdb.Set(ctx, sandboxKey(intent.ID), raw, sandboxIntentTTL).Err(); err != nil {
		return fmt.Errorf("failed to store sandbox intent: %w", err)
	}
	return nil
}

func sandboxKey(id string) string {
	return "sandbox:pi:" + id
}

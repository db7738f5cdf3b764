// internal/storefront/payment/processor.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/storefront/api"
)

// StatusSucceeded is the only intent status that lets checkout finalize
const StatusSucceeded = "succeeded"

// ErrNoCard is returned by a card source with nothing to hand out
var ErrNoCard = errors.New("no payment method provided")

// Card is an opaque payment-method reference such as a processor "pm_" token.
// Raw card numbers never pass through the client.
type Card string

// Intent is the processor's view of a confirmed payment intent
type Intent struct {
	ID     string
	Status string
}

// ProcessorError is a refusal reported by the processor. Its message is
// shown to the shopper verbatim.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return e.Message
}

// Result holds exactly one of Error or Intent
type Result struct {
	Error  *ProcessorError
	Intent *Intent
}

// Processor confirms payment intents with a card
type Processor interface {
	Ready() bool
	Confirm(ctx context.Context, clientSecret string, card Card) (*Result, error)
}

// CardSource collects the card for a payment attempt
type CardSource interface {
	Collect(ctx context.Context) (Card, error)
}

// TokenSource hands out a payment-method token. A token set with Use is
// consumed by the next Collect; otherwise the fallback is used.
type TokenSource struct {
	mu       sync.Mutex
	next     Card
	fallback Card
}

// NewTokenSource creates a source that falls back to the given token
func NewTokenSource(fallback string) *TokenSource {
	return &TokenSource{fallback: Card(strings.TrimSpace(fallback))}
}

// Use sets the token for the next payment attempt
func (s *TokenSource) Use(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = Card(strings.TrimSpace(token))
}

// Collect returns the pending token, or the fallback
func (s *TokenSource) Collect(ctx context.Context) (Card, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.next
	s.next = ""
	if card == "" {
		card = s.fallback
	}
	if card == "" {
		return "", ErrNoCard
	}
	return card, nil
}

// NewProcessor builds the processor selected by CLIENT_PAYMENT_PROVIDER
func NewProcessor(cfg *config.Config, client *api.Client, log *logrus.Logger) (Processor, error) {
	switch cfg.Client.PaymentProvider {
	case "stripe":
		return NewStripeProcessor(cfg.External.Stripe.PublishableKey, log), nil
	case "sandbox":
		return NewSandboxProcessor(client), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Client.PaymentProvider)
	}
}

// intentIDFromSecret recovers the intent id from "<id>_secret_<random>"
func intentIDFromSecret(secret string) (string, error) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || id == "" {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}

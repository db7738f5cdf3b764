// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

// Intent statuses shared by every gateway
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusProcessing            = "processing"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
)

var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is a processor-side payment intent
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor units
	Currency     string
	Status       string
}

// CreateIntentParams describes a new intent
type CreateIntentParams struct {
	Amount   int64 // minor units
	Currency string
	Metadata map[string]string
}

// Gateway creates and inspects payment intents at a processor
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// NewGateway builds the gateway selected by PAYMENT_PROVIDER
func NewGateway(cfg *config.Config, rdb *redis.Client, log *logrus.Logger) (Gateway, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		return WithBreaker(NewStripeGateway(cfg.External.Stripe.SecretKey), BreakerSettings{
			Failures:    cfg.Payment.BreakerFailures,
			OpenTimeout: cfg.Payment.BreakerTimeout,
		}, log), nil
	case "sandbox":
		log.Warn("using sandbox payment gateway, no real charges will be made")
		return NewSandboxGateway(rdb), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}

// IntentIDFromClientSecret recovers the intent id from a client secret of the
// form "<id>_secret_<random>"
func IntentIDFromClientSecret(secret string) (string, error) {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok || id == "" {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}

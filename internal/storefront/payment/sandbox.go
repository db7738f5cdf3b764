// internal/storefront/payment/sandbox.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/your-org/storefront/internal/storefront/api"
)

// SandboxAPI is the server's sandbox confirm endpoint
type SandboxAPI interface {
	SandboxConfirm(ctx context.Context, clientSecret, paymentMethod string) (*api.SandboxIntent, error)
}

// SandboxProcessor confirms intents against a server running the sandbox
// gateway. It understands the processor's test tokens (pm_card_visa,
// pm_card_chargeDeclined, pm_card_authenticationRequired, ...).
type SandboxProcessor struct {
	api SandboxAPI
}

// NewSandboxProcessor creates a sandbox processor
func NewSandboxProcessor(client SandboxAPI) *SandboxProcessor {
	return &SandboxProcessor{api: client}
}

// Ready is always true; the sandbox needs no keys
func (p *SandboxProcessor) Ready() bool {
	return p.api != nil
}

// Confirm attaches the test card to the intent behind clientSecret
func (p *SandboxProcessor) Confirm(ctx context.Context, clientSecret string, card Card) (*Result, error) {
	intent, err := p.api.SandboxConfirm(ctx, clientSecret, string(card))
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusPaymentRequired {
			return &Result{Error: &ProcessorError{Code: apiErr.Code, Message: apiErr.Message}}, nil
		}
		return nil, fmt.Errorf("failed to confirm sandbox intent: %w", err)
	}
	return &Result{Intent: &Intent{ID: intent.ID, Status: intent.Status}}, nil
}

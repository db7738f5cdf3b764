// internal/storefront/payment/stripe.go
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type confirmFunc func(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)

// StripeProcessor confirms intents the way Stripe.js does in a browser: with
// the publishable key and the intent's client secret, never the secret key
type StripeProcessor struct {
	ready   bool
	confirm confirmFunc
	log     *logrus.Logger
}

// NewStripeProcessor creates a processor for the publishable key. Without a
// key the processor reports not ready.
func NewStripeProcessor(publishableKey string, log *logrus.Logger) *StripeProcessor {
	p := &StripeProcessor{ready: publishableKey != "", log: log}
	if p.ready {
		p.confirm = client.New(publishableKey, nil).PaymentIntents.Confirm
	}
	return p
}

// Ready reports whether a publishable key was configured
func (p *StripeProcessor) Ready() bool {
	return p.ready
}

// Confirm attaches the card to the intent behind clientSecret
func (p *StripeProcessor) Confirm(ctx context.Context, clientSecret string, card Card) (*Result, error) {
	if !p.ready {
		return nil, fmt.Errorf("stripe processor is not initialized")
	}

	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(string(card)),
	}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)

	pi, err := p.confirm(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			p.log.WithFields(logrus.Fields{
				"intent_id": id,
				"code":      stripeErr.Code,
			}).Info("payment refused by processor")
			return &Result{Error: &ProcessorError{Code: string(stripeErr.Code), Message: stripeErr.Msg}}, nil
		}
		return nil, fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	return &Result{Intent: &Intent{ID: pi.ID, Status: string(pi.Status)}}, nil
}

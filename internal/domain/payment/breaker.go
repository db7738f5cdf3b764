// internal/domain/payment/breaker.go
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// ErrGatewayUnavailable is returned while the processor is considered down
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// BreakerSettings tunes the gateway circuit breaker
type BreakerSettings struct {
	// Consecutive failures that open the breaker
	Failures uint32
	// How long the breaker stays open before letting a probe through
	OpenTimeout time.Duration
}

type breakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[*Intent]
}

// WithBreaker stops calling next after repeated processor failures and fails
// fast with ErrGatewayUnavailable until a probe call succeeds again. A missing
// intent is an answer, not a failure.
func WithBreaker(next Gateway, s BreakerSettings, log *logrus.Logger) Gateway {
	if s.Failures == 0 {
		s.Failures = 5
	}

	cb := gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.Failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrIntentNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("payment gateway breaker changed state")
		},
	})
	return &breakerGateway{next: next, cb: cb}
}

func (g *breakerGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	return g.run(func() (*Intent, error) { return g.next.CreateIntent(ctx, p) })
}

func (g *breakerGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	return g.run(func() (*Intent, error) { return g.next.GetIntent(ctx, id) })
}

func (g *breakerGateway) run(call func() (*Intent, error)) (*Intent, error) {
	intent, err := g.cb.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrGatewayUnavailable
	}
	return intent, err
}

package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
)

type flakyGateway struct {
	err   error
	calls int
}

func (g *flakyGateway) CreateIntent(context.Context, CreateIntentParams) (*Intent, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Intent{ID: "pi_1", Status: IntentStatusRequiresPaymentMethod}, nil
}

func (g *flakyGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Intent{ID: id, Status: IntentStatusSucceeded}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyGateway{err: errors.New("connection reset")}
	g := WithBreaker(inner, BreakerSettings{Failures: 2, OpenTimeout: 20 * time.Millisecond}, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := g.CreateIntent(ctx, CreateIntentParams{Amount: 100})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGatewayUnavailable)
	}

	_, err := g.GetIntent(ctx, "pi_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, 2, inner.calls, "an open breaker does not call the processor")

	inner.err = nil
	time.Sleep(30 * time.Millisecond)

	intent, err := g.GetIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, IntentStatusSucceeded, intent.Status)
}

func TestBreakerIgnoresMissingIntents(t *testing.T) {
	ctx := context.Background()
	inner := &flakyGateway{err: ErrIntentNotFound}
	g := WithBreaker(inner, BreakerSettings{Failures: 1, OpenTimeout: time.Minute}, logger.Discard())

	for i := 0; i < 3; i++ {
		_, err := g.GetIntent(ctx, "pi_missing")
		assert.ErrorIs(t, err, ErrIntentNotFound)
	}
	assert.Equal(t, 3, inner.calls)
}

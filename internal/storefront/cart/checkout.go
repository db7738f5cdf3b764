// internal/storefront/cart/checkout.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/payment"
)

const msgPaymentSuccessful = "Payment successful! Cart cleared."

// EventType tells cart events apart
type EventType string

const (
	EventCartUpdated EventType = "cart-updated"
	EventCheckout    EventType = "checkout"
)

// Phase is a step of a checkout attempt
type Phase string

const (
	PhaseIntentRequested   Phase = "IntentRequested"
	PhasePaymentConfirming Phase = "PaymentConfirming"
	PhaseSucceeded         Phase = "Succeeded"
	PhaseFinalizing        Phase = "Finalizing"
	PhaseDone              Phase = "Done"
	PhaseFailed            Phase = "Failed"
	// PhaseFinalizePending means the payment went through but the order is
	// still waiting for the server to acknowledge it
	PhaseFinalizePending Phase = "FinalizePending"
)

// Event is published on every snapshot replacement and every checkout phase
type Event struct {
	Type      EventType
	Cart      *api.Cart
	Phase     Phase
	AttemptID string
}

// CheckoutState is Idle when AttemptID is empty, InFlight otherwise
type CheckoutState struct {
	AttemptID string
}

// InFlight reports whether an attempt is running
func (s CheckoutState) InFlight() bool {
	return s.AttemptID != ""
}

// CheckoutState returns the current checkout state
func (m *Manager) CheckoutState() CheckoutState {
	m.checkoutMu.Lock()
	defer m.checkoutMu.Unlock()
	return m.checkout
}

// Checkout pays for the displayed cart and turns it into an order.
//
// A processor that is not ready makes this a no-op. An empty cart never
// creates a payment intent. A processor refusal is shown verbatim and leaves
// the cart untouched. Only a succeeded payment is finalized; if the server
// does not acknowledge the finalize call the intent is kept and retried by
// Reconcile.
func (m *Manager) Checkout(ctx context.Context) error {
	if m.processor == nil || !m.processor.Ready() {
		m.log.Debug("payment processor not ready, ignoring checkout")
		return nil
	}

	attemptID, ok := m.beginCheckout()
	if !ok {
		m.notices.Danger("A payment is already in progress.")
		return ErrCheckoutInFlight
	}
	defer m.endCheckout()

	// Cart changes wait until the attempt is over
	if err := m.mutations.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.mutations.Release(1)

	log := m.log.WithField("attempt_id", attemptID)
	phase := func(p Phase) {
		log.WithField("phase", p).Debug("checkout phase")
		m.bus.Publish(Event{Type: EventCheckout, Phase: p, AttemptID: attemptID})
	}

	owner, _ := m.syncOwner()
	current, fresh := m.Snapshot()
	if !fresh {
		var err error
		if current, err = m.Load(ctx); err != nil {
			m.notices.Danger("Failed to load cart")
			return err
		}
	}
	if current.IsEmpty() {
		m.notices.Danger("Your cart is empty.")
		return ErrCartEmpty
	}

	phase(PhaseIntentRequested)
	intent, err := m.api.CreatePaymentIntent(ctx, current.Total)
	if err != nil {
		log.WithError(err).Warn("failed to create payment intent")
		m.notices.Danger(api.Message(err, "Failed to start payment"))
		phase(PhaseFailed)
		return err
	}

	card, err := m.cards.Collect(ctx)
	if err != nil {
		m.notices.Danger("No payment method provided.")
		phase(PhaseFailed)
		return err
	}

	phase(PhasePaymentConfirming)
	result, err := m.processor.Confirm(ctx, intent.ClientSecret, card)
	if err != nil {
		log.WithError(err).Error("payment confirmation failed")
		m.notices.Danger("Payment failed, please try again.")
		phase(PhaseFailed)
		return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	if result.Error != nil {
		m.notices.Danger(result.Error.Message)
		phase(PhaseFailed)
		return fmt.Errorf("%w: %w", ErrPaymentFailed, result.Error)
	}
	if result.Intent.Status != payment.StatusSucceeded {
		m.notices.Danger(fmt.Sprintf("Payment requires additional action (status: %s).", result.Intent.Status))
		phase(PhaseFailed)
		return fmt.Errorf("%w: status %s", ErrPaymentIncomplete, result.Intent.Status)
	}

	phase(PhaseSucceeded)
	phase(PhaseFinalizing)
	if err := m.finalize(ctx, intent.PaymentIntentID); err != nil {
		if retryable(err) {
			m.addPending(intent.PaymentIntentID, owner)
			m.notices.Danger("Payment received, but the order could not be finalized yet. It will be retried automatically.")
			log.WithError(err).WithField("intent_id", intent.PaymentIntentID).Error("finalize not acknowledged, keeping intent for reconciliation")
			phase(PhaseFinalizePending)
			return fmt.Errorf("%w: %w", ErrFinalizePending, err)
		}
		m.notices.Danger(api.Message(err, "Checkout failed"))
		log.WithError(err).WithField("intent_id", intent.PaymentIntentID).Error("finalize rejected")
		phase(PhaseFailed)
		return err
	}

	if _, err := m.Load(ctx); err != nil {
		log.WithError(err).Warn("cart reload after checkout failed")
	}
	m.notices.Success(msgPaymentSuccessful)
	phase(PhaseDone)
	log.WithField("intent_id", intent.PaymentIntentID).Info("checkout complete")
	return nil
}

// Reconcile retries the finalize call for payments that succeeded without an
// acknowledged order. Only the logged in user's payments are retried; the
// others wait for their owner's session. It returns how many were finalized.
func (m *Manager) Reconcile(ctx context.Context) int {
	owner, _ := m.syncOwner()
	ids := m.pendingOf(owner)
	finalized := 0

	for _, id := range ids {
		_, err := m.api.Checkout(ctx, id)
		switch {
		case err == nil:
			finalized++
			m.dropPending(id)
			m.notices.Success(msgPaymentSuccessful)
			m.log.WithField("intent_id", id).Info("pending checkout finalized")
		case retryable(err):
			m.log.WithError(err).WithField("intent_id", id).Warn("pending checkout still not finalized")
		default:
			m.dropPending(id)
			m.notices.Danger(api.Message(err, "Checkout failed"))
			m.log.WithError(err).WithField("intent_id", id).Error("pending checkout rejected")
		}
	}
	return finalized
}

// Pending lists payment intents waiting for finalize acknowledgement, for
// every user who paid in this process
func (m *Manager) Pending() []string {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	out := make([]string, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p.id)
	}
	return out
}

func (m *Manager) pendingOf(owner uint) []string {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	var out []string
	for _, p := range m.pending {
		if p.owner == owner {
			out = append(out, p.id)
		}
	}
	return out
}

func (m *Manager) finalize(ctx context.Context, intentID string) error {
	for attempt := 1; ; attempt++ {
		_, err := m.api.Checkout(ctx, intentID)
		if err == nil {
			return nil
		}
		if attempt >= m.opts.FinalizeAttempts || !retryable(err) {
			return err
		}

		m.log.WithError(err).WithFields(logrus.Fields{
			"intent_id": intentID,
			"attempt":   attempt,
		}).Warn("finalize failed, retrying")

		timer := time.NewTimer(m.opts.FinalizeBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// retryable reports whether a finalize error may go away on its own:
// transport failures, server errors and a payment the server does not yet see as succeeded
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	status := api.StatusOf(err)
	return status == 0 || status >= http.StatusInternalServerError || status == http.StatusConflict
}

func (m *Manager) beginCheckout() (string, bool) {
	m.checkoutMu.Lock()
	defer m.checkoutMu.Unlock()

	if m.checkout.InFlight() {
		return "", false
	}
	m.checkout = CheckoutState{AttemptID: uuid.NewString()}
	return m.checkout.AttemptID, true
}

func (m *Manager) endCheckout() {
	m.checkoutMu.Lock()
	defer m.checkoutMu.Unlock()
	m.checkout = CheckoutState{}
}

func (m *Manager) addPending(id string, owner uint) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	for _, p := range m.pending {
		if p.id == id {
			return
		}
	}
	m.pending = append(m.pending, pendingIntent{id: id, owner: owner})
}

func (m *Manager) dropPending(id string) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	for i, p := range m.pending {
		if p.id == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

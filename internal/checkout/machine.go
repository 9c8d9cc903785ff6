// Package checkout drives the shopper from delivery details through gateway
// authorization, verification and finalization. Transitions are guarded by
// the state table in domain; invalid ones are rejected, never tolerated.
package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/gateway"
)

// CartStore is the slice of the cart store the machine needs: an immutable
// snapshot to read, and Clear for the single completion point.
type CartStore interface {
	Snapshot() domain.Cart
	Clear() error
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*domain.PaymentIntent, error)
	Verify(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error)
	Authorize(ctx context.Context, intent *domain.PaymentIntent, a gateway.Authorizer) gateway.Outcome
}

type OrderFinalizer interface {
	Finalize(ctx context.Context, snapshot domain.Cart, customer domain.CustomerProfile, paymentRef, idemKey string) (*domain.Order, error)
}

// Machine is one checkout attempt. The idempotency key is minted at Begin
// and reused for every finalize retry within the attempt, so a network retry
// cannot create two orders for one payment.
type Machine struct {
	store     CartStore
	gateway   PaymentGateway
	finalizer OrderFinalizer
	currency  string

	mu        sync.Mutex
	state     domain.CheckoutState
	idemKey   string
	customer  domain.CustomerProfile
	intent    *domain.PaymentIntent
	paymentID string
	signature string
	order     *domain.Order
}

func NewMachine(store CartStore, gw PaymentGateway, fin OrderFinalizer, currency string) *Machine {
	return &Machine{store: store, gateway: gw, finalizer: fin, currency: currency}
}

func (m *Machine) State() domain.CheckoutState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) IdempotencyKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idemKey
}

func (m *Machine) Customer() domain.CustomerProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customer
}

// Order returns the finalized order once the machine reached Completed.
func (m *Machine) Order() *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order
}

// Begin starts the attempt. An empty cart refuses to start; the caller
// redirects to the catalog.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != "" {
		return fmt.Errorf("%w: checkout already started in %s", ErrIllegalTransition, m.state)
	}
	if m.store.Snapshot().IsEmpty() {
		return ErrEmptyCart
	}

	m.idemKey = uuid.NewString()
	m.state = domain.CheckoutStateCollectingDetails
	return nil
}

// SubmitDetails validates the delivery draft. On a validation error the
// machine stays in CollectingDetails with everything previously entered kept.
func (m *Machine) SubmitDetails(profile domain.CustomerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.CheckoutStateCollectingDetails {
		return fmt.Errorf("%w: details submitted in %s", ErrIllegalTransition, m.state)
	}

	fields := []struct {
		name  string
		value string
	}{
		{"name", profile.Name},
		{"phone", profile.Phone},
		{"address", profile.Address},
		{"city", profile.City},
		{"payment_method", profile.PaymentMethod},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}

	m.customer = profile
	return m.to(domain.CheckoutStateSelectingPayment)
}

// Authorize requests a payment intent for the current cart total and runs
// the gateway UI. On a request failure the machine stays in SelectingPayment
// with the cart untouched; a dismissal routes back to SelectingPayment; a
// gateway error lands in Failed with Retry available.
func (m *Machine) Authorize(ctx context.Context, a gateway.Authorizer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.CheckoutStateSelectingPayment {
		return fmt.Errorf("%w: authorization requested in %s", ErrIllegalTransition, m.state)
	}

	snap := m.store.Snapshot()
	if snap.IsEmpty() {
		return ErrEmptyCart
	}

	intent, err := m.gateway.CreateIntent(ctx, snap.Total(), m.currency)
	if err != nil {
		return err
	}

	if err := m.to(domain.CheckoutStateAwaitingAuthorization); err != nil {
		return err
	}

	outcome := m.gateway.Authorize(ctx, intent, a)
	switch outcome.Kind {
	case gateway.OutcomeApproved:
		m.intent = intent
		m.paymentID = outcome.PaymentID
		m.signature = outcome.Signature
		return m.to(domain.CheckoutStateVerifyingPayment)

	case gateway.OutcomeDismissed:
		// not an error: the intent is abandoned and the shopper is back at
		// payment selection with the cart intact
		if err := m.to(domain.CheckoutStateCancelled); err != nil {
			return err
		}
		if err := m.to(domain.CheckoutStateSelectingPayment); err != nil {
			return err
		}
		return ErrAuthorizationDismissed

	default:
		if err := m.to(domain.CheckoutStateFailed); err != nil {
			return err
		}
		return &GatewayError{Reason: outcome.Reason}
	}
}

// Retry re-enters payment selection after a failed attempt. Cart and
// delivery details are preserved.
func (m *Machine) Retry() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.to(domain.CheckoutStateSelectingPayment)
}

// ConfirmPayment asks the backend whether the intent is really authorized.
// A transient error keeps the machine in VerifyingPayment for another try;
// an unverified payment is terminal for the attempt.
func (m *Machine) ConfirmPayment(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.CheckoutStateVerifyingPayment {
		return fmt.Errorf("%w: verification requested in %s", ErrIllegalTransition, m.state)
	}

	verified, err := m.gateway.Verify(ctx, m.intent.GatewayOrderID, m.paymentID, m.signature)
	if err != nil {
		return err
	}
	if !verified {
		if err := m.to(domain.CheckoutStateFailed); err != nil {
			return err
		}
		return ErrVerificationFailed
	}

	m.intent.Status = domain.PaymentIntentAuthorized
	return m.to(domain.CheckoutStateFinalizing)
}

// Complete submits the order exactly once and clears the cart. The clear
// happens only inside the Finalizing -> Completed transition and nowhere
// else in the whole system.
func (m *Machine) Complete(ctx context.Context) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.CheckoutStateFinalizing {
		return nil, fmt.Errorf("%w: finalize requested in %s", ErrIllegalTransition, m.state)
	}
	if m.intent == nil || m.intent.Status != domain.PaymentIntentAuthorized {
		return nil, fmt.Errorf("%w: finalize without an authorized intent", ErrIllegalTransition)
	}

	snap := m.store.Snapshot()
	order, err := m.finalizer.Finalize(ctx, snap, m.customer, m.paymentID, m.idemKey)
	if err != nil {
		if e := m.to(domain.CheckoutStateFailed); e != nil {
			return nil, e
		}
		return nil, err
	}

	m.order = order
	if err := m.store.Clear(); err != nil {
		// the order exists; a failed local clear must not fail the checkout
		log.Printf("cart clear after order %s failed: %v", order.OrderID, err)
	}
	if err := m.to(domain.CheckoutStateCompleted); err != nil {
		return nil, err
	}
	return order, nil
}

// Abandon discards the attempt. Permitted only before authorization begins
// (and from the recoverable Failed/Cancelled states); once Finalizing has
// started there is no way out but completion, because aborting there risks a
// paid-but-unrecorded order.
func (m *Machine) Abandon() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case domain.CheckoutStateCollectingDetails,
		domain.CheckoutStateSelectingPayment,
		domain.CheckoutStateCancelled,
		domain.CheckoutStateFailed:
		m.state = ""
		m.idemKey = ""
		m.intent = nil
		return nil
	default:
		return fmt.Errorf("%w: state %s", ErrCancellationRefused, m.state)
	}
}

func (m *Machine) to(next domain.CheckoutState) error {
	if !domain.CanTransitionTo(m.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
	}
	m.state = next
	return nil
}

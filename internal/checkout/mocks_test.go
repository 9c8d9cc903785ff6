package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/gateway"
)

// mockStore implements CartStore for testing
type mockStore struct {
	cart     domain.Cart
	cleared  int
	clearErr error
}

func (m *mockStore) Snapshot() domain.Cart { return m.cart.Clone() }

func (m *mockStore) Clear() error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared++
	m.cart = domain.Cart{}
	return nil
}

// mockGateway implements PaymentGateway for testing
type mockGateway struct {
	createErr     error
	createdAmount decimal.Decimal
	createCalls   int

	outcome gateway.Outcome

	verified    bool
	verifyErr   error
	verifyCalls int
}

func (m *mockGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string) (*domain.PaymentIntent, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdAmount = amount
	return &domain.PaymentIntent{
		IntentID:       "pi_test",
		GatewayOrderID: "gw_order_test",
		Amount:         amount,
		Currency:       currency,
		Status:         domain.PaymentIntentCreated,
	}, nil
}

func (m *mockGateway) Authorize(_ context.Context, intent *domain.PaymentIntent, _ gateway.Authorizer) gateway.Outcome {
	switch m.outcome.Kind {
	case gateway.OutcomeDismissed:
		intent.Status = domain.PaymentIntentCancelled
	case gateway.OutcomeFailed:
		intent.Status = domain.PaymentIntentFailed
	}
	return m.outcome
}

func (m *mockGateway) Verify(context.Context, string, string, string) (bool, error) {
	m.verifyCalls++
	return m.verified, m.verifyErr
}

// mockFinalizer implements OrderFinalizer for testing
type mockFinalizer struct {
	err     error
	calls   int
	lastKey string
}

func (m *mockFinalizer) Finalize(_ context.Context, snapshot domain.Cart, customer domain.CustomerProfile, paymentRef, idemKey string) (*domain.Order, error) {
	m.calls++
	m.lastKey = idemKey
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{
		OrderID:          "ord_0001",
		IdempotencyKey:   idemKey,
		Items:            snapshot.Items,
		Customer:         customer,
		PaymentReference: paymentRef,
		TotalAmount:      snapshot.Total(),
		CreatedAt:        time.Now().UTC(),
		Status:           domain.OrderStatusPlaced,
	}, nil
}

// stubAuthorizer satisfies gateway.Authorizer; the mock gateway decides the
// outcome so the channel is never read.
type stubAuthorizer struct{}

func (stubAuthorizer) Open(context.Context, domain.PaymentIntent) <-chan gateway.Outcome {
	ch := make(chan gateway.Outcome, 1)
	return ch
}

func testCart() domain.Cart {
	return domain.Cart{Items: []domain.CartItem{
		{ProductID: 1, Name: "Carrot", UnitPrice: decimal.NewFromInt(40), Unit: "kg", Quantity: 2},
		{ProductID: 2, Name: "Apple", UnitPrice: decimal.NewFromInt(120), Unit: "kg", Quantity: 1},
	}}
}

func testProfile() domain.CustomerProfile {
	return domain.CustomerProfile{
		Name:          "Asha Patel",
		Phone:         "9876543210",
		Address:       "14 Lake Road",
		City:          "Pune",
		PaymentMethod: "online",
	}
}

package storefront

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/backendtest"
	"github.com/agrikart/storefront/internal/config"
	"github.com/agrikart/storefront/internal/gateway"
)

func setupEngine(t *testing.T) (*Engine, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)

	cfg := &config.Config{
		BackendURL:        srv.URL(),
		Currency:          "INR",
		CartPath:          filepath.Join(t.TempDir(), "cart.db"),
		RequestTimeout:    2 * time.Second,
		AuthorizationWait: time.Second,
		FinalizeAttempts:  3,
		FinalizeBackoff:   10 * time.Millisecond,
	}

	engine, err := NewEngine(cfg, func() string { return "test-token" })
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, srv
}

type approvingAuthorizer struct{}

func (approvingAuthorizer) Open(context.Context, domain.PaymentIntent) <-chan gateway.Outcome {
	ch := make(chan gateway.Outcome, 1)
	ch <- gateway.Outcome{Kind: gateway.OutcomeApproved, PaymentID: "pay_e2e", Signature: "sig_e2e"}
	return ch
}

func addProduce(t *testing.T, v *View) {
	t.Helper()
	require.NoError(t, v.Store.Add(domain.CartItem{ProductID: 1, Name: "Carrot", UnitPrice: decimal.NewFromInt(40), Unit: "kg", Quantity: 2}))
	require.NoError(t, v.Store.Add(domain.CartItem{ProductID: 2, Name: "Apple", UnitPrice: decimal.NewFromInt(120), Unit: "kg", Quantity: 1}))
}

func TestCheckout_EndToEnd(t *testing.T) {
	engine, srv := setupEngine(t)

	view, err := engine.OpenView("user1")
	require.NoError(t, err)
	defer view.Close()

	addProduce(t, view)

	m := engine.NewCheckout(view)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SubmitDetails(domain.CustomerProfile{
		Name: "Asha Patel", Phone: "9876543210", Address: "14 Lake Road", City: "Pune", PaymentMethod: "online",
	}))
	require.NoError(t, m.Authorize(context.Background(), approvingAuthorizer{}))
	require.NoError(t, m.ConfirmPayment(context.Background()))

	order, err := m.Complete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStateCompleted, m.State())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.Len(t, srv.Orders(), 1)
	assert.True(t, view.Store.Snapshot().IsEmpty(), "cart cleared on completion")

	inv := engine.Invoice(*order)
	assert.True(t, inv.Shipping.Equal(decimal.NewFromInt(50)), "200 is under the free-shipping threshold")
	assert.Equal(t, inv, engine.Invoice(*order))

	require.NotNil(t, engine.CurrentOrder())
	engine.CloseInvoice()
	assert.Nil(t, engine.CurrentOrder())
}

// Two views over one slot: a write in the first becomes visible in the
// second without any polling by the caller.
func TestViews_ConvergeAcrossContexts(t *testing.T) {
	engine, _ := setupEngine(t)

	a, err := engine.OpenView("user1")
	require.NoError(t, err)
	defer a.Close()

	b, err := engine.OpenView("user1")
	require.NoError(t, err)
	defer b.Close()

	// let b's broadcaster subscription attach
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, a.Store.Add(domain.CartItem{ProductID: 3, Name: "Spinach", UnitPrice: decimal.NewFromInt(30), Unit: "bunch", Quantity: 1}))

	require.Eventually(t, func() bool {
		snap := b.Store.Snapshot()
		return len(snap.Items) == 1 && snap.Items[0].Name == "Spinach"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckout_CompletionClearsEveryView(t *testing.T) {
	engine, _ := setupEngine(t)

	a, err := engine.OpenView("user1")
	require.NoError(t, err)
	defer a.Close()
	b, err := engine.OpenView("user1")
	require.NoError(t, err)
	defer b.Close()

	time.Sleep(20 * time.Millisecond)
	addProduce(t, a)

	require.Eventually(t, func() bool {
		return len(b.Store.Snapshot().Items) == 2
	}, 2*time.Second, 10*time.Millisecond)

	m := engine.NewCheckout(a)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SubmitDetails(domain.CustomerProfile{
		Name: "Asha Patel", Phone: "9876543210", Address: "14 Lake Road", City: "Pune", PaymentMethod: "online",
	}))
	require.NoError(t, m.Authorize(context.Background(), approvingAuthorizer{}))
	require.NoError(t, m.ConfirmPayment(context.Background()))
	_, err = m.Complete(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return b.Store.Snapshot().IsEmpty()
	}, 2*time.Second, 10*time.Millisecond, "the other tab's view empties too")
}

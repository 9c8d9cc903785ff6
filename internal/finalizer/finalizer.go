// Package finalizer submits the completed order to the backend exactly once
// per checkout attempt. Retries reuse the attempt's idempotency key, so the
// backend can collapse a network retry into the order it already created.
package finalizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/backend"
)

// ErrConflict means the backend reports the payment reference or idempotency
// key consumed by a different order. Fatal: retrying could duplicate
// fulfillment.
var ErrConflict = errors.New("order already processed")

type Finalizer struct {
	backend     *backend.Client
	maxAttempts int
	backoff     time.Duration

	mu      sync.Mutex
	current *domain.Order // transient slot for invoice display
}

func New(b *backend.Client, maxAttempts int, backoff time.Duration) *Finalizer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Finalizer{backend: b, maxAttempts: maxAttempts, backoff: backoff}
}

type orderRequest struct {
	Items            []domain.CartItem      `json:"items"`
	Customer         domain.CustomerProfile `json:"customer"`
	PaymentReference string                 `json:"payment_reference"`
	IdempotencyKey   string                 `json:"idempotency_key"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
}

// Finalize submits the order, retrying transient failures with the same
// idempotency key up to the attempt bound. A 409 surfaces as ErrConflict and
// is never retried.
func (f *Finalizer) Finalize(ctx context.Context, snapshot domain.Cart, customer domain.CustomerProfile, paymentRef, idemKey string) (*domain.Order, error) {
	if idemKey == "" {
		return nil, errors.New("idempotency key is required")
	}

	req := orderRequest{
		Items:            snapshot.Items,
		Customer:         customer,
		PaymentReference: paymentRef,
		IdempotencyKey:   idemKey,
		TotalAmount:      snapshot.Total(),
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		var order domain.Order
		status, err := f.backend.Do(ctx, http.MethodPost, "/orders", req, &order)
		if err != nil {
			if !backend.IsTransient(err) {
				return nil, err
			}
			lastErr = err
			log.Printf("order submission attempt %d/%d failed: %v", attempt, f.maxAttempts, err)
			if attempt < f.maxAttempts {
				select {
				case <-time.After(f.backoff):
				case <-ctx.Done():
					return nil, fmt.Errorf("order submission cancelled: %w", ctx.Err())
				}
			}
			continue
		}

		switch status {
		case http.StatusCreated, http.StatusOK:
			// 200 is the backend replaying the order it already holds for
			// this key; both are success
			f.mu.Lock()
			f.current = &order
			f.mu.Unlock()
			return &order, nil
		case http.StatusConflict:
			return nil, ErrConflict
		default:
			return nil, fmt.Errorf("order rejected with status %d", status)
		}
	}

	return nil, fmt.Errorf("order submission failed after %d attempts: %w", f.maxAttempts, lastErr)
}

// Cancel asks the backend to cancel a previously finalized order. This is
// user-initiated and lives outside the checkout flow.
func (f *Finalizer) Cancel(ctx context.Context, orderID string) error {
	status, err := f.backend.Do(ctx, http.MethodDelete, "/orders/"+orderID, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("order cancellation rejected with status %d", status)
	}
	return nil
}

// CurrentOrder returns the locally retained copy of the last finalized
// order, kept only for invoice display.
func (f *Finalizer) CurrentOrder() *domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// CloseInvoice drops the transient order copy once the invoice view closes.
func (f *Finalizer) CloseInvoice() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
}

// Package gateway negotiates payment authorization: it creates payment
// intents with the backend, runs the external gateway's authorization UI and
// reports the outcome, and verifies payments against the backend record.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
	"github.com/agrikart/storefront/internal/backend"
)

type OutcomeKind string

const (
	OutcomeApproved  OutcomeKind = "APPROVED"
	OutcomeDismissed OutcomeKind = "DISMISSED"
	OutcomeFailed    OutcomeKind = "FAILED"
)

// Outcome is the gateway's asynchronous answer for one authorization
// attempt. Approved carries the gateway payment reference and signature used
// for verification.
type Outcome struct {
	Kind      OutcomeKind
	PaymentID string
	Signature string
	Reason    string
}

// Authorizer presents the external gateway's modal UI for an intent and
// delivers exactly one outcome on the returned channel. The UI layer
// implements this; tests stub it.
type Authorizer interface {
	Open(ctx context.Context, intent domain.PaymentIntent) <-chan Outcome
}

type Client struct {
	backend  *backend.Client
	authWait time.Duration
}

// NewClient wraps the backend REST client. authWait bounds how long an
// authorization attempt may sit without any gateway callback before it is
// treated as dismissed.
func NewClient(b *backend.Client, authWait time.Duration) *Client {
	return &Client{backend: b, authWait: authWait}
}

type createIntentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type createIntentResponse struct {
	IntentID       string          `json:"intent_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// CreateIntent asks the backend for a payment intent. The amount sent is
// advisory; the backend's reply is authoritative for what will be charged.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*domain.PaymentIntent, error) {
	var resp createIntentResponse
	status, err := c.backend.Do(ctx, http.MethodPost, "/payments/create",
		createIntentRequest{Amount: amount, Currency: currency}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("payment intent rejected with status %d", status)
	}

	return &domain.PaymentIntent{
		IntentID:       resp.IntentID,
		GatewayOrderID: resp.GatewayOrderID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
		Status:         domain.PaymentIntentCreated,
	}, nil
}

type verifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// Verify re-derives the payment's truth from the backend record.
func (c *Client) Verify(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	var resp verifyResponse
	status, err := c.backend.Do(ctx, http.MethodPost, "/payments/verify",
		verifyRequest{GatewayOrderID: gatewayOrderID, GatewayPaymentID: gatewayPaymentID, Signature: signature}, &resp)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("payment verification rejected with status %d", status)
	}
	return resp.Verified, nil
}

// Authorize runs the gateway UI for the intent and waits for its outcome,
// bounded by authWait. A dismissed UI that never fires a callback maps to
// OutcomeDismissed; the checkout can never be left hanging here.
func (c *Client) Authorize(ctx context.Context, intent *domain.PaymentIntent, a Authorizer) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.authWait)
	defer cancel()

	intent.Status = domain.PaymentIntentAuthorizationPending

	var outcome Outcome
	select {
	case o, ok := <-a.Open(ctx, *intent):
		if !ok {
			outcome = Outcome{Kind: OutcomeDismissed, Reason: "gateway closed without a callback"}
		} else {
			outcome = o
		}
	case <-ctx.Done():
		outcome = Outcome{Kind: OutcomeDismissed, Reason: "authorization window closed"}
	}

	switch outcome.Kind {
	case OutcomeDismissed:
		intent.Status = domain.PaymentIntentCancelled
	case OutcomeFailed:
		intent.Status = domain.PaymentIntentFailed
	}
	return outcome
}

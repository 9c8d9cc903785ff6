package domain

import "github.com/shopspring/decimal"

type PaymentIntentStatus string

const (
	PaymentIntentCreated              PaymentIntentStatus = "CREATED"
	PaymentIntentAuthorizationPending PaymentIntentStatus = "AUTHORIZATION_PENDING"
	PaymentIntentAuthorized           PaymentIntentStatus = "AUTHORIZED"
	PaymentIntentFailed               PaymentIntentStatus = "FAILED"
	PaymentIntentCancelled            PaymentIntentStatus = "CANCELLED"
)

func (s PaymentIntentStatus) IsTerminal() bool {
	return s == PaymentIntentAuthorized || s == PaymentIntentFailed || s == PaymentIntentCancelled
}

// String representation (for logging)
func (s PaymentIntentStatus) String() string {
	return string(s)
}

// PaymentIntent is the backend-issued charge request. The backend is the
// source of truth for Amount; the client-computed total is advisory only.
type PaymentIntent struct {
	IntentID       string              `json:"intent_id"`
	GatewayOrderID string              `json:"gateway_order_id"`
	Amount         decimal.Decimal     `json:"amount"`
	Currency       string              `json:"currency"`
	Status         PaymentIntentStatus `json:"status"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is the finalized purchase. It is created only after the payment
// intent reached AUTHORIZED and is immutable afterwards; the backend is the
// system of record, the client keeps a copy for invoice display.
type Order struct {
	OrderID          string          `json:"order_id"`
	IdempotencyKey   string          `json:"idempotency_key"`
	Items            []CartItem      `json:"items"`
	Customer         CustomerProfile `json:"customer"`
	PaymentReference string          `json:"payment_reference"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CreatedAt        time.Time       `json:"created_at"`
	Status           OrderStatus     `json:"status"`
}

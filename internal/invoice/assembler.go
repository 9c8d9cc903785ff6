// Package invoice derives the printable receipt from a completed order.
// Assembly is pure: no clock, no network, no mutation, so the same order
// always yields the same invoice.
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agrikart/storefront/domain"
)

// Config holds the surcharge model. Shipping is waived above the threshold;
// the discount mirrors the storefront's flat rebate on large orders.
type Config struct {
	ShippingFee       decimal.Decimal
	ShippingThreshold decimal.Decimal
	SurchargeRate     decimal.Decimal
	DiscountAmount    decimal.Decimal
	DiscountThreshold decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		ShippingFee:       decimal.NewFromInt(50),
		ShippingThreshold: decimal.NewFromInt(500),
		SurchargeRate:     decimal.NewFromFloat(0.02),
		DiscountAmount:    decimal.NewFromInt(100),
		DiscountThreshold: decimal.NewFromInt(1000),
	}
}

type Assembler struct {
	cfg Config
}

func New(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble projects the order into an invoice. Deterministic: the invoice
// number comes from the order id, the issue date from the order's CreatedAt.
func (a *Assembler) Assemble(order domain.Order) domain.Invoice {
	lines := make([]domain.InvoiceLine, 0, len(order.Items))
	subtotal := decimal.Zero
	for _, item := range order.Items {
		sub := item.Subtotal()
		lines = append(lines, domain.InvoiceLine{
			Name:      item.Name,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  sub,
		})
		subtotal = subtotal.Add(sub)
	}

	shipping := a.cfg.ShippingFee
	if subtotal.GreaterThan(a.cfg.ShippingThreshold) {
		shipping = decimal.Zero
	}

	surcharge := subtotal.Mul(a.cfg.SurchargeRate).Round(2)

	discount := decimal.Zero
	if subtotal.GreaterThan(a.cfg.DiscountThreshold) {
		discount = a.cfg.DiscountAmount
	}

	return domain.Invoice{
		InvoiceNo:  fmt.Sprintf("INV-%s", order.OrderID),
		IssuedOn:   order.CreatedAt.UTC().Format("02 Jan 2006"),
		BilledTo:   order.Customer,
		Lines:      lines,
		Subtotal:   subtotal,
		Shipping:   shipping,
		Surcharge:  surcharge,
		Discount:   discount,
		GrandTotal: subtotal.Add(shipping).Add(surcharge).Sub(discount),
	}
}

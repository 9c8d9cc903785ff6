package domain

import "github.com/shopspring/decimal"

// InvoiceLine mirrors one order line with its computed subtotal.
type InvoiceLine struct {
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Invoice is a read-only projection of a completed Order. It is derived,
// never stored, and recomputable at any time from the Order alone.
type Invoice struct {
	InvoiceNo  string          `json:"invoice_no"`
	IssuedOn   string          `json:"issued_on"`
	BilledTo   CustomerProfile `json:"billed_to"`
	Lines      []InvoiceLine   `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Surcharge  decimal.Decimal `json:"surcharge"`
	Discount   decimal.Decimal `json:"discount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

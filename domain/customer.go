package domain

// CustomerProfile is the delivery draft collected at the start of checkout.
// It lives only for the duration of the checkout attempt and is snapshotted
// into the Order on success.
type CustomerProfile struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PaymentMethod string `json:"payment_method"`
}

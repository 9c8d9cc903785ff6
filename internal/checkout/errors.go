package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart              = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition      = errors.New("illegal transition of checkout state")
	ErrAuthorizationDismissed = errors.New("payment authorization dismissed")
	ErrVerificationFailed     = errors.New("payment could not be verified")
	ErrCancellationRefused    = errors.New("checkout cannot be abandoned after finalization started")
)

// ValidationError reports a missing delivery field. The machine stays in
// place so the shopper corrects the input without losing anything.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// GatewayError is a gateway-side authorization failure, terminal for the
// attempt; the shopper may retry from payment selection.
type GatewayError struct {
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

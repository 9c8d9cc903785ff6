package domain

type CheckoutState string

const (
	CheckoutStateCollectingDetails     CheckoutState = "COLLECTING_DETAILS"
	CheckoutStateSelectingPayment      CheckoutState = "SELECTING_PAYMENT"
	CheckoutStateAwaitingAuthorization CheckoutState = "AWAITING_AUTHORIZATION"
	CheckoutStateVerifyingPayment      CheckoutState = "VERIFYING_PAYMENT"
	CheckoutStateFinalizing            CheckoutState = "FINALIZING"
	CheckoutStateCompleted             CheckoutState = "COMPLETED"
	CheckoutStateFailed                CheckoutState = "FAILED"
	CheckoutStateCancelled             CheckoutState = "CANCELLED"
)

// transitions lists the legal next states for each state. Failed and
// Cancelled are recoverable: the shopper restarts from payment selection with
// the cart and delivery details intact. Completed is the only terminal state.
var transitions = map[CheckoutState][]CheckoutState{
	CheckoutStateCollectingDetails:     {CheckoutStateSelectingPayment},
	CheckoutStateSelectingPayment:      {CheckoutStateAwaitingAuthorization},
	CheckoutStateAwaitingAuthorization: {CheckoutStateVerifyingPayment, CheckoutStateCancelled, CheckoutStateFailed},
	CheckoutStateVerifyingPayment:      {CheckoutStateFinalizing, CheckoutStateFailed},
	CheckoutStateFinalizing:            {CheckoutStateCompleted, CheckoutStateFailed},
	CheckoutStateCancelled:             {CheckoutStateSelectingPayment},
	CheckoutStateFailed:                {CheckoutStateSelectingPayment},
	CheckoutStateCompleted:             nil,
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateCompleted
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

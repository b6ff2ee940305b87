package order

import "fmt"

// Status is an order's fulfillment state. The zero value is not valid.
type Status string

const (
	StatusPaymentConfirmed Status = "Payment Confirmed"
	StatusProcessing       Status = "Processing"
	StatusShipped          Status = "Shipped"
	StatusDelivered        Status = "Delivered"
	StatusCancelled        Status = "Cancelled"
)

// transitions is the legal fulfillment graph. Cancellation is reachable
// from any non-terminal state; Delivered and Cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPaymentConfirmed: {StatusProcessing, StatusCancelled},
	StatusProcessing:       {StatusShipped, StatusCancelled},
	StatusShipped:          {StatusDelivered, StatusCancelled},
	StatusDelivered:        {},
	StatusCancelled:        {},
}

// UnknownStatusError indicates a status string outside the enum.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown order status %q", e.Value)
}

// InvalidTransitionError indicates an illegal fulfillment state change.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %q to %q", e.From, e.To)
}

// ParseStatus maps a wire string onto the status enum.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", &UnknownStatusError{Value: s}
	}
	return st, nil
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

package order

import (
	"fmt"

	"relay/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Confirmed ──> Preparing ──> OutForDelivery ──> Delivered
//	    │             │
//	    └─────────────┴──> Cancelled
//
// Delivered and Cancelled are terminal. Every transition not drawn above,
// including self-transitions, is rejected.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Confirmed is the status of a freshly placed order.
	Confirmed

	// Preparing indicates the vendor started working on the order.
	Preparing

	// OutForDelivery indicates a driver picked the order up. Location samples are
	// only accepted in this status.
	OutForDelivery

	// Delivered is terminal.
	Delivered

	// Cancelled is terminal and reachable from Confirmed or Preparing only.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "unknown",
		Confirmed:      "confirmed",
		Preparing:      "preparing",
		OutForDelivery: "out_for_delivery",
		Delivered:      "delivered",
		Cancelled:      "cancelled",
	}
}

// getTransitions returns the transition table. A status missing from the map has
// no outgoing transitions.
func getTransitions() map[Status][]Status {
	//nolint:exhaustive // terminal and unknown statuses have no outgoing edges
	return map[Status][]Status{
		Confirmed:      {Preparing, Cancelled},
		Preparing:      {OutForDelivery, Cancelled},
		OutForDelivery: {Delivered},
	}
}

// ParseStatus converts the wire form ("out_for_delivery") into a Status.
func ParseStatus(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if status != Unknown && name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is one of the five known states.
func (s Status) Validate() error {
	if _, ok := getStatusStrings()[s]; !ok || s == Unknown {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire form of the status. Invalid values render as "unknown".
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// CanTransitionTo reports whether the table contains s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range getTransitions()[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo returns next if the table allows it, otherwise a TransitionIsInvalidError.
//
// Example:
//
//	newStatus, err := order.Delivered.TransitionTo(order.Preparing)
//	// err wraps errs.ErrTransitionIsInvalid, newStatus is Unknown
func (s Status) TransitionTo(next Status) (Status, error) {
	if err := next.Validate(); err != nil {
		return Unknown, err
	}
	if !s.CanTransitionTo(next) {
		return Unknown, errs.NewTransitionIsInvalidError("order", s.String(), next.String())
	}
	return next, nil
}

package ports

import (
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/location"
)

// LocationTracker is the part of the location stream aggregator that order use
// cases depend on.
type LocationTracker interface {
	// Forget stops accepting samples for the order and drops anything pending.
	Forget(orderID kernel.EntityID)

	// LastKnown returns the most recent accepted sample for the order.
	LastKnown(orderID kernel.EntityID) (location.Sample, bool)
}

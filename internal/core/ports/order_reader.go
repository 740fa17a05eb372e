// Package ports defines the contracts between the relay core and its adapters.
// The relay never writes orders; the REST system of record owns them, so the
// outbound ports are read-only and the cache contract is what use cases drive.
package ports

import (
	"context"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
)

// OrderReader loads an order from the system of record.
// It returns an errs.ObjectNotFoundError when the order does not exist.
type OrderReader interface {
	Get(ctx context.Context, id kernel.EntityID) (*order.Order, error)
}

// OrderCache is the relay's volatile view of live orders. Every method that
// takes an id falls back to the OrderReader on a cache miss. Returned orders are
// snapshots; mutating them does not touch the cache.
type OrderCache interface {
	// Register inserts a freshly placed order. Registering a cached id keeps
	// the cached record and returns it.
	Register(o *order.Order) *order.Order

	Get(ctx context.Context, id kernel.EntityID) (*order.Order, error)

	// Transition applies a status change through the transition table.
	// On rejection the cached status is unchanged.
	Transition(ctx context.Context, id kernel.EntityID, next order.Status, at time.Time) (*order.Order, error)

	AssignDriver(ctx context.Context, id, driverID kernel.EntityID) (*order.Order, error)

	// Forget drops an order from the cache.
	Forget(id kernel.EntityID)
}

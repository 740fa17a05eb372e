package order

import (
	"errors"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
	"relay/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrInvalidTransition is matched by every rejected status change.
	ErrInvalidTransition = errs.ErrTransitionIsInvalid
)

// Order is the relay's cached view of an order owned by the REST system of record.
//
// Order follows these invariants:
//   - id, customer and vendor are always set
//   - status only changes through the transition table in Status
//   - terminal orders reject further transitions and driver assignment
type Order struct {
	id               kernel.EntityID
	customerID       kernel.EntityID
	vendorID         kernel.EntityID
	driverID         *kernel.EntityID
	status           Status
	lastTransitionAt time.Time

	guard guard.ConstructorGuard
}

// NewOrder creates a freshly placed order in Confirmed status.
//
// Example:
//
//	o, err := order.NewOrder(orderID, customerID, vendorID, time.Now())
//	if err != nil {
//	    // Handle validation error
//	}
func NewOrder(id, customerID, vendorID kernel.EntityID, placedAt time.Time) (*Order, error) {
	return RestoreOrder(id, customerID, vendorID, nil, Confirmed, placedAt)
}

// RestoreOrder rebuilds an order read from the system of record, in any status.
func RestoreOrder(
	id, customerID, vendorID kernel.EntityID,
	driverID *kernel.EntityID,
	status Status,
	lastTransitionAt time.Time,
) (*Order, error) {
	o := &Order{
		lastTransitionAt: lastTransitionAt,
		guard:            guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		requireID("orderId", id),
		requireID("customerId", customerID),
		requireID("vendorId", vendorID),
		status.Validate(),
	); err != nil {
		return nil, err
	}
	if driverID != nil {
		if err := driverID.Validate(); err != nil {
			return nil, err
		}
		d := *driverID
		o.driverID = &d
	}

	o.id = id
	o.customerID = customerID
	o.vendorID = vendorID
	o.status = status
	return o, nil
}

// Validate ensures the Order was built through a constructor.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

func (o *Order) ID() kernel.EntityID         { return o.id }
func (o *Order) CustomerID() kernel.EntityID { return o.customerID }
func (o *Order) VendorID() kernel.EntityID   { return o.vendorID }
func (o *Order) Status() Status              { return o.status }
func (o *Order) LastTransitionAt() time.Time { return o.lastTransitionAt }

// DriverID returns the assigned driver, or nil while unassigned.
func (o *Order) DriverID() *kernel.EntityID {
	if o.driverID == nil {
		return nil
	}
	d := *o.driverID
	return &d
}

// HasDriver reports whether driverID is the driver currently assigned.
func (o *Order) HasDriver(driverID kernel.EntityID) bool {
	return o.driverID != nil && o.driverID.IsEqual(driverID)
}

// ChangeStatus applies next if the transition table allows it. On rejection the
// order is left untouched and the error wraps ErrInvalidTransition.
func (o *Order) ChangeStatus(next Status, at time.Time) error {
	newStatus, err := o.status.TransitionTo(next)
	if err != nil {
		return err
	}

	o.status = newStatus
	o.lastTransitionAt = at
	return nil
}

// AssignDriver records the driver independently of status. Reassignment is allowed
// until the order reaches a terminal status.
func (o *Order) AssignDriver(driverID kernel.EntityID) error {
	if err := driverID.Validate(); err != nil {
		return err
	}
	if o.status.IsTerminal() {
		return errs.NewTransitionIsInvalidError("order driver", o.status.String(), "assigned")
	}

	o.driverID = &driverID
	return nil
}

// Clone returns an independent copy, used to hand snapshots out of the cache.
func (o *Order) Clone() *Order {
	c := *o
	if o.driverID != nil {
		d := *o.driverID
		c.driverID = &d
	}
	return &c
}

func requireID(paramName string, id kernel.EntityID) error {
	if id.IsZero() {
		return errs.NewValueIsRequiredError(paramName)
	}
	return nil
}

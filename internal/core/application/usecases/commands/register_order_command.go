package commands

import (
	"errors"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
	"relay/internal/pkg/guard"
)

var ErrRegisterOrderCommandIsNotConstructed = errors.New(
	"RegisterOrderCommand must be created via NewRegisterOrderCommand constructor",
)

// RegisterOrderCommand announces a freshly placed order to the relay.
//
// Example:
//
//	cmd, err := NewRegisterOrderCommand(orderID, customerID, vendorID, time.Now())
//	if err != nil {
//	    return fmt.Errorf("invalid order: %w", err)
//	}
//	o, err := handler.Handle(ctx, cmd)
type RegisterOrderCommand struct { //nolint:recvcheck //using for validation
	orderID    kernel.EntityID
	customerID kernel.EntityID
	vendorID   kernel.EntityID
	placedAt   time.Time

	guard guard.ConstructorGuard
}

func NewRegisterOrderCommand(
	orderID, customerID, vendorID kernel.EntityID,
	placedAt time.Time,
) (RegisterOrderCommand, error) {
	cmd := RegisterOrderCommand{
		placedAt: placedAt,
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		setID(&cmd.orderID, "orderId", orderID),
		setID(&cmd.customerID, "customerId", customerID),
		setID(&cmd.vendorID, "vendorId", vendorID),
	); err != nil {
		return RegisterOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RegisterOrderCommand) Validate() error {
	return c.guard.Validate(ErrRegisterOrderCommandIsNotConstructed)
}

func (c RegisterOrderCommand) OrderID() kernel.EntityID    { return c.orderID }
func (c RegisterOrderCommand) CustomerID() kernel.EntityID { return c.customerID }
func (c RegisterOrderCommand) VendorID() kernel.EntityID   { return c.vendorID }
func (c RegisterOrderCommand) PlacedAt() time.Time         { return c.placedAt }

func setID(dst *kernel.EntityID, paramName string, id kernel.EntityID) error {
	if id.IsZero() {
		return errs.NewValueIsRequiredError(paramName)
	}
	*dst = id
	return nil
}

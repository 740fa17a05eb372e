package commands

import (
	"errors"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/guard"
)

var ErrAssignDriverCommandIsNotConstructed = errors.New(
	"AssignDriverCommand must be created via NewAssignDriverCommand constructor",
)

// AssignDriverCommand attaches a driver to an order. It may be issued again to
// reassign the order while it is not terminal.
type AssignDriverCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.EntityID
	driverID kernel.EntityID

	guard guard.ConstructorGuard
}

func NewAssignDriverCommand(orderID, driverID kernel.EntityID) (AssignDriverCommand, error) {
	cmd := AssignDriverCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		setID(&cmd.orderID, "orderId", orderID),
		setID(&cmd.driverID, "driverId", driverID),
	); err != nil {
		return AssignDriverCommand{}, err
	}

	return cmd, nil
}

func (c AssignDriverCommand) Validate() error {
	return c.guard.Validate(ErrAssignDriverCommandIsNotConstructed)
}

func (c AssignDriverCommand) OrderID() kernel.EntityID  { return c.orderID }
func (c AssignDriverCommand) DriverID() kernel.EntityID { return c.driverID }

package commands

import (
	"errors"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/pkg/guard"
)

var ErrChangeOrderStatusCommandIsNotConstructed = errors.New(
	"ChangeOrderStatusCommand must be created via NewChangeOrderStatusCommand constructor",
)

// ChangeOrderStatusCommand requests a status transition for a live order.
type ChangeOrderStatusCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.EntityID
	status  order.Status
	at      time.Time

	guard guard.ConstructorGuard
}

// NewChangeOrderStatusCommand validates the order id and the target status.
// Whether the transition is legal is decided by the handler.
func NewChangeOrderStatusCommand(
	orderID kernel.EntityID,
	status order.Status,
	at time.Time,
) (ChangeOrderStatusCommand, error) {
	cmd := ChangeOrderStatusCommand{
		at:    at,
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		setID(&cmd.orderID, "orderId", orderID),
		cmd.setStatus(status),
	); err != nil {
		return ChangeOrderStatusCommand{}, err
	}

	return cmd, nil
}

func (c ChangeOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeOrderStatusCommandIsNotConstructed)
}

func (c ChangeOrderStatusCommand) OrderID() kernel.EntityID { return c.orderID }
func (c ChangeOrderStatusCommand) Status() order.Status     { return c.status }
func (c ChangeOrderStatusCommand) At() time.Time            { return c.at }

func (c *ChangeOrderStatusCommand) setStatus(status order.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	c.status = status
	return nil
}

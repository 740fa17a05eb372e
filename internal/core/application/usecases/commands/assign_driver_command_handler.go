package commands

import (
	"context"

	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
)

// AssignDriverCommandHandler records the driver on the cached order.
type AssignDriverCommandHandler struct {
	cache ports.OrderCache
}

func NewAssignDriverCommandHandler(cache ports.OrderCache) AssignDriverCommandHandler {
	return AssignDriverCommandHandler{cache: cache}
}

func (h AssignDriverCommandHandler) Handle(ctx context.Context, command AssignDriverCommand) (*order.Order, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	return h.cache.AssignDriver(ctx, command.OrderID(), command.DriverID())
}

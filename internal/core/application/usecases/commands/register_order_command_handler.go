package commands

import (
	"context"

	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
)

// RegisterOrderCommandHandler inserts a placed order into the cache.
// Registering an order the cache already holds is idempotent.
type RegisterOrderCommandHandler struct {
	cache ports.OrderCache
}

func NewRegisterOrderCommandHandler(cache ports.OrderCache) RegisterOrderCommandHandler {
	return RegisterOrderCommandHandler{cache: cache}
}

// Handle returns the cached order, which is the existing record when the id was
// already known.
func (h RegisterOrderCommandHandler) Handle(_ context.Context, command RegisterOrderCommand) (*order.Order, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	placed, err := order.NewOrder(command.OrderID(), command.CustomerID(), command.VendorID(), command.PlacedAt())
	if err != nil {
		return nil, err
	}

	return h.cache.Register(placed), nil
}

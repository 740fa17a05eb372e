package commands

import (
	"context"

	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
)

// ChangeOrderStatusCommandHandler applies a transition to the cached order.
// When the order leaves out_for_delivery the location tracker forgets it, so no
// further samples are accepted and any pending one is dropped.
//
// Example:
//
//	handler := NewChangeOrderStatusCommandHandler(cache, tracker)
//	o, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrInvalidTransition):
//	    // report to the sender only
//	case errors.Is(err, errs.ErrObjectNotFound):
//	    // unknown order
//	}
type ChangeOrderStatusCommandHandler struct {
	cache   ports.OrderCache
	tracker ports.LocationTracker
}

func NewChangeOrderStatusCommandHandler(
	cache ports.OrderCache,
	tracker ports.LocationTracker,
) ChangeOrderStatusCommandHandler {
	return ChangeOrderStatusCommandHandler{cache: cache, tracker: tracker}
}

func (h ChangeOrderStatusCommandHandler) Handle(
	ctx context.Context,
	command ChangeOrderStatusCommand,
) (*order.Order, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	changed, err := h.cache.Transition(ctx, command.OrderID(), command.Status(), command.At())
	if err != nil {
		return nil, err
	}

	if changed.Status() != order.OutForDelivery && h.tracker != nil {
		h.tracker.Forget(changed.ID())
	}

	return changed, nil
}

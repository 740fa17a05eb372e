package queries

import (
	"context"

	"relay/internal/core/ports"
)

// GetOrderQueryHandler reads an order from the cache, loading it from the system
// of record on a miss, and attaches the last known driver position.
//
// Example:
//
//	handler := NewGetOrderQueryHandler(cache, tracker)
//	query, _ := NewGetOrderQuery(orderID)
//	resp, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // unknown order
//	}
type GetOrderQueryHandler struct {
	cache   ports.OrderCache
	tracker ports.LocationTracker
}

func NewGetOrderQueryHandler(cache ports.OrderCache, tracker ports.LocationTracker) GetOrderQueryHandler {
	return GetOrderQueryHandler{cache: cache, tracker: tracker}
}

func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	o, err := h.cache.Get(ctx, query.OrderID())
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	resp := GetOrderQueryResponse{
		ID:               o.ID().String(),
		Status:           o.Status().String(),
		CustomerID:       o.CustomerID().String(),
		VendorID:         o.VendorID().String(),
		LastTransitionAt: o.LastTransitionAt(),
	}
	if driverID := o.DriverID(); driverID != nil {
		d := driverID.String()
		resp.DriverID = &d
	}

	if h.tracker != nil {
		if sample, ok := h.tracker.LastKnown(o.ID()); ok {
			resp.LastKnown = &LastLocation{
				Lat:        sample.Position().Lat(),
				Lng:        sample.Position().Lng(),
				Sequence:   sample.Sequence(),
				RecordedAt: sample.ReceivedAt(),
			}
		}
	}

	return resp, nil
}

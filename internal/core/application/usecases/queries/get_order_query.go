// Package queries contains read-only operations over the relay's volatile state.
package queries

import (
	"errors"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
	"relay/internal/pkg/guard"
)

var ErrGetOrderQueryIsNotConstructed = errors.New(
	"GetOrderQuery must be created via NewGetOrderQuery constructor",
)

// GetOrderQuery asks for the cached snapshot of one order. Clients use it to
// resync after a reconnect; the REST layer stays authoritative.
type GetOrderQuery struct { //nolint:recvcheck //using for validation
	orderID kernel.EntityID

	guard guard.ConstructorGuard
}

func NewGetOrderQuery(orderID kernel.EntityID) (GetOrderQuery, error) {
	if orderID.IsZero() {
		return GetOrderQuery{}, errs.NewValueIsRequiredError("orderId")
	}
	return GetOrderQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

func (q GetOrderQuery) OrderID() kernel.EntityID { return q.orderID }

// GetOrderQueryResponse is the resync view of an order.
type GetOrderQueryResponse struct {
	ID               string        `json:"orderId"`
	Status           string        `json:"status"`
	CustomerID       string        `json:"customerId"`
	VendorID         string        `json:"vendorId"`
	DriverID         *string       `json:"driverId,omitempty"`
	LastTransitionAt time.Time     `json:"lastTransitionAt"`
	LastKnown        *LastLocation `json:"lastKnownLocation,omitempty"`
}

// LastLocation is the most recent accepted driver position.
type LastLocation struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Sequence   int64     `json:"sequence"`
	RecordedAt time.Time `json:"recordedAt"`
}

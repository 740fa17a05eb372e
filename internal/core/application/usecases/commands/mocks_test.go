package commands_test

import (
	"context"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/location"
	"relay/internal/core/domain/model/order"

	"github.com/stretchr/testify/mock"
)

type MockOrderCache struct{ mock.Mock }

func (m *MockOrderCache) Register(o *order.Order) *order.Order {
	args := m.Called(o)
	return args.Get(0).(*order.Order)
}

func (m *MockOrderCache) Get(ctx context.Context, id kernel.EntityID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderCache) Transition(
	ctx context.Context,
	id kernel.EntityID,
	next order.Status,
	at time.Time,
) (*order.Order, error) {
	args := m.Called(ctx, id, next, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderCache) AssignDriver(ctx context.Context, id, driverID kernel.EntityID) (*order.Order, error) {
	args := m.Called(ctx, id, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderCache) Forget(id kernel.EntityID) {
	m.Called(id)
}

type MockLocationTracker struct{ mock.Mock }

func (m *MockLocationTracker) Forget(orderID kernel.EntityID) {
	m.Called(orderID)
}

func (m *MockLocationTracker) LastKnown(orderID kernel.EntityID) (location.Sample, bool) {
	args := m.Called(orderID)
	return args.Get(0).(location.Sample), args.Bool(1)
}

var now = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func restored(id string, status order.Status) *order.Order {
	o, err := order.RestoreOrder(
		kernel.MustEntityID(id), kernel.MustEntityID("c1"), kernel.MustEntityID("v1"), nil, status, now,
	)
	if err != nil {
		panic(err)
	}
	return o
}

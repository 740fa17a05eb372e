package services

import (
	"context"
	"sync"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
	"relay/internal/pkg/errs"
)

var _ ports.OrderCache = (*OrderStateMachine)(nil)

// OrderStateMachine is the volatile order cache shared by every connection.
// All status changes go through order.Status, so a rejected transition leaves
// the cached status untouched.
//
// Example:
//
//	sm := services.NewOrderStateMachine(reader)
//	sm.Register(placed)
//	if _, err := sm.Transition(ctx, placed.ID(), order.Preparing, time.Now()); err != nil {
//	    // errors.Is(err, order.ErrInvalidTransition)
//	}
type OrderStateMachine struct {
	mu     sync.RWMutex
	orders map[kernel.EntityID]*order.Order
	reader ports.OrderReader
}

// NewOrderStateMachine creates an empty cache. reader may be nil, in which case
// a miss is reported as not found.
func NewOrderStateMachine(reader ports.OrderReader) *OrderStateMachine {
	return &OrderStateMachine{
		orders: make(map[kernel.EntityID]*order.Order),
		reader: reader,
	}
}

func (sm *OrderStateMachine) Register(o *order.Order) *order.Order {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if cached, ok := sm.orders[o.ID()]; ok {
		return cached.Clone()
	}
	sm.orders[o.ID()] = o.Clone()
	return o.Clone()
}

func (sm *OrderStateMachine) Get(ctx context.Context, id kernel.EntityID) (*order.Order, error) {
	if err := sm.load(ctx, id); err != nil {
		return nil, err
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	o, ok := sm.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("orderId", id.String())
	}
	return o.Clone(), nil
}

// Peek reads the cache only. The location aggregator uses it on every sample.
func (sm *OrderStateMachine) Peek(id kernel.EntityID) (*order.Order, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	o, ok := sm.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

func (sm *OrderStateMachine) Transition(
	ctx context.Context,
	id kernel.EntityID,
	next order.Status,
	at time.Time,
) (*order.Order, error) {
	return sm.mutate(ctx, id, func(o *order.Order) error {
		return o.ChangeStatus(next, at)
	})
}

func (sm *OrderStateMachine) AssignDriver(ctx context.Context, id, driverID kernel.EntityID) (*order.Order, error) {
	return sm.mutate(ctx, id, func(o *order.Order) error {
		return o.AssignDriver(driverID)
	})
}

func (sm *OrderStateMachine) Forget(id kernel.EntityID) {
	sm.mu.Lock()
	delete(sm.orders, id)
	sm.mu.Unlock()
}

// EvictTerminal drops delivered and cancelled orders whose last transition
// happened before cutoff, and returns how many were dropped.
func (sm *OrderStateMachine) EvictTerminal(cutoff time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	evicted := 0
	for id, o := range sm.orders {
		if o.Status().IsTerminal() && o.LastTransitionAt().Before(cutoff) {
			delete(sm.orders, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached orders.
func (sm *OrderStateMachine) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.orders)
}

// mutate applies fn to a working copy and stores it only when fn succeeds.
func (sm *OrderStateMachine) mutate(
	ctx context.Context,
	id kernel.EntityID,
	fn func(*order.Order) error,
) (*order.Order, error) {
	if err := sm.load(ctx, id); err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	cached, ok := sm.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("orderId", id.String())
	}

	working := cached.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	sm.orders[id] = working
	return working.Clone(), nil
}

// load fills a cache miss from the reader. The reader runs without the lock; a
// concurrent Register wins over the loaded copy.
func (sm *OrderStateMachine) load(ctx context.Context, id kernel.EntityID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	sm.mu.RLock()
	_, ok := sm.orders[id]
	sm.mu.RUnlock()
	if ok {
		return nil
	}

	if sm.reader == nil {
		return errs.NewObjectNotFoundError("orderId", id.String())
	}

	loaded, err := sm.reader.Get(ctx, id)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	if _, ok = sm.orders[id]; !ok {
		sm.orders[id] = loaded
	}
	sm.mu.Unlock()
	return nil
}

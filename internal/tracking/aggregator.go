// Package tracking implements the location stream aggregator. Driver samples for
// an order are filtered by sequence and coalesced so that consumers see at most
// one position per order per minimum interval, and always the latest one.
package tracking

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/location"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
)

var (
	// ErrStaleLocationSample marks a sample whose sequence is not newer than the
	// last accepted one for the same driver and order.
	ErrStaleLocationSample = errors.New("stale location sample")

	// ErrSampleNotAccepted marks a sample for an order that is unknown, not out
	// for delivery, or assigned to a different driver.
	ErrSampleNotAccepted = errors.New("location sample not accepted")
)

var _ ports.LocationTracker = (*Aggregator)(nil)

// Outcome tells what happened to an accepted sample.
type Outcome int

const (
	// Broadcast means the sample was published immediately.
	Broadcast Outcome = iota + 1
	// Coalesced means the sample replaced the pending one and waits for Flush.
	Coalesced
)

func (o Outcome) String() string {
	switch o {
	case Broadcast:
		return "broadcast"
	case Coalesced:
		return "coalesced"
	}
	return "unknown"
}

// OrderLookup reads the cached order without touching the system of record.
type OrderLookup interface {
	Peek(id kernel.EntityID) (*order.Order, bool)
}

// Publisher receives every sample the aggregator decides to broadcast. It is
// called with the aggregator lock held, so it must not call back into it.
type Publisher interface {
	PublishLocation(sample location.Sample)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(sample location.Sample)

func (f PublisherFunc) PublishLocation(sample location.Sample) { f(sample) }

// Observer counts sample outcomes: broadcast, coalesced, flushed, stale, rejected.
type Observer interface {
	ObserveSample(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSample(string) {}

type stream struct {
	lastSeq       map[kernel.EntityID]int64
	last          location.Sample
	hasLast       bool
	pending       *location.Sample
	lastBroadcast time.Time
	broadcasted   bool
}

// Aggregator keeps per-order stream state. It is safe for concurrent use.
type Aggregator struct {
	mu          sync.Mutex
	streams     map[kernel.EntityID]*stream
	orders      OrderLookup
	publisher   Publisher
	minInterval time.Duration
	observer    Observer
	logger      *slog.Logger
}

func NewAggregator(
	orders OrderLookup,
	publisher Publisher,
	minInterval time.Duration,
	observer Observer,
	logger *slog.Logger,
) *Aggregator {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		streams:     make(map[kernel.EntityID]*stream),
		orders:      orders,
		publisher:   publisher,
		minInterval: minInterval,
		observer:    observer,
		logger:      logger.With("component", "location_stream_aggregator"),
	}
}

// Ingest accepts a driver sample. The sample's receive time is the clock used
// to decide between an immediate broadcast and coalescing.
func (a *Aggregator) Ingest(sample location.Sample) (Outcome, error) {
	if err := sample.Validate(); err != nil {
		return 0, err
	}

	// The order is read under a.mu so that a delivery racing this sample either
	// rejects it or waits in Forget until it is broadcast.
	a.mu.Lock()
	defer a.mu.Unlock()

	o, ok := a.orders.Peek(sample.OrderID())
	if !ok || o.Status() != order.OutForDelivery || !o.HasDriver(sample.DriverID()) {
		a.observer.ObserveSample("rejected")
		return 0, ErrSampleNotAccepted
	}

	s, ok := a.streams[sample.OrderID()]
	if !ok {
		s = &stream{lastSeq: make(map[kernel.EntityID]int64)}
		a.streams[sample.OrderID()] = s
	}

	if seq, seen := s.lastSeq[sample.DriverID()]; seen && sample.Sequence() <= seq {
		a.observer.ObserveSample("stale")
		return 0, ErrStaleLocationSample
	}
	s.lastSeq[sample.DriverID()] = sample.Sequence()
	s.last = sample
	s.hasLast = true

	now := sample.ReceivedAt()
	if !s.broadcasted || now.Sub(s.lastBroadcast) >= a.minInterval {
		a.broadcast(s, sample, now)
		a.observer.ObserveSample("broadcast")
		return Broadcast, nil
	}

	s.pending = &sample
	a.observer.ObserveSample("coalesced")
	return Coalesced, nil
}

// Flush broadcasts every pending sample whose order is due at now and returns
// how many were published.
func (a *Aggregator) Flush(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	flushed := 0
	for _, s := range a.streams {
		if s.pending == nil || now.Sub(s.lastBroadcast) < a.minInterval {
			continue
		}
		a.broadcast(s, *s.pending, now)
		a.observer.ObserveSample("flushed")
		flushed++
	}
	if flushed > 0 {
		a.logger.Debug("flushed coalesced locations", "count", flushed)
	}
	return flushed
}

// Forget drops all state for the order, including a pending sample.
func (a *Aggregator) Forget(orderID kernel.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.streams, orderID)
}

// LastKnown returns the latest accepted sample for the order.
func (a *Aggregator) LastKnown(orderID kernel.EntityID) (location.Sample, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.streams[orderID]
	if !ok || !s.hasLast {
		return location.Sample{}, false
	}
	return s.last, true
}

// Pending reports how many orders have a sample waiting for Flush.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, s := range a.streams {
		if s.pending != nil {
			n++
		}
	}
	return n
}

func (a *Aggregator) broadcast(s *stream, sample location.Sample, now time.Time) {
	s.pending = nil
	s.lastBroadcast = now
	s.broadcasted = true
	if a.publisher != nil {
		a.publisher.PublishLocation(sample)
	}
}

// Package location holds the driver position sample that feeds the location stream.
package location

import (
	"errors"
	"fmt"
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
	"relay/internal/pkg/guard"
)

var ErrSampleIsNotConstructed = errors.New("Sample must be created via NewSample constructor")

// Sample is one GPS fix reported by a driver for an order. Samples are totally
// ordered per (driver, order) by Sequence, which may be a counter or a sampling
// timestamp; the relay only compares it.
type Sample struct {
	driverID   kernel.EntityID
	orderID    kernel.EntityID
	position   kernel.Location
	sequence   int64
	receivedAt time.Time

	guard guard.ConstructorGuard
}

// NewSample validates every field and returns all violations joined.
func NewSample(
	driverID, orderID kernel.EntityID,
	position kernel.Location,
	sequence int64,
	receivedAt time.Time,
) (Sample, error) {
	var seqErr error
	if sequence < 0 {
		seqErr = errs.NewValueIsInvalidErrorWithCause("sequence", fmt.Errorf("%d is negative", sequence))
	}

	if err := errors.Join(
		driverID.Validate(),
		orderID.Validate(),
		position.Validate(),
		seqErr,
	); err != nil {
		return Sample{}, err
	}

	return Sample{
		driverID:   driverID,
		orderID:    orderID,
		position:   position,
		sequence:   sequence,
		receivedAt: receivedAt,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (s Sample) Validate() error {
	return s.guard.Validate(ErrSampleIsNotConstructed)
}

func (s Sample) DriverID() kernel.EntityID { return s.driverID }
func (s Sample) OrderID() kernel.EntityID  { return s.orderID }
func (s Sample) Position() kernel.Location { return s.position }
func (s Sample) Sequence() int64           { return s.sequence }
func (s Sample) ReceivedAt() time.Time     { return s.receivedAt }

// IsNewerThan reports whether s strictly supersedes other.
func (s Sample) IsNewerThan(other Sample) bool {
	return s.sequence > other.sequence
}

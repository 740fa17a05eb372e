package kernel

import (
	"fmt"
	"strings"
	"unicode"

	"relay/internal/pkg/errs"
)

// MaxEntityIDLength bounds identifiers accepted from clients.
const MaxEntityIDLength = 128

// ErrEntityIDIsNotConstructed is returned when validating a zero EntityID.
var ErrEntityIDIsNotConstructed = errs.NewValueIsRequiredError("entity id must be created via NewEntityID")

// EntityID is an opaque identifier issued by the REST system of record.
// The relay never interprets it beyond using it as part of a room key, so it only
// checks that it is non-empty, bounded, and free of ':' and whitespace.
type EntityID struct {
	value string
}

// NewEntityID validates raw and wraps it. paramName is used in the validation error.
func NewEntityID(paramName, raw string) (EntityID, error) {
	if raw == "" {
		return EntityID{}, errs.NewValueIsRequiredError(paramName)
	}
	if len(raw) > MaxEntityIDLength {
		return EntityID{}, errs.NewValueIsOutOfRangeError(paramName+" length", len(raw), 1, MaxEntityIDLength)
	}
	if strings.ContainsRune(raw, ':') || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return EntityID{}, errs.NewValueIsInvalidErrorWithCause(
			paramName, fmt.Errorf("%q contains ':' or whitespace", raw))
	}
	return EntityID{value: raw}, nil
}

// MustEntityID is NewEntityID for literals known to be valid. It panics otherwise.
func MustEntityID(raw string) EntityID {
	id, err := NewEntityID("id", raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (e EntityID) String() string {
	return e.value
}

// IsZero reports whether e is the zero value.
func (e EntityID) IsZero() bool {
	return e.value == ""
}

// IsEqual compares two identifiers.
func (e EntityID) IsEqual(other EntityID) bool {
	return e.value == other.value
}

// Validate fails for the zero value.
func (e EntityID) Validate() error {
	if e.value == "" {
		return ErrEntityIDIsNotConstructed
	}
	return nil
}

// Package guard provides ConstructorGuard, a marker embedded in value objects and
// commands so that zero values built outside their constructors fail validation.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when the caller passes a nil error.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard records whether the owning value went through its constructor.
//
// Example:
//
//	type RoomKey struct {
//	    value string
//	    guard guard.ConstructorGuard
//	}
//
//	func (k RoomKey) Validate() error {
//	    return k.guard.Validate(ErrRoomKeyIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard marked as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard is a zero value.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}

// Package errs holds the typed errors shared by the relay's domain and
// adapters.
//
// Every type pairs with a sentinel and unwraps to it, so callers classify with
// errors.Is and never compare messages:
//   - ValueIsRequiredError unwraps to ErrValueIsRequired
//   - ValueIsInvalidError unwraps to ErrValueIsInvalid
//   - ValueIsOutOfRangeError unwraps to ErrValueIsOutOfRange
//   - ObjectNotFoundError unwraps to ErrObjectNotFound
//   - TransitionIsInvalidError unwraps to ErrTransitionIsInvalid
//   - OperationIsForbiddenError unwraps to ErrOperationIsForbidden
//
// Constructors come in two flavours, with and without a cause. User supplied
// values are flattened onto one line before they reach a message.
package errs

package router

import (
	"errors"

	"relay/internal/auth"
	"relay/internal/core/domain/model/order"
	"relay/internal/hub"
	"relay/internal/pkg/errs"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrRoleNotAllowed = errors.New("role not allowed")
)

// Error codes carried in error frames.
const (
	CodeMalformedEvent    = "malformed_event"
	CodeRoleNotAllowed    = "role_not_allowed"
	CodeInvalidTransition = "invalid_transition"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal"
)

// Code classifies a routing error for clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired), errors.Is(err, errs.ErrValueIsOutOfRange):
		return CodeMalformedEvent
	case errors.Is(err, ErrRoleNotAllowed), errors.Is(err, hub.ErrRoleConflict):
		return CodeRoleNotAllowed
	case errors.Is(err, order.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, errs.ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrAuthDisabled):
		return CodeUnauthorized
	}
	return CodeInternal
}

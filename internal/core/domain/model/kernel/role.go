package kernel

import (
	"fmt"

	"relay/internal/pkg/errs"
)

// Role is the participant kind a connection declares.
type Role int

const (
	// RoleUnknown is the role of a connection that has not joined anything yet.
	RoleUnknown Role = iota
	RoleCustomer
	RoleVendor
	RoleDriver
	RoleAdmin
	// RoleSystem is used for events injected by the REST system of record
	// (HTTP publish endpoint, database notifications). It is never carried by a
	// websocket connection.
	RoleSystem
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:  "unknown",
		RoleCustomer: "customer",
		RoleVendor:   "vendor",
		RoleDriver:   "driver",
		RoleAdmin:    "admin",
		RoleSystem:   "system",
	}
}

// ParseRole converts the wire form of a participant role.
// Only the four participant roles can be parsed; "system" is internal.
func ParseRole(s string) (Role, error) {
	for role, name := range getRoleStrings() {
		if name == s && role != RoleUnknown && role != RoleSystem {
			return role, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a participant role", s))
}

func (r Role) String() string {
	if s, ok := getRoleStrings()[r]; ok {
		return s
	}
	return "unknown"
}

// IsParticipant reports whether r is one of customer, vendor, driver or admin.
func (r Role) IsParticipant() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleDriver || r == RoleAdmin
}

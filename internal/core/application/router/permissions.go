package router

import (
	"slices"

	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
)

func getEmitPermissions() map[event.Type][]kernel.Role {
	return map[event.Type][]kernel.Role{
		event.OrderNew:      {kernel.RoleCustomer, kernel.RoleAdmin, kernel.RoleSystem},
		event.StatusChanged: {kernel.RoleVendor, kernel.RoleDriver, kernel.RoleAdmin, kernel.RoleSystem},
		event.DriverAssign:  {kernel.RoleVendor, kernel.RoleAdmin, kernel.RoleSystem},
		event.LocationInput: {kernel.RoleDriver},
		event.DriverNearby:  {kernel.RoleDriver},
		event.CartUpdate:    {kernel.RoleCustomer},
	}
}

// getJoinRoles maps each join event to the role the joining connection declares.
func getJoinRoles() map[event.Type]kernel.Role {
	return map[event.Type]kernel.Role{
		event.OrderTrack: kernel.RoleCustomer,
		event.VendorJoin: kernel.RoleVendor,
		event.DriverJoin: kernel.RoleDriver,
		event.AdminJoin:  kernel.RoleAdmin,
		event.CartJoin:   kernel.RoleCustomer,
	}
}

// CanEmit reports whether role may emit the event type.
func CanEmit(role kernel.Role, t event.Type) bool {
	return slices.Contains(getEmitPermissions()[t], role)
}

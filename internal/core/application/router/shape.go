package router

import (
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
)

type customerAssignedView struct {
	OrderID string              `json:"orderId"`
	Driver  event.DriverContact `json:"driver"`
}

type customerLocationView struct {
	OrderID  string            `json:"orderId"`
	Location event.Coordinates `json:"location"`
}

// shapeDriverAssigned gives customers only the driver's contact card and hides
// the phone number from vendors. Drivers and admins get the full payload.
func shapeDriverAssigned(p event.DriverAssignedPayload) ShapeFunc {
	return func(role kernel.Role) any {
		switch role {
		case kernel.RoleCustomer:
			return customerAssignedView{OrderID: p.OrderID, Driver: p.Driver}
		case kernel.RoleVendor:
			vendor := p
			vendor.Driver.Phone = ""
			return vendor
		default:
			return p
		}
	}
}

// same hands every role the same payload.
func same(payload any) ShapeFunc {
	return func(kernel.Role) any { return payload }
}

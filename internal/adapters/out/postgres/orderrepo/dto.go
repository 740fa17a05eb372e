// Package orderrepo reads orders from the REST service's database. The relay
// never writes orders; it only fills cache misses and warms the cache on start.
package orderrepo

import (
	"time"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
)

// OrderDTO mirrors the columns of the orders table the relay reads.
type OrderDTO struct {
	ID               string  `gorm:"type:varchar(128);primaryKey"`
	CustomerID       string  `gorm:"type:varchar(128);not null"`
	VendorID         string  `gorm:"type:varchar(128);not null;index"`
	DriverID         *string `gorm:"type:varchar(128);index"`
	Status           string  `gorm:"type:varchar(32);not null;index"`
	LastTransitionAt time.Time
}

func (OrderDTO) TableName() string {
	return "orders"
}

// toDomain rebuilds an order from its row. Rows with unknown statuses or
// malformed identifiers are reported as invalid values.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.NewEntityID("orderId", dto.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.NewEntityID("customerId", dto.CustomerID)
	if err != nil {
		return nil, err
	}
	vendorID, err := kernel.NewEntityID("vendorId", dto.VendorID)
	if err != nil {
		return nil, err
	}

	var driverID *kernel.EntityID
	if dto.DriverID != nil && *dto.DriverID != "" {
		d, driverErr := kernel.NewEntityID("driverId", *dto.DriverID)
		if driverErr != nil {
			return nil, driverErr
		}
		driverID = &d
	}

	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	return order.RestoreOrder(id, customerID, vendorID, driverID, status, dto.LastTransitionAt)
}

package orderrepo

import (
	"context"
	"errors"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/core/ports"
	"relay/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.OrderReader = (*GormOrderRepository)(nil)

// GormOrderRepository implements ports.OrderReader using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Get retrieves an order by ID.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.EntityID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("orderId", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetActive retrieves every order that has not reached a terminal status.
func (r *GormOrderRepository) GetActive(ctx context.Context) ([]*order.Order, error) {
	var dtos []OrderDTO
	terminal := []string{order.Delivered.String(), order.Cancelled.String()}
	if err := r.db.WithContext(ctx).Where("status NOT IN ?", terminal).Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, nil
}

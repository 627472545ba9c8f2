package order

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type Repository interface {
	// Create stores the order and its items together.
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
	// TransitionStatus moves an order from one status to another and reports
	// false when the order was not in the from status.
	TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error)
	// Delete removes the order and its items.
	Delete(ctx context.Context, id int64) error
}

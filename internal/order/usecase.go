package order

import (
	"context"

	invdto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	ProcessOrder(ctx context.Context, id int64) (*model.Order, error)
	CancelOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
}

// ProductFinder resolves order lines. product.UseCase implements it.
type ProductFinder interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// StockRecorder applies the stock-outs of an order as one all-or-nothing set.
type StockRecorder interface {
	RecordMovements(ctx context.Context, inputs []invdto.RecordMovementInput) ([]model.StockTransaction, error)
}

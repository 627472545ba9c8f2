package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	// Transaction recorder
	RecordMovement(ctx context.Context, input *dto.RecordMovementInput) ([]model.StockTransaction, error)
	RecordMovements(ctx context.Context, inputs []dto.RecordMovementInput) ([]model.StockTransaction, error)
	ProcessPending(ctx context.Context, transactionID int64) ([]model.StockTransaction, error)
	CancelPending(ctx context.Context, transactionID int64) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockTransaction, error)

	// Aggregation queries
	ListBatches(ctx context.Context) ([]dto.BatchView, error)
	BatchesForProduct(ctx context.Context, productID int64) ([]dto.BatchView, error)
	ExpiringBatches(ctx context.Context, daysAhead int) ([]dto.BatchView, error)
	LowStock(ctx context.Context, threshold int) ([]model.Product, error)
	Reconcile(ctx context.Context) ([]dto.StockDrift, error)
	DashboardStats(ctx context.Context, threshold, daysAhead int) (*dto.DashboardStats, error)
}

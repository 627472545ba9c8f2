package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository is the storage the batch ledger runs against. Find* methods
// return (nil, nil) when the row does not exist.
type Repository interface {
	// RunInTx runs fn against a repository bound to one storage transaction.
	// Any error returned by fn rolls every write back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	// LockProduct takes a row lock on the product for the rest of the transaction.
	LockProduct(ctx context.Context, productID int64) error

	// Products
	FindProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.Product, error)
	UpdateProductStock(ctx context.Context, productID int64, stock int) error

	// Batches
	CreateBatch(ctx context.Context, batch *model.InventoryBatch) error
	ListBatches(ctx context.Context) ([]model.InventoryBatch, error)
	ListBatchesByProduct(ctx context.Context, productID int64) ([]model.InventoryBatch, error)
	ListExpiringBatches(ctx context.Context, cutoff time.Time) ([]model.InventoryBatch, error)
	UpdateBatchRemaining(ctx context.Context, batchID int64, remaining int) error

	// Transactions
	CreateTransaction(ctx context.Context, t *model.StockTransaction) error
	FindTransaction(ctx context.Context, id int64) (*model.StockTransaction, error)
	ListTransactions(ctx context.Context, filters *dto.MovementFilters) ([]model.StockTransaction, error)
	UpdateTransaction(ctx context.Context, t *model.StockTransaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// Locker serializes ledger mutations per key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher receives one event per stock transaction row written.
type EventPublisher interface {
	PublishMovement(ctx context.Context, event *model.StockMovementEvent) error
}

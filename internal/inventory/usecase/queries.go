package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"go.uber.org/zap"
)

func (uc *inventoryUseCase) ListBatches(ctx context.Context) ([]dto.BatchView, error) {
	batches, err := uc.repo.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	names, err := uc.productNames(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].ProductID != batches[j].ProductID {
			return batches[i].ProductID < batches[j].ProductID
		}
		return fefoLess(&batches[i], &batches[j])
	})
	return uc.views(batches, names), nil
}

// BatchesForProduct returns every batch of the product, depleted ones
// included, in FEFO order.
func (uc *inventoryUseCase) BatchesForProduct(ctx context.Context, productID int64) ([]dto.BatchView, error) {
	product, err := uc.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrProductNotFound, productID)
	}

	batches, err := uc.repo.ListBatchesByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	orderBatches(batches)
	return uc.views(batches, map[int64]string{product.ID: product.Name}), nil
}

// ExpiringBatches lists batches with stock left that expire within
// daysAhead days, soonest first. Already expired batches are included.
func (uc *inventoryUseCase) ExpiringBatches(ctx context.Context, daysAhead int) ([]dto.BatchView, error) {
	if daysAhead < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", model.ErrInvalidQuantity)
	}
	cutoff := uc.now().AddDate(0, 0, daysAhead)

	batches, err := uc.repo.ListExpiringBatches(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	names, err := uc.productNames(ctx)
	if err != nil {
		return nil, err
	}
	orderBatches(batches)
	return uc.views(batches, names), nil
}

func (uc *inventoryUseCase) LowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must not be negative", model.ErrInvalidQuantity)
	}
	return uc.repo.ListLowStock(ctx, threshold)
}

// Reconcile resums the cached stock of every product and reports the ones
// that had drifted from their batches.
func (uc *inventoryUseCase) Reconcile(ctx context.Context) ([]dto.StockDrift, error) {
	products, err := uc.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	drifts := []dto.StockDrift{}
	for _, p := range products {
		err := uc.withProductLocks(ctx, []int64{p.ID}, func(ctx context.Context) error {
			return uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
				product, err := lockedProduct(ctx, repo, p.ID)
				if err != nil {
					return err
				}
				cached := product.CurrentStock
				total, err := uc.ledger.resum(ctx, repo, product)
				if err != nil {
					return err
				}
				if total != cached {
					drifts = append(drifts, dto.StockDrift{
						ProductID:   product.ID,
						ProductName: product.Name,
						CachedStock: cached,
						BatchStock:  total,
					})
				}
				return nil
			})
		})
		if err != nil {
			return drifts, err
		}
	}

	for _, d := range drifts {
		uc.logger.Warn("Corrected stock drift",
			zap.Int64("product_id", d.ProductID),
			zap.Int("cached_stock", d.CachedStock),
			zap.Int("batch_stock", d.BatchStock),
		)
	}
	return drifts, nil
}

const recentActivityLimit = 5

// DashboardStats is a read-only composition of LowStock, ExpiringBatches and
// the newest completed movements.
func (uc *inventoryUseCase) DashboardStats(ctx context.Context, threshold, daysAhead int) (*dto.DashboardStats, error) {
	low, err := uc.LowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	expiring, err := uc.ExpiringBatches(ctx, daysAhead)
	if err != nil {
		return nil, err
	}
	products, err := uc.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	movements, err := uc.repo.ListTransactions(ctx, &dto.MovementFilters{Status: model.StatusCompleted})
	if err != nil {
		return nil, err
	}

	stats := &dto.DashboardStats{
		TotalProducts:   len(products),
		LowStockCount:   len(low),
		ExpiringCount:   len(expiring),
		LowStockItems:   low,
		ExpiringBatches: expiring,
		RecentActivity:  make([]dto.Activity, 0, recentActivityLimit),
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		stats.TotalStock += p.CurrentStock
		names[p.ID] = p.Name
	}
	// movements are newest first
	for _, m := range movements[:min(len(movements), recentActivityLimit)] {
		stats.RecentActivity = append(stats.RecentActivity, dto.Activity{
			ID:          m.ID,
			Type:        m.Type,
			ProductID:   m.ProductID,
			ProductName: names[m.ProductID],
			Quantity:    m.Quantity,
			Reason:      m.Reason,
			Timestamp:   m.Timestamp,
		})
	}
	return stats, nil
}

func (uc *inventoryUseCase) productNames(ctx context.Context) (map[int64]string, error) {
	products, err := uc.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (uc *inventoryUseCase) views(batches []model.InventoryBatch, names map[int64]string) []dto.BatchView {
	now := uc.now()
	views := make([]dto.BatchView, 0, len(batches))
	for _, b := range batches {
		v := dto.BatchView{InventoryBatch: b, ProductName: names[b.ProductID]}
		if b.ExpiryDate != nil {
			days := daysUntilExpiry(*b.ExpiryDate, now)
			v.DaysUntilExpiry = &days
		}
		views = append(views, v)
	}
	return views
}

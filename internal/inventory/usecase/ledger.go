package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ledger owns every write to batches and to the cached product stock.
// Callers hold the product lock and run inside repo's transaction.
type ledger struct {
	now    func() time.Time
	logger logger.ZapLogger
}

type batchSpec struct {
	Quantity    int
	BatchNumber string
	ExpiryDate  *time.Time
	UserID      int64
}

// allocation is the share of a stock-out taken from one batch.
type allocation struct {
	Batch model.InventoryBatch
	Taken int
}

// createBatch adds a batch to product and resums its stock.
func (l *ledger) createBatch(ctx context.Context, repo inventory.Repository, product *model.Product, spec batchSpec) (*model.InventoryBatch, error) {
	if spec.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	now := l.now()
	batchNumber := spec.BatchNumber
	if batchNumber == "" {
		batchNumber = generateBatchNumber(now)
	}

	batch := &model.InventoryBatch{
		ProductID:         product.ID,
		BatchNumber:       batchNumber,
		Quantity:          spec.Quantity,
		RemainingQuantity: spec.Quantity,
		ExpiryDate:        l.expiryFor(product, spec.ExpiryDate, now),
		CreatedAt:         now,
		UserID:            spec.UserID,
	}
	if err := repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	if _, err := l.resum(ctx, repo, product); err != nil {
		return nil, err
	}
	return batch, nil
}

// expiryFor picks the batch expiry: an explicit date wins, otherwise food
// products with a shelf life expire that many days after receipt.
func (l *ledger) expiryFor(product *model.Product, explicit *time.Time, now time.Time) *time.Time {
	if explicit != nil {
		expiry := *explicit
		if expiry.Before(now) {
			l.logger.Warn("Batch received with an expiry date in the past",
				zap.Int64("product_id", product.ID),
				zap.Time("expiry_date", expiry),
			)
		}
		return &expiry
	}
	if product.IsFoodProduct && product.ShelfLife != nil && *product.ShelfLife > 0 {
		expiry := now.AddDate(0, 0, *product.ShelfLife)
		return &expiry
	}
	return nil
}

// consume takes quantity units from product's batches in FEFO order, or from
// target alone when it is set. Nothing is written unless the whole quantity
// can be covered.
func (l *ledger) consume(ctx context.Context, repo inventory.Repository, product *model.Product, quantity int, target *int64) ([]allocation, error) {
	batches, err := repo.ListBatchesByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	allocs, err := planConsumption(product.ID, batches, quantity, target)
	if err != nil {
		return nil, err
	}

	for i := range allocs {
		a := &allocs[i]
		remaining := a.Batch.RemainingQuantity - a.Taken
		if err := repo.UpdateBatchRemaining(ctx, a.Batch.ID, remaining); err != nil {
			return nil, fmt.Errorf("update batch %d: %w", a.Batch.ID, err)
		}
		a.Batch.RemainingQuantity = remaining
	}

	if _, err := l.resum(ctx, repo, product); err != nil {
		return nil, err
	}
	return allocs, nil
}

// resum recomputes the product's cached stock from its batches.
func (l *ledger) resum(ctx context.Context, repo inventory.Repository, product *model.Product) (int, error) {
	batches, err := repo.ListBatchesByProduct(ctx, product.ID)
	if err != nil {
		return 0, fmt.Errorf("list batches: %w", err)
	}
	total := sumRemaining(batches)
	if err := repo.UpdateProductStock(ctx, product.ID, total); err != nil {
		return 0, fmt.Errorf("update product stock: %w", err)
	}
	product.CurrentStock = total
	return total, nil
}

// planConsumption decides which batches cover quantity. It is pure: the
// input slice is left untouched and nothing is persisted.
func planConsumption(productID int64, batches []model.InventoryBatch, quantity int, target *int64) ([]allocation, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	ordered := make([]model.InventoryBatch, len(batches))
	copy(ordered, batches)
	orderBatches(ordered)

	if target != nil {
		for _, b := range ordered {
			if b.ID != *target || b.ProductID != productID || !b.Active() {
				continue
			}
			if quantity > b.RemainingQuantity {
				return nil, &model.InsufficientStockError{
					ProductID: productID,
					BatchID:   target,
					Available: b.RemainingQuantity,
					Requested: quantity,
				}
			}
			return []allocation{{Batch: b, Taken: quantity}}, nil
		}
		return nil, fmt.Errorf("%w: batch %d", model.ErrBatchNotFound, *target)
	}

	available := sumRemaining(ordered)
	if available < quantity {
		return nil, &model.InsufficientStockError{
			ProductID: productID,
			Available: available,
			Requested: quantity,
		}
	}

	var allocs []allocation
	left := quantity
	for _, b := range ordered {
		if left == 0 {
			break
		}
		if !b.Active() {
			continue
		}
		take := min(left, b.RemainingQuantity)
		allocs = append(allocs, allocation{Batch: b, Taken: take})
		left -= take
	}
	return allocs, nil
}

// orderBatches sorts in FEFO order: earliest expiry first, batches without an
// expiry last, ties broken by receipt time and then id.
func orderBatches(batches []model.InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return fefoLess(&batches[i], &batches[j])
	})
}

func fefoLess(a, b *model.InventoryBatch) bool {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sumRemaining(batches []model.InventoryBatch) int {
	total := 0
	for _, b := range batches {
		total += b.RemainingQuantity
	}
	return total
}

// generateBatchNumber returns B<unix millis>-<8 random hex chars>.
func generateBatchNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("B%d-%s", now.UnixMilli(), suffix)
}

// daysUntilExpiry rounds up, so a batch expiring later today reports 1 and
// one that expired earlier today reports 0.
func daysUntilExpiry(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type inventoryUseCase struct {
	repo       inventory.Repository
	locker     inventory.Locker
	publishers []inventory.EventPublisher
	logger     logger.ZapLogger
	ledger     *ledger
	now        func() time.Time
}

type Option func(*inventoryUseCase)

// WithClock replaces time.Now, used for batch receipt and expiry dates.
func WithClock(now func() time.Time) Option {
	return func(uc *inventoryUseCase) {
		uc.now = now
	}
}

// WithPublisher sends a movement event for every transaction row written.
func WithPublisher(p inventory.EventPublisher) Option {
	return func(uc *inventoryUseCase) {
		uc.publishers = append(uc.publishers, p)
	}
}

func NewInventoryUseCase(repo inventory.Repository, locker inventory.Locker, log logger.ZapLogger, opts ...Option) inventory.UseCase {
	uc := &inventoryUseCase{
		repo:   repo,
		locker: locker,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.ledger = &ledger{now: uc.now, logger: log}
	return uc
}

func lockKey(productID int64) string {
	return fmt.Sprintf("lock:inventory:%d", productID)
}

// withProductLocks holds the lock of every product in ids while fn runs.
// Locks are taken in ascending id order.
func (uc *inventoryUseCase) withProductLocks(ctx context.Context, ids []int64, fn func(ctx context.Context) error) error {
	sorted := uniqueSorted(ids)

	var unlocks []func()
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()

	for _, id := range sorted {
		unlock, err := uc.locker.Lock(ctx, lockKey(id))
		if err != nil {
			uc.logger.Warn("Failed to acquire product lock", zap.Int64("product_id", id), zap.Error(err))
			return err
		}
		unlocks = append(unlocks, unlock)
	}
	return fn(ctx)
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validateMovement(input *dto.RecordMovementInput) error {
	if input.Quantity <= 0 {
		return model.ErrInvalidQuantity
	}
	if !input.Type.Valid() {
		return model.ErrInvalidDirection
	}
	switch input.Status {
	case "", model.StatusCompleted, model.StatusPending:
	default:
		return model.ErrInvalidStatus
	}
	return nil
}

// lockedProduct locks and loads the product inside a transaction.
func lockedProduct(ctx context.Context, repo inventory.Repository, productID int64) (*model.Product, error) {
	if err := repo.LockProduct(ctx, productID); err != nil {
		return nil, err
	}
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrProductNotFound, productID)
	}
	return product, nil
}

func (uc *inventoryUseCase) RecordMovement(ctx context.Context, input *dto.RecordMovementInput) ([]model.StockTransaction, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	if input.Status == model.StatusPending {
		return uc.recordPending(ctx, input)
	}

	var rows []model.StockTransaction
	err := uc.withProductLocks(ctx, []int64{input.ProductID}, func(ctx context.Context) error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
			product, err := lockedProduct(ctx, repo, input.ProductID)
			if err != nil {
				return err
			}
			rows, err = uc.apply(ctx, repo, product, input, uuid.NewString(), nil)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Stock movement recorded",
		zap.Int64("product_id", input.ProductID),
		zap.String("type", string(input.Type)),
		zap.Int("quantity", input.Quantity),
		zap.Int("rows", len(rows)),
	)
	uc.publish(ctx, rows)
	return rows, nil
}

// recordPending stores the movement for later processing. Batches and stock
// are not touched.
func (uc *inventoryUseCase) recordPending(ctx context.Context, input *dto.RecordMovementInput) ([]model.StockTransaction, error) {
	row := model.StockTransaction{
		GroupID:   uuid.NewString(),
		ProductID: input.ProductID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Reason:    optionalString(input.Reason),
		UserID:    input.UserID,
		Timestamp: uc.now(),
		Status:    model.StatusPending,
	}
	if input.Type == model.DirectionIn {
		row.BatchNumber = optionalString(input.BatchNumber)
		row.ExpiryDate = input.ExpiryDate
	} else {
		row.BatchID = input.BatchID
	}

	err := uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: %d", model.ErrProductNotFound, input.ProductID)
		}
		return repo.CreateTransaction(ctx, &row)
	})
	if err != nil {
		return nil, err
	}

	rows := []model.StockTransaction{row}
	uc.publish(ctx, rows)
	return rows, nil
}

// RecordMovements applies several completed movements atomically. Stock is
// checked for every item before anything is written, and all shortages are
// reported together.
func (uc *inventoryUseCase) RecordMovements(ctx context.Context, inputs []dto.RecordMovementInput) ([]model.StockTransaction, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(inputs))
	for i := range inputs {
		if err := validateMovement(&inputs[i]); err != nil {
			return nil, err
		}
		if inputs[i].Status == model.StatusPending {
			return nil, fmt.Errorf("%w: pending movements cannot be applied in bulk", model.ErrInvalidStatus)
		}
		ids = append(ids, inputs[i].ProductID)
	}

	var rows []model.StockTransaction
	err := uc.withProductLocks(ctx, ids, func(ctx context.Context) error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
			products := make(map[int64]*model.Product, len(ids))
			for _, id := range uniqueSorted(ids) {
				product, err := lockedProduct(ctx, repo, id)
				if err != nil {
					return err
				}
				products[id] = product
			}

			if err := checkAvailability(ctx, repo, inputs); err != nil {
				return err
			}

			groupID := uuid.NewString()
			written := make([][]model.StockTransaction, len(inputs))
			for _, i := range applyOrder(inputs) {
				out, err := uc.apply(ctx, repo, products[inputs[i].ProductID], &inputs[i], groupID, nil)
				if err != nil {
					return err
				}
				written[i] = out
			}
			for _, out := range written {
				rows = append(rows, out...)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, rows)
	return rows, nil
}

// checkAvailability compares the stock-out demand per product and per
// targeted batch against what the batches hold. Stock-ins in the same request
// count towards untargeted demand of their product.
// applyOrder returns input indexes with stock-ins first, then batch-targeted
// stock-outs, then FEFO stock-outs. checkAvailability validates totals, and
// only this order lets every combination it accepts go through.
func applyOrder(inputs []dto.RecordMovementInput) []int {
	var ins, targeted, fefo []int
	for i, in := range inputs {
		switch {
		case in.Type == model.DirectionIn:
			ins = append(ins, i)
		case in.BatchID != nil:
			targeted = append(targeted, i)
		default:
			fefo = append(fefo, i)
		}
	}
	return append(append(ins, targeted...), fefo...)
}

func checkAvailability(ctx context.Context, repo inventory.Repository, inputs []dto.RecordMovementInput) error {
	incoming := map[int64]int{}
	demand := map[int64]int{}
	batchDemand := map[int64]int{}
	var order []int64
	var batchOrder []int64

	for _, in := range inputs {
		switch {
		case in.Type == model.DirectionIn:
			incoming[in.ProductID] += in.Quantity
		case in.BatchID != nil:
			if _, ok := batchDemand[*in.BatchID]; !ok {
				batchOrder = append(batchOrder, *in.BatchID)
			}
			batchDemand[*in.BatchID] += in.Quantity
		default:
			if _, ok := demand[in.ProductID]; !ok {
				order = append(order, in.ProductID)
			}
			demand[in.ProductID] += in.Quantity
		}
	}

	batchesByID := map[int64]model.InventoryBatch{}
	available := map[int64]int{}
	for _, in := range inputs {
		if _, ok := available[in.ProductID]; ok {
			continue
		}
		batches, err := repo.ListBatchesByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		available[in.ProductID] = sumRemaining(batches)
		for _, b := range batches {
			batchesByID[b.ID] = b
		}
	}

	shortage := &model.StockShortageError{}
	for _, batchID := range batchOrder {
		b, ok := batchesByID[batchID]
		if !ok || !b.Active() {
			return fmt.Errorf("%w: batch %d", model.ErrBatchNotFound, batchID)
		}
		if batchDemand[batchID] > b.RemainingQuantity {
			id := batchID
			shortage.Shortages = append(shortage.Shortages, &model.InsufficientStockError{
				ProductID: b.ProductID,
				BatchID:   &id,
				Available: b.RemainingQuantity,
				Requested: batchDemand[batchID],
			})
		}
		// targeted units are no longer available to untargeted demand
		available[b.ProductID] -= batchDemand[batchID]
	}
	for _, productID := range order {
		have := available[productID] + incoming[productID]
		if demand[productID] > have {
			shortage.Shortages = append(shortage.Shortages, &model.InsufficientStockError{
				ProductID: productID,
				Available: max(have, 0),
				Requested: demand[productID],
			})
		}
	}

	if len(shortage.Shortages) > 0 {
		return shortage
	}
	return nil
}

// apply runs one movement through the ledger and writes its audit rows.
// When pending is set it becomes the first row instead of a new insert.
func (uc *inventoryUseCase) apply(ctx context.Context, repo inventory.Repository, product *model.Product, input *dto.RecordMovementInput, groupID string, pending *model.StockTransaction) ([]model.StockTransaction, error) {
	now := uc.now()
	base := model.StockTransaction{
		GroupID:   groupID,
		ProductID: product.ID,
		Type:      input.Type,
		Reason:    optionalString(input.Reason),
		UserID:    input.UserID,
		Timestamp: now,
		Status:    model.StatusCompleted,
	}

	var rows []model.StockTransaction
	switch input.Type {
	case model.DirectionIn:
		batch, err := uc.ledger.createBatch(ctx, repo, product, batchSpec{
			Quantity:    input.Quantity,
			BatchNumber: input.BatchNumber,
			ExpiryDate:  input.ExpiryDate,
			UserID:      input.UserID,
		})
		if err != nil {
			return nil, err
		}
		row := base
		row.Quantity = input.Quantity
		row.BatchID = &batch.ID
		row.BatchNumber = &batch.BatchNumber
		row.ExpiryDate = batch.ExpiryDate
		rows = append(rows, row)

	case model.DirectionOut:
		allocs, err := uc.ledger.consume(ctx, repo, product, input.Quantity, input.BatchID)
		if err != nil {
			return nil, err
		}
		for _, a := range allocs {
			batch := a.Batch
			row := base
			row.Quantity = a.Taken
			row.BatchID = &batch.ID
			row.BatchNumber = &batch.BatchNumber
			row.ExpiryDate = batch.ExpiryDate
			rows = append(rows, row)
		}

	default:
		return nil, model.ErrInvalidDirection
	}

	for i := range rows {
		if i == 0 && pending != nil {
			rows[i].ID = pending.ID
			rows[i].Timestamp = pending.Timestamp
			rows[i].ProcessedAt = &now
			if err := repo.UpdateTransaction(ctx, &rows[i]); err != nil {
				return nil, fmt.Errorf("complete pending transaction: %w", err)
			}
			continue
		}
		if pending != nil {
			rows[i].ProcessedAt = &now
		}
		if err := repo.CreateTransaction(ctx, &rows[i]); err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
	}
	return rows, nil
}

func (uc *inventoryUseCase) findPending(ctx context.Context, repo inventory.Repository, id int64) (*model.StockTransaction, error) {
	t, err := repo.FindTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrTransactionNotFound, id)
	}
	if t.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: transaction %d is %s", model.ErrNotPending, id, t.Status)
	}
	return t, nil
}

// ProcessPending applies a pending movement. The pending row is completed in
// place; a stock-out that spans batches adds rows with the same group id.
func (uc *inventoryUseCase) ProcessPending(ctx context.Context, transactionID int64) ([]model.StockTransaction, error) {
	t, err := uc.findPending(ctx, uc.repo, transactionID)
	if err != nil {
		return nil, err
	}

	var rows []model.StockTransaction
	err = uc.withProductLocks(ctx, []int64{t.ProductID}, func(ctx context.Context) error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
			product, err := lockedProduct(ctx, repo, t.ProductID)
			if err != nil {
				return err
			}
			// re-read under the lock; it may have been processed or cancelled meanwhile
			cur, err := uc.findPending(ctx, repo, transactionID)
			if err != nil {
				return err
			}
			rows, err = uc.apply(ctx, repo, product, pendingInput(cur), cur.GroupID, cur)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Pending stock movement processed",
		zap.Int64("transaction_id", transactionID),
		zap.Int64("product_id", t.ProductID),
		zap.Int("rows", len(rows)),
	)
	uc.publish(ctx, rows)
	return rows, nil
}

func pendingInput(t *model.StockTransaction) *dto.RecordMovementInput {
	input := &dto.RecordMovementInput{
		ProductID: t.ProductID,
		Type:      t.Type,
		Quantity:  t.Quantity,
		UserID:    t.UserID,
	}
	if t.Reason != nil {
		input.Reason = *t.Reason
	}
	if t.Type == model.DirectionIn {
		if t.BatchNumber != nil {
			input.BatchNumber = *t.BatchNumber
		}
		input.ExpiryDate = t.ExpiryDate
	} else {
		input.BatchID = t.BatchID
	}
	return input
}

// CancelPending removes a pending movement. Completed rows are audit history
// and cannot be cancelled.
func (uc *inventoryUseCase) CancelPending(ctx context.Context, transactionID int64) error {
	t, err := uc.findPending(ctx, uc.repo, transactionID)
	if err != nil {
		return err
	}

	return uc.withProductLocks(ctx, []int64{t.ProductID}, func(ctx context.Context) error {
		return uc.repo.RunInTx(ctx, func(ctx context.Context, repo inventory.Repository) error {
			if _, err := uc.findPending(ctx, repo, transactionID); err != nil {
				return err
			}
			return repo.DeleteTransaction(ctx, transactionID)
		})
	})
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockTransaction, error) {
	if filters == nil {
		filters = &dto.MovementFilters{}
	}
	return uc.repo.ListTransactions(ctx, filters)
}

// publish is best effort: the movement is already committed.
func (uc *inventoryUseCase) publish(ctx context.Context, rows []model.StockTransaction) {
	for _, p := range uc.publishers {
		for i := range rows {
			if err := p.PublishMovement(ctx, model.NewMovementEvent(&rows[i])); err != nil {
				uc.logger.Error("Failed to publish stock movement event",
					zap.Int64("transaction_id", rows[i].ID),
					zap.Error(err),
				)
			}
		}
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

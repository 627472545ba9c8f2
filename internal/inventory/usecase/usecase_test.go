package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/lock"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.StockMovementEvent
}

func (p *recordingPublisher) PublishMovement(ctx context.Context, e *model.StockMovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	repo      *repository.MemoryRepository
	uc        *inventoryUseCase
	publisher *recordingPublisher
	mu        sync.Mutex
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      repository.NewMemoryRepository(),
		publisher: &recordingPublisher{},
		now:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uc = NewInventoryUseCase(f.repo, lock.NewLocal(), logger.NewNop(),
		WithClock(f.clock),
		WithPublisher(f.publisher),
	).(*inventoryUseCase)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) product(name string, shelfLife *int) *model.Product {
	return f.repo.AddProduct(model.Product{
		Name:          name,
		SKU:           name + "-SKU",
		IsFoodProduct: shelfLife != nil,
		ShelfLife:     shelfLife,
	})
}

func (f *fixture) stockIn(t *testing.T, productID int64, qty int, expiry *time.Time) model.StockTransaction {
	t.Helper()
	rows, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID:  productID,
		Type:       model.DirectionIn,
		Quantity:   qty,
		ExpiryDate: expiry,
		UserID:     1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	f.advance(time.Minute)
	return rows[0]
}

func (f *fixture) stock(t *testing.T, productID int64) int {
	t.Helper()
	p, err := f.repo.FindProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.CurrentStock
}

func (f *fixture) transactions(t *testing.T) []model.StockTransaction {
	t.Helper()
	rows, err := f.repo.ListTransactions(context.Background(), &dto.MovementFilters{})
	require.NoError(t, err)
	return rows
}

func days(n int) *int { return &n }

func TestStockInUsesShelfLife(t *testing.T) {
	f := newFixture(t)
	milk := f.product("Milk", days(7))
	start := f.clock()

	row := f.stockIn(t, milk.ID, 75, nil)

	require.NotNil(t, row.ExpiryDate)
	assert.True(t, row.ExpiryDate.Equal(start.AddDate(0, 0, 7)))
	assert.Equal(t, model.StatusCompleted, row.Status)
	assert.Equal(t, 75, row.Quantity)
	require.NotNil(t, row.BatchID)
	require.NotNil(t, row.BatchNumber)
	assert.Regexp(t, `^B\d+-[0-9A-F]{8}$`, *row.BatchNumber)
	assert.Equal(t, 75, f.stock(t, milk.ID))

	batches, err := f.repo.ListBatchesByProduct(context.Background(), milk.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 75, batches[0].RemainingQuantity)
	assert.Equal(t, *row.BatchID, batches[0].ID)
}

func TestStockInExplicitExpiryAndBatchNumber(t *testing.T) {
	f := newFixture(t)
	milk := f.product("Milk", days(7))
	past := f.clock().AddDate(0, 0, -3)

	rows, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID:   milk.ID,
		Type:        model.DirectionIn,
		Quantity:    10,
		BatchNumber: "LOT-42",
		ExpiryDate:  &past,
	})
	require.NoError(t, err)

	assert.Equal(t, "LOT-42", *rows[0].BatchNumber)
	assert.True(t, rows[0].ExpiryDate.Equal(past))
}

func TestStockInNonFoodHasNoExpiry(t *testing.T) {
	f := newFixture(t)
	bags := f.product("Bags", nil)

	row := f.stockIn(t, bags.ID, 5, nil)

	assert.Nil(t, row.ExpiryDate)
}

func TestStockOutSplitsAcrossBatches(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	start := f.clock()
	a := f.stockIn(t, rice.ID, 5, timePtr(start.AddDate(0, 0, 5)))
	b := f.stockIn(t, rice.ID, 20, timePtr(start.AddDate(0, 0, 10)))

	rows, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  12,
		Reason:    "Sale",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, *a.BatchID, *rows[0].BatchID)
	assert.Equal(t, 5, rows[0].Quantity)
	assert.Equal(t, *b.BatchID, *rows[1].BatchID)
	assert.Equal(t, 7, rows[1].Quantity)
	assert.Equal(t, rows[0].GroupID, rows[1].GroupID)
	assert.NotEmpty(t, rows[0].GroupID)
	assert.Equal(t, "Sale", *rows[1].Reason)

	batches, err := f.repo.ListBatchesByProduct(context.Background(), rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, batches[0].RemainingQuantity)
	assert.Equal(t, 13, batches[1].RemainingQuantity)
	assert.Equal(t, 13, f.stock(t, rice.ID))
}

func TestStockOutInsufficientChangesNothing(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	f.stockIn(t, rice.ID, 4, nil)
	f.stockIn(t, rice.ID, 6, nil)
	before := f.transactions(t)

	_, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  11,
	})

	var insufficient *model.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 10, insufficient.Available)
	assert.Equal(t, 11, insufficient.Requested)
	assert.Equal(t, 10, f.stock(t, rice.ID))
	assert.Len(t, f.transactions(t), len(before))

	batches, err := f.repo.ListBatchesByProduct(context.Background(), rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, batches[0].RemainingQuantity)
	assert.Equal(t, 6, batches[1].RemainingQuantity)
}

func TestStockOutWithoutBatches(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)

	_, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  1,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
}

func TestTargetedStockOut(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	start := f.clock()
	f.stockIn(t, rice.ID, 5, timePtr(start.AddDate(0, 0, 1)))
	later := f.stockIn(t, rice.ID, 8, timePtr(start.AddDate(0, 0, 9)))

	rows, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  3,
		BatchID:   later.BatchID,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, *later.BatchID, *rows[0].BatchID)
	assert.Equal(t, 10, f.stock(t, rice.ID))

	_, err = f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  6,
		BatchID:   later.BatchID,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
}

func TestRecordMovementValidation(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)

	testCases := []struct {
		name  string
		input dto.RecordMovementInput
		want  error
	}{
		{"unknown product", dto.RecordMovementInput{ProductID: 999, Type: model.DirectionIn, Quantity: 1}, model.ErrProductNotFound},
		{"zero quantity", dto.RecordMovementInput{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 0}, model.ErrInvalidQuantity},
		{"negative quantity", dto.RecordMovementInput{ProductID: rice.ID, Type: model.DirectionOut, Quantity: -3}, model.ErrInvalidQuantity},
		{"bad direction", dto.RecordMovementInput{ProductID: rice.ID, Type: "sideways", Quantity: 1}, model.ErrInvalidDirection},
		{"bad status", dto.RecordMovementInput{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 1, Status: "done"}, model.ErrInvalidStatus},
		{"unknown product pending", dto.RecordMovementInput{ProductID: 999, Type: model.DirectionIn, Quantity: 1, Status: model.StatusPending}, model.ErrProductNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.RecordMovement(context.Background(), &tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.transactions(t))
}

func TestPendingStockInLifecycle(t *testing.T) {
	f := newFixture(t)
	milk := f.product("Milk", days(7))
	ctx := context.Background()

	rows, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID:   milk.ID,
		Type:        model.DirectionIn,
		Quantity:    30,
		BatchNumber: "DELIVERY-7",
		Status:      model.StatusPending,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	pending := rows[0]
	assert.Equal(t, model.StatusPending, pending.Status)
	assert.Nil(t, pending.BatchID)
	assert.Equal(t, 0, f.stock(t, milk.ID))

	batches, _ := f.repo.ListBatchesByProduct(ctx, milk.ID)
	assert.Empty(t, batches)

	f.advance(time.Hour)
	processed, err := f.uc.ProcessPending(ctx, pending.ID)
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, pending.ID, processed[0].ID)
	assert.Equal(t, pending.GroupID, processed[0].GroupID)
	assert.Equal(t, model.StatusCompleted, processed[0].Status)
	require.NotNil(t, processed[0].ProcessedAt)
	assert.True(t, processed[0].ProcessedAt.Equal(f.clock()))
	assert.Equal(t, "DELIVERY-7", *processed[0].BatchNumber)
	assert.Equal(t, 30, f.stock(t, milk.ID))

	// one audit row per batch mutation, no duplicate
	all := f.transactions(t)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusCompleted, all[0].Status)

	_, err = f.uc.ProcessPending(ctx, pending.ID)
	assert.ErrorIs(t, err, model.ErrNotPending)
	assert.ErrorIs(t, f.uc.CancelPending(ctx, pending.ID), model.ErrNotPending)
	assert.Equal(t, 30, f.stock(t, milk.ID))
}

func TestPendingStockOutSplitKeepsGroup(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	ctx := context.Background()
	f.stockIn(t, rice.ID, 5, nil)
	f.stockIn(t, rice.ID, 20, nil)

	rows, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  12,
		Status:    model.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, f.stock(t, rice.ID))

	processed, err := f.uc.ProcessPending(ctx, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, processed, 2)
	assert.Equal(t, rows[0].ID, processed[0].ID)
	assert.NotEqual(t, rows[0].ID, processed[1].ID)
	assert.Equal(t, rows[0].GroupID, processed[1].GroupID)
	assert.Equal(t, 5, processed[0].Quantity)
	assert.Equal(t, 7, processed[1].Quantity)
	assert.NotNil(t, processed[1].ProcessedAt)
	assert.Equal(t, 13, f.stock(t, rice.ID))

	outs, err := f.uc.ListMovements(ctx, &dto.MovementFilters{ProductID: rice.ID, Type: model.DirectionOut})
	require.NoError(t, err)
	total := 0
	for _, r := range outs {
		total += r.Quantity
	}
	assert.Equal(t, 12, total)
}

func TestPendingStockOutIgnoresExpiry(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	ctx := context.Background()
	expiry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID:  rice.ID,
		Type:       model.DirectionOut,
		Quantity:   1,
		ExpiryDate: &expiry,
		Status:     model.StatusPending,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ExpiryDate)

	stored, err := f.repo.FindTransaction(ctx, rows[0].ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.ExpiryDate)
}

func TestProcessPendingInsufficientStaysPending(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	ctx := context.Background()
	f.stockIn(t, rice.ID, 3, nil)

	rows, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  5,
		Status:    model.StatusPending,
	})
	require.NoError(t, err)

	_, err = f.uc.ProcessPending(ctx, rows[0].ID)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	row, err := f.repo.FindTransaction(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, row.Status)
	assert.Equal(t, 3, f.stock(t, rice.ID))
}

func TestCancelPending(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	ctx := context.Background()

	rows, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionIn,
		Quantity:  5,
		Status:    model.StatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, f.uc.CancelPending(ctx, rows[0].ID))
	assert.Empty(t, f.transactions(t))
	assert.ErrorIs(t, f.uc.CancelPending(ctx, rows[0].ID), model.ErrTransactionNotFound)

	_, err = f.uc.ProcessPending(ctx, 12345)
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestRecordMovementsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	milk := f.product("Milk", days(7))
	eggs := f.product("Eggs", days(21))
	f.stockIn(t, rice.ID, 10, nil)
	f.stockIn(t, milk.ID, 3, nil)
	before := len(f.transactions(t))

	_, err := f.uc.RecordMovements(ctx, []dto.RecordMovementInput{
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 5},
		{ProductID: milk.ID, Type: model.DirectionOut, Quantity: 2},
		{ProductID: milk.ID, Type: model.DirectionOut, Quantity: 2},
		{ProductID: eggs.ID, Type: model.DirectionOut, Quantity: 1},
	})

	var shortage *model.StockShortageError
	require.ErrorAs(t, err, &shortage)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	require.Len(t, shortage.Shortages, 2)
	assert.Equal(t, milk.ID, shortage.Shortages[0].ProductID)
	assert.Equal(t, 3, shortage.Shortages[0].Available)
	assert.Equal(t, 4, shortage.Shortages[0].Requested)
	assert.Equal(t, eggs.ID, shortage.Shortages[1].ProductID)
	assert.Equal(t, 0, shortage.Shortages[1].Available)

	assert.Equal(t, 10, f.stock(t, rice.ID))
	assert.Equal(t, 3, f.stock(t, milk.ID))
	assert.Len(t, f.transactions(t), before)
}

func TestRecordMovementsApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	milk := f.product("Milk", days(7))
	f.stockIn(t, rice.ID, 10, nil)
	f.stockIn(t, milk.ID, 3, nil)

	rows, err := f.uc.RecordMovements(ctx, []dto.RecordMovementInput{
		{ProductID: milk.ID, Type: model.DirectionOut, Quantity: 3, Reason: "Order ORD-1"},
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 4, Reason: "Order ORD-1"},
		{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows[1:] {
		assert.Equal(t, rows[0].GroupID, r.GroupID)
	}
	assert.Equal(t, 0, f.stock(t, milk.ID))
	assert.Equal(t, 8, f.stock(t, rice.ID))
}

func TestRecordMovementsCountsIncomingStock(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)

	_, err := f.uc.RecordMovements(context.Background(), []dto.RecordMovementInput{
		{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 5},
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, rice.ID))
}

func TestRecordMovementsTargetedBeforeFEFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	soon := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	a := f.stockIn(t, rice.ID, 5, &soon)
	b := f.stockIn(t, rice.ID, 10, nil)

	rows, err := f.uc.RecordMovements(ctx, []dto.RecordMovementInput{
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 5},
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 5, BatchID: a.BatchID},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// rows come back in input order
	assert.Equal(t, *b.BatchID, *rows[0].BatchID)
	assert.Equal(t, *a.BatchID, *rows[1].BatchID)
	assert.Equal(t, 5, f.stock(t, rice.ID))

	batches, err := f.uc.BatchesForProduct(ctx, rice.ID)
	require.NoError(t, err)
	for _, batch := range batches {
		switch batch.ID {
		case *a.BatchID:
			assert.Equal(t, 0, batch.RemainingQuantity)
		case *b.BatchID:
			assert.Equal(t, 5, batch.RemainingQuantity)
		}
	}
}

func TestRecordMovementsStockInBeforeStockOut(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	f.stockIn(t, rice.ID, 10, nil)

	rows, err := f.uc.RecordMovements(context.Background(), []dto.RecordMovementInput{
		{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 20},
		{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 10},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.DirectionOut, rows[0].Type)
	assert.Equal(t, model.DirectionOut, rows[1].Type)
	assert.Equal(t, model.DirectionIn, rows[2].Type)
	assert.Equal(t, 0, f.stock(t, rice.ID))
}

func TestRecordMovementsRejectsPending(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)

	_, err := f.uc.RecordMovements(context.Background(), []dto.RecordMovementInput{
		{ProductID: rice.ID, Type: model.DirectionIn, Quantity: 5, Status: model.StatusPending},
	})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}

func TestConcurrentStockOutsNeverOverConsume(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	f.stockIn(t, rice.ID, 10, nil)
	f.stockIn(t, rice.ID, 20, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
				ProductID: rice.ID,
				Type:      model.DirectionOut,
				Quantity:  1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, model.ErrInsufficientStock)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, succeeded)
	assert.Equal(t, 20, rejected)
	assert.Equal(t, 0, f.stock(t, rice.ID))
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	milk := f.product("Milk", days(7))
	f.stockIn(t, rice.ID, 10, nil)
	f.stockIn(t, milk.ID, 4, nil)
	require.NoError(t, f.repo.UpdateProductStock(ctx, rice.ID, 99))

	drifts, err := f.uc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, rice.ID, drifts[0].ProductID)
	assert.Equal(t, 99, drifts[0].CachedStock)
	assert.Equal(t, 10, drifts[0].BatchStock)
	assert.Equal(t, 10, f.stock(t, rice.ID))

	drifts, err = f.uc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestPublishesOneEventPerRow(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	f.stockIn(t, rice.ID, 5, nil)
	f.stockIn(t, rice.ID, 5, nil)

	_, err := f.uc.RecordMovement(context.Background(), &dto.RecordMovementInput{
		ProductID: rice.ID,
		Type:      model.DirectionOut,
		Quantity:  7,
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 4)
	last := f.publisher.events[3]
	assert.Equal(t, model.EventMovementRecorded, last.EventType)
	assert.Equal(t, model.DirectionOut, last.Type)
	assert.Equal(t, 2, last.Quantity)
	assert.Equal(t, f.publisher.events[2].GroupID, last.GroupID)
}

func timePtr(t time.Time) *time.Time { return &t }

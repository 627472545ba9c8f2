package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiringBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.product("Milk", days(7))
	rice := f.product("Rice", nil)
	start := f.clock()

	// milk expires in 7 days by shelf life; rice has one batch outside the
	// window, one inside and one without expiry
	f.stockIn(t, milk.ID, 10, nil)
	f.stockIn(t, rice.ID, 10, timePtr(start.AddDate(0, 0, 45)))
	f.stockIn(t, rice.ID, 10, timePtr(start.AddDate(0, 0, 2)))
	f.stockIn(t, rice.ID, 10, nil)
	emptied := f.stockIn(t, milk.ID, 5, timePtr(start.AddDate(0, 0, 1)))
	_, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID: milk.ID, Type: model.DirectionOut, Quantity: 5, BatchID: emptied.BatchID,
	})
	require.NoError(t, err)

	views, err := f.uc.ExpiringBatches(ctx, 30)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "Rice", views[0].ProductName)
	assert.Equal(t, 2, *views[0].DaysUntilExpiry)
	assert.Equal(t, "Milk", views[1].ProductName)
	// clock moved a few minutes since the batch was received
	assert.Equal(t, 7, *views[1].DaysUntilExpiry)

	views, err = f.uc.ExpiringBatches(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = f.uc.ExpiringBatches(ctx, -1)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestExpiringBatchesIncludesExpired(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	f.stockIn(t, rice.ID, 3, timePtr(f.clock().AddDate(0, 0, -2)))

	views, err := f.uc.ExpiringBatches(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, -2, *views[0].DaysUntilExpiry)
}

func TestLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	milk := f.product("Milk", days(7))
	f.stockIn(t, rice.ID, 150, nil)
	f.stockIn(t, milk.ID, 50, nil)

	products, err := f.uc.LowStock(ctx, 50)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, milk.ID, products[0].ID)

	products, err = f.uc.LowStock(ctx, 49)
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = f.uc.LowStock(ctx, -1)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestBatchesForProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.product("Rice", nil)
	start := f.clock()
	late := f.stockIn(t, rice.ID, 4, timePtr(start.AddDate(0, 0, 20)))
	none := f.stockIn(t, rice.ID, 4, nil)
	early := f.stockIn(t, rice.ID, 4, timePtr(start.AddDate(0, 0, 3)))
	_, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{ProductID: rice.ID, Type: model.DirectionOut, Quantity: 4})
	require.NoError(t, err)

	views, err := f.uc.BatchesForProduct(ctx, rice.ID)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, *early.BatchID, views[0].ID)
	assert.Equal(t, 0, views[0].RemainingQuantity, "depleted batches are listed")
	assert.Equal(t, *late.BatchID, views[1].ID)
	assert.Equal(t, *none.BatchID, views[2].ID)
	assert.Nil(t, views[2].DaysUntilExpiry)
	assert.Equal(t, "Rice", views[0].ProductName)

	_, err = f.uc.BatchesForProduct(ctx, 404)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestListBatches(t *testing.T) {
	f := newFixture(t)
	rice := f.product("Rice", nil)
	milk := f.product("Milk", days(7))
	f.stockIn(t, milk.ID, 1, nil)
	f.stockIn(t, rice.ID, 1, nil)
	f.advance(24 * time.Hour)

	views, err := f.uc.ListBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Rice", views[0].ProductName)
	assert.Equal(t, "Milk", views[1].ProductName)
	assert.Equal(t, 6, *views[1].DaysUntilExpiry)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.product("Milk", days(7))
	rice := f.product("Rice", nil)
	f.product("Eggs", days(21))

	f.stockIn(t, milk.ID, 4, nil)
	for i := 0; i < 6; i++ {
		f.stockIn(t, rice.ID, 10, nil)
	}
	_, err := f.uc.RecordMovement(ctx, &dto.RecordMovementInput{
		ProductID: rice.ID, Type: model.DirectionOut, Quantity: 5, Status: model.StatusPending,
	})
	require.NoError(t, err)

	stats, err := f.uc.DashboardStats(ctx, 10, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 64, stats.TotalStock)
	// milk with 4 units and eggs with none
	assert.Equal(t, 2, stats.LowStockCount)
	assert.Len(t, stats.LowStockItems, 2)
	assert.Equal(t, 1, stats.ExpiringCount)
	assert.Equal(t, "Milk", stats.ExpiringBatches[0].ProductName)

	// pending rows are not activity; the newest five stock-ins are
	require.Len(t, stats.RecentActivity, 5)
	for _, a := range stats.RecentActivity {
		assert.Equal(t, "Rice", a.ProductName)
		assert.Equal(t, model.DirectionIn, a.Type)
	}
	assert.True(t, stats.RecentActivity[0].Timestamp.After(stats.RecentActivity[4].Timestamp))

	_, err = f.uc.DashboardStats(ctx, -1, 30)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type MovementFilters struct {
	ProductID int64
	Type      model.Direction
	Status    model.TransactionStatus
}

// BatchView is a batch annotated for display.
type BatchView struct {
	model.InventoryBatch
	ProductName     string `json:"productName"`
	DaysUntilExpiry *int   `json:"daysUntilExpiry"` // nil when the batch has no expiry
}

// StockDrift reports a product whose cached stock disagreed with its batches.
type StockDrift struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	CachedStock int    `json:"cachedStock"`
	BatchStock  int    `json:"batchStock"`
}

// DashboardStats summarizes the store for the dashboard.
type DashboardStats struct {
	TotalProducts   int             `json:"totalProducts"`
	TotalStock      int             `json:"totalStock"`
	LowStockCount   int             `json:"lowStockCount"`
	ExpiringCount   int             `json:"expiringCount"`
	LowStockItems   []model.Product `json:"lowStockItems"`
	ExpiringBatches []BatchView     `json:"expiringBatches"`
	RecentActivity  []Activity      `json:"recentActivity"`
}

// Activity is one recent stock movement, named for display.
type Activity struct {
	ID          int64           `json:"id"`
	Type        model.Direction `json:"type"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Reason      *string         `json:"reason"`
	Timestamp   time.Time       `json:"timestamp"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	SKU           string          `db:"sku" json:"sku"`
	Description   *string         `db:"description" json:"description"`
	CategoryID    int64           `db:"category_id" json:"categoryId"`
	Price         decimal.Decimal `db:"price" json:"price"`
	CostPrice     decimal.Decimal `db:"cost_price" json:"costPrice"`
	MinStockLevel int             `db:"min_stock_level" json:"minStockLevel"`
	ImageURL      *string         `db:"image_url" json:"imageUrl"`
	IsFoodProduct bool            `db:"is_food_product" json:"isFoodProduct"`
	ShelfLife     *int            `db:"shelf_life_days" json:"shelfLife"` // days
	CurrentStock  int             `db:"current_stock" json:"currentStock"` // cache of Σ batch remaining
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

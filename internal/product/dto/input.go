package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	Name          string
	SKU           string
	Description   string
	CategoryID    int64
	Price         decimal.Decimal
	CostPrice     decimal.Decimal
	MinStockLevel int
	ImageURL      string
	IsFoodProduct bool
	ShelfLife     *int
	// InitialStock is received as a first batch when positive.
	InitialStock int
	UserID       int64
}

// UpdateProductInput replaces every catalog field. Stock is owned by the
// inventory ledger and cannot be set here.
type UpdateProductInput struct {
	ID            int64
	Name          string
	SKU           string
	Description   string
	CategoryID    int64
	Price         decimal.Decimal
	CostPrice     decimal.Decimal
	MinStockLevel int
	ImageURL      string
	IsFoodProduct bool
	ShelfLife     *int
}

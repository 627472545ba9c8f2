package dto

import (
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	ProductID int64
	Quantity  int
	// UnitPrice defaults to the product's current price.
	UnitPrice *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerName    string
	CustomerContact string
	Notes           string
	// Status is pending (default) or completed.
	Status model.OrderStatus
	Items  []OrderItemInput
	UserID int64
}

type OrderFilters struct {
	Status model.OrderStatus
}

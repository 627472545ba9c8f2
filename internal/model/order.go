package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"orderNumber"`
	CustomerName    *string         `db:"customer_name" json:"customerName"`
	CustomerContact *string         `db:"customer_contact" json:"customerContact"`
	Status          OrderStatus     `db:"status" json:"status"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	OrderDate       time.Time       `db:"order_date" json:"orderDate"`
	Notes           *string         `db:"notes" json:"notes"`
	UserID          int64           `db:"user_id" json:"userId"`
	Items           []OrderItem     `db:"-" json:"orderItems"`
}

type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"orderId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
}

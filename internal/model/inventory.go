package model

import "time"

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

// InventoryBatch is a quantity of a product received at one time. Batches are
// append-only: RemainingQuantity goes down on stock-out, rows are never deleted.
type InventoryBatch struct {
	ID                int64      `db:"id" json:"id"`
	ProductID         int64      `db:"product_id" json:"productId"`
	BatchNumber       string     `db:"batch_number" json:"batchNumber"`
	Quantity          int        `db:"quantity" json:"quantity"`
	RemainingQuantity int        `db:"remaining_quantity" json:"remainingQuantity"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiryDate"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UserID            int64      `db:"user_id" json:"userId"`
}

func (b *InventoryBatch) Active() bool {
	return b.RemainingQuantity > 0
}

// StockTransaction is one audit row of a stock movement. A stock-out spanning
// several batches produces one row per batch, all sharing GroupID.
type StockTransaction struct {
	ID          int64             `db:"id" json:"id"`
	GroupID     string            `db:"group_id" json:"groupId"`
	ProductID   int64             `db:"product_id" json:"productId"`
	Type        Direction         `db:"type" json:"type"`
	Quantity    int               `db:"quantity" json:"quantity"`
	Reason      *string           `db:"reason" json:"reason"`
	UserID      int64             `db:"user_id" json:"userId"`
	Timestamp   time.Time         `db:"timestamp" json:"timestamp"`
	BatchID     *int64            `db:"batch_id" json:"batchId"`
	BatchNumber *string           `db:"batch_number" json:"batchNumber"`
	ExpiryDate  *time.Time        `db:"expiry_date" json:"expiryDate"`
	Status      TransactionStatus `db:"status" json:"status"`
	ProcessedAt *time.Time        `db:"processed_at" json:"processedAt"`
}

const EventMovementRecorded = "stock.movement.recorded"

// StockMovementEvent is published for every stock transaction row written.
type StockMovementEvent struct {
	EventType     string            `json:"event_type"`
	TransactionID int64             `json:"transaction_id"`
	GroupID       string            `json:"group_id"`
	ProductID     int64             `json:"product_id"`
	Type          Direction         `json:"type"`
	Quantity      int               `json:"quantity"`
	BatchID       *int64            `json:"batch_id,omitempty"`
	BatchNumber   *string           `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time        `json:"expiry_date,omitempty"`
	Status        TransactionStatus `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
}

func NewMovementEvent(t *StockTransaction) *StockMovementEvent {
	return &StockMovementEvent{
		EventType:     EventMovementRecorded,
		TransactionID: t.ID,
		GroupID:       t.GroupID,
		ProductID:     t.ProductID,
		Type:          t.Type,
		Quantity:      t.Quantity,
		BatchID:       t.BatchID,
		BatchNumber:   t.BatchNumber,
		ExpiryDate:    t.ExpiryDate,
		Status:        t.Status,
		Timestamp:     t.Timestamp,
	}
}

package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type RecordMovementInput struct {
	ProductID   int64
	Type        model.Direction
	Quantity    int
	Reason      string
	BatchNumber string     // stock-in only; generated when empty
	ExpiryDate  *time.Time // stock-in only; overrides the shelf-life date
	BatchID     *int64     // stock-out only; take everything from this batch
	UserID      int64
	Status      model.TransactionStatus // defaults to completed
}

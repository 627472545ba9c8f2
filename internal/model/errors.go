package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryExists      = errors.New("category with this name already exists")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidDirection    = errors.New("type must be 'in' or 'out'")
	ErrInvalidStatus       = errors.New("status must be 'pending' or 'completed'")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrBatchNotFound       = errors.New("batch not found or has no remaining stock")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotPending          = errors.New("only pending transactions can be processed or canceled")
	ErrSKUAlreadyExists    = errors.New("product with this SKU already exists")
	ErrProductInUse        = errors.New("product has inventory batches and cannot be deleted")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPending     = errors.New("only pending orders can be processed or canceled")
	ErrEmptyOrder          = errors.New("order items are required")
	ErrInvalidInput        = errors.New("invalid input")

	// ErrBusy is returned when a product lock cannot be taken in time.
	ErrBusy = errors.New("system busy, please try again later (lock)")
)

// InsufficientStockError carries the amounts behind an ErrInsufficientStock.
// BatchID is set when the request targeted a single batch.
type InsufficientStockError struct {
	ProductID int64  `json:"productId"`
	BatchID   *int64 `json:"batchId,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	if e.BatchID != nil {
		return fmt.Sprintf("insufficient stock in batch %d. Available: %d, Requested: %d", *e.BatchID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %d. Available: %d, Requested: %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockShortageError lists every short product of a multi-item request.
type StockShortageError struct {
	Shortages []*InsufficientStockError
}

func (e *StockShortageError) Error() string {
	msgs := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		msgs[i] = s.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *StockShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}


package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// MemoryRepository keeps the ledger in process. Transactions are serialized
// and work on a private copy of the data that replaces the committed copy only
// when the callback succeeds, so readers outside RunInTx never see a
// transaction's partial writes. Writes made outside RunInTx while a
// transaction is open are lost when it commits.
type MemoryRepository struct {
	txMu sync.Mutex
	*memoryStore
}

// memoryStore implements the repository queries over one copy of the data.
type memoryStore struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	products          map[int64]model.Product
	batches           map[int64]model.InventoryBatch
	transactions      map[int64]model.StockTransaction
	nextProductID     int64
	nextBatchID       int64
	nextTransactionID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		memoryStore: &memoryStore{
			data: &memoryData{
				products:     map[int64]model.Product{},
				batches:      map[int64]model.InventoryBatch{},
				transactions: map[int64]model.StockTransaction{},
			},
		},
	}
}

func (d *memoryData) clone() *memoryData {
	c := *d
	c.products = make(map[int64]model.Product, len(d.products))
	for k, v := range d.products {
		c.products[k] = v
	}
	c.batches = make(map[int64]model.InventoryBatch, len(d.batches))
	for k, v := range d.batches {
		c.batches[k] = v
	}
	c.transactions = make(map[int64]model.StockTransaction, len(d.transactions))
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	return &c
}

// memoryTx is the view handed to RunInTx callbacks. Nested RunInTx calls join
// the outer transaction.
type memoryTx struct {
	*memoryStore
}

func (t memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, repo inventory.Repository) error) error {
	return fn(ctx, t)
}

func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo inventory.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	work := &memoryStore{data: r.data.clone()}
	r.mu.RUnlock()

	if err := fn(ctx, memoryTx{work}); err != nil {
		return err
	}

	work.mu.RLock()
	committed := work.data
	work.mu.RUnlock()

	r.mu.Lock()
	r.data = committed
	r.mu.Unlock()
	return nil
}

func (s *memoryStore) LockProduct(ctx context.Context, productID int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data.products[productID]; !ok {
		return fmt.Errorf("%w: %d", model.ErrProductNotFound, productID)
	}
	return nil
}

// AddProduct stores p, assigning an id when it has none. It bypasses
// RunInTx and is meant for seeding.
func (s *memoryStore) AddProduct(p model.Product) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.data.nextProductID++
		p.ID = s.data.nextProductID
	} else if p.ID > s.data.nextProductID {
		s.data.nextProductID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.data.products[p.ID] = p
	return &p
}

func (s *memoryStore) FindProduct(ctx context.Context, id int64) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memoryStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *memoryStore) ListLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	all, _ := s.ListProducts(ctx)
	items := []model.Product{}
	for _, p := range all {
		if p.CurrentStock <= threshold {
			items = append(items, p)
		}
	}
	return items, nil
}

func (s *memoryStore) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.products[productID]
	if !ok {
		return fmt.Errorf("%w: %d", model.ErrProductNotFound, productID)
	}
	p.CurrentStock = stock
	s.data.products[productID] = p
	return nil
}

func (s *memoryStore) CreateBatch(ctx context.Context, batch *model.InventoryBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.nextBatchID++
	batch.ID = s.data.nextBatchID
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	s.data.batches[batch.ID] = *batch
	return nil
}

func (s *memoryStore) ListBatches(ctx context.Context) ([]model.InventoryBatch, error) {
	return s.filterBatches(func(model.InventoryBatch) bool { return true }), nil
}

func (s *memoryStore) ListBatchesByProduct(ctx context.Context, productID int64) ([]model.InventoryBatch, error) {
	return s.filterBatches(func(b model.InventoryBatch) bool { return b.ProductID == productID }), nil
}

func (s *memoryStore) ListExpiringBatches(ctx context.Context, cutoff time.Time) ([]model.InventoryBatch, error) {
	return s.filterBatches(func(b model.InventoryBatch) bool {
		return b.Active() && b.ExpiryDate != nil && !b.ExpiryDate.After(cutoff)
	}), nil
}

func (s *memoryStore) filterBatches(keep func(model.InventoryBatch) bool) []model.InventoryBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []model.InventoryBatch{}
	for _, b := range s.data.batches {
		if keep(b) {
			items = append(items, b)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *memoryStore) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: batch %d", model.ErrBatchNotFound, batchID)
	}
	if remaining < 0 || remaining > b.Quantity {
		return fmt.Errorf("remaining quantity %d out of range for batch %d", remaining, batchID)
	}
	b.RemainingQuantity = remaining
	s.data.batches[batchID] = b
	return nil
}

func (s *memoryStore) CreateTransaction(ctx context.Context, t *model.StockTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.nextTransactionID++
	t.ID = s.data.nextTransactionID
	s.data.transactions[t.ID] = *t
	return nil
}

func (s *memoryStore) FindTransaction(ctx context.Context, id int64) (*model.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.transactions[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memoryStore) ListTransactions(ctx context.Context, f *dto.MovementFilters) ([]model.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []model.StockTransaction{}
	for _, t := range s.data.transactions {
		if f.ProductID != 0 && t.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		items = append(items, t)
	}
	// newest first, like the SQL repository
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (s *memoryStore) UpdateTransaction(ctx context.Context, t *model.StockTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.transactions[t.ID]; !ok {
		return fmt.Errorf("%w: %d", model.ErrTransactionNotFound, t.ID)
	}
	s.data.transactions[t.ID] = *t
	return nil
}

func (s *memoryStore) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.transactions[id]; !ok {
		return fmt.Errorf("%w: %d", model.ErrTransactionNotFound, id)
	}
	delete(s.data.transactions, id)
	return nil
}

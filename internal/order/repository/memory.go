package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
)

// MemoryRepository keeps orders in process.
type MemoryRepository struct {
	mu         sync.Mutex
	orders     map[int64]model.Order
	nextID     int64
	nextItemID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: map[int64]model.Order{}}
}

func (r *MemoryRepository) Create(ctx context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	o.ID = r.nextID
	for i := range o.Items {
		r.nextItemID++
		o.Items[i].ID = r.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *MemoryRepository) FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Order{}
	for _, o := range r.orders {
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.orders[id] = o
	return true, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return fmt.Errorf("%w: %d", model.ErrOrderNotFound, id)
	}
	delete(r.orders, id)
	return nil
}

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem{}, o.Items...)
	return o
}

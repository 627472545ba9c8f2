package usecase

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
)

// ListInvalidator drops cached product lists whenever stock moves, since
// the lists carry currentStock. It is registered as a movement publisher.
type ListInvalidator struct {
	cache product.ListCache
}

func NewListInvalidator(cache product.ListCache) *ListInvalidator {
	return &ListInvalidator{cache: cache}
}

func (l *ListInvalidator) PublishMovement(ctx context.Context, event *model.StockMovementEvent) error {
	if event.Status != model.StatusCompleted {
		return nil
	}
	return l.cache.DeletePattern(ctx, listPattern)
}

package product

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error

	IsSKUUnique(ctx context.Context, sku string, excludeID int64) (bool, error)
	CategoryExists(ctx context.Context, categoryID int64) (bool, error)
	// InUse reports whether batches, transactions or orders reference the product.
	InUse(ctx context.Context, id int64) (bool, error)
}

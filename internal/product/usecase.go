package product

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	pdto "github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/search"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *pdto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *pdto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *pdto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// StockRecorder receives the initial stock of new products.
type StockRecorder interface {
	RecordMovement(ctx context.Context, input *dto.RecordMovementInput) ([]model.StockTransaction, error)
}

// ListCache caches product list pages. *cache.RedisClient implements it.
type ListCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// SearchIndex is the full-text product index. *search.Client implements it.
type SearchIndex interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

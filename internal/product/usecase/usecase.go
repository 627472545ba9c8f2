package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	invdto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"go.uber.org/zap"
)

const (
	indexName    = "products"
	listCacheTTL = 5 * time.Minute
	listPattern  = "products:list:*"
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text" },
			"description": { "type": "text" },
			"sku": { "type": "keyword" },
			"categoryId": { "type": "long" },
			"price": { "type": "double" },
			"createdAt": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo   product.Repository
	stock  product.StockRecorder
	cache  product.ListCache
	es     product.SearchIndex
	logger logger.ZapLogger
}

// NewProductUseCase wires the catalog. cache and es may be nil.
func NewProductUseCase(repo product.Repository, stock product.StockRecorder, cache product.ListCache, es product.SearchIndex, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		stock:  stock,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if err := validate(input.Name, input.SKU, input.InitialStock); err != nil {
		return nil, err
	}
	if err := uc.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	if err := uc.checkSKU(ctx, input.SKU, 0); err != nil {
		return nil, err
	}

	p := &model.Product{
		Name:          strings.TrimSpace(input.Name),
		SKU:           strings.TrimSpace(input.SKU),
		Description:   optional(input.Description),
		CategoryID:    input.CategoryID,
		Price:         input.Price,
		CostPrice:     input.CostPrice,
		MinStockLevel: input.MinStockLevel,
		ImageURL:      optional(input.ImageURL),
		IsFoodProduct: input.IsFoodProduct,
		ShelfLife:     input.ShelfLife,
		CreatedAt:     time.Now(),
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if input.InitialStock > 0 {
		_, err := uc.stock.RecordMovement(ctx, &invdto.RecordMovementInput{
			ProductID: p.ID,
			Type:      model.DirectionIn,
			Quantity:  input.InitialStock,
			Reason:    "Initial stock",
			UserID:    input.UserID,
		})
		if err != nil {
			// nothing references the product yet, so it can go
			if delErr := uc.repo.Delete(ctx, p.ID); delErr != nil {
				uc.logger.Error("failed to remove product after initial stock failed", zap.Int64("product_id", p.ID), zap.Error(delErr))
			}
			return nil, fmt.Errorf("initial stock: %w", err)
		}

		fresh, err := uc.repo.FindByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if fresh != nil {
			p = fresh
		}
	}

	uc.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU), zap.Int("initial_stock", input.InitialStock))

	go uc.invalidateProductCache(context.Background())
	go uc.syncToElastic(context.Background(), *p)

	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrProductNotFound, id)
	}
	return p, nil
}

type listResult struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	if filters == nil {
		filters = &dto.ProductFilters{}
	}

	cacheKey := uc.cacheKey(filters)
	if cacheKey != "" {
		if val, err := uc.cache.Get(ctx, cacheKey); err == nil {
			var result listResult
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		}
	}

	var (
		products []model.Product
		count    int
		err      error
		searched bool
	)
	if filters.SearchQuery != "" && uc.es != nil {
		products, count, err = uc.searchElastic(ctx, filters)
		if err == nil {
			searched = true
		} else {
			uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
		}
	}
	if !searched {
		products, count, err = uc.repo.FindAll(ctx, filters)
		if err != nil {
			return nil, 0, err
		}
	}

	if cacheKey != "" {
		if data, err := json.Marshal(listResult{Products: products, Count: count}); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL); err != nil {
				uc.logger.Warn("failed to cache product list", zap.Error(err))
			}
		}
	}
	return products, count, nil
}

// searchElastic takes matching ids from the index and loads the rows, so
// stock figures always come from the database.
func (uc *productUseCase) searchElastic(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
				"fields": []string{"name^3", "sku", "description"},
			},
		},
	}
	if filters.CategoryID != 0 {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"categoryId": filters.CategoryID},
		})
	}
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if filters.PageSize > 0 {
		q["size"] = filters.PageSize
		q["from"] = (max(filters.Page, 1) - 1) * filters.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		p, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		if p != nil {
			products = append(products, *p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.GetProduct(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := validate(input.Name, input.SKU, 0); err != nil {
		return nil, err
	}

	sku := strings.TrimSpace(input.SKU)
	if p.SKU != sku {
		if err := uc.checkSKU(ctx, sku, p.ID); err != nil {
			return nil, err
		}
	}
	if p.CategoryID != input.CategoryID {
		if err := uc.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
	}

	p.Name = strings.TrimSpace(input.Name)
	p.SKU = sku
	p.Description = optional(input.Description)
	p.CategoryID = input.CategoryID
	p.Price = input.Price
	p.CostPrice = input.CostPrice
	p.MinStockLevel = input.MinStockLevel
	p.ImageURL = optional(input.ImageURL)
	p.IsFoodProduct = input.IsFoodProduct
	p.ShelfLife = input.ShelfLife

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.invalidateProductCache(context.Background())
	go uc.syncToElastic(context.Background(), *p)

	return p, nil
}

// DeleteProduct removes a product that never had stock. Batches are
// append-only, so a product with history stays.
func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := uc.GetProduct(ctx, id); err != nil {
		return err
	}

	inUse, err := uc.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return model.ErrProductInUse
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	go uc.invalidateProductCache(context.Background())
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), indexName, strconv.FormatInt(id, 10)); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}
	return nil
}

func (uc *productUseCase) checkSKU(ctx context.Context, sku string, excludeID int64) error {
	unique, err := uc.repo.IsSKUUnique(ctx, sku, excludeID)
	if err != nil {
		return err
	}
	if !unique {
		return model.ErrSKUAlreadyExists
	}
	return nil
}

func (uc *productUseCase) checkCategory(ctx context.Context, categoryID int64) error {
	exists, err := uc.repo.CategoryExists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", model.ErrCategoryNotFound, categoryID)
	}
	return nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p model.Product) {
	if uc.es == nil {
		return
	}
	if err := uc.es.CreateIndex(ctx, indexName, indexMapping); err != nil {
		uc.logger.Warn("failed to ensure product index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, indexName, strconv.FormatInt(p.ID, 10), p); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) cacheKey(filters *dto.ProductFilters) string {
	if uc.cache == nil {
		return ""
	}
	data, err := json.Marshal(filters)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data))
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, listPattern); err != nil {
		uc.logger.Warn("failed to invalidate product list cache", zap.Error(err))
	}
}

func validate(name, sku string, initialStock int) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(sku) == "" {
		return fmt.Errorf("%w: name and sku are required", model.ErrInvalidInput)
	}
	if initialStock < 0 {
		return fmt.Errorf("%w: initial stock cannot be negative", model.ErrInvalidQuantity)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

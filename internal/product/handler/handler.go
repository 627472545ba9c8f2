package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/products")
	g.GET("", h.ListProducts)
	g.POST("", h.CreateProduct)
	g.GET("/:id", h.GetProduct)
	g.PUT("/:id", h.UpdateProduct)
	g.DELETE("/:id", h.DeleteProduct)
}

type productRequest struct {
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Description   string          `json:"description"`
	CategoryID    int64           `json:"categoryId" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	MinStockLevel *int            `json:"minStockLevel"`
	ImageURL      string          `json:"imageUrl"`
	IsFoodProduct *bool           `json:"isFoodProduct"`
	ShelfLife     *int            `json:"shelfLife"`
	InitialStock  int             `json:"initialStock"`
}

const defaultMinStockLevel = 10

// food is the default for this catalog
func (r *productRequest) isFood() bool {
	return r.IsFoodProduct == nil || *r.IsFoodProduct
}

func (r *productRequest) minStock() int {
	if r.MinStockLevel == nil {
		return defaultMinStockLevel
	}
	return *r.MinStockLevel
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), &dto.CreateProductInput{
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		MinStockLevel: req.minStock(),
		ImageURL:      req.ImageURL,
		IsFoodProduct: req.isFood(),
		ShelfLife:     req.ShelfLife,
		InitialStock:  req.InitialStock,
		UserID:        auth.GetUserID(c),
	})
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.uc.GetProduct(c.Request.Context(), id)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filters := &dto.ProductFilters{SearchQuery: c.Query("q")}
	for name, dst := range map[string]*int{"page": &filters.Page, "pageSize": &filters.PageSize} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				web.BadRequest(c, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	if v := c.Query("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			web.BadRequest(c, "invalid categoryId")
			return
		}
		filters.CategoryID = id
	}

	products, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ID:            id,
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		MinStockLevel: req.minStock(),
		ImageURL:      req.ImageURL,
		IsFoodProduct: req.isFood(),
		ShelfLife:     req.ShelfLife,
	})
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.uc.DeleteProduct(c.Request.Context(), id); err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

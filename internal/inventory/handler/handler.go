package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/web"
	"github.com/gin-gonic/gin"
)

type Defaults struct {
	LowStockThreshold int
	ExpiringDays      int
}

type InventoryHandler struct {
	uc       inventory.UseCase
	logger   logger.ZapLogger
	defaults Defaults
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger, defaults Defaults) *InventoryHandler {
	return &InventoryHandler{
		uc:       uc,
		logger:   log,
		defaults: defaults,
	}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tx := rg.Group("/stock-transactions")
	tx.GET("", h.ListMovements)
	tx.POST("", h.RecordMovement)
	tx.POST("/process", h.ProcessPending)
	tx.DELETE("/:id", h.CancelPending)

	batches := rg.Group("/inventory-batches")
	batches.GET("", h.ListBatches)
	batches.GET("/product/:productId", h.BatchesForProduct)
	batches.GET("/expiring", h.ExpiringBatches)

	rg.GET("/products/low-stock", h.LowStock)
	rg.POST("/inventory/reconcile", h.Reconcile)
	rg.GET("/dashboard/stats", h.DashboardStats)
}

type recordMovementRequest struct {
	ProductID   int64   `json:"productId" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Quantity    float64 `json:"quantity"`
	Reason      string  `json:"reason"`
	BatchNumber string  `json:"batchNumber"`
	ExpiryDate  *string `json:"expiryDate"`
	BatchID     *int64  `json:"batchId"`
	Status      string  `json:"status"`
}

func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req recordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	quantity, err := wholeQuantity(req.Quantity)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		web.BadRequest(c, "expiryDate must be YYYY-MM-DD or RFC 3339")
		return
	}

	rows, err := h.uc.RecordMovement(c.Request.Context(), &dto.RecordMovementInput{
		ProductID:   req.ProductID,
		Type:        model.Direction(req.Type),
		Quantity:    quantity,
		Reason:      req.Reason,
		BatchNumber: req.BatchNumber,
		ExpiryDate:  expiry,
		BatchID:     req.BatchID,
		UserID:      auth.GetUserID(c),
		Status:      model.TransactionStatus(req.Status),
	})
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rows)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	filters := &dto.MovementFilters{
		Type:   model.Direction(c.Query("type")),
		Status: model.TransactionStatus(c.Query("status")),
	}
	if v := c.Query("productId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			web.BadRequest(c, "invalid productId")
			return
		}
		filters.ProductID = id
	}

	rows, err := h.uc.ListMovements(c.Request.Context(), filters)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type processPendingRequest struct {
	ID int64 `json:"id" binding:"required"`
}

func (h *InventoryHandler) ProcessPending(c *gin.Context) {
	var req processPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	rows, err := h.uc.ProcessPending(c.Request.Context(), req.ID)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *InventoryHandler) CancelPending(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.uc.CancelPending(c.Request.Context(), id); err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) ListBatches(c *gin.Context) {
	views, err := h.uc.ListBatches(c.Request.Context())
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *InventoryHandler) BatchesForProduct(c *gin.Context) {
	id, ok := web.ParamID(c, "productId")
	if !ok {
		return
	}
	views, err := h.uc.BatchesForProduct(c.Request.Context(), id)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *InventoryHandler) ExpiringBatches(c *gin.Context) {
	days, ok := intQuery(c, "days", h.defaults.ExpiringDays)
	if !ok {
		return
	}
	views, err := h.uc.ExpiringBatches(c.Request.Context(), days)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold, ok := intQuery(c, "threshold", h.defaults.LowStockThreshold)
	if !ok {
		return
	}
	products, err := h.uc.LowStock(c.Request.Context(), threshold)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *InventoryHandler) Reconcile(c *gin.Context) {
	drifts, err := h.uc.Reconcile(c.Request.Context())
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrected": drifts})
}

func (h *InventoryHandler) DashboardStats(c *gin.Context) {
	threshold, ok := intQuery(c, "threshold", h.defaults.LowStockThreshold)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", h.defaults.ExpiringDays)
	if !ok {
		return
	}
	stats, err := h.uc.DashboardStats(c.Request.Context(), threshold, days)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// wholeQuantity accepts JSON numbers that are positive integers; 2.5 is refused.
func wholeQuantity(q float64) (int, error) {
	if q <= 0 || q != math.Trunc(q) || q > math.MaxInt32 {
		return 0, model.ErrInvalidQuantity
	}
	return int(q), nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, strconv.ErrSyntax
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		web.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

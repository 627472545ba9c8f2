package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/orders")
	g.GET("", h.ListOrders)
	g.POST("", h.CreateOrder)
	g.GET("/:id", h.GetOrder)
	g.POST("/:id/process", h.ProcessOrder)
	g.POST("/:id/cancel", h.CancelOrder)
}

type orderItemRequest struct {
	ProductID int64            `json:"productId" binding:"required"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type orderRequest struct {
	CustomerName    string             `json:"customerName"`
	CustomerContact string             `json:"customerContact"`
	Notes           string             `json:"notes"`
	Status          string             `json:"status"`
	Items           []orderItemRequest `json:"orderItems" binding:"dive"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		web.BadRequest(c, err.Error())
		return
	}

	items := make([]dto.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	o, err := h.uc.CreateOrder(c.Request.Context(), &dto.CreateOrderInput{
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Notes:           req.Notes,
		Status:          model.OrderStatus(req.Status),
		Items:           items,
		UserID:          auth.GetUserID(c),
	})
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.uc.ListOrders(c.Request.Context(), &dto.OrderFilters{
		Status: model.OrderStatus(c.Query("status")),
	})
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.uc.GetOrder(c.Request.Context(), id)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.uc.ProcessOrder(c.Request.Context(), id)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.uc.CancelOrder(c.Request.Context(), id)
	if err != nil {
		web.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

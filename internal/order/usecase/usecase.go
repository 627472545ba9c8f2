package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	invdto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderUseCase struct {
	repo     order.Repository
	products order.ProductFinder
	stock    order.StockRecorder
	logger   logger.ZapLogger
	now      func() time.Time
}

type Option func(*orderUseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *orderUseCase) {
		uc.now = now
	}
}

func NewOrderUseCase(repo order.Repository, products order.ProductFinder, stock order.StockRecorder, log logger.ZapLogger, opts ...Option) order.UseCase {
	uc := &orderUseCase{
		repo:     repo,
		products: products,
		stock:    stock,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, model.ErrEmptyOrder
	}

	status := input.Status
	if status == "" {
		status = model.OrderPending
	}
	if status != model.OrderPending && status != model.OrderCompleted {
		return nil, fmt.Errorf("%w: new orders are pending or completed, got %q", model.ErrInvalidStatus, status)
	}

	now := uc.now()
	o := &model.Order{
		OrderNumber:     newOrderNumber(now),
		CustomerName:    optional(input.CustomerName),
		CustomerContact: optional(input.CustomerContact),
		Notes:           optional(input.Notes),
		Status:          model.OrderPending,
		TotalAmount:     decimal.Zero,
		OrderDate:       now,
		UserID:          input.UserID,
		Items:           make([]model.OrderItem, 0, len(input.Items)),
	}

	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d quantity %d", model.ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		p, err := uc.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		price := p.Price
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		o.Items = append(o.Items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
		o.TotalAmount = o.TotalAmount.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// Completed orders are stored pending and then claimed, so stock is only
	// deducted once the order row exists.
	if err := uc.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	if status == model.OrderCompleted {
		if err := uc.completeNew(ctx, o); err != nil {
			return nil, err
		}
	}

	uc.logger.Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("status", string(o.Status)),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

// completeNew claims an order CreateOrder just stored and deducts its stock.
// On failure the order is removed again, as if it had never been placed.
func (uc *orderUseCase) completeNew(ctx context.Context, o *model.Order) error {
	claimed, err := uc.repo.TransitionStatus(ctx, o.ID, model.OrderPending, model.OrderCompleted)
	if err == nil && !claimed {
		err = fmt.Errorf("%w: order %s", model.ErrOrderNotPending, o.OrderNumber)
	}
	if err == nil {
		err = uc.deductStock(ctx, o)
	}
	if err == nil {
		o.Status = model.OrderCompleted
		return nil
	}

	if delErr := uc.repo.Delete(context.WithoutCancel(ctx), o.ID); delErr != nil {
		uc.logger.Error("Failed to remove order after stock deduction failed",
			zap.String("order_number", o.OrderNumber),
			zap.Error(delErr),
		)
	}
	return err
}

// ProcessOrder claims the pending order before touching stock so two callers
// cannot both deduct it. A failed deduction hands the order back.
func (uc *orderUseCase) ProcessOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderPending {
		return nil, fmt.Errorf("%w: order %s is %s", model.ErrOrderNotPending, o.OrderNumber, o.Status)
	}

	claimed, err := uc.repo.TransitionStatus(ctx, id, model.OrderPending, model.OrderCompleted)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: order %s", model.ErrOrderNotPending, o.OrderNumber)
	}

	if err := uc.deductStock(ctx, o); err != nil {
		if _, revertErr := uc.repo.TransitionStatus(context.WithoutCancel(ctx), id, model.OrderCompleted, model.OrderPending); revertErr != nil {
			uc.logger.Error("Failed to return order to pending",
				zap.String("order_number", o.OrderNumber),
				zap.Error(revertErr),
			)
		}
		return nil, err
	}

	o.Status = model.OrderCompleted
	uc.logger.Info("Order processed", zap.Int64("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	return o, nil
}

func (uc *orderUseCase) CancelOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled, err := uc.repo.TransitionStatus(ctx, id, model.OrderPending, model.OrderCancelled)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: order %s", model.ErrOrderNotPending, o.OrderNumber)
	}

	o.Status = model.OrderCancelled
	uc.logger.Info("Order cancelled", zap.Int64("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: %d", model.ErrOrderNotFound, id)
	}
	return o, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error) {
	if filters == nil {
		filters = &dto.OrderFilters{}
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) deductStock(ctx context.Context, o *model.Order) error {
	reason := "Order " + o.OrderNumber
	inputs := make([]invdto.RecordMovementInput, 0, len(o.Items))
	for _, item := range o.Items {
		inputs = append(inputs, invdto.RecordMovementInput{
			ProductID: item.ProductID,
			Type:      model.DirectionOut,
			Quantity:  item.Quantity,
			Reason:    reason,
			UserID:    o.UserID,
		})
	}
	_, err := uc.stock.RecordMovements(ctx, inputs)
	return err
}

// newOrderNumber keeps the ORD-<unix ms> shape and adds a random suffix so
// orders created in the same millisecond do not collide.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package listener

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const eventOrderCreated = "OrderCreated"

// MessageReader is the consuming side of a Kafka topic.
// *broker.KafkaConsumer implements it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type OrderListener struct {
	consumer     MessageReader
	uc           order.UseCase
	logger       logger.ZapLogger
	systemUserID int64
	retryDelay   time.Duration
}

func NewOrderListener(consumer MessageReader, uc order.UseCase, log logger.ZapLogger, systemUserID int64) *OrderListener {
	return &OrderListener{
		consumer:     consumer,
		uc:           uc,
		logger:       log,
		systemUserID: systemUserID,
		retryDelay:   time.Second,
	}
}

// Start reads until ctx is done.
func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.retryDelay):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID           string             `json:"id"`
	CustomerName string             `json:"customer_name"`
	Items        []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// processMessage turns one OrderCreated event into a completed order.
// Failures are logged and the message is not redelivered.
func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != eventOrderCreated {
		return
	}

	l.logger.Info("Processing OrderCreated event",
		zap.String("event_id", event.EventID),
		zap.String("pos_order_id", event.Payload.ID),
	)

	items := make([]dto.OrderItemInput, 0, len(event.Payload.Items))
	for _, item := range event.Payload.Items {
		if item.Quantity <= 0 || item.Quantity != math.Trunc(item.Quantity) {
			l.logger.Error("Skipping OrderCreated event with invalid quantity",
				zap.String("pos_order_id", event.Payload.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Float64("quantity", item.Quantity),
			)
			return
		}
		items = append(items, dto.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  int(item.Quantity),
		})
	}

	o, err := l.uc.CreateOrder(ctx, &dto.CreateOrderInput{
		CustomerName: event.Payload.CustomerName,
		Notes:        "POS order " + event.Payload.ID,
		Status:       model.OrderCompleted,
		Items:        items,
		UserID:       l.systemUserID,
	})
	if err != nil {
		l.logger.Error("Failed to record order from event",
			zap.String("pos_order_id", event.Payload.ID),
			zap.Error(err),
		)
		return
	}

	l.logger.Info("Order recorded from event",
		zap.String("pos_order_id", event.Payload.ID),
		zap.String("order_number", o.OrderNumber),
	)
}

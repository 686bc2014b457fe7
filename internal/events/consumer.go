package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// ShipmentEventType represents the type of fulfillment event.
type ShipmentEventType string

const (
	ShipmentEventDispatched ShipmentEventType = "shipment.dispatched"
	ShipmentEventDelivered  ShipmentEventType = "shipment.delivered"
	ShipmentEventCancelled  ShipmentEventType = "shipment.cancelled"
)

var shipmentStatuses = map[ShipmentEventType]models.OrderStatus{
	ShipmentEventDispatched: models.OrderStatusShipped,
	ShipmentEventDelivered:  models.OrderStatusDelivered,
	ShipmentEventCancelled:  models.OrderStatusCancelled,
}

// ShipmentEvent is published by the fulfillment system.
type ShipmentEvent struct {
	ID         string            `json:"id"`
	Type       ShipmentEventType `json:"type"`
	OrderID    uint              `json:"order_id"`
	TrackingID string            `json:"tracking_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// OrderStatusSetter applies a status change on behalf of an actor.
type OrderStatusSetter interface {
	SetStatus(ctx context.Context, caller models.CurrentUser, id uint, status models.OrderStatus) (*models.Order, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// FulfillmentConsumer applies shipment events to orders.
type FulfillmentConsumer struct {
	reader messageReader
	orders OrderStatusSetter
	logger *logging.LoggerV2
	stopCh chan struct{}
}

// NewFulfillmentConsumer creates a consumer on the fulfillment topic.
func NewFulfillmentConsumer(cfg config.KafkaConfig, orders OrderStatusSetter, logger *logging.LoggerV2) *FulfillmentConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.FulfillmentTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &FulfillmentConsumer{
		reader: reader,
		orders: orders,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start consumes until ctx is cancelled or Stop is called.
func (c *FulfillmentConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting fulfillment consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Fulfillment consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *FulfillmentConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

// handleMessage never fails the stream: malformed or stale events are
// logged and skipped.
func (c *FulfillmentConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event ShipmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	status, ok := shipmentStatuses[event.Type]
	if !ok {
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
		return
	}
	if event.OrderID == 0 {
		c.logger.Warn("Shipment event without order id", logging.Fields{"event_id": event.ID})
		return
	}

	c.logger.Info("Handling shipment event", logging.Fields{
		"event_id":    event.ID,
		"type":        event.Type,
		"order_id":    event.OrderID,
		"tracking_id": event.TrackingID,
	})

	_, err := c.orders.SetStatus(ctx, models.SystemUser, event.OrderID, status)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrConflict), errors.Is(err, errors.ErrNotFound):
		c.logger.Warn("Skipping shipment event", logging.Fields{
			"order_id": event.OrderID,
			"status":   status,
			"error":    err.Error(),
		})
	default:
		c.logger.Error("Failed to update order status", logging.Fields{
			"order_id": event.OrderID,
			"error":    err.Error(),
		})
	}
}

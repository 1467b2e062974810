package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing checkout events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderMaterialized publishes OrderMaterialized event
func (ep *EventPublisher) PublishOrderMaterialized(ctx context.Context, event *models.OrderMaterializedEvent) error {
	return ep.producer.PublishEvent(ctx, paymentKey(event.PaymentID), event)
}

// PublishReconciliationRequired publishes ReconciliationRequired event
func (ep *EventPublisher) PublishReconciliationRequired(ctx context.Context, event *models.ReconciliationRequiredEvent) error {
	return ep.producer.PublishEvent(ctx, paymentKey(event.PaymentID), event)
}

// Events for one payment share a partition
func paymentKey(paymentID string) string {
	return fmt.Sprintf("payment-%s", paymentID)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderMaterialized      func(context.Context, *models.OrderMaterializedEvent) error
	onReconciliationRequired func(context.Context, *models.ReconciliationRequiredEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderMaterialized registers a handler for OrderMaterialized events
func (eh *EventHandler) OnOrderMaterialized(handler func(context.Context, *models.OrderMaterializedEvent) error) {
	eh.onOrderMaterialized = handler
}

// OnReconciliationRequired registers a handler for ReconciliationRequired events
func (eh *EventHandler) OnReconciliationRequired(handler func(context.Context, *models.ReconciliationRequiredEvent) error) {
	eh.onReconciliationRequired = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderMaterialized:
		if eh.onOrderMaterialized != nil {
			var event models.OrderMaterializedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderMaterialized event: %w", err)
			}
			return eh.onOrderMaterialized(ctx, &event)
		}

	case models.EventTypeReconciliationRequired:
		if eh.onReconciliationRequired != nil {
			var event models.ReconciliationRequiredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReconciliationRequired event: %w", err)
			}
			return eh.onReconciliationRequired(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}

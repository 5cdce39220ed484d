package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Checkout event types
const (
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeOrderFailed    = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent published when the upstream shop API accepts an order
type OrderCompletedEvent struct {
	BaseEvent
	SessionID string   `json:"session_id"`
	OrderID   string   `json:"order_id"`
	Payment   string   `json:"payment"`
	Total     int64    `json:"total"`
	Items     []string `json:"items"`
}

// OrderFailedEvent published when an order submission fails
type OrderFailedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// CheckoutPublisher publishes checkout lifecycle events for analytics and
// archiving. It implements the controller's Analytics interface.
type CheckoutPublisher struct {
	producer *Producer
}

// NewCheckoutPublisher creates a new checkout publisher
func NewCheckoutPublisher(producer *Producer) *CheckoutPublisher {
	return &CheckoutPublisher{producer: producer}
}

// OrderCompleted publishes an OrderCompleted event
func (cp *CheckoutPublisher) OrderCompleted(ctx context.Context, sessionID string, payload models.OrderPayload, result apiclient.OrderResult) error {
	event := &OrderCompletedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: EventTypeOrderCompleted,
			Timestamp: time.Now(),
		},
		SessionID: sessionID,
		OrderID:   result.ID,
		Payment:   payload.Payment,
		Total:     result.Total,
		Items:     payload.Items,
	}
	key := fmt.Sprintf("session-%s", sessionID)
	return cp.producer.PublishEvent(ctx, key, event)
}

// OrderFailed publishes an OrderFailed event
func (cp *CheckoutPublisher) OrderFailed(ctx context.Context, sessionID string, reason string) error {
	event := &OrderFailedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		SessionID: sessionID,
		Reason:    reason,
	}
	key := fmt.Sprintf("session-%s", sessionID)
	return cp.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed checkout events
type EventHandler struct {
	onOrderCompleted func(context.Context, *OrderCompletedEvent) error
	onOrderFailed    func(context.Context, *OrderFailedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCompleted registers a handler for OrderCompleted events
func (eh *EventHandler) OnOrderCompleted(handler func(context.Context, *OrderCompletedEvent) error) {
	eh.onOrderCompleted = handler
}

// OnOrderFailed registers a handler for OrderFailed events
func (eh *EventHandler) OnOrderFailed(handler func(context.Context, *OrderFailedEvent) error) {
	eh.onOrderFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case EventTypeOrderCompleted:
		if eh.onOrderCompleted != nil {
			var event OrderCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCompleted event: %w", err)
			}
			return eh.onOrderCompleted(ctx, &event)
		}

	case EventTypeOrderFailed:
		if eh.onOrderFailed != nil {
			var event OrderFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderFailed event: %w", err)
			}
			return eh.onOrderFailed(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}

package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated      EventType = "order.created"
	EventTypeOrderReadyBlurred EventType = "order.ready_blurred"
	EventTypeOrderPaid         EventType = "order.paid"
	EventTypeOrderFailed       EventType = "order.failed"

	// Compose события
	EventTypeComposeStarted   EventType = "compose.started"
	EventTypeComposeCompleted EventType = "compose.completed"
	EventTypeComposeFailed    EventType = "compose.failed"

	// Payment события
	EventTypePaymentInitiated EventType = "payment.initiated"
	EventTypePaymentConfirmed EventType = "payment.confirmed"

	// Delivery события
	EventTypeDeliveryRequested EventType = "delivery.requested"
	EventTypeDeliveryCompleted EventType = "delivery.completed"
	EventTypeDeliveryFailed    EventType = "delivery.failed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "kiosk.order.events"
	TopicDeliveryEvents  = "kiosk.delivery.events"
	TopicDeadLetterQueue = "kiosk.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	OrderCode string                 `json:"order_code,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DeliveryEvent представляет событие доставки результата
type DeliveryEvent struct {
	EventType  EventType              `json:"event_type"`
	DeliveryID string                 `json:"delivery_id"`
	OrderID    string                 `json:"order_id"`
	Channel    string                 `json:"channel"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, orderCode, sessionID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		OrderCode: orderCode,
		SessionID: sessionID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewDeliveryEvent создает новое событие доставки
func NewDeliveryEvent(eventType EventType, deliveryID, orderID, channel string, metadata map[string]interface{}) *DeliveryEvent {
	return &DeliveryEvent{
		EventType:  eventType,
		DeliveryID: deliveryID,
		OrderID:    orderID,
		Channel:    channel,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

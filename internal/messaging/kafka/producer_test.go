package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	// Создаем mock producer
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидания
	mockProducer.ExpectSendMessageAndSucceed()

	// Создаем тестовое событие
	event := NewOrderEvent(
		EventTypeOrderCreated,
		"test-order-123",
		"123-456",
		"sess_abc",
		"pending",
		map[string]interface{}{
			"collage_id": "collage-1",
		},
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Проверяем, что все ожидания выполнены
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	// Создаем mock producer с ошибкой
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидание ошибки
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"test-order-123",
		"123-456",
		"sess_abc",
		"pending",
		nil,
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	orderID := "order-123"
	orderCode := "123-456"
	sessionID := "sess_abc"
	status := "ready_blurred"
	metadata := map[string]interface{}{
		"price_minor": 50000,
	}

	event := NewOrderEvent(EventTypeOrderReadyBlurred, orderID, orderCode, sessionID, status, metadata)

	if event.EventType != EventTypeOrderReadyBlurred {
		t.Errorf("expected event type %s, got %s", EventTypeOrderReadyBlurred, event.EventType)
	}

	if event.OrderID != orderID {
		t.Errorf("expected order id %s, got %s", orderID, event.OrderID)
	}

	if event.OrderCode != orderCode {
		t.Errorf("expected order code %s, got %s", orderCode, event.OrderCode)
	}

	if event.Status != status {
		t.Errorf("expected status %s, got %s", status, event.Status)
	}

	// Проверяем, что timestamp установлен
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	// Проверяем, что timestamp близок к текущему времени
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewDeliveryEvent(t *testing.T) {
	event := NewDeliveryEvent(EventTypeDeliveryCompleted, "delivery-1", "order-123", "telegram", nil)

	if event.EventType != EventTypeDeliveryCompleted {
		t.Errorf("expected event type %s, got %s", EventTypeDeliveryCompleted, event.EventType)
	}
	if event.DeliveryID != "delivery-1" {
		t.Errorf("expected delivery id delivery-1, got %s", event.DeliveryID)
	}
	if event.Channel != "telegram" {
		t.Errorf("expected channel telegram, got %s", event.Channel)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

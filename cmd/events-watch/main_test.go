package main

import (
	"testing"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
)

func TestParseArgs(t *testing.T) {
	env := func(key string) string {
		if key == "KIOSK_KAFKA_BROKERS" {
			return "env-broker:9092"
		}
		return ""
	}

	cfg, err := parseArgs(nil, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.brokers) != 1 || cfg.brokers[0] != "env-broker:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.brokers)
	}
	if cfg.groupID != defaultGroupID {
		t.Fatalf("unexpected group id: %s", cfg.groupID)
	}
	if len(cfg.topics) != 2 {
		t.Fatalf("expected both topics by default, got %v", cfg.topics)
	}
}

func TestParseArgs_FlagOverridesEnv(t *testing.T) {
	cfg, err := parseArgs([]string{"-brokers", "a:9092,b:9092", "-group", "ops", "-orders-only"}, func(string) string {
		return "env-broker:9092"
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.brokers) != 2 || cfg.brokers[0] != "a:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.brokers)
	}
	if cfg.groupID != "ops" {
		t.Fatalf("unexpected group id: %s", cfg.groupID)
	}
	if len(cfg.topics) != 1 || cfg.topics[0] != kafka.TopicOrderEvents {
		t.Fatalf("unexpected topics: %v", cfg.topics)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	if _, err := parseArgs(nil, func(string) string { return "" }); err == nil {
		t.Fatal("expected error when brokers are not set")
	}

	if _, err := parseArgs([]string{"-brokers", "a:9092", "-orders-only", "-deliveries-only"}, func(string) string { return "" }); err == nil {
		t.Fatal("expected error for mutually exclusive filters")
	}
}

func TestLogEvent(t *testing.T) {
	logger := log.WithField("test", "events-watch")

	orderMsg := &sarama.ConsumerMessage{
		Topic: kafka.TopicOrderEvents,
		Value: []byte(`{"event_type":"order.paid","order_id":"o-1","order_code":"123-456","status":"paid"}`),
	}
	if err := logEvent(logger, orderMsg); err != nil {
		t.Fatalf("order event failed: %v", err)
	}

	deliveryMsg := &sarama.ConsumerMessage{
		Topic: kafka.TopicDeliveryEvents,
		Value: []byte(`{"event_type":"delivery.completed","delivery_id":"d-1","order_id":"o-1","channel":"email"}`),
	}
	if err := logEvent(logger, deliveryMsg); err != nil {
		t.Fatalf("delivery event failed: %v", err)
	}

	unknownMsg := &sarama.ConsumerMessage{Topic: "other", Key: []byte("k"), Value: []byte("{}")}
	if err := logEvent(logger, unknownMsg); err != nil {
		t.Fatalf("unknown topic should not fail: %v", err)
	}

	broken := &sarama.ConsumerMessage{Topic: kafka.TopicOrderEvents, Value: []byte("{")}
	if err := logEvent(logger, broken); err == nil {
		t.Fatal("expected parse error for broken payload")
	}
}

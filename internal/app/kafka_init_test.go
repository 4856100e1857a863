package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitKafkaProducer_EmptyBrokersMeansNoKafka(t *testing.T) {
	logger := log.WithField("test", "kafka")

	for _, brokers := range []string{"", "   "} {
		producer, err := initKafkaProducer(brokers, logger)
		if err != nil {
			t.Errorf("expected no error for brokers %q, got %v", brokers, err)
		}
		if producer != nil {
			t.Error("expected nil producer when kafka is not configured")
		}
	}
}

func TestInitKafkaProducer_UnreachableBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	tests := []struct {
		name    string
		brokers string
	}{
		{name: "single", brokers: "invalid-broker:9999"},
		{name: "multiple", brokers: "broker1:9092,broker2:9092,broker3:9092"},
		{name: "with spaces", brokers: "broker1:9092, broker2:9092"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			producer, err := initKafkaProducer(tc.brokers, logger)
			if err == nil {
				t.Error("expected error for unreachable brokers")
			}
			if producer != nil {
				t.Error("expected nil producer on connect failure")
			}
		})
	}
}

func TestCloseKafka_NilSafe(t *testing.T) {
	logger := log.WithField("test", "kafka")

	closeKafka(nil, logger)

	producer, _ := initKafkaProducer("localhost:9999", logger)
	closeKafka(producer, logger)
}

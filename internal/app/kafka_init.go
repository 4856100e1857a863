package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer, если заданы брокеры. Пустой список
// означает работу без Kafka: события копятся в outbox и никуда не уходят.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if strings.TrimSpace(brokers) == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	for i, broker := range brokerList {
		brokerList[i] = strings.TrimSpace(broker)
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("kafka недоступна, продолжаем без неё")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer инициализирован")
	return producer, nil
}

// closeKafka закрывает producer. Безопасен для nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("ошибка закрытия kafka producer")
		return
	}
	logger.Info("kafka producer закрыт")
}

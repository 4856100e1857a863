// events-watch — операторская утилита: подписывается на топики событий
// киоска и печатает их в лог. Удобна при разборе инцидентов с оплатой
// и доставкой, когда нужно видеть поток событий вживую.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
)

const defaultGroupID = "kiosk-events-watch"

type config struct {
	brokers []string
	groupID string
	topics  []string
}

func parseArgs(args []string, env func(string) string) (config, error) {
	fs := flag.NewFlagSet("events-watch", flag.ContinueOnError)
	brokers := fs.String("brokers", "", "список Kafka-брокеров через запятую (по умолчанию KIOSK_KAFKA_BROKERS)")
	groupID := fs.String("group", defaultGroupID, "consumer group id")
	ordersOnly := fs.Bool("orders-only", false, "слушать только события заказов")
	deliveriesOnly := fs.Bool("deliveries-only", false, "слушать только события доставки")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	rawBrokers := strings.TrimSpace(*brokers)
	if rawBrokers == "" {
		rawBrokers = strings.TrimSpace(env("KIOSK_KAFKA_BROKERS"))
	}
	if rawBrokers == "" {
		return config{}, fmt.Errorf("brokers are not set: pass -brokers or KIOSK_KAFKA_BROKERS")
	}
	if *ordersOnly && *deliveriesOnly {
		return config{}, fmt.Errorf("-orders-only and -deliveries-only are mutually exclusive")
	}

	topics := []string{kafka.TopicOrderEvents, kafka.TopicDeliveryEvents}
	if *ordersOnly {
		topics = []string{kafka.TopicOrderEvents}
	}
	if *deliveriesOnly {
		topics = []string{kafka.TopicDeliveryEvents}
	}

	return config{
		brokers: strings.Split(rawBrokers, ","),
		groupID: strings.TrimSpace(*groupID),
		topics:  topics,
	}, nil
}

// logEvent разбирает сообщение по топику и пишет его поля в лог.
func logEvent(logger *log.Entry, message *sarama.ConsumerMessage) error {
	switch message.Topic {
	case kafka.TopicOrderEvents:
		event, err := kafka.ParseOrderEvent(message)
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{
			"event_type": event.EventType,
			"order_id":   event.OrderID,
			"order_code": event.OrderCode,
			"status":     event.Status,
		}).Info("событие заказа")
	case kafka.TopicDeliveryEvents:
		event, err := kafka.ParseDeliveryEvent(message)
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{
			"event_type":  event.EventType,
			"delivery_id": event.DeliveryID,
			"order_id":    event.OrderID,
			"channel":     event.Channel,
		}).Info("событие доставки")
	default:
		logger.WithFields(log.Fields{
			"topic": message.Topic,
			"key":   string(message.Key),
		}).Info("событие из незнакомого топика")
	}
	return nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := parseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("некорректные аргументы")
	}

	logger := log.WithField("component", "events-watch")

	handler := func(_ context.Context, message *sarama.ConsumerMessage) error {
		return logEvent(logger, message)
	}

	consumer, err := kafka.NewConsumer(cfg.brokers, cfg.groupID, cfg.topics, handler)
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к kafka")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		log.WithError(err).Fatal("не удалось запустить consumer")
	}

	<-ctx.Done()

	if err := consumer.Stop(); err != nil {
		log.WithError(err).Warn("ошибка остановки consumer")
	}
}

package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/photokiosk/internal/metrics"
)

// Sender выдаёт готовое фото по одному каналу (telegram, email, печать).
type Sender interface {
	Channel() domain.DeliveryChannel
	// Send выполняет выдачу и возвращает канало-специфичные метаданные
	// для записи в Delivery.Meta.
	Send(ctx context.Context, recipient string, photo domain.Photo) (map[string]string, error)
}

// Dispatcher принимает запросы на выдачу оплаченных заказов и ведёт
// учёт попыток. Незавершённая доставка по паре (заказ, канал) блокирует
// повторный запрос, повтор после failed создаёт новую строку.
type Dispatcher struct {
	orders     domain.OrderRepository
	photos     domain.PhotoRepository
	deliveries domain.DeliveryRepository
	timeline   domain.TimelineRepository
	senders    map[domain.DeliveryChannel]Sender

	logger        *log.Entry
	metrics       *metrics.WorkflowMetrics
	kafkaProducer *kafka.Producer
}

// DispatcherOption настраивает Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics включает метрики Prometheus.
func WithMetrics(m *metrics.WorkflowMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithKafkaProducer включает публикацию событий доставки в Kafka.
func WithKafkaProducer(p *kafka.Producer) DispatcherOption {
	return func(d *Dispatcher) { d.kafkaProducer = p }
}

// WithTimeline включает запись событий доставки в timeline заказа.
func WithTimeline(t domain.TimelineRepository) DispatcherOption {
	return func(d *Dispatcher) { d.timeline = t }
}

// NewDispatcher создаёт диспетчер доставок.
func NewDispatcher(
	orders domain.OrderRepository,
	photos domain.PhotoRepository,
	deliveries domain.DeliveryRepository,
	senders []Sender,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		orders:     orders,
		photos:     photos,
		deliveries: deliveries,
		senders:    make(map[domain.DeliveryChannel]Sender, len(senders)),
		logger:     log.WithField("component", "delivery"),
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request выполняет выдачу заказа по каналу. Заказ должен быть оплачен,
// у сессии должен существовать разблокированный результат.
func (d *Dispatcher) Request(ctx context.Context, orderID string, channel domain.DeliveryChannel, recipient string) (domain.Delivery, error) {
	if orderID == "" {
		return domain.Delivery{}, domain.ErrOrderIDRequired
	}
	if !channel.Valid() {
		return domain.Delivery{}, domain.ErrDeliveryChannelInvalid
	}
	sender, ok := d.senders[channel]
	if !ok {
		return domain.Delivery{}, domain.ErrDeliveryChannelInvalid
	}

	order, err := d.orders.Get(orderID)
	if err != nil {
		return domain.Delivery{}, err
	}
	if order.Status != domain.OrderStatusPaid {
		return domain.Delivery{}, domain.ErrOrderNotPaid
	}

	photo, err := d.photos.FindResult(order.SessionID)
	if err != nil {
		return domain.Delivery{}, err
	}

	// Дедупликация: по заказу и каналу одновременно живёт не больше
	// одной незавершённой попытки.
	if existing, err := d.deliveries.FindActive(orderID, channel); err == nil {
		d.logger.WithFields(log.Fields{
			"order_id":    orderID,
			"channel":     channel,
			"delivery_id": existing.ID,
		}).Debug("активная доставка уже существует")
		return existing, domain.ErrDeliveryDuplicate
	}

	now := time.Now().UTC()
	delivery := domain.Delivery{
		ID:      uuid.NewString(),
		OrderID: order.ID,
		Channel: channel,
		Status:  domain.DeliveryStatusPending,
		Meta: map[string]string{
			domain.DeliveryMetaRecipient: recipient,
			domain.DeliveryMetaFilePath:  photo.Path,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.deliveries.Create(delivery); err != nil {
		return domain.Delivery{}, err
	}
	d.recordEvent(&delivery, kafka.EventTypeDeliveryRequested, "")

	meta, sendErr := sender.Send(ctx, recipient, photo)
	for k, v := range meta {
		delivery.Meta[k] = v
	}
	delivery.UpdatedAt = time.Now().UTC()

	if sendErr != nil {
		delivery.Status = domain.DeliveryStatusFailed
		delivery.Meta[domain.DeliveryMetaError] = sendErr.Error()
		if err := d.deliveries.Save(delivery); err != nil {
			d.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("не удалось зафиксировать провал доставки")
		}
		d.recordEvent(&delivery, kafka.EventTypeDeliveryFailed, sendErr.Error())
		d.logger.WithError(sendErr).WithFields(log.Fields{
			"order_id":    order.ID,
			"channel":     channel,
			"delivery_id": delivery.ID,
		}).Warn("доставка не удалась")
		return delivery, sendErr
	}

	delivery.Status = domain.DeliveryStatusDelivered
	if err := d.deliveries.Save(delivery); err != nil {
		return delivery, err
	}
	d.recordEvent(&delivery, kafka.EventTypeDeliveryCompleted, "")
	d.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"order_code":  order.Code,
		"channel":     channel,
		"delivery_id": delivery.ID,
	}).Info("заказ выдан")
	return delivery, nil
}

// ListByOrder возвращает историю доставок заказа.
func (d *Dispatcher) ListByOrder(orderID string) ([]domain.Delivery, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	return d.deliveries.ListByOrder(orderID)
}

func (d *Dispatcher) recordEvent(delivery *domain.Delivery, eventType kafka.EventType, reason string) {
	if d.metrics != nil && eventType != kafka.EventTypeDeliveryRequested {
		d.metrics.RecordDelivery(string(delivery.Channel), string(delivery.Status))
	}

	if d.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  delivery.OrderID,
			Type:     timelineEventType(eventType),
			Reason:   reason,
			Occurred: time.Now().UTC(),
		}
		if err := d.timeline.Append(event); err != nil {
			d.logger.WithError(err).WithField("order_id", delivery.OrderID).Warn("append timeline event failed")
		}
	}

	if d.kafkaProducer != nil {
		var metadata map[string]interface{}
		if reason != "" {
			metadata = map[string]interface{}{"reason": reason}
		}
		event := kafka.NewDeliveryEvent(eventType, delivery.ID, delivery.OrderID, string(delivery.Channel), metadata)
		if err := d.kafkaProducer.PublishEvent(kafka.TopicDeliveryEvents, delivery.OrderID, event); err != nil {
			d.logger.WithError(err).WithFields(log.Fields{
				"event_type":  eventType,
				"delivery_id": delivery.ID,
			}).Warn("failed to publish delivery event to kafka")
		}
	}
}

func timelineEventType(eventType kafka.EventType) string {
	switch eventType {
	case kafka.EventTypeDeliveryRequested:
		return "DeliveryRequested"
	case kafka.EventTypeDeliveryCompleted:
		return "DeliveryCompleted"
	case kafka.EventTypeDeliveryFailed:
		return "DeliveryFailed"
	default:
		return string(eventType)
	}
}

package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/photokiosk/internal/metrics"
)

const (
	// maxCodeAttempts ограничивает перегенерацию кода при коллизиях.
	maxCodeAttempts = 5

	// defaultComposeMaxAttempts — попытки генерации при временных сбоях бэкенда.
	defaultComposeMaxAttempts = 3

	// defaultComposeRetryDelay — базовая задержка между попытками генерации.
	defaultComposeRetryDelay = 2 * time.Second
)

// Engine управляет жизненным циклом заказа киоска: создание, генерация
// коллажа, оплата и сверка вебхуков. Статус заказа двигается только вперёд,
// конкурентные записи разруливаются optimistic locking с повторами.
type Engine struct {
	sessions   domain.SessionRepository
	photos     domain.PhotoRepository
	collages   domain.CollageRepository
	orders     domain.OrderRepository
	payments   domain.PaymentRepository
	deliveries domain.DeliveryRepository
	outbox     domain.OutboxRepository
	timeline   domain.TimelineRepository
	files      domain.FileStore
	composer   domain.ComposeGateway
	gateways   map[string]domain.PaymentGateway
	defaultGW  string

	logger        *log.Entry
	metrics       *metrics.WorkflowMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры

	composeSync        bool
	composeMaxAttempts int
	composeRetryDelay  time.Duration

	// Фоновые генерации учитываются в composeWG, их контексты наследуют
	// composeCtx. Shutdown отменяет контекст и дожидается горутин.
	composeWG     sync.WaitGroup
	composeCtx    context.Context
	composeCancel context.CancelFunc
}

// Option настраивает Engine.
type Option func(*Engine)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics включает метрики Prometheus.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithKafkaProducer включает публикацию событий в Kafka.
func WithKafkaProducer(p *kafka.Producer) Option {
	return func(e *Engine) { e.kafkaProducer = p }
}

// WithComposeSync переключает генерацию в синхронный режим: CreateOrder
// вернётся только после завершения генерации. Используется в тестах
// и при отладке без фоновых горутин.
func WithComposeSync(sync bool) Option {
	return func(e *Engine) { e.composeSync = sync }
}

// WithComposeRetry настраивает повторы генерации при временных сбоях.
func WithComposeRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.composeMaxAttempts = maxAttempts
		}
		if delay > 0 {
			e.composeRetryDelay = delay
		}
	}
}

// NewEngine создаёт рабочий экземпляр движка.
func NewEngine(
	sessions domain.SessionRepository,
	photos domain.PhotoRepository,
	collages domain.CollageRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	deliveries domain.DeliveryRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	files domain.FileStore,
	composer domain.ComposeGateway,
	gateways map[string]domain.PaymentGateway,
	defaultGateway string,
	opts ...Option,
) *Engine {
	e := &Engine{
		sessions:           sessions,
		photos:             photos,
		collages:           collages,
		orders:             orders,
		payments:           payments,
		deliveries:         deliveries,
		outbox:             outbox,
		timeline:           timeline,
		files:              files,
		composer:           composer,
		gateways:           gateways,
		defaultGW:          defaultGateway,
		logger:             log.WithField("component", "workflow"),
		composeMaxAttempts: defaultComposeMaxAttempts,
		composeRetryDelay:  defaultComposeRetryDelay,
	}
	e.composeCtx, e.composeCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Shutdown отменяет фоновые генерации и блокируется до их завершения.
// Прерванные заказы остаются в pending и догоняются после перезапуска
// повторным RunComposeJob.
func (e *Engine) Shutdown() {
	e.composeCancel()
	e.composeWG.Wait()
}

// updateStatus меняет статус заказа, проверяя допустимость перехода,
// и эмитит событие в timeline. Конфликты версий разрешаются повтором
// с exponential backoff поверх свежей копии заказа. Возвращает true,
// только если переход выполнил именно этот вызов: проигравший гонку
// получает false и не должен эмитить событие повторно.
func (e *Engine) updateStatus(order *domain.Order, newStatus domain.OrderStatus) (bool, error) {
	if order.Status == newStatus {
		return false, nil
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return false, domain.ErrOrderTransitionDenied
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		previousStatus := order.Status
		order.Status = newStatus
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := e.orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				e.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := e.orders.Get(order.ID)
				if loadErr != nil {
					e.logger.WithError(loadErr).WithField("order_id", order.ID).Error("failed to reload order after conflict")
					return false, loadErr
				}
				*order = fresh

				// Конкурент мог успеть довести заказ до нужного статуса.
				if order.Status == newStatus {
					return false, nil
				}
				if !order.Status.CanTransitionTo(newStatus) {
					return false, domain.ErrOrderTransitionDenied
				}

				delay := baseDelay * time.Duration(1<<uint(attempt))
				time.Sleep(delay)
				continue
			}

			order.Status = previousStatus
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return false, err
		}

		order.Version = prevVersion + 1
		e.emitStatusEvent(order)
		return true, nil
	}

	return false, domain.ErrOrderVersionConflict
}

func (e *Engine) emitStatusEvent(order *domain.Order) {
	payload := map[string]interface{}{
		"status":     order.Status,
		"updated_at": order.UpdatedAt.Format(time.RFC3339Nano),
		"ts":         order.UpdatedAt.Format(time.RFC3339Nano),
	}
	e.emitEvent(order, "OrderStatusChanged", payload)
}

func (e *Engine) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	payload["order_code"] = order.Code
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(msg); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}

	if e.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		occurred := time.Now().UTC()
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Reason:   reason,
			Occurred: occurred,
		}
		if err := e.timeline.Append(event); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if e.metrics != nil {
			e.metrics.RecordTimelineEvent()
		}
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (e *Engine) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if e.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.Code, order.SessionID, string(order.Status), metadata)
	if err := e.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		// Логируем ошибку, но не прерываем обработку: Kafka опциональный.
		e.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}

package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
)

// CreateOrder создаёт заказ по активной сессии с загруженным оригиналом
// и запускает генерацию коллажа. Цена фиксируется из каталога в момент
// создания, дальнейшие изменения каталога заказ не трогают.
func (e *Engine) CreateOrder(ctx context.Context, sessionID, collageID string) (domain.Order, error) {
	if sessionID == "" {
		return domain.Order{}, domain.ErrSessionIDRequired
	}
	if collageID == "" {
		return domain.Order{}, domain.ErrCollageIDRequired
	}

	session, err := e.sessions.Get(sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	if !session.Active() {
		return domain.Order{}, domain.ErrSessionFinished
	}

	if _, err := e.photos.FindOriginal(sessionID); err != nil {
		return domain.Order{}, err
	}

	collage, err := e.collages.Get(collageID)
	if err != nil {
		return domain.Order{}, err
	}
	if !collage.Active {
		return domain.Order{}, domain.ErrCollageInactive
	}

	order, err := e.createWithUniqueCode(session.ID, collage)
	if err != nil {
		return domain.Order{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordOrderCreated()
	}
	e.emitEvent(&order, "OrderCreated", map[string]interface{}{
		"session_id": order.SessionID,
		"collage_id": order.CollageID,
		"ts":         order.CreatedAt.Format(time.RFC3339Nano),
	})
	e.publishOrderEvent(kafka.EventTypeOrderCreated, &order, map[string]interface{}{
		"collage_id":  order.CollageID,
		"price_minor": order.PriceMinor,
	})

	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"order_code": order.Code,
		"session_id": order.SessionID,
	}).Info("заказ создан")

	if e.composeSync {
		if err := e.RunComposeJob(ctx, order.ID); err != nil {
			e.logger.WithError(err).WithField("order_id", order.ID).Warn("синхронная генерация завершилась с ошибкой")
		}
		return e.orders.Get(order.ID)
	}

	e.composeWG.Add(1)
	go func() {
		defer e.composeWG.Done()

		jobCtx, cancel := context.WithCancel(e.composeCtx)
		defer cancel()
		if err := e.RunComposeJob(jobCtx, order.ID); err != nil {
			e.logger.WithError(err).WithField("order_id", order.ID).Warn("фоновая генерация завершилась с ошибкой")
		}
	}()
	return order, nil
}

// createWithUniqueCode сохраняет заказ, перегенерируя код при коллизиях.
func (e *Engine) createWithUniqueCode(sessionID string, collage domain.Collage) (domain.Order, error) {
	now := time.Now().UTC()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newOrderCode()
		if err != nil {
			return domain.Order{}, err
		}

		order := domain.Order{
			ID:         uuid.NewString(),
			UUID:       uuid.NewString(),
			Code:       code,
			SessionID:  sessionID,
			CollageID:  collage.ID,
			PriceMinor: collage.PriceMinor,
			Status:     domain.OrderStatusPending,
			Version:    0,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		err = e.orders.Create(order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrOrderCodeConflict) {
			return domain.Order{}, err
		}
		e.logger.WithFields(log.Fields{
			"code":    code,
			"attempt": attempt + 1,
		}).Debug("коллизия кода заказа, перегенерируем")
	}
	return domain.Order{}, domain.ErrOrderCodeConflict
}

// OrderStatus — агрегированное состояние заказа для киоска и бота.
// Result заполняется только после оплаты, до неё наружу уходит лишь тизер.
type OrderStatus struct {
	Order      domain.Order
	Teaser     *domain.Photo
	Result     *domain.Photo
	Deliveries []domain.Delivery
}

// GetOrderStatus возвращает заказ с тизером и, после оплаты, с результатом.
func (e *Engine) GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	order, err := e.orders.Get(orderID)
	if err != nil {
		return OrderStatus{}, err
	}
	return e.buildStatus(order)
}

// GetOrderStatusByCode ищет заказ по коду NNN-NNN.
func (e *Engine) GetOrderStatusByCode(ctx context.Context, code string) (OrderStatus, error) {
	if !domain.OrderCodePattern.MatchString(code) {
		return OrderStatus{}, domain.ErrOrderCodeInvalid
	}
	order, err := e.orders.GetByCode(code)
	if err != nil {
		return OrderStatus{}, err
	}
	return e.buildStatus(order)
}

func (e *Engine) buildStatus(order domain.Order) (OrderStatus, error) {
	status := OrderStatus{Order: order}

	if teaser, err := e.photos.FindTeaser(order.SessionID); err == nil {
		status.Teaser = &teaser
	}
	if order.Status == domain.OrderStatusPaid {
		if result, err := e.photos.FindResult(order.SessionID); err == nil {
			status.Result = &result
		}
	}
	if e.deliveries != nil {
		if list, err := e.deliveries.ListByOrder(order.ID); err == nil {
			status.Deliveries = list
		}
	}
	return status, nil
}

// Timeline возвращает журнал событий заказа.
func (e *Engine) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := e.orders.Get(orderID); err != nil {
		return nil, err
	}
	if e.timeline == nil {
		return nil, nil
	}
	return e.timeline.List(orderID)
}

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

// RunComposeJob выполняет генерацию коллажа для заказа. Метод идемпотентен:
// заказ не в статусе pending пропускается без ошибки. Временные сбои
// бэкенда повторяются с backoff, отказ или исчерпание попыток терминально
// проваливает заказ.
func (e *Engine) RunComposeJob(ctx context.Context, orderID string) error {
	order, err := e.orders.Get(orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		e.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Debug("заказ уже обработан, генерация пропущена")
		return nil
	}

	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordComposeStarted()
		defer e.metrics.RecordComposeFinished(time.Since(start))
	}
	e.emitEvent(&order, "ComposeStarted", map[string]interface{}{
		"ts": start.UTC().Format(time.RFC3339Nano),
	})
	e.publishOrderEvent(kafka.EventTypeComposeStarted, &order, nil)

	collage, err := e.collages.Get(order.CollageID)
	if err != nil {
		return e.failOrder(&order, err)
	}
	original, err := e.photos.FindOriginal(order.SessionID)
	if err != nil {
		return e.failOrder(&order, err)
	}

	result, err := e.generateWithRetry(ctx, original.Path, collage)
	if err != nil {
		// Остановка процесса не проваливает заказ: он остаётся pending
		// и будет догнан повторным запуском генерации.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.logger.WithField("order_id", order.ID).Warn("генерация прервана, заказ остаётся pending")
			return err
		}
		return e.failOrder(&order, err)
	}

	// Ровно две записи результата: разблокированный финал и размытый тизер.
	now := time.Now().UTC()
	final := domain.Photo{
		ID:        uuid.NewString(),
		SessionID: order.SessionID,
		Type:      domain.PhotoTypeResult,
		BlurLevel: 0,
		Path:      result.ImagePath,
		Status:    domain.PhotoStatusReady,
		CreatedAt: now,
	}
	teaser := domain.Photo{
		ID:        uuid.NewString(),
		SessionID: order.SessionID,
		Type:      domain.PhotoTypeResult,
		BlurLevel: domain.TeaserBlurLevel,
		Path:      result.BlurredPath,
		Status:    domain.PhotoStatusReadyBlurred,
		CreatedAt: now,
	}
	if err := e.photos.Create(final); err != nil {
		return e.failOrder(&order, err)
	}
	if err := e.photos.Create(teaser); err != nil {
		return e.failOrder(&order, err)
	}

	if _, err := e.updateStatus(&order, domain.OrderStatusReadyBlurred); err != nil {
		return err
	}

	e.publishOrderEvent(kafka.EventTypeComposeCompleted, &order, map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"order_code": order.Code,
		"duration":   time.Since(start),
	}).Info("генерация завершена, тизер готов")
	return nil
}

// generateWithRetry повторяет генерацию при временных сбоях.
func (e *Engine) generateWithRetry(ctx context.Context, originalPath string, collage domain.Collage) (domain.ComposeResult, error) {
	var lastErr error
	delay := e.composeRetryDelay

	for attempt := 1; attempt <= e.composeMaxAttempts; attempt++ {
		result, err := e.composer.Generate(ctx, originalPath, collage.Prompt, collage.ReferenceImages)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrComposeTemporary) {
			return domain.ComposeResult{}, err
		}
		if attempt == e.composeMaxAttempts {
			break
		}

		if e.metrics != nil {
			e.metrics.RecordComposeRetry()
		}
		e.logger.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("временный сбой генерации, повторяем")

		select {
		case <-ctx.Done():
			return domain.ComposeResult{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return domain.ComposeResult{}, lastErr
}

// failOrder терминально проваливает заказ с фиксацией причины.
func (e *Engine) failOrder(order *domain.Order, rootErr error) error {
	order.FailureReason = rootErr.Error()
	moved, err := e.updateStatus(order, domain.OrderStatusFailed)
	if err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("не удалось зафиксировать провал заказа")
		return err
	}
	if !moved {
		return rootErr
	}

	if e.metrics != nil {
		e.metrics.RecordOrderFailed()
	}
	e.emitEvent(order, "OrderFailed", map[string]interface{}{
		"reason": rootErr.Error(),
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	e.publishOrderEvent(kafka.EventTypeOrderFailed, order, map[string]interface{}{
		"reason": rootErr.Error(),
	})
	return rootErr
}

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
)

// resolveGateway возвращает шлюз по коду провайдера, пустой код — шлюз по умолчанию.
func (e *Engine) resolveGateway(provider string) (domain.PaymentGateway, error) {
	if provider == "" {
		provider = e.defaultGW
	}
	gw, ok := e.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrPaymentProviderRequired, provider)
	}
	return gw, nil
}

// InitiatePayment регистрирует платёж у провайдера для заказа со статусом
// ready_blurred и сохраняет запись Payment со ссылкой на оплату.
func (e *Engine) InitiatePayment(ctx context.Context, orderID, provider string, method domain.PaymentMethod) (domain.Payment, domain.PaymentCharge, error) {
	if orderID == "" {
		return domain.Payment{}, domain.PaymentCharge{}, domain.ErrOrderIDRequired
	}
	if !method.Valid() {
		return domain.Payment{}, domain.PaymentCharge{}, domain.ErrPaymentMethodInvalid
	}

	order, err := e.orders.Get(orderID)
	if err != nil {
		return domain.Payment{}, domain.PaymentCharge{}, err
	}
	if order.Status != domain.OrderStatusReadyBlurred {
		return domain.Payment{}, domain.PaymentCharge{}, domain.ErrOrderNotReady
	}

	gw, err := e.resolveGateway(provider)
	if err != nil {
		return domain.Payment{}, domain.PaymentCharge{}, err
	}

	description := fmt.Sprintf("Фотоколлаж, заказ %s", order.Code)
	charge, err := gw.CreatePayment(ctx, order.PriceMinor, description, method)
	if err != nil {
		return domain.Payment{}, domain.PaymentCharge{}, err
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:                uuid.NewString(),
		OrderID:           order.ID,
		Method:            method,
		Provider:          gw.Provider(),
		ProviderPaymentID: charge.ProviderPaymentID,
		AmountMinor:       order.PriceMinor,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if charge.Status.Valid() && charge.Status != domain.PaymentStatusUnknown {
		payment.Status = charge.Status
	}
	if err := e.payments.Create(payment); err != nil {
		return domain.Payment{}, domain.PaymentCharge{}, err
	}

	e.emitEvent(&order, "PaymentInitiated", map[string]interface{}{
		"payment_id": payment.ID,
		"provider":   payment.Provider,
		"method":     string(method),
		"ts":         now.Format(time.RFC3339Nano),
	})
	e.publishOrderEvent(kafka.EventTypePaymentInitiated, &order, map[string]interface{}{
		"payment_id": payment.ID,
		"provider":   payment.Provider,
	})

	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"provider":   payment.Provider,
		"method":     method,
	}).Info("платёж зарегистрирован")
	return payment, charge, nil
}

// ReconcilePaymentWebhook обрабатывает вебхук провайдера. Доставка
// at-least-once: повтор с тем же статусом — no-op, статусы двигаются
// только вперёд, незнакомый статус заказа не трогает.
func (e *Engine) ReconcilePaymentWebhook(ctx context.Context, provider string, payload []byte) (domain.Payment, error) {
	gw, err := e.resolveGateway(provider)
	if err != nil {
		return domain.Payment{}, err
	}

	event, err := gw.ParseWebhook(payload)
	if err != nil {
		return domain.Payment{}, err
	}

	payment, err := e.payments.GetByProviderID(gw.Provider(), event.ProviderPaymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	logger := e.logger.WithFields(log.Fields{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"webhook_status": event.Status,
	})

	if e.metrics != nil {
		e.metrics.RecordWebhook(string(event.Status))
	}

	// Сентинел unknown никогда не двигает ни платёж, ни заказ.
	if event.Status == domain.PaymentStatusUnknown {
		logger.Debug("вебхук с неизвестным статусом, пропускаем")
		return payment, nil
	}

	// Повтор уже применённого статуса — идемпотентный no-op.
	if payment.Status == event.Status {
		logger.Debug("статус платежа уже применён, пропускаем")
		return payment, nil
	}

	// Из терминального статуса платёж двигается только к refunded после paid.
	if payment.Status.Terminal() &&
		!(payment.Status == domain.PaymentStatusPaid && event.Status == domain.PaymentStatusRefunded) {
		logger.Warn("вебхук пытается откатить терминальный платёж, пропускаем")
		return payment, nil
	}

	now := time.Now().UTC()
	payment.Status = event.Status
	payment.UpdatedAt = now
	if event.Status == domain.PaymentStatusPaid {
		payment.PaidAt = &now
	}
	if err := e.payments.Save(payment); err != nil {
		return domain.Payment{}, err
	}

	if event.Status == domain.PaymentStatusPaid {
		if err := e.markOrderPaid(payment, now); err != nil {
			return payment, err
		}
	}

	logger.Info("вебхук применён")
	return payment, nil
}

// markOrderPaid переводит заказ в paid. Заказ, уже оплаченный другим
// платежом, остаётся на месте.
func (e *Engine) markOrderPaid(payment domain.Payment, paidAt time.Time) error {
	order, err := e.orders.Get(payment.OrderID)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusPaid {
		return nil
	}

	order.PaidAt = &paidAt
	moved, err := e.updateStatus(&order, domain.OrderStatusPaid)
	if err != nil {
		return err
	}
	// Проигравший гонку сверок не эмитит OrderPaid второй раз:
	// событие и метрика принадлежат тому, кто выполнил переход.
	if !moved {
		return nil
	}

	if e.metrics != nil {
		e.metrics.RecordOrderPaid()
	}
	e.emitEvent(&order, "OrderPaid", map[string]interface{}{
		"payment_id": payment.ID,
		"provider":   payment.Provider,
		"ts":         paidAt.Format(time.RFC3339Nano),
	})
	e.publishOrderEvent(kafka.EventTypeOrderPaid, &order, map[string]interface{}{
		"payment_id": payment.ID,
	})
	return nil
}

// PollPaymentStatus опрашивает провайдера и применяет статус так же,
// как вебхук. Используется киоском, когда вебхук задерживается.
func (e *Engine) PollPaymentStatus(ctx context.Context, paymentID string) (domain.Payment, error) {
	payment, err := e.payments.Get(paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.Status.Terminal() {
		return payment, nil
	}

	gw, err := e.resolveGateway(payment.Provider)
	if err != nil {
		return domain.Payment{}, err
	}
	status, err := gw.GetStatus(ctx, payment.ProviderPaymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if status == domain.PaymentStatusUnknown || status == payment.Status {
		return payment, nil
	}

	now := time.Now().UTC()
	payment.Status = status
	payment.UpdatedAt = now
	if status == domain.PaymentStatusPaid {
		payment.PaidAt = &now
	}
	if err := e.payments.Save(payment); err != nil {
		return domain.Payment{}, err
	}
	if status == domain.PaymentStatusPaid {
		if err := e.markOrderPaid(payment, now); err != nil {
			return payment, err
		}
	}
	return payment, nil
}

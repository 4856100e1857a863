package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора сессии.
	ErrSessionIDRequired = errors.New("session_id is required")
	// Ошибка отсутствующего идентификатора коллажа.
	ErrCollageIDRequired = errors.New("collage_id is required")
	// Ошибка отсутствующего идентификатора заказа в платежах/доставках.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("price_minor must be non-negative")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// Ошибка отсутствующего кода платёжного провайдера.
	ErrPaymentProviderRequired = errors.New("payment provider is required")
	// Ошибка неподдерживаемого способа оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method is not supported")
	// Ошибка статуса заказа вне словаря state machine.
	ErrOrderStatusInvalid = errors.New("order status is invalid")
	// Ошибка кода заказа вне формата NNN-NNN.
	ErrOrderCodeInvalid = errors.New("order code must match NNN-NNN")
	// Ошибка неподдерживаемого канала доставки.
	ErrDeliveryChannelInvalid = errors.New("delivery channel is not supported")

	// ErrSessionNotFound возвращается, если сессия не найдена в репозитории.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinished — операция над уже закрытой сессией.
	ErrSessionFinished = errors.New("session already finished")
	// ErrPhotoNotFound возвращается, если фото не найдено.
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrOriginalPhotoExists — у сессии уже есть оригинал (инвариант: не более одного).
	ErrOriginalPhotoExists = errors.New("session already has an original photo")
	// ErrCollageNotFound возвращается, если шаблон не найден.
	ErrCollageNotFound = errors.New("collage not found")
	// ErrCollageInactive — шаблон выключен и недоступен для покупки.
	ErrCollageInactive = errors.New("collage is not active")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrDeliveryNotFound возвращается, если доставка не найдена.
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrTelegramUserNotFound — чат не привязан к заказу.
	ErrTelegramUserNotFound = errors.New("telegram user not found")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderCodeConflict — сгенерированный код уже занят; генератор повторяет попытку.
	ErrOrderCodeConflict = errors.New("order code already taken")
	// ErrOrderTransitionDenied — запрошенный переход не входит в state machine.
	ErrOrderTransitionDenied = errors.New("order status transition denied")
	// ErrOrderNotPaid — операция требует оплаченного заказа.
	ErrOrderNotPaid = errors.New("order is not paid")
	// ErrOrderNotReady — результат генерации ещё не готов.
	ErrOrderNotReady = errors.New("order result is not ready")
	// ErrDeliveryDuplicate — по заказу и каналу уже есть незавершённая доставка.
	ErrDeliveryDuplicate = errors.New("delivery already in progress for this channel")

	// ErrComposeTemporary — временная ошибка генератора (timeout, 5xx); можно повторить.
	ErrComposeTemporary = errors.New("compose backend temporary error")
	// ErrComposeRejected — генератор отклонил запрос (bad prompt, quota); повтор бессмыслен.
	ErrComposeRejected = errors.New("compose backend rejected request")
	// ErrPaymentTemporary — временная ошибка платёжного провайдера.
	ErrPaymentTemporary = errors.New("payment provider temporary error")
	// ErrWebhookInvalid — payload вебхука не разобран провайдерским шлюзом.
	ErrWebhookInvalid = errors.New("webhook payload is invalid")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки idempotency-хранилища.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
)

// IsNotFound относит ошибку к таксономии NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPhotoNotFound) ||
		errors.Is(err, ErrCollageNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrDeliveryNotFound) ||
		errors.Is(err, ErrTelegramUserNotFound)
}

// IsPreconditionFailed относит ошибку к таксономии PreconditionFailed:
// сущность существует, но находится не в том состоянии для запрошенного перехода.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrOrderNotPaid) ||
		errors.Is(err, ErrOrderNotReady) ||
		errors.Is(err, ErrOrderTransitionDenied) ||
		errors.Is(err, ErrSessionFinished) ||
		errors.Is(err, ErrCollageInactive) ||
		errors.Is(err, ErrDeliveryDuplicate) ||
		errors.Is(err, ErrOriginalPhotoExists)
}

// IsConflict относит ошибку к таксономии Conflict. Такие ошибки гасятся
// внутренним retry и наружу не отдаются.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict) ||
		errors.Is(err, ErrOrderCodeConflict)
}

// IsUpstreamFailure относит ошибку к таксономии UpstreamFailure.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrComposeTemporary) ||
		errors.Is(err, ErrComposeRejected) ||
		errors.Is(err, ErrPaymentTemporary)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

package domain

import (
	"regexp"
	"time"
)

// OrderStatus описывает жизненный цикл заказа фотокиоска.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, генерация коллажа ещё не завершена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusReadyBlurred — коллаж сгенерирован, клиенту доступен только размытый превью.
	OrderStatusReadyBlurred OrderStatus = "ready_blurred"
	// OrderStatusPaid — оплата подтверждена, заказ доступен для выдачи.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusFailed — генерация завершилась невосстановимой ошибкой.
	OrderStatusFailed OrderStatus = "failed"
)

// OrderCodePattern задаёт формат человекочитаемого кода заказа (NNN-NNN).
var OrderCodePattern = regexp.MustCompile(`^\d{3}-\d{3}$`)

// orderTransitions перечисляет допустимые рёбра state machine заказа.
// Выдача заказа не двигает статус дальше paid: повторные доставки легальны,
// их состояние живёт на Delivery.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusReadyBlurred, OrderStatusFailed},
	OrderStatusReadyBlurred: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:         {},
	OrderStatusFailed:       {},
}

// CanTransitionTo проверяет, допустим ли переход статуса по state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal сообщает, что из статуса нет исходящих переходов.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Order агрегирует состояние покупки коллажа в рамках сессии киоска.
type Order struct {
	ID string
	// UUID — стабильный внешний идентификатор заказа.
	UUID string
	// Code — человекочитаемый код NNN-NNN для выдачи через Telegram.
	Code       string
	SessionID  string
	CollageID  string
	PriceMinor int64
	Status     OrderStatus
	// FailureReason заполняется при переходе в failed.
	FailureReason string
	PaidAt        *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.SessionID == "" {
		errs = append(errs, ErrSessionIDRequired)
	}
	if o.CollageID == "" {
		errs = append(errs, ErrCollageIDRequired)
	}
	if o.PriceMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}
	if o.Code != "" && !OrderCodePattern.MatchString(o.Code) {
		errs = append(errs, ErrOrderCodeInvalid)
	}

	return errs
}

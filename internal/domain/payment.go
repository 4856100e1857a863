package domain

import "time"

// PaymentMethod описывает способ оплаты, выбранный на киоске.
type PaymentMethod string

const (
	// PaymentMethodSBP — оплата по QR через Систему быстрых платежей.
	PaymentMethodSBP PaymentMethod = "sbp"
	// PaymentMethodMir — оплата картой МИР через redirect.
	PaymentMethodMir PaymentMethod = "mir"
	// PaymentMethodCard — обычная банковская карта.
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodQR — банковский QR (не SBP).
	PaymentMethodQR PaymentMethod = "qr"
)

// Valid проверяет, что метод относится к поддерживаемым значениям.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodSBP, PaymentMethodMir, PaymentMethodCard, PaymentMethodQR:
		return true
	default:
		return false
	}
}

// PaymentStatus — канонический словарь статусов платежа.
// Провайдерские статусы нормализуются в этот набор шлюзом оплаты.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж инициирован, но не подтверждён.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — деньги списаны, заказ можно выдавать.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusCancelled — платёж отменён до списания.
	PaymentStatusCancelled PaymentStatus = "cancelled"
	// PaymentStatusFailed — провайдер отклонил платёж или произошла ошибка.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusUnknown — провайдер прислал код вне канонического словаря.
	// Такой статус никогда не двигает заказ.
	PaymentStatusUnknown PaymentStatus = "unknown"
)

// Valid проверяет, что статус относится к каноническому словарю.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusUnknown:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что статус платежа финальный.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusCancelled, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Payment описывает платёж, связанный с заказом. На заказ допускается
// несколько записей: неуспешная попытка вытесняется новой строкой, не мутацией.
type Payment struct {
	ID      string
	OrderID string
	Method  PaymentMethod
	// Provider — код платёжного провайдера (yookassa, alfabank, mock).
	Provider string
	// ProviderPaymentID — непрозрачный идентификатор платежа у провайдера.
	ProviderPaymentID string
	AmountMinor       int64
	Status            PaymentStatus
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !p.Method.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if p.Provider == "" {
		errs = append(errs, ErrPaymentProviderRequired)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}

package domain

import "time"

// DeliveryChannel — канал выдачи готового фото.
type DeliveryChannel string

const (
	DeliveryChannelTelegram DeliveryChannel = "telegram"
	DeliveryChannelEmail    DeliveryChannel = "email"
	DeliveryChannelPrint    DeliveryChannel = "print"
)

// Valid проверяет, что канал относится к поддерживаемым значениям.
func (c DeliveryChannel) Valid() bool {
	switch c {
	case DeliveryChannelTelegram, DeliveryChannelEmail, DeliveryChannelPrint:
		return true
	default:
		return false
	}
}

// DeliveryStatus описывает состояние попытки выдачи.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Ключи метаданных доставки. Meta хранит канало-специфичные детали
// (получатель, ответ провайдера, текст ошибки) одним непрозрачным словарём.
const (
	DeliveryMetaRecipient        = "to"
	DeliveryMetaFilePath         = "file_path"
	DeliveryMetaChatID           = "chat_id"
	DeliveryMetaError            = "error"
	DeliveryMetaProviderResponse = "provider_response"
)

// Delivery описывает одну попытку выдачи заказа по каналу.
// Повторная выдача после failed создаёт новую строку, а не мутирует канал.
type Delivery struct {
	ID        string
	OrderID   string
	Channel   DeliveryChannel
	Status    DeliveryStatus
	Meta      map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность полей доставки.
func (d *Delivery) Validate() []error {
	var errs []error

	if d.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !d.Channel.Valid() {
		errs = append(errs, ErrDeliveryChannelInvalid)
	}

	return errs
}

package domain

import "time"

// TelegramUser — связка Telegram-чата с киоском. Создаётся при первом
// сообщении боту и используется каналом доставки telegram для адресации.
type TelegramUser struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	// LinkedOrderID — последний заказ, предъявленный этим чатом по коду.
	LinkedOrderID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

package delivery

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/telegram"
)

// TelegramSender выдаёт готовое фото сообщением в Telegram-чат.
// Получатель — chat_id, который бот узнаёт при предъявлении кода заказа.
type TelegramSender struct {
	client *telegram.Client
	files  domain.FileStore
	logger *log.Entry
}

// NewTelegramSender создаёт канал доставки telegram.
func NewTelegramSender(client *telegram.Client, files domain.FileStore) *TelegramSender {
	return &TelegramSender{
		client: client,
		files:  files,
		logger: log.WithField("component", "delivery_telegram"),
	}
}

// Channel возвращает канал отправителя.
func (s *TelegramSender) Channel() domain.DeliveryChannel {
	return domain.DeliveryChannelTelegram
}

// Send отправляет фото в чат. recipient — chat_id в десятичной записи.
func (s *TelegramSender) Send(ctx context.Context, recipient string, photo domain.Photo) (map[string]string, error) {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat_id %q: %w", recipient, err)
	}

	data, err := s.files.Get(photo.Path)
	if err != nil {
		return nil, fmt.Errorf("telegram: read photo: %w", err)
	}

	if err := s.client.SendPhoto(ctx, chatID, data, "Ваш фотоколлаж готов!"); err != nil {
		return nil, err
	}

	s.logger.WithField("chat_id", chatID).Info("фото отправлено в чат")
	return map[string]string{domain.DeliveryMetaChatID: recipient}, nil
}

var _ Sender = (*TelegramSender)(nil)

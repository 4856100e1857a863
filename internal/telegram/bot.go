package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// DeliveryService — срез диспетчера доставок, нужный боту: выдача
// оплаченного заказа в предъявивший код чат.
type DeliveryService interface {
	Request(ctx context.Context, orderID string, channel domain.DeliveryChannel, recipient string) (domain.Delivery, error)
}

// Update — входящее обновление Bot API (webhook или long polling).
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message — сообщение пользователя боту.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User — отправитель сообщения.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Chat — чат, из которого пришло сообщение.
type Chat struct {
	ID int64 `json:"id"`
}

// Bot обрабатывает сообщения покупателей: пользователь присылает код
// заказа с чека (сам или через диплинк /start <код>), бот показывает
// статус и выдаёт оплаченное фото.
type Bot struct {
	client     *Client
	orders     domain.OrderRepository
	photos     domain.PhotoRepository
	users      domain.TelegramUserRepository
	files      domain.FileStore
	deliveries DeliveryService
	logger     *log.Entry
}

// NewBot создаёт обработчик сообщений бота.
func NewBot(
	client *Client,
	orders domain.OrderRepository,
	photos domain.PhotoRepository,
	users domain.TelegramUserRepository,
	files domain.FileStore,
	deliveries DeliveryService,
) *Bot {
	return &Bot{
		client:     client,
		orders:     orders,
		photos:     photos,
		users:      users,
		files:      files,
		deliveries: deliveries,
		logger:     log.WithField("component", "telegram_bot"),
	}
}

// HandleUpdate обрабатывает одно обновление. Ошибки отправки ответов
// логируются и не прерывают обработку: Telegram повторит webhook сам.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) error {
	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		return nil
	}
	msg := update.Message
	chatID := msg.Chat.ID

	b.upsertUser(msg)

	code := extractOrderCode(msg.Text)
	if code == "" {
		return b.client.SendMessage(ctx, chatID,
			"Пришлите код заказа с чека в формате 123-456, и я покажу статус вашего фото.")
	}

	order, err := b.orders.GetByCode(code)
	if err != nil {
		if domain.IsNotFound(err) {
			return b.client.SendMessage(ctx, chatID,
				"Заказ с кодом "+code+" не найден. Проверьте код на чеке.")
		}
		return err
	}

	b.linkOrder(msg, order.ID)

	logger := b.logger.WithFields(log.Fields{
		"chat_id":    chatID,
		"order_code": order.Code,
		"status":     order.Status,
	})

	switch order.Status {
	case domain.OrderStatusPending:
		logger.Debug("заказ ещё генерируется")
		return b.client.SendMessage(ctx, chatID,
			"Ваш коллаж ещё готовится. Загляните через минуту.")

	case domain.OrderStatusReadyBlurred:
		return b.sendTeaser(ctx, chatID, order)

	case domain.OrderStatusPaid:
		return b.deliverResult(ctx, chatID, order)

	case domain.OrderStatusFailed:
		logger.Debug("заказ провален")
		return b.client.SendMessage(ctx, chatID,
			"К сожалению, заказ "+order.Code+" не удалось обработать. Обратитесь к администратору киоска.")

	default:
		return b.client.SendMessage(ctx, chatID, "Статус заказа: "+string(order.Status))
	}
}

// sendTeaser показывает размытый превью и предлагает оплатить на киоске.
func (b *Bot) sendTeaser(ctx context.Context, chatID int64, order domain.Order) error {
	teaser, err := b.photos.FindTeaser(order.SessionID)
	if err != nil {
		return err
	}
	data, err := b.files.Get(teaser.Path)
	if err != nil {
		return err
	}
	return b.client.SendPhoto(ctx, chatID, data,
		"Ваш коллаж готов! Оплатите заказ "+order.Code+" на киоске, чтобы получить фото без размытия.")
}

// deliverResult выдаёт оплаченное фото через канал доставки telegram.
func (b *Bot) deliverResult(ctx context.Context, chatID int64, order domain.Order) error {
	_, err := b.deliveries.Request(ctx, order.ID, domain.DeliveryChannelTelegram, strconv.FormatInt(chatID, 10))
	if errors.Is(err, domain.ErrDeliveryDuplicate) {
		return b.client.SendMessage(ctx, chatID,
			"Фото по заказу "+order.Code+" уже отправлено в этот чат.")
	}
	if err != nil {
		b.logger.WithError(err).WithFields(log.Fields{
			"chat_id":    chatID,
			"order_code": order.Code,
		}).Warn("не удалось выдать заказ в чат")
		return b.client.SendMessage(ctx, chatID,
			"Не получилось отправить фото, попробуйте ещё раз чуть позже.")
	}
	return nil
}

func (b *Bot) upsertUser(msg *Message) {
	user := domain.TelegramUser{
		ChatID:    msg.Chat.ID,
		UpdatedAt: time.Now().UTC(),
	}
	if msg.From != nil {
		user.Username = msg.From.Username
		user.FirstName = msg.From.FirstName
		user.LastName = msg.From.LastName
	}
	if err := b.users.Upsert(user); err != nil {
		b.logger.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("upsert telegram user failed")
	}
}

func (b *Bot) linkOrder(msg *Message, orderID string) {
	user, err := b.users.Get(msg.Chat.ID)
	if err != nil {
		user = domain.TelegramUser{ChatID: msg.Chat.ID}
	}
	user.LinkedOrderID = orderID
	user.UpdatedAt = time.Now().UTC()
	if err := b.users.Upsert(user); err != nil {
		b.logger.WithError(err).WithField("chat_id", msg.Chat.ID).Warn("link order to chat failed")
	}
}

// extractOrderCode достаёт код заказа из текста сообщения. Понимает
// диплинк "/start 123-456" и просто присланный код.
func extractOrderCode(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/start") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	}
	if domain.OrderCodePattern.MatchString(text) {
		return text
	}
	return ""
}

package domain

import (
	"context"
	"time"
)

// ComposeResult — итог генерации: финальное изображение и размытый тизер.
// Пути относительны корню медиахранилища.
type ComposeResult struct {
	ImagePath   string
	BlurredPath string
}

// ComposeGateway описывает взаимодействие с бэкендом генерации коллажей.
// Размытие тизера — локальный детерминированный пост-процесс и выполняется
// одинаково независимо от того, какой бэкенд сгенерировал изображение.
type ComposeGateway interface {
	// Generate собирает коллаж из оригинала, промпта и референсов.
	// Временные сбои оборачиваются в ErrComposeTemporary, отказ бэкенда —
	// в ErrComposeRejected.
	Generate(ctx context.Context, originalPath, prompt string, refImages []string) (ComposeResult, error)
}

// PaymentCharge — результат создания платежа у провайдера.
type PaymentCharge struct {
	ProviderPaymentID string
	// PaymentURL — redirect-ссылка либо ссылка на QR-код.
	PaymentURL string
	QRCodeURL  string
	Status     PaymentStatus
}

// WebhookEvent — нормализованный вебхук провайдера.
type WebhookEvent struct {
	ProviderPaymentID string
	Status            PaymentStatus
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
type PaymentGateway interface {
	// Provider возвращает код провайдера для записи в Payment.
	Provider() string
	// CreatePayment создаёт списание у провайдера.
	CreatePayment(ctx context.Context, amountMinor int64, description string, method PaymentMethod) (PaymentCharge, error)
	// GetStatus опрашивает провайдера о состоянии платежа.
	GetStatus(ctx context.Context, providerPaymentID string) (PaymentStatus, error)
	// ParseWebhook переводит провайдерский payload в канонический словарь.
	// Неизвестные коды статусов отображаются в PaymentStatusUnknown.
	ParseWebhook(payload []byte) (WebhookEvent, error)
}

// FileStore абстрагирует медиахранилище: файлы адресуются относительными путями.
type FileStore interface {
	Put(path string, data []byte) error
	Get(path string) ([]byte, error)
	// AbsolutePath возвращает путь на диске (для печати и вложений).
	AbsolutePath(path string) string
	// URL возвращает публичную ссылку для фронтенда киоска.
	URL(path string) string
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

package domain

// SessionRepository описывает требования к хранилищу сессий.
type SessionRepository interface {
	// Create сохраняет новую сессию. Возвращает ошибку, если ID уже занят.
	Create(session Session) error
	// Get возвращает сессию по токену или ErrSessionNotFound, если её нет.
	Get(id string) (Session, error)
	// Save перезаписывает сессию (закрытие, обновление last_activity).
	Save(session Session) error
}

// PhotoRepository описывает требования к хранилищу фотографий.
// Фото неизменяемы: репозиторий умеет только добавлять и искать.
type PhotoRepository interface {
	Create(photo Photo) error
	Get(id string) (Photo, error)
	// FindOriginal возвращает оригинал сессии или ErrPhotoNotFound.
	FindOriginal(sessionID string) (Photo, error)
	// FindResult возвращает разблокированный результат (blur_level = 0).
	FindResult(sessionID string) (Photo, error)
	// FindTeaser возвращает размытый превью с максимальным blur_level.
	FindTeaser(sessionID string) (Photo, error)
	// ListBySession возвращает все фото сессии в порядке создания.
	ListBySession(sessionID string) ([]Photo, error)
}

// CollageRepository — read-only доступ к шаблонам для workflow-движка.
// Записью управляет админка, сюда входит только сидинг.
type CollageRepository interface {
	Create(collage Collage) error
	Get(id string) (Collage, error)
	// ListActive возвращает включённые шаблоны для витрины киоска.
	ListActive() ([]Collage, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderCodeConflict, если
	// человекочитаемый код уже занят (уникальность обеспечивает хранилище).
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// GetByCode ищет заказ по коду NNN-NNN (выдача через Telegram).
	GetByCode(code string) (Order, error)
	// ListBySession возвращает заказы сессии, новые первыми.
	ListBySession(sessionID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// PaymentRepository описывает требования к хранилищу платежей.
type PaymentRepository interface {
	Create(payment Payment) error
	Get(id string) (Payment, error)
	// GetByProviderID ищет платёж по паре (провайдер, идентификатор на его
	// стороне); вебхук приносит только провайдерский идентификатор.
	GetByProviderID(provider, providerPaymentID string) (Payment, error)
	// ListByOrder возвращает все попытки оплаты заказа, новые первыми.
	ListByOrder(orderID string) ([]Payment, error)
	Save(payment Payment) error
}

// DeliveryRepository описывает требования к хранилищу доставок.
type DeliveryRepository interface {
	Create(delivery Delivery) error
	Get(id string) (Delivery, error)
	// FindActive возвращает незавершённую (pending/delivered) доставку по
	// заказу и каналу; используется для дедупликации повторных запросов.
	FindActive(orderID string, channel DeliveryChannel) (Delivery, error)
	// ListByOrder возвращает все попытки доставки заказа, новые первыми.
	ListByOrder(orderID string) ([]Delivery, error)
	Save(delivery Delivery) error
}

// TelegramUserRepository хранит привязки Telegram-чатов.
type TelegramUserRepository interface {
	// Upsert создаёт или обновляет пользователя по chat_id.
	Upsert(user TelegramUser) error
	Get(chatID int64) (TelegramUser, error)
}

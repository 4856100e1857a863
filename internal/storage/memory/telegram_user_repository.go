package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// telegramUserRepositoryInMemory — in-memory реализация TelegramUserRepository.
type telegramUserRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[int64]domain.TelegramUser
}

// NewTelegramUserRepository возвращает in-memory репозиторий Telegram-пользователей.
func NewTelegramUserRepository() domain.TelegramUserRepository {
	return &telegramUserRepositoryInMemory{items: make(map[int64]domain.TelegramUser)}
}

// Upsert создаёт или обновляет запись пользователя по chat_id.
func (r *telegramUserRepositoryInMemory) Upsert(user domain.TelegramUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[user.ChatID]; ok {
		// Привязку к заказу не затираем пустым значением при обычном /start.
		if user.LinkedOrderID == "" {
			user.LinkedOrderID = existing.LinkedOrderID
		}
		user.CreatedAt = existing.CreatedAt
	}
	r.items[user.ChatID] = user
	return nil
}

// Get возвращает пользователя или ErrTelegramUserNotFound.
func (r *telegramUserRepositoryInMemory) Get(chatID int64) (domain.TelegramUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[chatID]
	if !ok {
		return domain.TelegramUser{}, domain.ErrTelegramUserNotFound
	}
	return user, nil
}

var _ domain.TelegramUserRepository = (*telegramUserRepositoryInMemory)(nil)

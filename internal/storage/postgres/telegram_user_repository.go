package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type telegramUserRepository struct {
	db *sql.DB
}

// NewTelegramUserRepository создаёт PostgreSQL-реализацию TelegramUserRepository.
func NewTelegramUserRepository(store *Store) domain.TelegramUserRepository {
	return &telegramUserRepository{db: store.DB()}
}

// Upsert создаёт или обновляет пользователя по chat_id. Привязка к заказу
// не затирается пустым значением при обычном сообщении боту.
func (r *telegramUserRepository) Upsert(user domain.TelegramUser) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO telegram_users (
			chat_id, username, first_name, last_name, linked_order_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (chat_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    linked_order_id = CASE
		        WHEN EXCLUDED.linked_order_id = '' THEN telegram_users.linked_order_id
		        ELSE EXCLUDED.linked_order_id
		    END,
		    updated_at = EXCLUDED.updated_at
	`,
		user.ChatID, user.Username, user.FirstName, user.LastName,
		user.LinkedOrderID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert telegram user: %w", err)
	}

	return nil
}

func (r *telegramUserRepository) Get(chatID int64) (domain.TelegramUser, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var user domain.TelegramUser
	err := r.db.QueryRowContext(ctx, `
		SELECT chat_id, username, first_name, last_name, linked_order_id, created_at, updated_at
		FROM telegram_users
		WHERE chat_id = $1
	`, chatID).Scan(
		&user.ChatID, &user.Username, &user.FirstName, &user.LastName,
		&user.LinkedOrderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TelegramUser{}, domain.ErrTelegramUserNotFound
		}
		return domain.TelegramUser{}, fmt.Errorf("select telegram user: %w", err)
	}

	return user, nil
}

var _ domain.TelegramUserRepository = (*telegramUserRepository)(nil)

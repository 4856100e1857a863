package domain

import "time"

// SessionStatus описывает состояние сессии киоска.
type SessionStatus string

const (
	// SessionStatusActive — клиент у киоска, сессия принимает фото и заказы.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusFinished — сессия закрыта; запись больше не мутирует.
	SessionStatusFinished SessionStatus = "finished"
)

// Session описывает одно физическое взаимодействие с киоском,
// от захвата фото до выдачи результата. Сессия владеет фотографиями и заказами.
type Session struct {
	// ID — непрозрачный токен, который киоск передаёт во всех запросах.
	ID           string
	DeviceID     string
	Status       SessionStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	LastActivity time.Time
}

// Active сообщает, принимает ли сессия новые фото и заказы.
func (s *Session) Active() bool {
	return s.Status == SessionStatusActive
}

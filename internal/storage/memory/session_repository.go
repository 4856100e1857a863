package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// sessionRepositoryInMemory — in-memory реализация SessionRepository.
type sessionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Session
}

// NewSessionRepository возвращает in-memory репозиторий сессий.
func NewSessionRepository() domain.SessionRepository {
	return &sessionRepositoryInMemory{items: make(map[string]domain.Session)}
}

// Create сохраняет новую сессию, если токен ещё не занят.
func (r *sessionRepositoryInMemory) Create(session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[session.ID]; exists {
		return domain.ErrSessionFinished
	}
	r.items[session.ID] = session
	return nil
}

// Get возвращает сессию или ErrSessionNotFound.
func (r *sessionRepositoryInMemory) Get(id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// Save перезаписывает сессию.
func (r *sessionRepositoryInMemory) Save(session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.items[session.ID] = session
	return nil
}

var _ domain.SessionRepository = (*sessionRepositoryInMemory)(nil)

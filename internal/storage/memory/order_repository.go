package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
// Уникальность кода и uuid обеспечивается вторичными индексами под общим
// мьютексом, как её обеспечивали бы unique-констрейнты в PostgreSQL.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Order
	byCode map[string]string
	byUUID map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:  make(map[string]domain.Order),
		byCode: make(map[string]string),
		byUUID: make(map[string]string),
	}
}

// Create сохраняет новый заказ, если ID, код и uuid ещё не заняты.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	if _, exists := r.byCode[order.Code]; exists {
		return domain.ErrOrderCodeConflict
	}
	if _, exists := r.byUUID[order.UUID]; exists {
		return domain.ErrOrderCodeConflict
	}

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order
	r.byCode[order.Code] = order.ID
	r.byUUID[order.UUID] = order.ID
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetByCode ищет заказ по человекочитаемому коду NNN-NNN.
func (r *orderRepositoryInMemory) GetByCode(code string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.items[id], nil
}

// ListBySession возвращает заказы сессии, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListBySession(sessionID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.SessionID != sessionID {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = order
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)

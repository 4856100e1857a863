package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// collageRepositoryInMemory — in-memory каталог коллажей.
type collageRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Collage
}

// NewCollageRepository возвращает in-memory репозиторий коллажей.
func NewCollageRepository() domain.CollageRepository {
	return &collageRepositoryInMemory{items: make(map[string]domain.Collage)}
}

// Create сохраняет коллаж в каталог.
func (r *collageRepositoryInMemory) Create(collage domain.Collage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[collage.ID] = collage
	return nil
}

// Get возвращает коллаж или ErrCollageNotFound.
func (r *collageRepositoryInMemory) Get(id string) (domain.Collage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collage, ok := r.items[id]
	if !ok {
		return domain.Collage{}, domain.ErrCollageNotFound
	}
	return collage, nil
}

// ListActive возвращает активные коллажи в стабильном порядке.
func (r *collageRepositoryInMemory) ListActive() ([]domain.Collage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Collage, 0, len(r.items))
	for _, collage := range r.items {
		if collage.Active {
			result = append(result, collage)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ domain.CollageRepository = (*collageRepositoryInMemory)(nil)

package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// photoRepositoryInMemory — in-memory реализация PhotoRepository.
type photoRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Photo
}

// NewPhotoRepository возвращает in-memory репозиторий фотографий.
func NewPhotoRepository() domain.PhotoRepository {
	return &photoRepositoryInMemory{items: make(map[string]domain.Photo)}
}

// Create сохраняет фото. Второй оригинал для сессии отклоняется —
// инвариант «не более одного original» держит хранилище, не вызывающий код.
func (r *photoRepositoryInMemory) Create(photo domain.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if photo.Type == domain.PhotoTypeOriginal {
		for _, existing := range r.items {
			if existing.SessionID == photo.SessionID && existing.Type == domain.PhotoTypeOriginal {
				return domain.ErrOriginalPhotoExists
			}
		}
	}

	r.items[photo.ID] = photo
	return nil
}

// Get возвращает фото или ErrPhotoNotFound.
func (r *photoRepositoryInMemory) Get(id string) (domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	photo, ok := r.items[id]
	if !ok {
		return domain.Photo{}, domain.ErrPhotoNotFound
	}
	return photo, nil
}

// FindOriginal возвращает оригинал сессии.
func (r *photoRepositoryInMemory) FindOriginal(sessionID string) (domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, photo := range r.items {
		if photo.SessionID == sessionID && photo.Type == domain.PhotoTypeOriginal {
			return photo, nil
		}
	}
	return domain.Photo{}, domain.ErrPhotoNotFound
}

// FindResult возвращает разблокированный результат (blur_level = 0).
func (r *photoRepositoryInMemory) FindResult(sessionID string) (domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, photo := range r.items {
		if photo.SessionID == sessionID && photo.Unlocked() {
			return photo, nil
		}
	}
	return domain.Photo{}, domain.ErrPhotoNotFound
}

// FindTeaser возвращает размытый превью с максимальным blur_level.
func (r *photoRepositoryInMemory) FindTeaser(sessionID string) (domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best domain.Photo
	found := false
	for _, photo := range r.items {
		if photo.SessionID != sessionID || !photo.Teaser() {
			continue
		}
		if !found || photo.BlurLevel > best.BlurLevel {
			best = photo
			found = true
		}
	}
	if !found {
		return domain.Photo{}, domain.ErrPhotoNotFound
	}
	return best, nil
}

// ListBySession возвращает фото сессии в порядке создания.
func (r *photoRepositoryInMemory) ListBySession(sessionID string) ([]domain.Photo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Photo, 0)
	for _, photo := range r.items {
		if photo.SessionID == sessionID {
			result = append(result, photo)
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

var _ domain.PhotoRepository = (*photoRepositoryInMemory)(nil)

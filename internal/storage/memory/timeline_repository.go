package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// timelineRepositoryInMemory хранит историю заказов в памяти. Инвариант:
// срез событий каждого заказа всегда отсортирован по occurred.
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	history := append(r.events[event.OrderID], event)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Occurred.Before(history[j].Occurred)
	})
	r.events[event.OrderID] = history

	return nil
}

func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.events[orderID]
	out := make([]domain.TimelineEvent, len(history))
	copy(out, history)
	return out, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)

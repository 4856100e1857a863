package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// deliveryRepositoryInMemory — in-memory реализация DeliveryRepository.
type deliveryRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Delivery
}

// NewDeliveryRepository возвращает in-memory репозиторий доставок.
func NewDeliveryRepository() domain.DeliveryRepository {
	return &deliveryRepositoryInMemory{items: make(map[string]domain.Delivery)}
}

// Create сохраняет доставку, отклоняя дубликат активного канала.
// Ровно одна незавершённая или успешная доставка на пару (заказ, канал).
func (r *deliveryRepositoryInMemory) Create(delivery domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.OrderID == delivery.OrderID &&
			existing.Channel == delivery.Channel &&
			existing.Status != domain.DeliveryStatusFailed {
			return domain.ErrDeliveryDuplicate
		}
	}

	r.items[delivery.ID] = cloneDelivery(delivery)
	return nil
}

// Get возвращает доставку или ErrDeliveryNotFound.
func (r *deliveryRepositoryInMemory) Get(id string) (domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivery, ok := r.items[id]
	if !ok {
		return domain.Delivery{}, domain.ErrDeliveryNotFound
	}
	return cloneDelivery(delivery), nil
}

// FindActive возвращает не-failed доставку по заказу и каналу.
func (r *deliveryRepositoryInMemory) FindActive(orderID string, channel domain.DeliveryChannel) (domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, delivery := range r.items {
		if delivery.OrderID == orderID &&
			delivery.Channel == channel &&
			delivery.Status != domain.DeliveryStatusFailed {
			return cloneDelivery(delivery), nil
		}
	}
	return domain.Delivery{}, domain.ErrDeliveryNotFound
}

// ListByOrder возвращает доставки заказа в порядке создания.
func (r *deliveryRepositoryInMemory) ListByOrder(orderID string) ([]domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Delivery, 0)
	for _, delivery := range r.items {
		if delivery.OrderID == orderID {
			result = append(result, cloneDelivery(delivery))
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

// Save перезаписывает доставку.
func (r *deliveryRepositoryInMemory) Save(delivery domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[delivery.ID]; !ok {
		return domain.ErrDeliveryNotFound
	}
	r.items[delivery.ID] = cloneDelivery(delivery)
	return nil
}

// cloneDelivery копирует meta-карту, чтобы вызывающий код не мутировал хранилище.
func cloneDelivery(d domain.Delivery) domain.Delivery {
	if d.Meta == nil {
		return d
	}
	meta := make(map[string]string, len(d.Meta))
	for k, v := range d.Meta {
		meta[k] = v
	}
	d.Meta = meta
	return d
}

var _ domain.DeliveryRepository = (*deliveryRepositoryInMemory)(nil)

package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// paymentRepositoryInMemory — in-memory реализация PaymentRepository.
// Индекс по (provider, provider_payment_id) нужен обработчику вебхуков,
// которому провайдер присылает только свой идентификатор платежа.
type paymentRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[string]domain.Payment
	byProvider map[string]string
}

// NewPaymentRepository возвращает in-memory репозиторий платежей.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{
		items:      make(map[string]domain.Payment),
		byProvider: make(map[string]string),
	}
}

func providerKey(provider, providerPaymentID string) string {
	return provider + "/" + providerPaymentID
}

// Create сохраняет новый платёж.
func (r *paymentRepositoryInMemory) Create(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[payment.ID] = payment
	if payment.ProviderPaymentID != "" {
		r.byProvider[providerKey(payment.Provider, payment.ProviderPaymentID)] = payment.ID
	}
	return nil
}

// Get возвращает платёж или ErrPaymentNotFound.
func (r *paymentRepositoryInMemory) Get(id string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.items[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// GetByProviderID ищет платёж по идентификатору на стороне провайдера.
func (r *paymentRepositoryInMemory) GetByProviderID(provider, providerPaymentID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byProvider[providerKey(provider, providerPaymentID)]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return r.items[id], nil
}

// ListByOrder возвращает платежи заказа в порядке создания.
func (r *paymentRepositoryInMemory) ListByOrder(orderID string) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Payment, 0)
	for _, payment := range r.items {
		if payment.OrderID == orderID {
			result = append(result, payment)
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

// Save перезаписывает платёж и обновляет провайдерский индекс.
func (r *paymentRepositoryInMemory) Save(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.items[payment.ID] = payment
	if payment.ProviderPaymentID != "" {
		r.byProvider[providerKey(payment.Provider, payment.ProviderPaymentID)] = payment.ID
	}
	return nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)

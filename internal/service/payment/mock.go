package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// ProviderMock — код тестового провайдера.
const ProviderMock = "mock"

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов
// и локальной разработки без реального эквайринга.
type MockGateway struct {
	CreateStatus domain.PaymentStatus
	CreateErr    error
	PollStatus   domain.PaymentStatus
	PollErr      error

	CreateCalls int
	PollCalls   int

	lastCharge domain.PaymentCharge
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		CreateStatus: domain.PaymentStatusPending,
		PollStatus:   domain.PaymentStatusPaid,
	}
}

// Provider возвращает код провайдера.
func (m *MockGateway) Provider() string { return ProviderMock }

// CreatePayment возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) CreatePayment(ctx context.Context, amountMinor int64, description string, method domain.PaymentMethod) (domain.PaymentCharge, error) {
	m.CreateCalls++
	if m.CreateErr != nil {
		return domain.PaymentCharge{}, m.CreateErr
	}
	m.lastCharge = domain.PaymentCharge{
		ProviderPaymentID: uuid.NewString(),
		PaymentURL:        "http://localhost/pay/mock",
		Status:            m.CreateStatus,
	}
	return m.lastCharge, nil
}

// LastCharge возвращает результат последнего CreatePayment.
func (m *MockGateway) LastCharge() domain.PaymentCharge {
	return m.lastCharge
}

// GetStatus возвращает настроенный статус и считает вызовы.
func (m *MockGateway) GetStatus(ctx context.Context, providerPaymentID string) (domain.PaymentStatus, error) {
	m.PollCalls++
	return m.PollStatus, m.PollErr
}

// ParseWebhook принимает payload в собственном формате mock-провайдера:
// {"payment_id": "...", "status": "paid"}.
func (m *MockGateway) ParseWebhook(payload []byte) (domain.WebhookEvent, error) {
	var hook struct {
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(payload, &hook); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: decode mock webhook: %v", domain.ErrWebhookInvalid, err)
	}
	if hook.PaymentID == "" {
		return domain.WebhookEvent{}, fmt.Errorf("%w: missing payment id", domain.ErrWebhookInvalid)
	}
	status := domain.PaymentStatus(hook.Status)
	if !status.Valid() {
		status = domain.PaymentStatusUnknown
	}
	return domain.WebhookEvent{ProviderPaymentID: hook.PaymentID, Status: status}, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)

package compose

import (
	"context"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// MockGateway — конфигурируемая заглушка ComposeGateway для тестов
// и локальной разработки без доступа к внешним генераторам.
type MockGateway struct {
	Result domain.ComposeResult
	Err    error

	// FailuresBeforeSuccess задаёт число временных сбоев перед успехом.
	FailuresBeforeSuccess int

	Calls int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Result: domain.ComposeResult{
			ImagePath:   "photos/results/mock.jpg",
			BlurredPath: "photos/results/mock-bl.jpg",
		},
	}
}

// Generate возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Generate(ctx context.Context, originalPath, prompt string, refImages []string) (domain.ComposeResult, error) {
	m.Calls++
	if m.FailuresBeforeSuccess > 0 {
		m.FailuresBeforeSuccess--
		return domain.ComposeResult{}, domain.ErrComposeTemporary
	}
	if m.Err != nil {
		return domain.ComposeResult{}, m.Err
	}
	return m.Result, nil
}

var _ domain.ComposeGateway = (*MockGateway)(nil)

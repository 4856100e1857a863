package app

import (
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/compose"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/payment"
)

// createComposeGateway выбирает бэкенд генерации по cfg.ComposeProvider.
func createComposeGateway(cfg Config, store domain.FileStore) (domain.ComposeGateway, error) {
	switch cfg.ComposeProvider {
	case "mock", "":
		return compose.NewMockGateway(), nil
	case "openrouter":
		if cfg.ComposeAPIKey == "" {
			return nil, fmt.Errorf("openrouter compose requires KIOSK_COMPOSE_API_KEY")
		}
		return compose.NewOpenRouterClient(cfg.ComposeEndpoint, cfg.ComposeAPIKey, store), nil
	case "genapi":
		if cfg.ComposeAPIKey == "" {
			return nil, fmt.Errorf("genapi compose requires KIOSK_COMPOSE_API_KEY")
		}
		return compose.NewGenAPIClient(cfg.ComposeEndpoint, cfg.ComposeAPIKey, store), nil
	default:
		return nil, fmt.Errorf("unsupported compose provider: %s", cfg.ComposeProvider)
	}
}

// createPaymentGateways собирает все настроенные платёжные шлюзы.
// Возвращает карту провайдеров и код провайдера по умолчанию.
func createPaymentGateways(cfg Config) (map[string]domain.PaymentGateway, string, error) {
	gateways := make(map[string]domain.PaymentGateway)

	gateways[payment.ProviderMock] = payment.NewMockGateway()

	if cfg.YookassaShopID != "" && cfg.YookassaSecret != "" {
		gateways[payment.ProviderYookassa] = payment.NewYookassaGateway(
			cfg.PaymentEndpoint, cfg.YookassaShopID, cfg.YookassaSecret, cfg.PaymentReturnURL,
		)
	}
	if cfg.AlfabankUserName != "" && cfg.AlfabankPassword != "" {
		gateways[payment.ProviderAlfabank] = payment.NewAlfabankGateway(
			cfg.PaymentEndpoint, cfg.AlfabankUserName, cfg.AlfabankPassword, cfg.PaymentReturnURL,
		)
	}

	defaultProvider := cfg.PaymentProvider
	if defaultProvider == "" {
		defaultProvider = payment.ProviderMock
	}
	if _, ok := gateways[defaultProvider]; !ok {
		return nil, "", fmt.Errorf("payment provider %s is not configured", defaultProvider)
	}

	return gateways, defaultProvider, nil
}

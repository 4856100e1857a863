package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

const (
	// ProviderAlfabank — код провайдера в записях Payment.
	ProviderAlfabank = "alfabank"

	// DefaultAlfabankEndpoint — тестовый REST API Альфа-Банка.
	DefaultAlfabankEndpoint = "https://alfa.rbsuat.com/payment/rest"
)

// AlfabankGateway — платёжный шлюз Альфа-Банка. API принимает form-encoded
// запросы с логином и паролем в параметрах, статусы отдаёт числовыми кодами.
type AlfabankGateway struct {
	endpoint  string
	userName  string
	password  string
	returnURL string
	client    *http.Client
	logger    *log.Entry
}

// NewAlfabankGateway создаёт шлюз Альфа-Банка.
func NewAlfabankGateway(endpoint, userName, password, returnURL string) *AlfabankGateway {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultAlfabankEndpoint
	}
	return &AlfabankGateway{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userName:  userName,
		password:  password,
		returnURL: returnURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    log.WithField("component", "payment.alfabank"),
	}
}

// Provider возвращает код провайдера.
func (g *AlfabankGateway) Provider() string { return ProviderAlfabank }

type alfabankRegisterResponse struct {
	OrderID      string `json:"orderId"`
	FormURL      string `json:"formUrl"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// CreatePayment регистрирует заказ через register.do.
func (g *AlfabankGateway) CreatePayment(ctx context.Context, amountMinor int64, description string, method domain.PaymentMethod) (domain.PaymentCharge, error) {
	params := url.Values{}
	params.Set("userName", g.userName)
	params.Set("password", g.password)
	params.Set("orderNumber", uuid.NewString())
	params.Set("amount", strconv.FormatInt(amountMinor, 10))
	params.Set("currencyCode", "RUB")
	params.Set("returnUrl", g.returnURL)
	if description != "" {
		params.Set("orderDescription", description)
	}

	body, err := g.post(ctx, "/register.do", params)
	if err != nil {
		return domain.PaymentCharge{}, err
	}

	var parsed alfabankRegisterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.PaymentCharge{}, fmt.Errorf("payment: decode response: %w", err)
	}
	if parsed.ErrorCode != "" && parsed.ErrorCode != "0" {
		return domain.PaymentCharge{}, fmt.Errorf("payment: alfabank error %s: %s", parsed.ErrorCode, parsed.ErrorMessage)
	}

	g.logger.WithField("payment_id", parsed.OrderID).Info("платёж зарегистрирован")
	return domain.PaymentCharge{
		ProviderPaymentID: parsed.OrderID,
		PaymentURL:        parsed.FormURL,
		Status:            domain.PaymentStatusPending,
	}, nil
}

type alfabankStatusResponse struct {
	OrderStatus  *int   `json:"OrderStatus"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// GetStatus опрашивает getOrderStatus.do и переводит числовой код
// в канонический словарь.
func (g *AlfabankGateway) GetStatus(ctx context.Context, providerPaymentID string) (domain.PaymentStatus, error) {
	params := url.Values{}
	params.Set("userName", g.userName)
	params.Set("password", g.password)
	params.Set("orderId", providerPaymentID)

	body, err := g.post(ctx, "/getOrderStatus.do", params)
	if err != nil {
		return domain.PaymentStatusUnknown, err
	}

	var parsed alfabankStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.PaymentStatusUnknown, fmt.Errorf("payment: decode response: %w", err)
	}
	if parsed.ErrorCode != "" && parsed.ErrorCode != "0" {
		return domain.PaymentStatusUnknown, fmt.Errorf("payment: alfabank error %s: %s", parsed.ErrorCode, parsed.ErrorMessage)
	}
	if parsed.OrderStatus == nil {
		return domain.PaymentStatusUnknown, nil
	}
	return alfabankStatus(*parsed.OrderStatus), nil
}

type alfabankWebhook struct {
	Action string `json:"action"`
	Data   struct {
		OrderID string `json:"orderId"`
		Status  *int   `json:"status"`
	} `json:"data"`
}

// ParseWebhook обрабатывает уведомление ORDER_STATUS_CHANGED.
// Прочие действия и незнакомые коды дают PaymentStatusUnknown.
func (g *AlfabankGateway) ParseWebhook(payload []byte) (domain.WebhookEvent, error) {
	var hook alfabankWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: decode alfabank webhook: %v", domain.ErrWebhookInvalid, err)
	}
	if hook.Data.OrderID == "" {
		return domain.WebhookEvent{}, fmt.Errorf("%w: missing order id", domain.ErrWebhookInvalid)
	}

	event := domain.WebhookEvent{
		ProviderPaymentID: hook.Data.OrderID,
		Status:            domain.PaymentStatusUnknown,
	}
	if hook.Action == "ORDER_STATUS_CHANGED" && hook.Data.Status != nil {
		event.Status = alfabankStatus(*hook.Data.Status)
	}
	return event, nil
}

func (g *AlfabankGateway) post(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: alfabank request: %v", domain.ErrPaymentTemporary, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrPaymentTemporary, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: alfabank status %d", domain.ErrPaymentTemporary, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("payment: alfabank status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// alfabankStatus отображает числовой OrderStatus в канонический словарь.
// 0 — зарегистрирован, 1 — захолдирован, 2 — оплачен, 3 — отменён,
// 4 — возврат, 5 — таймаут, 6 — отклонён.
func alfabankStatus(code int) domain.PaymentStatus {
	switch code {
	case 0, 1:
		return domain.PaymentStatusPending
	case 2:
		return domain.PaymentStatusPaid
	case 3:
		return domain.PaymentStatusCancelled
	case 4:
		return domain.PaymentStatusRefunded
	case 5, 6:
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusUnknown
	}
}

var _ domain.PaymentGateway = (*AlfabankGateway)(nil)

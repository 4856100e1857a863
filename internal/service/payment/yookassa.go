package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

const (
	// ProviderYookassa — код провайдера в записях Payment.
	ProviderYookassa = "yookassa"

	// DefaultYookassaEndpoint — REST API ЮKassa.
	DefaultYookassaEndpoint = "https://api.yookassa.ru/v3"
)

// YookassaGateway — платёжный шлюз ЮKassa. Авторизация basic (shop_id/secret),
// создание платежа идемпотентно через заголовок Idempotence-Key.
type YookassaGateway struct {
	endpoint  string
	shopID    string
	secretKey string
	returnURL string
	client    *http.Client
	logger    *log.Entry
}

// NewYookassaGateway создаёт шлюз ЮKassa.
func NewYookassaGateway(endpoint, shopID, secretKey, returnURL string) *YookassaGateway {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultYookassaEndpoint
	}
	return &YookassaGateway{
		endpoint:  strings.TrimRight(endpoint, "/"),
		shopID:    shopID,
		secretKey: secretKey,
		returnURL: returnURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    log.WithField("component", "payment.yookassa"),
	}
}

// Provider возвращает код провайдера.
func (g *YookassaGateway) Provider() string { return ProviderYookassa }

type yookassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yookassaConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type yookassaCreateRequest struct {
	Amount            yookassaAmount       `json:"amount"`
	Description       string               `json:"description"`
	Capture           bool                 `json:"capture"`
	Confirmation      yookassaConfirmation `json:"confirmation"`
	PaymentMethodData *yookassaMethodData  `json:"payment_method_data,omitempty"`
}

type yookassaMethodData struct {
	Type string `json:"type"`
}

type yookassaPayment struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	Confirmation *yookassaConfirmation `json:"confirmation"`
}

// CreatePayment регистрирует списание. Для СБП и QR подтверждение идёт
// через QR-ссылку, для карт — через redirect.
func (g *YookassaGateway) CreatePayment(ctx context.Context, amountMinor int64, description string, method domain.PaymentMethod) (domain.PaymentCharge, error) {
	reqBody := yookassaCreateRequest{
		Amount: yookassaAmount{
			Value:    fmt.Sprintf("%d.%02d", amountMinor/100, amountMinor%100),
			Currency: "RUB",
		},
		Description:  description,
		Capture:      true,
		Confirmation: yookassaConfirmation{Type: "redirect", ReturnURL: g.returnURL},
	}
	switch method {
	case domain.PaymentMethodSBP, domain.PaymentMethodQR:
		reqBody.PaymentMethodData = &yookassaMethodData{Type: "sbp"}
		reqBody.Confirmation = yookassaConfirmation{Type: "qr"}
	case domain.PaymentMethodMir, domain.PaymentMethodCard:
		reqBody.PaymentMethodData = &yookassaMethodData{Type: "bank_card"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return domain.PaymentCharge{}, fmt.Errorf("payment: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/payments", bytes.NewReader(body))
	if err != nil {
		return domain.PaymentCharge{}, fmt.Errorf("payment: build request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())

	parsed, err := g.do(req)
	if err != nil {
		return domain.PaymentCharge{}, err
	}

	charge := domain.PaymentCharge{
		ProviderPaymentID: parsed.ID,
		Status:            yookassaStatus(parsed.Status),
	}
	if parsed.Confirmation != nil {
		charge.PaymentURL = parsed.Confirmation.ConfirmationURL
		if parsed.Confirmation.Type == "qr" {
			charge.QRCodeURL = parsed.Confirmation.ConfirmationURL
		}
	}

	g.logger.WithFields(log.Fields{
		"payment_id": charge.ProviderPaymentID,
		"status":     charge.Status,
	}).Info("платёж зарегистрирован")
	return charge, nil
}

// GetStatus опрашивает платёж.
func (g *YookassaGateway) GetStatus(ctx context.Context, providerPaymentID string) (domain.PaymentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/payments/"+providerPaymentID, nil)
	if err != nil {
		return domain.PaymentStatusUnknown, fmt.Errorf("payment: build request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)

	parsed, err := g.do(req)
	if err != nil {
		return domain.PaymentStatusUnknown, err
	}
	return yookassaStatus(parsed.Status), nil
}

type yookassaWebhook struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"object"`
}

// ParseWebhook переводит уведомление ЮKassa в канонический словарь статусов.
// Незнакомое событие не ошибка: вернётся PaymentStatusUnknown, и заказ
// останется на месте.
func (g *YookassaGateway) ParseWebhook(payload []byte) (domain.WebhookEvent, error) {
	var hook yookassaWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("%w: decode yookassa webhook: %v", domain.ErrWebhookInvalid, err)
	}
	if hook.Object.ID == "" {
		return domain.WebhookEvent{}, fmt.Errorf("%w: missing payment id", domain.ErrWebhookInvalid)
	}

	event := domain.WebhookEvent{ProviderPaymentID: hook.Object.ID}
	switch hook.Event {
	case "payment.succeeded":
		event.Status = domain.PaymentStatusPaid
	case "payment.canceled":
		event.Status = domain.PaymentStatusCancelled
	case "payment.waiting_for_capture":
		event.Status = domain.PaymentStatusPending
	case "refund.succeeded":
		event.Status = domain.PaymentStatusRefunded
	default:
		event.Status = domain.PaymentStatusUnknown
	}
	return event, nil
}

func (g *YookassaGateway) do(req *http.Request) (yookassaPayment, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return yookassaPayment{}, fmt.Errorf("%w: yookassa request: %v", domain.ErrPaymentTemporary, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return yookassaPayment{}, fmt.Errorf("%w: read response: %v", domain.ErrPaymentTemporary, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return yookassaPayment{}, fmt.Errorf("%w: yookassa status %d", domain.ErrPaymentTemporary, resp.StatusCode)
	case resp.StatusCode >= 400:
		return yookassaPayment{}, fmt.Errorf("payment: yookassa status %d: %s", resp.StatusCode, string(body))
	}

	var parsed yookassaPayment
	if err := json.Unmarshal(body, &parsed); err != nil {
		return yookassaPayment{}, fmt.Errorf("payment: decode response: %w", err)
	}
	return parsed, nil
}

// yookassaStatus переводит статус ЮKassa в канонический словарь.
func yookassaStatus(s string) domain.PaymentStatus {
	switch s {
	case "pending", "waiting_for_capture":
		return domain.PaymentStatusPending
	case "succeeded":
		return domain.PaymentStatusPaid
	case "canceled":
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusUnknown
	}
}

var _ domain.PaymentGateway = (*YookassaGateway)(nil)

package payment_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/payment"
)

func TestAlfabankGateway_CreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/register.do", r.URL.Path)
		assert.Equal(t, "merchant", r.PostForm.Get("userName"))
		assert.Equal(t, "50000", r.PostForm.Get("amount"))

		_, _ = w.Write([]byte(`{"orderId":"ab-1","formUrl":"https://alfa.example/pay/ab-1"}`))
	}))
	defer server.Close()

	gw := payment.NewAlfabankGateway(server.URL, "merchant", "password", "http://kiosk.local")
	charge, err := gw.CreatePayment(context.Background(), 50000, "Заказ 123-456", domain.PaymentMethodMir)
	require.NoError(t, err)

	assert.Equal(t, "ab-1", charge.ProviderPaymentID)
	assert.Equal(t, "https://alfa.example/pay/ab-1", charge.PaymentURL)
	assert.Equal(t, domain.PaymentStatusPending, charge.Status)
}

func TestAlfabankGateway_CreatePaymentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errorCode":"5","errorMessage":"Access denied"}`))
	}))
	defer server.Close()

	gw := payment.NewAlfabankGateway(server.URL, "merchant", "password", "")
	_, err := gw.CreatePayment(context.Background(), 100, "x", domain.PaymentMethodCard)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPaymentTemporary)
}

func TestAlfabankGateway_GetStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want domain.PaymentStatus
	}{
		{0, domain.PaymentStatusPending},
		{1, domain.PaymentStatusPending},
		{2, domain.PaymentStatusPaid},
		{3, domain.PaymentStatusCancelled},
		{4, domain.PaymentStatusRefunded},
		{5, domain.PaymentStatusFailed},
		{6, domain.PaymentStatusFailed},
		{42, domain.PaymentStatusUnknown},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("code_%d", tc.code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/getOrderStatus.do", r.URL.Path)
				_, _ = fmt.Fprintf(w, `{"OrderStatus":%d}`, tc.code)
			}))
			defer server.Close()

			gw := payment.NewAlfabankGateway(server.URL, "merchant", "password", "")
			status, err := gw.GetStatus(context.Background(), "ab-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestAlfabankGateway_ParseWebhook(t *testing.T) {
	gw := payment.NewAlfabankGateway("", "merchant", "password", "")

	event, err := gw.ParseWebhook([]byte(`{"action":"ORDER_STATUS_CHANGED","data":{"orderId":"ab-1","status":2}}`))
	require.NoError(t, err)
	assert.Equal(t, "ab-1", event.ProviderPaymentID)
	assert.Equal(t, domain.PaymentStatusPaid, event.Status)

	// REFUND и прочие действия не двигают заказ.
	event, err = gw.ParseWebhook([]byte(`{"action":"REFUND","data":{"orderId":"ab-1"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnknown, event.Status)

	_, err = gw.ParseWebhook([]byte(`{"action":"ORDER_STATUS_CHANGED","data":{}}`))
	assert.ErrorIs(t, err, domain.ErrWebhookInvalid)
}

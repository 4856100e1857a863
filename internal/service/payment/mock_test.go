package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/payment"
)

func TestMockGateway_Defaults(t *testing.T) {
	mock := payment.NewMockGateway()

	charge, err := mock.CreatePayment(context.Background(), 50000, "Заказ 123-456", domain.PaymentMethodSBP)
	require.NoError(t, err)
	assert.NotEmpty(t, charge.ProviderPaymentID)
	assert.Equal(t, domain.PaymentStatusPending, charge.Status)
	assert.Equal(t, 1, mock.CreateCalls)

	status, err := mock.GetStatus(context.Background(), charge.ProviderPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, status)
}

func TestMockGateway_ParseWebhook(t *testing.T) {
	mock := payment.NewMockGateway()

	event, err := mock.ParseWebhook([]byte(`{"payment_id":"pay-1","status":"paid"}`))
	require.NoError(t, err)
	assert.Equal(t, "pay-1", event.ProviderPaymentID)
	assert.Equal(t, domain.PaymentStatusPaid, event.Status)

	// Незнакомый статус не превращается в ошибку, а падает в unknown.
	event, err = mock.ParseWebhook([]byte(`{"payment_id":"pay-1","status":"exploded"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnknown, event.Status)

	_, err = mock.ParseWebhook([]byte(`{"status":"paid"}`))
	assert.ErrorIs(t, err, domain.ErrWebhookInvalid)
}

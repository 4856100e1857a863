package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// errorResponse — единый формат ошибок API.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError переводит доменную таксономию ошибок в HTTP-коды.
// Конфликты версий гасятся внутренними повторами и наружу уходят
// как 503: клиенту достаточно повторить запрос.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsPreconditionFailed(err):
		status = http.StatusConflict
	case domain.IsConflict(err):
		status = http.StatusServiceUnavailable
	case domain.IsUpstreamFailure(err):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrWebhookInvalid),
		errors.Is(err, domain.ErrSessionIDRequired),
		errors.Is(err, domain.ErrCollageIDRequired),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrOrderCodeInvalid),
		errors.Is(err, domain.ErrPaymentMethodInvalid),
		errors.Is(err, domain.ErrPaymentProviderRequired),
		errors.Is(err, domain.ErrDeliveryChannelInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		status = http.StatusUnprocessableEntity
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// idempotencyHeader — заголовок клиента для дедупликации повторных POST.
const idempotencyHeader = "Idempotency-Key"

// captureWriter перехватывает тело ответа для сохранения в idempotency-записи.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotent оборачивает обработчик защитой по Idempotency-Key: повтор
// с тем же ключом и телом возвращает сохранённый ответ, повтор с другим
// телом отклоняется, конкурентный повтор получает 409.
func (s *Server) idempotent(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if s.idempotency == nil || key == "" {
			handler(c)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])

		record, err := s.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyTTL))
		switch {
		case err == nil:
			// Первый запрос с этим ключом, продолжаем обработку.
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			respondError(c, err)
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			s.replay(c, record)
			return
		default:
			respondError(c, err)
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		handler(c)

		status := writer.Status()
		if status < http.StatusBadRequest {
			err = s.idempotency.MarkDone(key, writer.body.Bytes(), status)
		} else {
			err = s.idempotency.MarkFailed(key, writer.body.Bytes(), status)
		}
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("failed to store idempotency result")
		}
	}
}

// replay возвращает сохранённый ответ завершённого запроса. Запрос,
// который всё ещё обрабатывается, получает 409 и должен повториться позже.
func (s *Server) replay(c *gin.Context, record domain.IdempotencyRecord) {
	if record.Status == domain.IdempotencyStatusProcessing {
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "request is still being processed"})
		return
	}

	c.Header(idempotencyHeader, record.Key)
	c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
	c.Abort()
}

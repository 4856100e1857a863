package http

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/delivery"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/workflow"
	"github.com/vladislavdragonenkov/photokiosk/internal/telegram"
)

// maxUploadBytes ограничивает размер загружаемого оригинала (15 МБ).
const maxUploadBytes = 15 << 20

// Server — HTTP API киоска поверх gin.
type Server struct {
	engine      *workflow.Engine
	dispatcher  *delivery.Dispatcher
	bot         *telegram.Bot
	files       domain.FileStore
	idempotency domain.IdempotencyRepository
	mediaDir    string
	logger      *log.Entry
}

// ServerOption настраивает Server.
type ServerOption func(*Server)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBot подключает обработчик Telegram-вебхуков.
func WithBot(bot *telegram.Bot) ServerOption {
	return func(s *Server) { s.bot = bot }
}

// WithIdempotency включает защиту POST /orders по заголовку Idempotency-Key.
func WithIdempotency(repo domain.IdempotencyRepository) ServerOption {
	return func(s *Server) { s.idempotency = repo }
}

// WithMediaDir включает раздачу медиафайлов по /media.
func WithMediaDir(dir string) ServerOption {
	return func(s *Server) { s.mediaDir = dir }
}

// NewServer создаёт HTTP API.
func NewServer(engine *workflow.Engine, dispatcher *delivery.Dispatcher, files domain.FileStore, opts ...ServerOption) *Server {
	s := &Server{
		engine:     engine,
		dispatcher: dispatcher,
		files:      files,
		logger:     log.WithField("component", "http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router собирает маршруты API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if s.mediaDir != "" {
		router.Static("/media", s.mediaDir)
	}

	api := router.Group("/api/v1")
	{
		api.POST("/sessions", s.startSession)
		api.POST("/sessions/:id/finish", s.finishSession)
		api.POST("/sessions/:id/photos", s.uploadPhoto)
		api.GET("/collages", s.listCollages)
		api.GET("/collages/:id", s.getCollage)

		api.POST("/orders", s.idempotent(s.createOrder))
		api.GET("/orders/:id", s.getOrder)
		api.GET("/orders/by-code/:code", s.getOrderByCode)
		api.GET("/orders/:id/timeline", s.orderTimeline)
		api.POST("/orders/:id/payment", s.initiatePayment)
		api.POST("/orders/:id/delivery", s.requestDelivery)

		api.POST("/payments/:id/poll", s.pollPayment)
		api.POST("/webhooks/payment/:provider", s.paymentWebhook)
		api.POST("/webhooks/telegram", s.telegramWebhook)
	}

	return router
}

type startSessionRequest struct {
	DeviceID string `json:"device_id"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	session, err := s.engine.StartSession(c.Request.Context(), req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(session))
}

func (s *Server) finishSession(c *gin.Context) {
	if err := s.engine.FinishSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type uploadPhotoRequest struct {
	PhotoBase64 string `json:"photo_base64"`
}

// uploadPhoto принимает оригинал либо multipart-файлом в поле photo,
// либо JSON с base64 (так фото шлёт веб-обвязка киоска).
func (s *Server) uploadPhoto(c *gin.Context) {
	data, err := s.readPhoto(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	photo, err := s.engine.UploadPhoto(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.newPhotoView(photo))
}

func (s *Server) readPhoto(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if file, err := c.FormFile("photo"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return io.ReadAll(src)
	}

	var req uploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(req.PhotoBase64)
}

func (s *Server) listCollages(c *gin.Context) {
	collages, err := s.engine.ListCollages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]collageView, 0, len(collages))
	for _, collage := range collages {
		views = append(views, newCollageView(collage))
	}
	c.JSON(http.StatusOK, gin.H{"collages": views})
}

func (s *Server) getCollage(c *gin.Context) {
	collage, err := s.engine.GetCollage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCollageView(collage))
}

type createOrderRequest struct {
	SessionID string `json:"session_id"`
	CollageID string `json:"collage_id"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := s.engine.CreateOrder(c.Request.Context(), req.SessionID, req.CollageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderView(order))
}

func (s *Server) getOrder(c *gin.Context) {
	status, err := s.engine.GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.newOrderStatusView(status))
}

func (s *Server) getOrderByCode(c *gin.Context) {
	status, err := s.engine.GetOrderStatusByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.newOrderStatusView(status))
}

func (s *Server) orderTimeline(c *gin.Context) {
	events, err := s.engine.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": newTimelineView(events)})
}

type initiatePaymentRequest struct {
	Provider string `json:"provider"`
	Method   string `json:"method"`
}

func (s *Server) initiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	payment, charge, err := s.engine.InitiatePayment(
		c.Request.Context(), c.Param("id"), req.Provider, domain.PaymentMethod(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPaymentView(payment, charge))
}

func (s *Server) pollPayment(c *gin.Context) {
	payment, err := s.engine.PollPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentView(payment, domain.PaymentCharge{}))
}

// paymentWebhook принимает уведомление провайдера. Провайдеру всегда
// отвечаем 200 на применённые, повторные и незнакомые уведомления,
// чтобы он не зациклился на ретраях.
func (s *Server) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}

	if _, err := s.engine.ReconcilePaymentWebhook(c.Request.Context(), c.Param("provider"), payload); err != nil {
		// Корректный вебхук про платёж, которого у нас нет (чужой стенд,
		// пересечение окружений), — no-op, иначе провайдер будет долбить повторами.
		if errors.Is(err, domain.ErrPaymentNotFound) {
			s.logger.WithField("provider", c.Param("provider")).Warn("вебхук по незнакомому платежу, пропускаем")
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type requestDeliveryRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
}

func (s *Server) requestDelivery(c *gin.Context) {
	var req requestDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.dispatcher.Request(
		c.Request.Context(), c.Param("id"), domain.DeliveryChannel(req.Channel), req.Recipient)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDeliveryView(result))
}

func (s *Server) telegramWebhook(c *gin.Context) {
	if s.bot == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "telegram bot is not configured"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid update"})
		return
	}

	// Telegram повторяет webhook при не-2xx ответе; внутренние ошибки
	// обработки логируем, но отвечаем 200, чтобы не копить повторы.
	if err := s.bot.HandleUpdate(c.Request.Context(), update); err != nil {
		s.logger.WithError(err).Warn("telegram update handling failed")
	}
	c.Status(http.StatusOK)
}

// idempotencyTTL — срок хранения ключей идемпотентности.
const idempotencyTTL = 24 * time.Hour

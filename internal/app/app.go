package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/photokiosk/internal/health"
	"github.com/vladislavdragonenkov/photokiosk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/photokiosk/internal/metrics"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/delivery"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/idempotency"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/outbox"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/workflow"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/files"
	"github.com/vladislavdragonenkov/photokiosk/internal/telegram"
	httptransport "github.com/vladislavdragonenkov/photokiosk/internal/transport/http"
	"github.com/vladislavdragonenkov/photokiosk/internal/version"
)

// Run собирает все зависимости киоска и блокируется до отмены ctx
// или фатальной ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() { _ = deps.closeFn() }()
	}

	fileStore, err := files.NewLocalStore(cfg.MediaRoot, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	if err := seedCollageCatalog(deps.collages, cfg.CollageCatalogPath, logger); err != nil {
		return err
	}

	composer, err := createComposeGateway(cfg, fileStore)
	if err != nil {
		return err
	}

	gateways, defaultProvider, err := createPaymentGateways(cfg)
	if err != nil {
		return err
	}

	// Kafka опционален: без брокера события остаются в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	workflowMetrics := metrics.NewWorkflowMetrics()

	engineOpts := []workflow.Option{
		workflow.WithLogger(log.WithField("component", "workflow")),
		workflow.WithMetrics(workflowMetrics),
		workflow.WithComposeSync(cfg.ComposeSync),
		workflow.WithComposeRetry(cfg.ComposeMaxAttempts, cfg.ComposeRetryDelay),
	}
	if kafkaProducer != nil {
		engineOpts = append(engineOpts, workflow.WithKafkaProducer(kafkaProducer))
	}
	engine := workflow.NewEngine(
		deps.sessions, deps.photos, deps.collages, deps.orders,
		deps.payments, deps.deliveries, deps.outboxRepo, deps.timeline,
		fileStore, composer, gateways, defaultProvider,
		engineOpts...,
	)

	var senders []delivery.Sender
	var tgClient *telegram.Client
	if cfg.TelegramToken != "" {
		tgClient = telegram.NewClient(cfg.TelegramAPIEndpoint, cfg.TelegramToken)
		senders = append(senders, delivery.NewTelegramSender(tgClient, fileStore))
	}
	if cfg.SMTPHost != "" {
		senders = append(senders, delivery.NewEmailSender(delivery.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, fileStore))
	}
	if cfg.PrintEnabled {
		senders = append(senders, delivery.NewPrintSender(delivery.PrinterConfig{
			Command:     cfg.PrinterCommand,
			PrinterName: cfg.PrinterName,
		}, fileStore))
	}

	dispatcherOpts := []delivery.DispatcherOption{
		delivery.WithLogger(log.WithField("component", "delivery")),
		delivery.WithMetrics(workflowMetrics),
		delivery.WithTimeline(deps.timeline),
	}
	if kafkaProducer != nil {
		dispatcherOpts = append(dispatcherOpts, delivery.WithKafkaProducer(kafkaProducer))
	}
	dispatcher := delivery.NewDispatcher(deps.orders, deps.photos, deps.deliveries, senders, dispatcherOpts...)

	serverOpts := []httptransport.ServerOption{
		httptransport.WithLogger(log.WithField("component", "http")),
		httptransport.WithIdempotency(deps.idempotency),
		httptransport.WithMediaDir(cfg.MediaRoot),
	}
	if tgClient != nil {
		bot := telegram.NewBot(tgClient, deps.orders, deps.photos, deps.users, fileStore, dispatcher)
		serverOpts = append(serverOpts, httptransport.WithBot(bot))
	}
	server := httptransport.NewServer(engine, dispatcher, fileStore, serverOpts...)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.outboxRepo,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Run(workersCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(
		deps.idempotency,
		idempotency.WithLogger(log.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(workersCtx)
	}()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(httpSrv, logger)
		// Сначала дожидаемся фоновых генераций: они пишут в хранилище,
		// которое закроется при выходе из Run.
		engine.Shutdown()
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		engine.Shutdown()
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает служебный HTTP-листенер: метрики Prometheus
// и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

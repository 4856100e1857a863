package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/photokiosk/internal/health"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/memory"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/postgres"
)

const postgresPingTimeout = 2 * time.Second

// runtimeDependencies объединяет репозитории, выбранные по StorageDriver.
type runtimeDependencies struct {
	sessions    domain.SessionRepository
	photos      domain.PhotoRepository
	collages    domain.CollageRepository
	orders      domain.OrderRepository
	payments    domain.PaymentRepository
	deliveries  domain.DeliveryRepository
	users       domain.TelegramUserRepository
	outboxRepo  domain.OutboxRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies создаёт хранилище по cfg.StorageDriver.
// Для postgres при PostgresAutoMigrate выполняются миграции.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		return runtimeDependencies{
			sessions:    memory.NewSessionRepository(),
			photos:      memory.NewPhotoRepository(),
			collages:    memory.NewCollageRepository(),
			orders:      memory.NewOrderRepository(),
			payments:    memory.NewPaymentRepository(),
			deliveries:  memory.NewDeliveryRepository(),
			users:       memory.NewTelegramUserRepository(),
			outboxRepo:  memory.NewOutboxRepository(),
			timeline:    memory.NewTimelineRepository(),
			idempotency: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage requires KIOSK_POSTGRES_DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		checker := healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), postgresPingTimeout)
			defer cancel()
			return store.Ping(pingCtx)
		})

		return runtimeDependencies{
			sessions:       postgres.NewSessionRepository(store),
			photos:         postgres.NewPhotoRepository(store),
			collages:       postgres.NewCollageRepository(store),
			orders:         postgres.NewOrderRepository(store),
			payments:       postgres.NewPaymentRepository(store),
			deliveries:     postgres.NewDeliveryRepository(store),
			users:          postgres.NewTelegramUserRepository(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			timeline:       postgres.NewTimelineRepository(store),
			idempotency:    postgres.NewIdempotencyRepository(store),
			storageChecker: checker,
			closeFn:        store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/app"
)

const (
	envHTTPAddr    = "KIOSK_HTTP_ADDR"
	envMetricsAddr = "KIOSK_METRICS_ADDR"

	envStorageDriver       = "KIOSK_STORAGE_DRIVER"
	envPostgresDSN         = "KIOSK_POSTGRES_DSN"
	envPostgresAutoMigrate = "KIOSK_POSTGRES_AUTO_MIGRATE"

	envMediaRoot      = "KIOSK_MEDIA_ROOT"
	envPublicBaseURL  = "KIOSK_PUBLIC_BASE_URL"
	envCollageCatalog = "KIOSK_COLLAGE_CATALOG"

	envComposeProvider    = "KIOSK_COMPOSE_PROVIDER"
	envComposeEndpoint    = "KIOSK_COMPOSE_ENDPOINT"
	envComposeAPIKey      = "KIOSK_COMPOSE_API_KEY"
	envComposeSync        = "KIOSK_COMPOSE_SYNC"
	envComposeMaxAttempts = "KIOSK_COMPOSE_MAX_ATTEMPTS"
	envComposeRetryDelay  = "KIOSK_COMPOSE_RETRY_DELAY"

	envPaymentProvider  = "KIOSK_PAYMENT_PROVIDER"
	envPaymentEndpoint  = "KIOSK_PAYMENT_ENDPOINT"
	envPaymentReturnURL = "KIOSK_PAYMENT_RETURN_URL"
	envYookassaShopID   = "KIOSK_YOOKASSA_SHOP_ID"
	envYookassaSecret   = "KIOSK_YOOKASSA_SECRET_KEY"
	envAlfabankUserName = "KIOSK_ALFABANK_USERNAME"
	envAlfabankPassword = "KIOSK_ALFABANK_PASSWORD"

	envSMTPHost     = "KIOSK_SMTP_HOST"
	envSMTPPort     = "KIOSK_SMTP_PORT"
	envSMTPUsername = "KIOSK_SMTP_USERNAME"
	envSMTPPassword = "KIOSK_SMTP_PASSWORD"
	envSMTPFrom     = "KIOSK_SMTP_FROM"

	envTelegramToken       = "KIOSK_TELEGRAM_TOKEN"
	envTelegramAPIEndpoint = "KIOSK_TELEGRAM_API_ENDPOINT"

	envPrintEnabled   = "KIOSK_PRINT_ENABLED"
	envPrinterCommand = "KIOSK_PRINTER_COMMAND"
	envPrinterName    = "KIOSK_PRINTER_NAME"

	envKafkaBrokers = "KIOSK_KAFKA_BROKERS"

	envOutboxPollInterval = "KIOSK_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize    = "KIOSK_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts  = "KIOSK_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay   = "KIOSK_OUTBOX_RETRY_DELAY"

	envIdempotencyCleanupInterval  = "KIOSK_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "KIOSK_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv строит конфигурацию из окружения. Невалидные значения
// не прерывают запуск: возвращаются предупреждения, поле остаётся дефолтным.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	readString := func(key string, dst *string) {
		if raw, ok := lookup(key); ok {
			if value := strings.TrimSpace(raw); value != "" {
				*dst = value
			}
		}
	}
	readBool := func(key string, dst *bool) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseBool(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = value
	}
	readInt := func(key string, dst *int, valid func(int) bool, hint string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseInt(raw, valid, hint)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = value
	}
	readDuration := func(key string, dst *time.Duration, valid func(time.Duration) bool, hint string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseDuration(raw, valid, hint)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = value
	}

	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	readString(envHTTPAddr, &cfg.HTTPAddr)
	readString(envMetricsAddr, &cfg.MetricsAddr)

	if raw, ok := lookup(envStorageDriver); ok {
		if value := strings.ToLower(strings.TrimSpace(raw)); value != "" {
			cfg.StorageDriver = value
		}
	}
	readString(envPostgresDSN, &cfg.PostgresDSN)
	readBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	readString(envMediaRoot, &cfg.MediaRoot)
	readString(envPublicBaseURL, &cfg.PublicBaseURL)
	readString(envCollageCatalog, &cfg.CollageCatalogPath)

	readString(envComposeProvider, &cfg.ComposeProvider)
	readString(envComposeEndpoint, &cfg.ComposeEndpoint)
	readString(envComposeAPIKey, &cfg.ComposeAPIKey)
	readBool(envComposeSync, &cfg.ComposeSync)
	readInt(envComposeMaxAttempts, &cfg.ComposeMaxAttempts, positive, "must be > 0")
	readDuration(envComposeRetryDelay, &cfg.ComposeRetryDelay, positiveDuration, "must be > 0")

	readString(envPaymentProvider, &cfg.PaymentProvider)
	readString(envPaymentEndpoint, &cfg.PaymentEndpoint)
	readString(envPaymentReturnURL, &cfg.PaymentReturnURL)
	readString(envYookassaShopID, &cfg.YookassaShopID)
	readString(envYookassaSecret, &cfg.YookassaSecret)
	readString(envAlfabankUserName, &cfg.AlfabankUserName)
	readString(envAlfabankPassword, &cfg.AlfabankPassword)

	readString(envSMTPHost, &cfg.SMTPHost)
	readInt(envSMTPPort, &cfg.SMTPPort, positive, "must be > 0")
	readString(envSMTPUsername, &cfg.SMTPUsername)
	readString(envSMTPPassword, &cfg.SMTPPassword)
	readString(envSMTPFrom, &cfg.SMTPFrom)

	readString(envTelegramToken, &cfg.TelegramToken)
	readString(envTelegramAPIEndpoint, &cfg.TelegramAPIEndpoint)

	readBool(envPrintEnabled, &cfg.PrintEnabled)
	readString(envPrinterCommand, &cfg.PrinterCommand)
	readString(envPrinterName, &cfg.PrinterName)

	readString(envKafkaBrokers, &cfg.KafkaBrokers)

	readDuration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	readInt(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	readInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	readDuration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")

	readDuration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	readInt(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positive, "must be > 0")

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
	return parsed, nil
}

func parseInt(raw string, valid func(int) bool, hint string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("value %d is out of range: %s", value, hint)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, hint string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("value %s is out of range: %s", value, hint)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем фотокиоск")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("фотокиоск остановлен")
}

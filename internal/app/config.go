package app

import "time"

// StorageDriver выбирает реализацию хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска киоска.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	MediaRoot     string
	PublicBaseURL string

	// Каталог шаблонов коллажей: JSON-файл, загружаемый при старте.
	// Пустое значение означает встроенный демо-каталог.
	CollageCatalogPath string

	ComposeProvider    string
	ComposeEndpoint    string
	ComposeAPIKey      string
	ComposeSync        bool
	ComposeMaxAttempts int
	ComposeRetryDelay  time.Duration

	PaymentProvider  string
	PaymentEndpoint  string
	PaymentReturnURL string
	YookassaShopID   string
	YookassaSecret   string
	AlfabankUserName string
	AlfabankPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TelegramToken       string
	TelegramAPIEndpoint string

	PrintEnabled   bool
	PrinterCommand string
	PrinterName    string

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает рабочую конфигурацию для локального запуска:
// in-memory хранилище, mock-провайдеры генерации и оплаты.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		MediaRoot:     "./media",
		PublicBaseURL: "http://localhost:8080/media",

		ComposeProvider:    "mock",
		ComposeMaxAttempts: 3,
		ComposeRetryDelay:  2 * time.Second,

		PaymentProvider: "mock",

		SMTPPort: 587,

		PrinterCommand: "lp",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

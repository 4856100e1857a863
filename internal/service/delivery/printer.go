package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// PrinterConfig — параметры термопринтера киоска.
type PrinterConfig struct {
	// Command — утилита печати, по умолчанию lp из CUPS.
	Command string
	// PrinterName — имя очереди печати; пустое значение печатает
	// на принтер по умолчанию.
	PrinterName string
}

// PrintSender печатает готовое фото на принтере киоска через CUPS.
// Получатель для этого канала не нужен, аргумент recipient игнорируется.
type PrintSender struct {
	config PrinterConfig
	files  domain.FileStore
	logger *log.Entry
}

// NewPrintSender создаёт канал доставки print.
func NewPrintSender(config PrinterConfig, files domain.FileStore) *PrintSender {
	if config.Command == "" {
		config.Command = "lp"
	}
	return &PrintSender{
		config: config,
		files:  files,
		logger: log.WithField("component", "delivery_print"),
	}
}

// Channel возвращает канал отправителя.
func (s *PrintSender) Channel() domain.DeliveryChannel {
	return domain.DeliveryChannelPrint
}

// Send ставит файл в очередь печати и проверяет код возврата.
func (s *PrintSender) Send(ctx context.Context, recipient string, photo domain.Photo) (map[string]string, error) {
	args := make([]string, 0, 3)
	if s.config.PrinterName != "" {
		args = append(args, "-d", s.config.PrinterName)
	}
	args = append(args, s.files.AbsolutePath(photo.Path))

	cmd := exec.CommandContext(ctx, s.config.Command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("print: %s: %w (%s)", s.config.Command, err, strings.TrimSpace(string(output)))
	}

	s.logger.WithField("printer", s.config.PrinterName).Info("фото поставлено в очередь печати")

	meta := map[string]string{}
	if out := strings.TrimSpace(string(output)); out != "" {
		meta[domain.DeliveryMetaProviderResponse] = out
	}
	return meta, nil
}

var _ Sender = (*PrintSender)(nil)

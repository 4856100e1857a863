package delivery

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// SMTPConfig — параметры SMTP-сервера для канала email.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// EmailSender выдаёт готовое фото письмом с вложением.
type EmailSender struct {
	config SMTPConfig
	files  domain.FileStore
	dialer *gomail.Dialer
	logger *log.Entry
}

// NewEmailSender создаёт канал доставки email.
func NewEmailSender(config SMTPConfig, files domain.FileStore) *EmailSender {
	if config.Subject == "" {
		config.Subject = "Ваш фотоколлаж готов"
	}
	return &EmailSender{
		config: config,
		files:  files,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: log.WithField("component", "delivery_email"),
	}
}

// Channel возвращает канал отправителя.
func (s *EmailSender) Channel() domain.DeliveryChannel {
	return domain.DeliveryChannelEmail
}

// Send отправляет письмо с готовым фото во вложении.
func (s *EmailSender) Send(ctx context.Context, recipient string, photo domain.Photo) (map[string]string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || !strings.Contains(recipient, "@") {
		return nil, fmt.Errorf("email: invalid recipient %q", recipient)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.config.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", s.config.Subject)
	msg.SetBody("text/plain", "Спасибо за покупку! Готовое фото во вложении.")
	msg.Attach(s.files.AbsolutePath(photo.Path))

	if err := s.dialer.DialAndSend(msg); err != nil {
		return nil, fmt.Errorf("email: send: %w", err)
	}

	s.logger.WithField("to", recipient).Info("письмо отправлено")
	return nil, nil
}

var _ Sender = (*EmailSender)(nil)

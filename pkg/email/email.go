// Package email delivers transactional mail through SES, SMTP or the log.
package email

import (
	"context"
	"fmt"
	"net/mail"

	"go.uber.org/zap"
)

// Message is a plain-text email to one recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a Sender.
type Config struct {
	Provider    string // ses, smtp or log
	FromAddress string
	FromName    string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c Config) from() string {
	return (&mail.Address{Name: c.FromName, Address: c.FromAddress}).String()
}

// New builds the sender named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "ses":
		return NewSES(ctx, cfg, logger)
	case "smtp":
		return NewSMTP(cfg, logger), nil
	case "log", "":
		return NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

// LogSender writes messages to the log instead of delivering them. Used in development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (log only)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wneessen/go-mail"

	"bdcsubs/internal/config"
	"bdcsubs/internal/infrastructure"
)

// Message is one outgoing email
type Message struct {
	From        string
	To          []string
	BCC         []string
	Subject     string
	Body        string
	Attachments []string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through an authenticated relay over implicit TLS
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates a sender for the relay in cfg
func NewSMTPSender(cfg config.SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: infrastructure.WithComponent(logger, "smtp")}
}

// build converts msg to a go-mail message. Attachments that no longer exist
// are skipped with a warning rather than failing the send.
func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if len(msg.BCC) > 0 {
		if err := m.Bcc(msg.BCC...); err != nil {
			return nil, fmt.Errorf("invalid bcc address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			s.logger.Warn("Attachment not found", slog.String("path", path))
			continue
		}
		m.AttachFile(path)
	}
	return m, nil
}

// Send delivers msg. It is attempted once.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send %q: %w", msg.Subject, err)
	}

	s.logger.InfoContext(ctx, "Email sent",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("attachments", len(msg.Attachments)))
	return nil
}

package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// Dialer is the part of *gomail.Dialer the notifier uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Notifier sends plain-text email over SMTP.
type Notifier struct {
	from   string
	dialer Dialer
}

// New creates a notifier that dials the configured SMTP server per message.
func New(cfg Config) *Notifier {
	return NewWithDialer(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

// NewWithDialer creates a notifier over an existing dialer.
func NewWithDialer(from string, dialer Dialer) *Notifier {
	return &Notifier{from: from, dialer: dialer}
}

func (n *Notifier) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail to %s: %w", address, err)
	}
	return nil
}

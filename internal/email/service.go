package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/caresync/portal-api/config"
)

// Service sends transactional mail. Callers treat sends as best-effort.
type Service interface {
	SendWelcome(ctx context.Context, to, name string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService creates a gomail-backed sender.
func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendWelcome(_ context.Context, to, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Welcome to CareSync")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour CareSync account is ready. You can sign in with this email address.\n", name))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

type noopService struct{}

// NewNoopService returns a sender that drops all mail. Used when SMTP
// is not configured.
func NewNoopService() Service {
	return noopService{}
}

func (noopService) SendWelcome(context.Context, string, string) error { return nil }

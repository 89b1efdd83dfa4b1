// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"log/slog"
	"sync"

	"gigboard/internal/config"
	"gigboard/internal/middleware"
	"gigboard/internal/observability"

	"gopkg.in/gomail.v2"
)

// Message is a rendered email.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Template string
}

// Mailer sends a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when SMTP_HOST is set and a log-only mailer otherwise.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailer builds a mailer from the SMTP_* settings.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.MailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// Build assembles the MIME message for msg.
func (s *SMTPMailer) Build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// gomail sets no I/O deadline once connected, so a stalled relay is
	// abandoned when ctx ends instead of holding the caller.
	errc := make(chan error, 1)
	go func() { errc <- s.dialer.DialAndSend(s.Build(msg)) }()

	select {
	case err := <-errc:
		if err != nil {
			observability.EmailsSent.WithLabelValues(msg.Template, observability.OutcomeError).Inc()
			return err
		}
		observability.EmailsSent.WithLabelValues(msg.Template, observability.OutcomeOK).Inc()
		return nil
	case <-ctx.Done():
		observability.EmailsSent.WithLabelValues(msg.Template, observability.OutcomeError).Inc()
		return ctx.Err()
	}
}

// LogMailer writes messages to the log instead of sending them and keeps
// them for inspection.
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
}

// Sent returns a copy of every message passed to Send.
func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()
	observability.EmailsSent.WithLabelValues(msg.Template, "logged").Inc()
	middleware.Logger.InfoContext(ctx, "email not sent, SMTP disabled",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
	)
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/syntaxduel/syntaxduel/internal/config"
	"gopkg.in/gomail.v2"
)

// Message is a single outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a message through some transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the transport named by MAIL_PROVIDER.
func NewMailer(cfg *config.Config) (Mailer, error) {
	switch cfg.MailProvider {
	case "", "log":
		return LogMailer{}, nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			slog.Warn("resend mailer configured without RESEND_API_KEY")
		}
		return NewResendMailer(cfg.ResendAPIKey), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			slog.Warn("smtp mailer configured without SMTP_HOST")
		}
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q (expected log, resend or smtp)", cfg.MailProvider)
	}
}

// LogMailer only logs messages. Used in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	slog.Info("email sent (dev mode)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

type ResendMailer struct {
	client *resend.Client
}

func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey)}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

type SMTPMailer struct {
	dialer *gomail.Dialer
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password)}
}

// Send dials the server once per message. gomail has no context support,
// so cancellation is only observed before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", msg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	err = m.dialer.DialAndSend(gm)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

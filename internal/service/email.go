package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

const mailSendTimeout = 30 * time.Second

type EmailService struct {
	mailer    Mailer
	fromEmail string
	appURL    string
	appName   string
	wg        sync.WaitGroup
}

func NewEmailService(mailer Mailer, fromEmail, appURL, appName string) *EmailService {
	return &EmailService{
		mailer:    mailer,
		fromEmail: fromEmail,
		appURL:    appURL,
		appName:   appName,
	}
}

// ConfirmationURL is the link a user follows to confirm their address.
func (s *EmailService) ConfirmationURL(token string) string {
	return fmt.Sprintf("%s/api/confirm-email?token=%s", s.appURL, url.QueryEscape(token))
}

func (s *EmailService) SendConfirmationEmail(ctx context.Context, email, name, token string) error {
	confirmURL := s.ConfirmationURL(token)
	subject, text, html := confirmationEmailTemplate(name, confirmURL, s.appName)

	err := s.mailer.Send(ctx, Message{
		From:    s.fromEmail,
		To:      email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	slog.Info("email sent", "type", "confirmation", "to", email)
	return nil
}

// DispatchConfirmationEmail sends in the background. Failures are logged and
// never retried; the caller does not wait for delivery.
func (s *EmailService) DispatchConfirmationEmail(email, name, token string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		err := s.SendConfirmationEmail(ctx, email, name, token)
		if err != nil {
			slog.Error("failed to send confirmation email", "error", err, "email", email)
		}
	}()
}

// Wait blocks until every dispatched email has been attempted.
func (s *EmailService) Wait() {
	s.wg.Wait()
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntaxduel/syntaxduel/internal/config"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func TestEmailService_SendConfirmationEmail(t *testing.T) {
	mailer := &fakeMailer{}
	emails := NewEmailService(mailer, "noreply@syntaxduel.dev", "http://localhost:3000", "SyntaxDuel")

	err := emails.SendConfirmationEmail(context.Background(), "ada@example.com", "Ada <script>", "a.b+c")
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "noreply@syntaxduel.dev", msg.From)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Confirm your SyntaxDuel account", msg.Subject)
	assert.Contains(t, msg.Text, "http://localhost:3000/api/confirm-email?token=a.b%2Bc")
	assert.Contains(t, msg.HTML, "Ada &lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestEmailService_DispatchSwallowsFailures(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	emails := NewEmailService(mailer, "noreply@syntaxduel.dev", "http://localhost:3000", "SyntaxDuel")

	emails.DispatchConfirmationEmail("ada@example.com", "Ada", "tok")
	emails.Wait()

	assert.Empty(t, mailer.Sent())
}

func TestEmailService_DispatchDelivers(t *testing.T) {
	mailer := &fakeMailer{}
	emails := NewEmailService(mailer, "noreply@syntaxduel.dev", "http://localhost:3000", "SyntaxDuel")

	emails.DispatchConfirmationEmail("ada@example.com", "Ada", "tok-1")
	emails.DispatchConfirmationEmail("bob@example.com", "Bob", "tok-2")
	emails.Wait()

	assert.Len(t, mailer.Sent(), 2)
}

func TestNewMailer(t *testing.T) {
	tests := []struct {
		provider string
		want     any
		wantErr  bool
	}{
		{provider: "", want: LogMailer{}},
		{provider: "log", want: LogMailer{}},
		{provider: "resend", want: &ResendMailer{}},
		{provider: "smtp", want: &SMTPMailer{}},
		{provider: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			mailer, err := NewMailer(&config.Config{
				MailProvider: tt.provider,
				ResendAPIKey: "re_test",
				SMTPHost:     "smtp.example.com",
				SMTPPort:     587,
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, mailer)
		})
	}
}

func TestSMTPMailer_RespectsCanceledContext(t *testing.T) {
	mailer := NewSMTPMailer("127.0.0.1", 1, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mailer.Send(ctx, Message{To: "ada@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

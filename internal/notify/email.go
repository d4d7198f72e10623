package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"

	"dashforge-backend/internal/alerting"
)

// EmailMessage is the assembled delivery intent; actual transport belongs to
// the Mailer implementation.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// LogMailer is the default no-transport mailer: it records the intent so the
// channel can run without an email provider configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email notification assembled",
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject))
	return nil
}

// ResendMailer delivers through the Resend API.
type ResendMailer struct {
	Client *resend.Client
	From   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{Client: resend.NewClient(apiKey), From: from}
}

func (m *ResendMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m.Client == nil {
		return fmt.Errorf("resend client not configured")
	}
	from := msg.From
	if from == "" {
		from = m.From
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Body,
	}
	if _, err := m.Client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, channel Channel, instance alerting.Instance) error {
	cfg := channel.Email
	if cfg == nil || len(cfg.Recipients) == 0 {
		return fmt.Errorf("email channel %q has no recipients", channel.ID)
	}
	subject := fmt.Sprintf("[%s] alert %s", strings.ToUpper(string(instance.Severity)), instance.Status)
	return d.mailer.Send(ctx, EmailMessage{
		From:    cfg.From,
		To:      cfg.Recipients,
		Subject: subject,
		Body:    instance.Message,
	})
}

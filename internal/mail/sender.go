package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PatchLore/midnight-typer/internal/shared/config"

	"github.com/resend/resend-go/v2"
)

// Sender is the narrow transactional email interface. Failures are logged
// by callers and never fail the operation that triggered the email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ResendSender delivers email through Resend. With no API key configured
// it degrades to a logged no-op, matching local development.
type ResendSender struct {
	cfg    config.EmailConfig
	client *resend.Client
	logger *slog.Logger
}

func NewResendSender(cfg config.EmailConfig, logger *slog.Logger) *ResendSender {
	var client *resend.Client
	if cfg.APIKey != "" {
		client = resend.NewClient(cfg.APIKey)
	} else {
		logger.Warn("RESEND_API_KEY not configured, emails will be dropped")
	}

	return &ResendSender{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	logger := s.logger.With("component", "mail_sender", "operation", "send", "to", to, "subject", subject)

	if s.client == nil {
		logger.Info("Email sending disabled, dropping message")
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		logger.Error("Failed to send email", "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email sent", "email_id", sent.Id)
	return nil
}

var _ Sender = (*ResendSender)(nil)

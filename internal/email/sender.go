// Package email delivers outbound notifications for task assignment,
// renewal follow-up, and deal closing.
package email

import (
	"context"
	"net/http"
	"time"

	"salesops_backend/internal/config"
)

type Sender interface {
	SendTaskAssignedEmail(ctx context.Context, toEmail, assigneeName, leadName, taskType string) error
	SendRenewalDueEmail(ctx context.Context, toEmail, clientName string, amountCents int64, dueDate string) error
	SendDealClosedEmail(ctx context.Context, toEmail, closerName, leadName string, totalCents int64) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NewSender picks a delivery backend from configuration: Brevo when an API
// key is set, plain SMTP when a host is set, a no-op otherwise.
func NewSender(cfg *config.Config) Sender {
	if !cfg.EmailEnabled {
		return NoopSender{}
	}

	if cfg.BrevoAPIKey != "" {
		return &BrevoSender{
			apiKey:    cfg.BrevoAPIKey,
			fromName:  cfg.EmailFromName,
			fromEmail: cfg.EmailFromAddress,
			client:    &http.Client{Timeout: 10 * time.Second},
		}
	}

	return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFromAddress, cfg.EmailFromName)
}

type NoopSender struct{}

func (NoopSender) SendTaskAssignedEmail(ctx context.Context, toEmail, assigneeName, leadName, taskType string) error {
	return nil
}

func (NoopSender) SendRenewalDueEmail(ctx context.Context, toEmail, clientName string, amountCents int64, dueDate string) error {
	return nil
}

func (NoopSender) SendDealClosedEmail(ctx context.Context, toEmail, closerName, leadName string, totalCents int64) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

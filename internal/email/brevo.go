package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender delivers mail through the Brevo transactional email API.
type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

func (b *BrevoSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	payload := brevoEmailRequest{
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: toEmail}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("brevo marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo send: status %d: %s", resp.StatusCode, detail)
	}

	return nil
}

func (b *BrevoSender) SendTaskAssignedEmail(ctx context.Context, toEmail, assigneeName, leadName, taskType string) error {
	label := taskTypeLabel(taskType)
	content, err := renderEmailTemplate("task_assigned.html", taskAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Nieuwe taak toegewezen",
			Heading: "Nieuwe taak toegewezen",
		},
		AssigneeName: assigneeName,
		LeadName:     leadName,
		TaskLabel:    label,
	})
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, fmt.Sprintf(subjectTaskAssignedFmt, label), content)
}

func (b *BrevoSender) SendRenewalDueEmail(ctx context.Context, toEmail, clientName string, amountCents int64, dueDate string) error {
	content, err := renderEmailTemplate("renewal_due.html", renewalDueEmailData{
		baseEmailData: baseEmailData{
			Title:   "Betaling te bevestigen",
			Heading: "Betaling te bevestigen",
		},
		ClientName:      clientName,
		AmountFormatted: formatCurrencyEUR(amountCents),
		DueDate:         dueDate,
	})
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, fmt.Sprintf(subjectRenewalDueFmt, clientName), content)
}

func (b *BrevoSender) SendDealClosedEmail(ctx context.Context, toEmail, closerName, leadName string, totalCents int64) error {
	content, err := renderEmailTemplate("deal_closed.html", dealClosedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Deal gesloten",
			Heading: "Deal gesloten",
		},
		CloserName:     closerName,
		LeadName:       leadName,
		TotalFormatted: formatCurrencyEUR(totalCents),
	})
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, fmt.Sprintf(subjectDealClosedFmt, leadName), content)
}

func (b *BrevoSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.send(ctx, toEmail, subject, htmlContent)
}

package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers mail over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendTaskAssignedEmail(ctx context.Context, toEmail, assigneeName, leadName, taskType string) error {
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
	return s.send(ctx, toEmail, fmt.Sprintf(subjectTaskAssignedFmt, label), content)
}

func (s *SMTPSender) SendRenewalDueEmail(ctx context.Context, toEmail, clientName string, amountCents int64, dueDate string) error {
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
	return s.send(ctx, toEmail, fmt.Sprintf(subjectRenewalDueFmt, clientName), content)
}

func (s *SMTPSender) SendDealClosedEmail(ctx context.Context, toEmail, closerName, leadName string, totalCents int64) error {
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
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDealClosedFmt, leadName), content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

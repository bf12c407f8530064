package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type taskAssignedEmailData struct {
	baseEmailData
	AssigneeName string
	LeadName     string
	TaskLabel    string
}

type renewalDueEmailData struct {
	baseEmailData
	ClientName      string
	AmountFormatted string
	DueDate         string
}

type dealClosedEmailData struct {
	baseEmailData
	CloserName     string
	LeadName       string
	TotalFormatted string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("€%.2f", float64(cents)/100)
}

// taskTypeLabel maps queue task types to the Dutch label used in mails.
func taskTypeLabel(taskType string) string {
	switch taskType {
	case "call_confirmation":
		return "Belafspraak bevestigen"
	case "follow_up":
		return "Follow-up"
	case "reschedule":
		return "Herplande afspraak bevestigen"
	default:
		return taskType
	}
}

package email

import (
	"strings"
	"testing"
)

func TestRenderTaskAssignedTemplate(t *testing.T) {
	body, err := renderEmailTemplate("task_assigned.html", taskAssignedEmailData{
		baseEmailData: baseEmailData{Title: "Nieuwe taak", Heading: "Nieuwe taak"},
		AssigneeName:  "Sanne",
		LeadName:      "Jansen BV",
		TaskLabel:     taskTypeLabel("call_confirmation"),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Sanne", "Jansen BV", "Belafspraak bevestigen"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderRenewalDueTemplate(t *testing.T) {
	body, err := renderEmailTemplate("renewal_due.html", renewalDueEmailData{
		baseEmailData:   baseEmailData{Title: "Betaling"},
		ClientName:      "De Vries",
		AmountFormatted: formatCurrencyEUR(9900),
		DueDate:         "01-10-2026",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"De Vries", "€99.00", "01-10-2026"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderDealClosedTemplate(t *testing.T) {
	body, err := renderEmailTemplate("deal_closed.html", dealClosedEmailData{
		baseEmailData:  baseEmailData{Title: "Deal gesloten"},
		CloserName:     "Pieter",
		LeadName:       "Jansen BV",
		TotalFormatted: formatCurrencyEUR(218800),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Pieter", "Jansen BV", "€2188.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestFormatCurrencyEUR(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "€0.00"},
		{5, "€0.05"},
		{9900, "€99.00"},
		{123456, "€1234.56"},
	}
	for _, tc := range cases {
		if got := formatCurrencyEUR(tc.cents); got != tc.want {
			t.Errorf("formatCurrencyEUR(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestTaskTypeLabelFallsBackToRawType(t *testing.T) {
	if got := taskTypeLabel("follow_up"); got != "Follow-up" {
		t.Errorf("follow_up label = %q", got)
	}
	if got := taskTypeLabel("something_new"); got != "something_new" {
		t.Errorf("unknown type should pass through, got %q", got)
	}
}

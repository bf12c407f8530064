package service

import (
	"testing"

	"salesops_backend/internal/tasks/repository"
)

func TestOutcomeStatus(t *testing.T) {
	cases := []struct {
		outcome string
		status  string
		ok      bool
	}{
		{repository.OutcomeConfirmed, "confirmed", true},
		{repository.OutcomeNoShow, "no_show", true},
		{repository.OutcomeRescheduled, "rescheduled", true},
		{"superseded", "", false},
		{"closed", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		status, ok := outcomeStatus(tc.outcome)
		if status != tc.status || ok != tc.ok {
			t.Fatalf("outcomeStatus(%q) = (%q, %v), want (%q, %v)", tc.outcome, status, ok, tc.status, tc.ok)
		}
	}
}

func TestTerminalStatusesCloseOtherObligations(t *testing.T) {
	for _, status := range []string{"confirmed", "no_show", "rescheduled", "cancelled", "closed"} {
		if !terminalStatuses[status] {
			t.Fatalf("status %q should be terminal", status)
		}
	}
	for _, status := range []string{"new", "showed"} {
		if terminalStatuses[status] {
			t.Fatalf("status %q should not be terminal", status)
		}
	}
}

package repository

import (
	"strings"
	"testing"
)

func TestAutoReturnSweepQuerySkipsLockedRows(t *testing.T) {
	query := strings.ToLower(autoReturnSweepQuery)

	requiredFragments := []string{
		"for update skip locked",
		"status = 'claimed' and auto_return_at is not null and auto_return_at < $1",
		"assigned_to = null",
		"status = 'pending'",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected sweep query fragment %q to be present", fragment)
		}
	}
}

func TestAutoReturnSweepQueryReturnsPrevHolder(t *testing.T) {
	if !strings.Contains(autoReturnSweepQuery, "RETURNING t.id, t.team_id, expired.assigned_to") {
		t.Fatal("sweep must return the previous holder for the audit trail")
	}
}

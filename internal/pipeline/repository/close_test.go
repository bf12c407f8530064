package repository

import (
	"strings"
	"testing"
)

func TestCloseDealQueryHasOptimisticStatusGuard(t *testing.T) {
	query := strings.ToLower(closeDealQuery)

	requiredFragments := []string{
		"status = 'closed'",
		"where id = $1 and team_id = $2 and status <> 'closed'",
		"returning",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected close query fragment %q to be present", fragment)
		}
	}
}

func TestAppointmentColumnsCoverFinancialSnapshot(t *testing.T) {
	for _, col := range []string{"cc_collected", "mrr_amount", "mrr_months", "product_name", "total_revenue", "updated_at"} {
		if !strings.Contains(appointmentColumns, col) {
			t.Fatalf("expected appointment column %q to be selected", col)
		}
	}
}

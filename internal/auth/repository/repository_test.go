package repository

import (
	"strings"
	"testing"
)

func TestMembershipQueryReturnsSingleTeam(t *testing.T) {
	query := strings.ToLower(membershipQuery)

	requiredFragments := []string{
		"from team_members tm",
		"where tm.user_id = $1",
		"limit 1",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected membership query fragment %q to be present", fragment)
		}
	}
}

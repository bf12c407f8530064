package domain

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		stageID string
		label   string
		want    Class
	}{
		{"won stage", "won", "Closed Won", ClassClose},
		{"lost stage carries closed label", "lost", "Closed Lost", ClassClose},
		{"explicit close id", "close_call_2", "Second Close Call", ClassClose},
		{"deposit", "deposit", "Deposit Collected", ClassDeposit},
		{"rescheduled", "rescheduled", "Rescheduled", ClassReschedule},
		{"canceled", "canceled", "Canceled", ClassFollowUp},
		{"british spelling", "cancelled", "Cancelled", ClassFollowUp},
		{"no show", "no_show", "No Show", ClassFollowUp},
		{"label only no show", "ghosted", "No Show Twice", ClassFollowUp},
		{"plain stage", "discovery", "Discovery Call", ClassPlain},
		{"case insensitive", "WON", "CLOSED WON", ClassClose},
		{"renamed plain stage stays plain", "follow_later", "Try Again Later", ClassPlain},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.stageID, tc.label)
			if got != tc.want {
				t.Fatalf("Classify(%q, %q) = %v, want %v", tc.stageID, tc.label, got, tc.want)
			}
		})
	}
}

func TestRequiresCloser(t *testing.T) {
	if !ClassClose.RequiresCloser() {
		t.Fatal("close class must require a closer")
	}
	if !ClassDeposit.RequiresCloser() {
		t.Fatal("deposit class must require a closer")
	}
	if ClassFollowUp.RequiresCloser() {
		t.Fatal("follow-up class must not require a closer")
	}
	if ClassPlain.RequiresCloser() {
		t.Fatal("plain class must not require a closer")
	}
}

func TestClassifyUsesLiveDefinition(t *testing.T) {
	// The same stage id classifies differently after a label rename; nothing
	// may be cached between calls.
	if got := Classify("stage_3", "Negotiation"); got != ClassPlain {
		t.Fatalf("before rename: got %v, want %v", got, ClassPlain)
	}
	if got := Classify("stage_3", "Closed Won"); got != ClassClose {
		t.Fatalf("after rename: got %v, want %v", got, ClassClose)
	}
}

// Package domain holds pipeline stage semantics shared by the state machine.
package domain

import "strings"

// BookedBucket is the synthetic stage covering appointments with no
// configured stage. It is not a row in pipeline_stages.
const BookedBucket = "appointments_booked"

// Class is the semantic class of a stage, derived from its identity.
type Class int

const (
	// ClassPlain carries no extra transition requirements.
	ClassPlain Class = iota
	// ClassClose marks won/closed stages: closer required, deal dialog follows.
	ClassClose
	// ClassDeposit marks deposit stages: closer required, move commits
	// directly; money is recorded only by the close transaction.
	ClassDeposit
	// ClassReschedule marks the rescheduled stage: external link flow.
	ClassReschedule
	// ClassFollowUp marks canceled/no-show stages: follow-up data required.
	ClassFollowUp
)

// String returns the class name for logging.
func (c Class) String() string {
	switch c {
	case ClassClose:
		return "close"
	case ClassDeposit:
		return "deposit"
	case ClassReschedule:
		return "reschedule"
	case ClassFollowUp:
		return "follow_up"
	default:
		return "plain"
	}
}

// RequiresCloser reports whether entering a stage of this class requires a
// closer to be assigned first.
func (c Class) RequiresCloser() bool {
	return c == ClassClose || c == ClassDeposit
}

// Classify derives the semantic class from the stage's current id and label.
// Classification is evaluated at request time against the live definition:
// renaming a stage immediately changes how in-flight moves are treated, and
// nothing here is cached.
func Classify(stageID, label string) Class {
	id := strings.ToLower(stageID)
	name := strings.ToLower(label)

	switch {
	case containsAny(id, "won", "closed", "close") || containsAny(name, "won", "closed", "close"):
		return ClassClose
	case strings.Contains(id, "deposit") || strings.Contains(name, "deposit"):
		return ClassDeposit
	case id == "rescheduled" || strings.Contains(name, "rescheduled"):
		return ClassReschedule
	case containsAny(id, "canceled", "cancelled", "no_show") || containsAny(name, "canceled", "cancelled", "no show"):
		return ClassFollowUp
	default:
		return ClassPlain
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

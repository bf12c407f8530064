package adapters

import (
	"context"

	activityrepo "salesops_backend/internal/activity/repository"
	activitysvc "salesops_backend/internal/activity/service"
	mrrsvc "salesops_backend/internal/mrr/service"
	pipelinesvc "salesops_backend/internal/pipeline/service"
	taskssvc "salesops_backend/internal/tasks/service"

	"github.com/google/uuid"
)

// ActivityRecorder adapts the activity service to the narrow Record port the
// engines log through.
type ActivityRecorder struct {
	svc *activitysvc.Service
}

// NewActivityRecorder creates a new activity recorder adapter.
func NewActivityRecorder(svc *activitysvc.Service) *ActivityRecorder {
	return &ActivityRecorder{svc: svc}
}

// Record appends one audit entry. System-originated entries carry a nil
// actor id.
func (a *ActivityRecorder) Record(ctx context.Context, teamID uuid.UUID, appointmentID *uuid.UUID, actor, action, note string) error {
	return a.svc.Record(ctx, &activityrepo.Entry{
		TeamID:        teamID,
		AppointmentID: appointmentID,
		ActorName:     actor,
		ActionType:    action,
		Note:          note,
	})
}

// Compile-time checks.
var (
	_ pipelinesvc.ActivityPort = (*ActivityRecorder)(nil)
	_ taskssvc.ActivityPort    = (*ActivityRecorder)(nil)
	_ mrrsvc.ActivityPort      = (*ActivityRecorder)(nil)
)

package adapters

import (
	"context"
	"time"

	mrrsvc "salesops_backend/internal/mrr/service"
	pipelinerepo "salesops_backend/internal/pipeline/repository"
	taskssvc "salesops_backend/internal/tasks/service"

	"github.com/google/uuid"
)

// AppointmentStore adapts the pipeline repository to the narrow appointment
// ports the task and mrr engines depend on.
type AppointmentStore struct {
	repo *pipelinerepo.Repository
}

// NewAppointmentStore creates a new appointment store adapter.
func NewAppointmentStore(repo *pipelinerepo.Repository) *AppointmentStore {
	return &AppointmentStore{repo: repo}
}

// SetStatus flips the appointment status after a task completion.
func (a *AppointmentStore) SetStatus(ctx context.Context, id, teamID uuid.UUID, status string) error {
	return a.repo.UpdateStatus(ctx, id, teamID, status)
}

// ScheduledAt returns the appointment's scheduled time.
func (a *AppointmentStore) ScheduledAt(ctx context.Context, id, teamID uuid.UUID) (time.Time, error) {
	appt, err := a.repo.GetByID(ctx, id, teamID)
	if err != nil {
		return time.Time{}, err
	}
	return appt.ScheduledAt, nil
}

// Parties resolves the commission-earning assignees on an appointment.
func (a *AppointmentStore) Parties(ctx context.Context, appointmentID, teamID uuid.UUID) (*mrrsvc.Parties, error) {
	appt, err := a.repo.GetByID(ctx, appointmentID, teamID)
	if err != nil {
		return nil, err
	}

	parties := &mrrsvc.Parties{SetterID: appt.SetterID, CloserID: appt.CloserID}
	if appt.SetterName != nil {
		parties.SetterName = *appt.SetterName
	}
	if appt.CloserName != nil {
		parties.CloserName = *appt.CloserName
	}
	return parties, nil
}

// Compile-time checks.
var (
	_ taskssvc.AppointmentPort = (*AppointmentStore)(nil)
	_ mrrsvc.AppointmentPort   = (*AppointmentStore)(nil)
)

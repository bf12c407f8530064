package service

import (
	"context"

	"salesops_backend/internal/events"
	"salesops_backend/internal/tasks/repository"

	"github.com/google/uuid"
)

// RunRescheduleWatch resolves tasks parked in awaiting_reschedule by reading
// the appointment row itself. Notifications only trigger the poll; the row is
// the single source of truth, so duplicate or missed notifications converge
// to the same result. Per-item failures are logged and skipped.
func (s *Service) RunRescheduleWatch(ctx context.Context) (int, error) {
	awaiting, err := s.repo.ListAwaitingReschedule(ctx)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, at := range awaiting {
		changed, err := s.resolveAwaiting(ctx, at)
		if err != nil {
			s.log.SweepError("reschedule_watch", at.Task.ID.String(), err)
			continue
		}
		if changed {
			resolved++
		}
	}

	return resolved, nil
}

func (s *Service) resolveAwaiting(ctx context.Context, at repository.AwaitingTask) (bool, error) {
	switch at.AppointmentStatus {
	case "rescheduled":
		return true, s.completeAfterReschedule(ctx, at)
	case "cancelled":
		_, err := s.repo.Complete(ctx, at.Task.ID, at.Task.TeamID, uuid.Nil, repository.OutcomeSuperseded, nil, nil)
		return true, err
	default:
		// Still waiting on the lead; leave the task parked.
		return false, nil
	}
}

// completeAfterReschedule closes the parked task and spawns the successor
// confirmation work against the appointment's new date.
func (s *Service) completeAfterReschedule(ctx context.Context, at repository.AwaitingTask) error {
	t, err := s.repo.Complete(ctx, at.Task.ID, at.Task.TeamID, uuid.Nil, repository.OutcomeRescheduled, nil, nil)
	if err != nil {
		return err
	}

	successorID := t.AppointmentID
	dueAt := at.ScheduledAt
	if at.SuccessorID != nil {
		successorID = *at.SuccessorID
		scheduledAt, err := s.appointments.ScheduledAt(ctx, successorID, t.TeamID)
		if err != nil {
			return err
		}
		dueAt = scheduledAt
	}

	if err := s.CreateRescheduleTask(ctx, successorID, t.TeamID, dueAt); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.AppointmentRescheduled{
		BaseEvent:      events.NewBaseEvent(),
		TeamID:         t.TeamID,
		AppointmentID:  t.AppointmentID,
		SuccessorID:    at.SuccessorID,
		RescheduleDate: &dueAt,
	})

	return nil
}

// Package service implements the task assignment and rotation engine.
// Confirmation work is routed to available staff, reclaimed on timeout, and
// completed with an outcome that flips the parent appointment's status.
package service

import (
	"context"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/tasks/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// Actor identifies who performed a task operation.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// TeamPort exposes rotation selection and the auto-return threshold.
type TeamPort interface {
	Settings(ctx context.Context, teamID uuid.UUID) (*teamsrepo.Settings, error)
	NextAssignee(ctx context.Context, teamID uuid.UUID) (*teamsrepo.Member, error)
}

// AppointmentPort is the slice of the appointment store the engine needs:
// status flips on completion and schedule lookups for successor tasks.
type AppointmentPort interface {
	SetStatus(ctx context.Context, id, teamID uuid.UUID, status string) error
	ScheduledAt(ctx context.Context, id, teamID uuid.UUID) (time.Time, error)
}

// ActivityPort appends audit entries.
type ActivityPort interface {
	Record(ctx context.Context, teamID uuid.UUID, appointmentID *uuid.UUID, actor, action, note string) error
}

// Service orchestrates the confirmation task lifecycle.
type Service struct {
	repo         *repository.Repository
	teams        TeamPort
	appointments AppointmentPort
	activity     ActivityPort
	bus          events.Bus
	log          *logger.Logger
}

// NewService creates a new tasks service.
func NewService(repo *repository.Repository, teams TeamPort, appointments AppointmentPort, activity ActivityPort, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		teams:        teams,
		appointments: appointments,
		activity:     activity,
		bus:          bus,
		log:          log,
	}
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id, teamID uuid.UUID) (*repository.Task, error) {
	return s.repo.GetByID(ctx, id, teamID)
}

// Queue returns the team's unassigned pending tasks.
func (s *Service) Queue(ctx context.Context, teamID uuid.UUID) ([]repository.Task, error) {
	return s.repo.ListQueue(ctx, teamID)
}

// Mine returns the actor's open tasks.
func (s *Service) Mine(ctx context.Context, teamID, userID uuid.UUID) ([]repository.Task, error) {
	return s.repo.ListMine(ctx, teamID, userID)
}

// ByAppointment returns all tasks for an appointment.
func (s *Service) ByAppointment(ctx context.Context, appointmentID, teamID uuid.UUID) ([]repository.Task, error) {
	return s.repo.ListByAppointment(ctx, appointmentID, teamID)
}

// EnsureCallConfirmation creates the call-confirmation task for a booked
// appointment if none is open, then offers it to the rotation. Safe to call
// more than once per appointment.
func (s *Service) EnsureCallConfirmation(ctx context.Context, appointmentID, teamID uuid.UUID, dueAt time.Time) error {
	return s.createAndRotate(ctx, &repository.Task{
		AppointmentID: appointmentID,
		TeamID:        teamID,
		TaskType:      repository.TypeCallConfirmation,
		DueAt:         dueAt,
	})
}

// CreateFollowUpTask creates the follow-up task a pipeline move demanded.
func (s *Service) CreateFollowUpTask(ctx context.Context, appointmentID, teamID uuid.UUID, dueDate time.Time, reason string) error {
	return s.createAndRotate(ctx, &repository.Task{
		AppointmentID:  appointmentID,
		TeamID:         teamID,
		TaskType:       repository.TypeFollowUp,
		DueAt:          dueDate,
		FollowUpDate:   &dueDate,
		FollowUpReason: &reason,
	})
}

// CreateRescheduleTask creates a reschedule task against an appointment's
// new date, used when an external reschedule lands.
func (s *Service) CreateRescheduleTask(ctx context.Context, appointmentID, teamID uuid.UUID, dueAt time.Time) error {
	return s.createAndRotate(ctx, &repository.Task{
		AppointmentID: appointmentID,
		TeamID:        teamID,
		TaskType:      repository.TypeReschedule,
		DueAt:         dueAt,
	})
}

func (s *Service) createAndRotate(ctx context.Context, t *repository.Task) error {
	created, err := s.repo.CreateIfNoneOpen(ctx, t)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	s.offerToRotation(ctx, t)
	return nil
}

// offerToRotation assigns the task to the next eligible member, or leaves it
// pending when nobody is in rotation. Assignment failure is not a creation
// failure.
func (s *Service) offerToRotation(ctx context.Context, t *repository.Task) {
	member, err := s.teams.NextAssignee(ctx, t.TeamID)
	if err != nil {
		s.log.Error("rotation selection failed", "teamId", t.TeamID, "error", err)
		return
	}
	if member == nil {
		return
	}

	autoReturnAt, err := s.autoReturnDeadline(ctx, t.TeamID)
	if err != nil {
		s.log.Error("failed to resolve auto-return deadline", "teamId", t.TeamID, "error", err)
		return
	}

	if err := s.repo.Assign(ctx, t.ID, t.TeamID, member.UserID, member.Name, autoReturnAt); err != nil {
		s.log.TaskEvent("rotation_assign_failed", t.ID.String(), member.UserID.String())
		return
	}

	s.recordActivity(ctx, t.TeamID, t.AppointmentID, member.Name, "task_assigned", "Assigned "+t.TaskType+" task via rotation")
	s.bus.Publish(ctx, events.TaskAssigned{
		BaseEvent:     events.NewBaseEvent(),
		TeamID:        t.TeamID,
		TaskID:        t.ID,
		AppointmentID: t.AppointmentID,
		TaskType:      t.TaskType,
		AssigneeID:    member.UserID,
		DueAt:         t.DueAt,
	})
}

func (s *Service) autoReturnDeadline(ctx context.Context, teamID uuid.UUID) (time.Time, error) {
	settings, err := s.teams.Settings(ctx, teamID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(time.Duration(settings.AutoReturnMinutes) * time.Minute), nil
}

// Claim assigns the task to the acting member, refusing tasks held by
// someone else.
func (s *Service) Claim(ctx context.Context, teamID uuid.UUID, actor Actor, taskID uuid.UUID) (*repository.Task, error) {
	autoReturnAt, err := s.autoReturnDeadline(ctx, teamID)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Claim(ctx, taskID, teamID, actor.ID, actor.Name, autoReturnAt)
	if err != nil {
		return nil, err
	}

	s.log.TaskEvent("claimed", t.ID.String(), actor.ID.String())
	return t, nil
}

// outcomeStatus maps a completion outcome to the appointment status it flips.
func outcomeStatus(outcome string) (string, bool) {
	switch outcome {
	case repository.OutcomeConfirmed:
		return "confirmed", true
	case repository.OutcomeNoShow:
		return "no_show", true
	case repository.OutcomeRescheduled:
		return "rescheduled", true
	default:
		return "", false
	}
}

// terminalStatuses are appointment statuses after which no other confirmation
// obligation should stay open.
var terminalStatuses = map[string]bool{
	"confirmed":   true,
	"no_show":     true,
	"rescheduled": true,
	"cancelled":   true,
	"closed":      true,
}

// Complete finishes the task with an outcome, flips the parent appointment's
// status, and closes any other open tasks once the appointment is terminal.
func (s *Service) Complete(ctx context.Context, teamID uuid.UUID, actor Actor, taskID uuid.UUID, outcome string, rescheduleDate *time.Time, notes *string) (*repository.Task, error) {
	status, ok := outcomeStatus(outcome)
	if !ok {
		return nil, apperr.BadRequest("outcome must be one of confirmed, no_show, rescheduled")
	}

	t, err := s.repo.Complete(ctx, taskID, teamID, actor.ID, outcome, rescheduleDate, notes)
	if err != nil {
		return nil, err
	}

	if err := s.appointments.SetStatus(ctx, t.AppointmentID, teamID, status); err != nil {
		return nil, err
	}

	if terminalStatuses[status] {
		closed, err := s.repo.CloseOpenForAppointment(ctx, t.AppointmentID, teamID, t.ID)
		if err != nil {
			s.log.Error("failed to close superseded tasks", "appointmentId", t.AppointmentID, "error", err)
		} else if closed > 0 {
			s.log.TaskEvent("superseded_siblings", t.ID.String(), actor.ID.String())
		}
	}

	s.recordActivity(ctx, teamID, t.AppointmentID, actor.Name, "task_completed", "Completed "+t.TaskType+" task: "+outcome)
	s.bus.Publish(ctx, events.TaskCompleted{
		BaseEvent:     events.NewBaseEvent(),
		TeamID:        teamID,
		TaskID:        t.ID,
		AppointmentID: t.AppointmentID,
		Outcome:       outcome,
		ActorID:       actor.ID,
	})

	return t, nil
}

// MarkAwaitingReschedule parks the appointment's open tasks while the lead
// reschedules through the external link.
func (s *Service) MarkAwaitingReschedule(ctx context.Context, appointmentID, teamID uuid.UUID) error {
	return s.repo.MarkAwaitingReschedule(ctx, appointmentID, teamID)
}

// SweepAutoReturn reclaims timed-out claimed tasks and requeues them. Per-row
// bookkeeping failures are logged and skipped so one bad row cannot stall the
// rest of the batch.
func (s *Service) SweepAutoReturn(ctx context.Context) (int, error) {
	returned, err := s.repo.SweepAutoReturn(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, rt := range returned {
		s.recordActivity(ctx, rt.TeamID, uuid.Nil, "system", "task_auto_returned", "Task returned to the queue after claim timeout")
		s.bus.Publish(ctx, events.TaskAutoReturned{
			BaseEvent:  events.NewBaseEvent(),
			TeamID:     rt.TeamID,
			TaskID:     rt.TaskID,
			PrevHolder: rt.PrevHolder,
		})
	}

	return len(returned), nil
}

func (s *Service) recordActivity(ctx context.Context, teamID, appointmentID uuid.UUID, actor, action, note string) {
	var apptRef *uuid.UUID
	if appointmentID != uuid.Nil {
		apptRef = &appointmentID
	}
	if err := s.activity.Record(ctx, teamID, apptRef, actor, action, note); err != nil {
		s.log.Error("failed to record activity", "action", action, "error", err)
	}
}

// Package service implements the recurring revenue scheduler: monthly due
// obligations, payment reconciliation, and commission computation.
package service

import (
	"context"
	"math"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/mrr/repository"
	pipelinerepo "salesops_backend/internal/pipeline/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Actor identifies who performed a scheduler operation.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// Store is the persistence surface of the scheduler. The pgx-backed
// repository implements it; tests substitute an in-memory fake.
type Store interface {
	CreateScheduleInTx(ctx context.Context, tx pgx.Tx, s *repository.Schedule) error
	GetSchedule(ctx context.Context, id, teamID uuid.UUID) (*repository.Schedule, error)
	GetScheduleByTask(ctx context.Context, taskID, teamID uuid.UUID) (*repository.Schedule, error)
	ListSchedules(ctx context.Context, teamID uuid.UUID) ([]repository.Schedule, error)
	ListTasks(ctx context.Context, scheduleID uuid.UUID) ([]repository.FollowUpTask, error)
	ListDueRenewals(ctx context.Context, asOf time.Time) ([]repository.DueRenewal, error)
	ConfirmPayment(ctx context.Context, p repository.ConfirmParams) (*repository.ConfirmResult, error)
	Pause(ctx context.Context, id, teamID uuid.UUID) (*repository.Schedule, error)
	Cancel(ctx context.Context, id, teamID uuid.UUID) (*repository.Schedule, error)
	Reactivate(ctx context.Context, id, teamID uuid.UUID, nextRenewal time.Time) (*repository.Schedule, error)
}

var _ Store = (*repository.Repository)(nil)

// TeamPort exposes commission percentages and member roles.
type TeamPort interface {
	Settings(ctx context.Context, teamID uuid.UUID) (*teamsrepo.Settings, error)
	MemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error)
}

// Parties are the appointment's commission-earning assignees.
type Parties struct {
	SetterID   *uuid.UUID
	SetterName string
	CloserID   *uuid.UUID
	CloserName string
}

// AppointmentPort resolves the parties on a schedule's parent appointment.
type AppointmentPort interface {
	Parties(ctx context.Context, appointmentID, teamID uuid.UUID) (*Parties, error)
}

// ActivityPort appends audit entries.
type ActivityPort interface {
	Record(ctx context.Context, teamID uuid.UUID, appointmentID *uuid.UUID, actor, action, note string) error
}

// Service orchestrates the MRR schedule lifecycle.
type Service struct {
	repo         Store
	teams        TeamPort
	appointments AppointmentPort
	activity     ActivityPort
	bus          events.Bus
	log          *logger.Logger
}

// NewService creates a new mrr service.
func NewService(repo Store, teams TeamPort, appointments AppointmentPort, activity ActivityPort, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		teams:        teams,
		appointments: appointments,
		activity:     activity,
		bus:          bus,
		log:          log,
	}
}

// CreateOnCloseHook returns the transaction hook that enrolls the schedule
// and its first due task in a deal-close transaction.
func (s *Service) CreateOnCloseHook(a *pipelinerepo.Appointment, mrrAmount int64, months int, firstCharge time.Time) pipelinerepo.TxHook {
	return func(ctx context.Context, tx pgx.Tx) error {
		sched := &repository.Schedule{
			AppointmentID:   a.ID,
			TeamID:          a.TeamID,
			ClientName:      a.LeadName,
			ClientEmail:     a.LeadEmail,
			MRRAmount:       mrrAmount,
			TotalMonths:     months,
			FirstChargeDate: firstCharge,
			AssignedTo:      a.CloserID,
		}
		return s.repo.CreateScheduleInTx(ctx, tx, sched)
	}
}

// Get returns one schedule.
func (s *Service) Get(ctx context.Context, id, teamID uuid.UUID) (*repository.Schedule, error) {
	return s.repo.GetSchedule(ctx, id, teamID)
}

// List returns the team's schedules.
func (s *Service) List(ctx context.Context, teamID uuid.UUID) ([]repository.Schedule, error) {
	return s.repo.ListSchedules(ctx, teamID)
}

// Tasks returns a schedule's follow-up tasks.
func (s *Service) Tasks(ctx context.Context, scheduleID, teamID uuid.UUID) ([]repository.FollowUpTask, error) {
	if _, err := s.repo.GetSchedule(ctx, scheduleID, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, scheduleID)
}

// ConfirmPayment reconciles the due obligation behind taskID: the payment is
// recorded, commissions are computed from the monthly amount, and the
// schedule advances a month or completes. Fails with no_active_task when the
// task is not due.
func (s *Service) ConfirmPayment(ctx context.Context, teamID uuid.UUID, actor Actor, taskID uuid.UUID, notes *string) (*repository.ConfirmResult, error) {
	sched, err := s.repo.GetScheduleByTask(ctx, taskID, teamID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Conflict(apperr.CodeNoActiveTask, "no due payment task found")
		}
		return nil, err
	}

	commissions, err := s.paymentCommissions(ctx, teamID, sched)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.ConfirmPayment(ctx, repository.ConfirmParams{
		TaskID:      taskID,
		TeamID:      teamID,
		ActorID:     actor.ID,
		Notes:       notes,
		Commissions: commissions,
	})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeConsistencyViolation) {
			s.log.ConsistencyViolation("mrr", err.Error())
		}
		return nil, err
	}

	s.recordActivity(ctx, teamID, result.Schedule.AppointmentID, actor.Name,
		"payment_confirmed", "Confirmed monthly payment for "+result.Schedule.ClientName)

	s.bus.Publish(ctx, events.MRRPaymentConfirmed{
		BaseEvent:      events.NewBaseEvent(),
		TeamID:         teamID,
		ScheduleID:     result.Schedule.ID,
		AppointmentID:  result.Schedule.AppointmentID,
		TaskID:         taskID,
		Amount:         result.Schedule.MRRAmount,
		ConfirmedCount: result.Schedule.ConfirmedCount,
		TotalMonths:    result.Schedule.TotalMonths,
	})
	if result.Completed {
		s.bus.Publish(ctx, events.MRRScheduleCompleted{
			BaseEvent:     events.NewBaseEvent(),
			TeamID:        teamID,
			ScheduleID:    result.Schedule.ID,
			AppointmentID: result.Schedule.AppointmentID,
		})
	}

	return result, nil
}

// paymentCommissions computes the commission rows for one confirmed month.
// Setter and closer earn independently from the monthly amount; a closer
// whose team role is offer_owner earns nothing.
func (s *Service) paymentCommissions(ctx context.Context, teamID uuid.UUID, sched *repository.Schedule) ([]repository.CommissionRow, error) {
	parties, err := s.appointments.Parties(ctx, sched.AppointmentID, teamID)
	if err != nil {
		return nil, err
	}
	settings, err := s.teams.Settings(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var rows []repository.CommissionRow
	if parties.SetterID != nil {
		rows = append(rows, repository.CommissionRow{
			UserID:   *parties.SetterID,
			UserName: parties.SetterName,
			Role:     teamsrepo.RoleSetter,
			Amount:   pctOf(sched.MRRAmount, settings.SetterCommissionPct),
		})
	}
	if parties.CloserID != nil {
		role, err := s.teams.MemberRole(ctx, teamID, *parties.CloserID)
		if err != nil {
			return nil, err
		}
		if role != teamsrepo.RoleOfferOwner {
			rows = append(rows, repository.CommissionRow{
				UserID:   *parties.CloserID,
				UserName: parties.CloserName,
				Role:     teamsrepo.RoleCloser,
				Amount:   pctOf(sched.MRRAmount, settings.CloserCommissionPct),
			})
		}
	}

	return rows, nil
}

func pctOf(base int64, pct float64) int64 {
	return int64(math.Round(float64(base) * pct / 100))
}

// Pause parks the schedule and its due task.
func (s *Service) Pause(ctx context.Context, teamID uuid.UUID, actor Actor, id uuid.UUID) (*repository.Schedule, error) {
	sched, err := s.repo.Pause(ctx, id, teamID)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, teamID, sched.AppointmentID, actor.Name, "schedule_paused", "Paused recurring schedule for "+sched.ClientName)
	return sched, nil
}

// Cancel ends the schedule without touching confirmed history.
func (s *Service) Cancel(ctx context.Context, teamID uuid.UUID, actor Actor, id uuid.UUID) (*repository.Schedule, error) {
	sched, err := s.repo.Cancel(ctx, id, teamID)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, teamID, sched.AppointmentID, actor.Name, "schedule_canceled", "Canceled recurring schedule for "+sched.ClientName)
	return sched, nil
}

// Reactivate resumes a paused schedule with its next renewal at the given
// date.
func (s *Service) Reactivate(ctx context.Context, teamID uuid.UUID, actor Actor, id uuid.UUID, nextRenewal time.Time) (*repository.Schedule, error) {
	sched, err := s.repo.Reactivate(ctx, id, teamID, nextRenewal)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, teamID, sched.AppointmentID, actor.Name, "schedule_resumed", "Resumed recurring schedule for "+sched.ClientName)
	s.bus.Publish(ctx, events.MRRScheduleReactivated{
		BaseEvent:   events.NewBaseEvent(),
		TeamID:      teamID,
		ScheduleID:  sched.ID,
		NextRenewal: nextRenewal,
	})

	return sched, nil
}

// DispatchDueRenewals publishes a renewal-due event for every obligation
// whose date has arrived. Idempotent per poll: subscribers deduplicate on
// task id, and re-publishing an unresolved obligation is intended behavior.
func (s *Service) DispatchDueRenewals(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueRenewals(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, d := range due {
		s.bus.Publish(ctx, events.MRRRenewalDue{
			BaseEvent:  events.NewBaseEvent(),
			TeamID:     d.TeamID,
			ScheduleID: d.ScheduleID,
			TaskID:     d.TaskID,
			DueDate:    d.DueDate,
			AssigneeID: d.AssignedTo,
		})
	}

	return len(due), nil
}

func (s *Service) recordActivity(ctx context.Context, teamID, appointmentID uuid.UUID, actor, action, note string) {
	apptRef := appointmentID
	if err := s.activity.Record(ctx, teamID, &apptRef, actor, action, note); err != nil {
		s.log.Error("failed to record activity", "action", action, "error", err)
	}
}

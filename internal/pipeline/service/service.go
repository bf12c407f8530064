// Package service implements the pipeline stage transition engine. Moves
// between stages are gated behind validation and, for some stage classes,
// extra caller-supplied input collected out of band.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/pipeline/domain"
	"salesops_backend/internal/pipeline/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/internal/undo"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// Actor identifies who requested an operation, for assignment, logging, and
// undo attribution.
type Actor struct {
	ID        uuid.UUID
	Name      string
	SessionID string
}

// Store is the persistence surface the engine writes through. The pgx-backed
// repository implements it; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, a *repository.Appointment) error
	GetByID(ctx context.Context, id, teamID uuid.UUID) (*repository.Appointment, error)
	UpdateStage(ctx context.Context, id, teamID uuid.UUID, stage *string, retarget *repository.Retarget) (time.Time, error)
	AssignCloser(ctx context.Context, id, teamID, closerID uuid.UUID, closerName string) error
	SetRescheduleURL(ctx context.Context, id, teamID uuid.UUID, url string) error
	ListByStage(ctx context.Context, teamID uuid.UUID) (map[string][]repository.Appointment, error)
	ListCommissions(ctx context.Context, appointmentID, teamID uuid.UUID) ([]repository.Commission, error)
	Delete(ctx context.Context, id, teamID uuid.UUID) error
	CloseDeal(ctx context.Context, p repository.CloseDealParams, hooks ...repository.TxHook) (*repository.Appointment, error)
	ApplyUndoNarrow(ctx context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error
	ApplyUndoWide(ctx context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error
}

var _ Store = (*repository.Repository)(nil)

// TeamPort exposes the team configuration the engine consults per request.
type TeamPort interface {
	Settings(ctx context.Context, teamID uuid.UUID) (*teamsrepo.Settings, error)
	Stage(ctx context.Context, teamID uuid.UUID, stageID string) (*teamsrepo.Stage, error)
	Stages(ctx context.Context, teamID uuid.UUID) ([]teamsrepo.Stage, error)
	MemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error)
}

// TaskPort is the slice of the task engine the pipeline drives as a side
// effect of moves.
type TaskPort interface {
	EnsureCallConfirmation(ctx context.Context, appointmentID, teamID uuid.UUID, dueAt time.Time) error
	CreateFollowUpTask(ctx context.Context, appointmentID, teamID uuid.UUID, dueDate time.Time, reason string) error
	MarkAwaitingReschedule(ctx context.Context, appointmentID, teamID uuid.UUID) error
}

// SchedulePort lets a deal close enroll dependent recurring-revenue writes in
// the same transaction.
type SchedulePort interface {
	CreateOnCloseHook(a *repository.Appointment, mrrAmount int64, months int, firstCharge time.Time) repository.TxHook
}

// CalendarPort fetches lead-facing reschedule links from the external
// calendar provider.
type CalendarPort interface {
	FetchRescheduleLink(ctx context.Context, inviteeReference, teamCredential string) (string, error)
}

// ActivityPort appends audit entries.
type ActivityPort interface {
	Record(ctx context.Context, teamID uuid.UUID, appointmentID *uuid.UUID, actor, action, note string) error
}

// Service orchestrates the pipeline state machine.
type Service struct {
	repo          Store
	teams         TeamPort
	tasks         TaskPort
	schedules     SchedulePort
	calendar      CalendarPort
	activity      ActivityPort
	ledger        *undo.Ledger
	bus           events.Bus
	log           *logger.Logger
	calendarToken string
}

// NewService creates a new pipeline service.
func NewService(
	repo Store,
	teams TeamPort,
	tasks TaskPort,
	schedules SchedulePort,
	calendar CalendarPort,
	activity ActivityPort,
	ledger *undo.Ledger,
	bus events.Bus,
	log *logger.Logger,
	calendarToken string,
) *Service {
	return &Service{
		repo:          repo,
		teams:         teams,
		tasks:         tasks,
		schedules:     schedules,
		calendar:      calendar,
		activity:      activity,
		ledger:        ledger,
		bus:           bus,
		log:           log,
		calendarToken: calendarToken,
	}
}

// CreateAppointmentInput is the intake payload for a booked appointment.
type CreateAppointmentInput struct {
	LeadName         string    `json:"leadName" validate:"required,min=1,max=200"`
	LeadEmail        string    `json:"leadEmail" validate:"required,email"`
	LeadPhone        string    `json:"leadPhone" validate:"omitempty,max=32"`
	ScheduledAt      time.Time `json:"scheduledAt" validate:"required"`
	InviteeReference string    `json:"inviteeReference" validate:"omitempty,max=200"`
}

// CreateAppointment books a new appointment in the booked bucket with the
// acting user as setter.
func (s *Service) CreateAppointment(ctx context.Context, teamID uuid.UUID, actor Actor, input CreateAppointmentInput) (*repository.Appointment, error) {
	a := &repository.Appointment{
		TeamID:      teamID,
		LeadName:    strings.TrimSpace(input.LeadName),
		LeadEmail:   strings.ToLower(strings.TrimSpace(input.LeadEmail)),
		ScheduledAt: input.ScheduledAt,
		SetterID:    &actor.ID,
		SetterName:  &actor.Name,
		Status:      repository.StatusNew,
	}
	if phone := normalizePhone(input.LeadPhone); phone != "" {
		a.LeadPhone = &phone
	}
	if ref := strings.TrimSpace(input.InviteeReference); ref != "" {
		a.InviteeReference = &ref
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.tasks.EnsureCallConfirmation(ctx, a.ID, teamID, a.ScheduledAt); err != nil {
		s.log.Error("failed to create confirmation task", "appointmentId", a.ID, "error", err)
	}

	return a, nil
}

// normalizePhone parses a phone number into E.164, defaulting to NL numbering
// like the intake forms do. Unparseable input is kept off the record.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, "NL")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id, teamID uuid.UUID) (*repository.Appointment, error) {
	return s.repo.GetByID(ctx, id, teamID)
}

// AssignCloser sets the closer before a close/deposit-class move.
func (s *Service) AssignCloser(ctx context.Context, id, teamID, closerID uuid.UUID, closerName string) error {
	return s.repo.AssignCloser(ctx, id, teamID, closerID, closerName)
}

// StageColumn is one ordered column of the board read model.
type StageColumn struct {
	StageID      string                   `json:"stageId"`
	Label        string                   `json:"label"`
	Color        string                   `json:"color"`
	Appointments []repository.Appointment `json:"appointments"`
}

// Board returns appointments grouped into the team's configured stage order,
// with the synthetic booked bucket first. Rescheduled appointments appear in
// both their stage and the booked bucket.
func (s *Service) Board(ctx context.Context, teamID uuid.UUID) ([]StageColumn, error) {
	stages, err := s.teams.Stages(ctx, teamID)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.ListByStage(ctx, teamID)
	if err != nil {
		return nil, err
	}

	columns := []StageColumn{{
		StageID:      domain.BookedBucket,
		Label:        "Appointments Booked",
		Color:        "#64748b",
		Appointments: groups[domain.BookedBucket],
	}}
	for _, st := range stages {
		columns = append(columns, StageColumn{
			StageID:      st.StageID,
			Label:        st.Label,
			Color:        st.Color,
			Appointments: groups[st.StageID],
		})
	}

	return columns, nil
}

// Commissions lists commission rows earned against an appointment.
func (s *Service) Commissions(ctx context.Context, appointmentID, teamID uuid.UUID) ([]repository.Commission, error) {
	return s.repo.ListCommissions(ctx, appointmentID, teamID)
}

// Delete removes an appointment with its dependent rows. Admin only; gated at
// the transport layer.
func (s *Service) Delete(ctx context.Context, id, teamID uuid.UUID) error {
	return s.repo.Delete(ctx, id, teamID)
}

// checkSetterGate rejects pipeline mutations from setter-role actors unless
// the team allows them.
func (s *Service) checkSetterGate(ctx context.Context, teamID uuid.UUID, actor Actor) error {
	role, err := s.teams.MemberRole(ctx, teamID, actor.ID)
	if err != nil {
		return err
	}
	if role != teamsrepo.RoleSetter {
		return nil
	}

	settings, err := s.teams.Settings(ctx, teamID)
	if err != nil {
		return err
	}
	if !settings.AllowSetterPipelineUpdates {
		return apperr.Forbidden("setters may not update the pipeline for this team")
	}

	return nil
}

// preImage captures the fields a later undo may restore.
func preImage(a *repository.Appointment) map[string]interface{} {
	return map[string]interface{}{
		"pipeline_stage":  a.PipelineStage,
		"status":          a.Status,
		"retarget_date":   a.RetargetDate,
		"retarget_reason": a.RetargetReason,
	}
}

func (s *Service) track(ctx context.Context, actor Actor, a *repository.Appointment, version time.Time, description string) {
	if actor.SessionID == "" {
		return
	}
	action := undo.Action{
		Table:          "appointments",
		RecordID:       a.ID.String(),
		PreviousValues: preImage(a),
		Description:    description,
		RecordVersion:  version,
	}
	if err := s.ledger.Track(ctx, actor.SessionID, action); err != nil {
		s.log.Error("failed to track undo action", "appointmentId", a.ID, "error", err)
	}
}

func (s *Service) recordActivity(ctx context.Context, teamID uuid.UUID, appointmentID uuid.UUID, actor, action, note string) {
	if err := s.activity.Record(ctx, teamID, &appointmentID, actor, action, note); err != nil {
		s.log.Error("failed to record activity", "appointmentId", appointmentID, "action", action, "error", err)
	}
}

func describeMove(leadName, label string) string {
	return fmt.Sprintf("Moved %s to %s", leadName, label)
}

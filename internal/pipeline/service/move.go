package service

import (
	"context"
	"strings"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/pipeline/domain"
	"salesops_backend/internal/pipeline/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// MoveOutcome tells the caller what happened to a move request, or which
// dialog must collect input before resubmitting.
type MoveOutcome string

const (
	// OutcomeCommitted means the stage write happened.
	OutcomeCommitted MoveOutcome = "committed"
	// OutcomeNoop means the appointment was already in the target stage.
	OutcomeNoop MoveOutcome = "noop"
	// OutcomeNeedsDealDialog means the stage write happened and the caller
	// must now collect deal financials and submit the close transaction.
	OutcomeNeedsDealDialog MoveOutcome = "needs_deal_dialog"
	// OutcomeNeedsFollowUp means nothing was written; the caller must supply
	// a follow-up date and reason, or an explicit skip.
	OutcomeNeedsFollowUp MoveOutcome = "needs_follow_up"
	// OutcomePresentRescheduleLink means nothing was written; the caller
	// should present the reschedule link to the lead. The stage follows once
	// the external reschedule is observed.
	OutcomePresentRescheduleLink MoveOutcome = "present_reschedule_link"
)

// MoveExtra is the resubmission payload for dialog-gated moves.
type MoveExtra struct {
	FollowUpDate *time.Time `json:"followUpDate"`
	Reason       string     `json:"reason"`
	SkipFollowUp bool       `json:"skipFollowUp"`
}

// MoveResult is what RequestMove hands back to the transport layer.
type MoveResult struct {
	Outcome       MoveOutcome             `json:"outcome"`
	RescheduleURL string                  `json:"rescheduleUrl,omitempty"`
	Appointment   *repository.Appointment `json:"appointment,omitempty"`
}

// RequestMove runs the stage transition algorithm. Classification always
// comes from the current stage definition, never from a cached class, so
// renamed stages cannot silently reclassify in-flight appointments.
func (s *Service) RequestMove(ctx context.Context, teamID uuid.UUID, actor Actor, appointmentID uuid.UUID, targetStage string, extra *MoveExtra) (*MoveResult, error) {
	if err := s.checkSetterGate(ctx, teamID, actor); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, appointmentID, teamID)
	if err != nil {
		return nil, err
	}

	targetStage = strings.TrimSpace(targetStage)
	if targetStage == a.CurrentStage() || (targetStage == domain.BookedBucket && a.CurrentStage() == "") {
		return &MoveResult{Outcome: OutcomeNoop, Appointment: a}, nil
	}

	// Moving back to the booked bucket clears the stage; it carries no class.
	if targetStage == domain.BookedBucket || targetStage == "" {
		return s.commitMove(ctx, teamID, actor, a, nil, "Appointments Booked", nil)
	}

	stage, err := s.teams.Stage(ctx, teamID, targetStage)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, apperr.NotFound("pipeline stage not found")
	}

	class := domain.Classify(stage.StageID, stage.Label)

	if class.RequiresCloser() && a.CloserID == nil {
		return nil, apperr.Validation(apperr.CodeMissingCloser, "assign a closer before moving into a close or deposit stage")
	}

	switch class {
	case domain.ClassClose:
		result, err := s.commitMove(ctx, teamID, actor, a, &stage.StageID, stage.Label, nil)
		if err != nil {
			return nil, err
		}
		result.Outcome = OutcomeNeedsDealDialog
		return result, nil

	case domain.ClassReschedule:
		return s.handleRescheduleMove(ctx, teamID, a)

	case domain.ClassFollowUp:
		return s.handleFollowUpMove(ctx, teamID, actor, a, stage.StageID, stage.Label, extra)

	default:
		// Plain and deposit classes commit directly; deposit money moves only
		// through the close transaction.
		return s.commitMove(ctx, teamID, actor, a, &stage.StageID, stage.Label, nil)
	}
}

// handleRescheduleMove never writes the stage: the lead reschedules through
// the external link, and the watcher moves the appointment once the
// authoritative row reflects it.
func (s *Service) handleRescheduleMove(ctx context.Context, teamID uuid.UUID, a *repository.Appointment) (*MoveResult, error) {
	if a.RescheduleURL != nil && *a.RescheduleURL != "" {
		return &MoveResult{Outcome: OutcomePresentRescheduleLink, RescheduleURL: *a.RescheduleURL, Appointment: a}, nil
	}

	if a.InviteeReference == nil || *a.InviteeReference == "" {
		return nil, apperr.Validation(apperr.CodeLegacyImport, "appointment was imported without a calendar reference and cannot be rescheduled externally")
	}

	url, err := s.calendar.FetchRescheduleLink(ctx, *a.InviteeReference, s.calendarToken)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRescheduleURL(ctx, a.ID, teamID, url); err != nil {
		return nil, err
	}
	if err := s.tasks.MarkAwaitingReschedule(ctx, a.ID, teamID); err != nil {
		s.log.Error("failed to mark tasks awaiting reschedule", "appointmentId", a.ID, "error", err)
	}

	return &MoveResult{Outcome: OutcomePresentRescheduleLink, RescheduleURL: url, Appointment: a}, nil
}

// handleFollowUpMove defers the stage write until the caller supplies a
// follow-up date and reason, or explicitly skips the follow-up.
func (s *Service) handleFollowUpMove(ctx context.Context, teamID uuid.UUID, actor Actor, a *repository.Appointment, stageID, label string, extra *MoveExtra) (*MoveResult, error) {
	if extra == nil {
		return &MoveResult{Outcome: OutcomeNeedsFollowUp, Appointment: a}, nil
	}

	if extra.SkipFollowUp {
		return s.commitMove(ctx, teamID, actor, a, &stageID, label, nil)
	}

	if extra.FollowUpDate == nil || strings.TrimSpace(extra.Reason) == "" {
		return nil, apperr.BadRequest("followUpDate and reason are required unless the follow-up is skipped")
	}

	// Stage and retarget fields go down in one write so the version tracked
	// for undo is the row's final updated_at.
	retarget := &repository.Retarget{Date: *extra.FollowUpDate, Reason: extra.Reason}
	result, err := s.commitMove(ctx, teamID, actor, a, &stageID, label, retarget)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.CreateFollowUpTask(ctx, a.ID, teamID, *extra.FollowUpDate, extra.Reason); err != nil {
		return nil, err
	}

	return result, nil
}

// commitMove writes the stage, tracks the compensating undo action, records
// the audit entry, and publishes the move.
func (s *Service) commitMove(ctx context.Context, teamID uuid.UUID, actor Actor, a *repository.Appointment, stage *string, label string, retarget *repository.Retarget) (*MoveResult, error) {
	updatedAt, err := s.repo.UpdateStage(ctx, a.ID, teamID, stage, retarget)
	if err != nil {
		return nil, err
	}

	s.track(ctx, actor, a, updatedAt, describeMove(a.LeadName, label))
	s.recordActivity(ctx, teamID, a.ID, actor.Name, "stage_moved", describeMove(a.LeadName, label))

	fromStage := a.CurrentStage()
	a.PipelineStage = stage
	a.UpdatedAt = updatedAt
	if retarget != nil {
		a.RetargetDate = &retarget.Date
		a.RetargetReason = &retarget.Reason
	}

	s.bus.Publish(ctx, events.StageMoved{
		BaseEvent:     events.NewBaseEvent(),
		TeamID:        teamID,
		AppointmentID: a.ID,
		FromStage:     fromStage,
		ToStage:       a.CurrentStage(),
		ActorID:       actor.ID,
		ActorName:     actor.Name,
	})
	s.log.PipelineEvent(a.ID.String(), fromStage, a.CurrentStage(), actor.Name)

	return &MoveResult{Outcome: OutcomeCommitted, Appointment: a}, nil
}

package service

import (
	"context"

	"salesops_backend/internal/pipeline/domain"
	"salesops_backend/internal/pipeline/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// UndoPreview is what the caller shows in the confirmation prompt.
type UndoPreview struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Description   string    `json:"description"`
	Destructive   bool      `json:"destructive"`
}

// PreviewUndo reports what an undo of the tracked action would do, without
// applying it. Used to drive the confirmation prompt: wide undos delete
// dependent financial rows and cannot themselves be undone.
func (s *Service) PreviewUndo(ctx context.Context, teamID uuid.UUID, actor Actor) (*UndoPreview, error) {
	action, err := s.ledger.Peek(ctx, actor.SessionID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(action.RecordID)
	if err != nil {
		return nil, apperr.Consistency("undo slot holds a malformed record id")
	}

	wide, err := s.undoIsWide(ctx, teamID, id)
	if err != nil {
		return nil, err
	}

	return &UndoPreview{AppointmentID: id, Description: action.Description, Destructive: wide}, nil
}

// Undo reverses the session's last tracked mutation. The caller must confirm
// first. When the appointment currently sits in a close or deposit stage the
// undo is wide: dependent commission and schedule rows are deleted by foreign
// key and financials reset. Otherwise only the tracked pre-image is restored.
func (s *Service) Undo(ctx context.Context, teamID uuid.UUID, actor Actor, confirmed bool) (*repository.Appointment, error) {
	if !confirmed {
		return nil, apperr.BadRequest("undo is irreversible and requires confirmation")
	}

	action, err := s.ledger.Peek(ctx, actor.SessionID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(action.RecordID)
	if err != nil {
		return nil, apperr.Consistency("undo slot holds a malformed record id")
	}

	wide, err := s.undoIsWide(ctx, teamID, id)
	if err != nil {
		return nil, err
	}

	if wide {
		err = s.repo.ApplyUndoWide(ctx, id, teamID, action.PreviousValues, action.RecordVersion)
	} else {
		err = s.repo.ApplyUndoNarrow(ctx, id, teamID, action.PreviousValues, action.RecordVersion)
	}
	if err != nil {
		if apperr.IsCode(err, apperr.CodeUndoConflict) {
			s.log.Error("undo refused, record changed since tracking", "appointmentId", id, "actor", actor.Name)
		}
		return nil, err
	}

	if err := s.ledger.Clear(ctx, actor.SessionID); err != nil {
		s.log.Error("failed to clear undo slot", "sessionId", actor.SessionID, "error", err)
	}

	actionType := "stage_undone"
	if wide {
		actionType = "deal_undone"
	}
	s.recordActivity(ctx, teamID, id, actor.Name, actionType, "Undid: "+action.Description)

	return s.repo.GetByID(ctx, id, teamID)
}

// undoIsWide classifies the appointment's current stage at undo time; the
// class decides whether the undo must also tear down financial rows.
func (s *Service) undoIsWide(ctx context.Context, teamID, appointmentID uuid.UUID) (bool, error) {
	a, err := s.repo.GetByID(ctx, appointmentID, teamID)
	if err != nil {
		return false, err
	}

	cur := a.CurrentStage()
	if cur == "" {
		return false, nil
	}
	stage, err := s.teams.Stage(ctx, teamID, cur)
	if err != nil {
		return false, err
	}
	if stage == nil {
		return false, nil
	}

	class := domain.Classify(stage.StageID, stage.Label)
	return class == domain.ClassClose || class == domain.ClassDeposit, nil
}

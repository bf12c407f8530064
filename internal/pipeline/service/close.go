package service

import (
	"context"
	"math"
	"strings"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/pipeline/domain"
	"salesops_backend/internal/pipeline/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// CloseDealInput is the financial payload collected by the deal-closing
// dialog. Amounts are integer cents.
type CloseDealInput struct {
	CCCollected     int64      `json:"ccCollected" validate:"min=0"`
	MRRAmount       int64      `json:"mrrAmount" validate:"min=0"`
	MRRMonths       int        `json:"mrrMonths" validate:"min=0,max=120"`
	ProductName     string     `json:"productName" validate:"omitempty,max=200"`
	Notes           string     `json:"notes" validate:"omitempty,max=2000"`
	FirstChargeDate *time.Time `json:"firstChargeDate"`
}

// CloseDeal runs the atomic close transaction: financial fields, closed
// status, commission rows, and the recurring schedule commit together or not
// at all. A second close of the same appointment fails with already_closed.
func (s *Service) CloseDeal(ctx context.Context, teamID uuid.UUID, actor Actor, appointmentID uuid.UUID, input CloseDealInput) (*repository.Appointment, error) {
	if err := s.checkSetterGate(ctx, teamID, actor); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, appointmentID, teamID)
	if err != nil {
		return nil, err
	}
	if a.CloserID == nil {
		return nil, apperr.Validation(apperr.CodeMissingCloser, "assign a closer before closing the deal")
	}

	settings, err := s.teams.Settings(ctx, teamID)
	if err != nil {
		return nil, err
	}

	targetStage, err := s.closeTargetStage(ctx, teamID, a)
	if err != nil {
		return nil, err
	}

	totalRevenue := input.CCCollected + input.MRRAmount*int64(input.MRRMonths)

	params := repository.CloseDealParams{
		AppointmentID: a.ID,
		TeamID:        teamID,
		TargetStage:   targetStage,
		CloserID:      *a.CloserID,
		CloserName:    derefOr(a.CloserName, ""),
		CCCollected:   input.CCCollected,
		MRRAmount:     input.MRRAmount,
		MRRMonths:     input.MRRMonths,
		TotalRevenue:  totalRevenue,
	}
	if name := strings.TrimSpace(input.ProductName); name != "" {
		params.ProductName = &name
	}

	commissions, err := s.closeCommissions(ctx, teamID, a, settings, input.CCCollected)
	if err != nil {
		return nil, err
	}
	params.Commissions = commissions

	var hooks []repository.TxHook
	if input.MRRAmount > 0 && input.MRRMonths > 0 {
		firstCharge := time.Now().AddDate(0, 1, 0)
		if input.FirstChargeDate != nil {
			firstCharge = *input.FirstChargeDate
		}
		hooks = append(hooks, s.schedules.CreateOnCloseHook(a, input.MRRAmount, input.MRRMonths, firstCharge))
	}

	closed, err := s.repo.CloseDeal(ctx, params, hooks...)
	if err != nil {
		return nil, err
	}

	s.track(ctx, actor, a, closed.UpdatedAt, describeClose(a.LeadName))
	s.recordActivity(ctx, teamID, a.ID, actor.Name, "deal_closed", describeClose(a.LeadName))

	s.bus.Publish(ctx, events.DealClosed{
		BaseEvent:     events.NewBaseEvent(),
		TeamID:        teamID,
		AppointmentID: a.ID,
		LeadName:      a.LeadName,
		CloserID:      *a.CloserID,
		CashCollected: input.CCCollected,
		MRRAmount:     input.MRRAmount,
		MRRMonths:     input.MRRMonths,
		ProductName:   derefOr(params.ProductName, ""),
	})

	return closed, nil
}

// closeTargetStage keeps the current stage when it is already close-class,
// otherwise lands the deal in the team's won stage.
func (s *Service) closeTargetStage(ctx context.Context, teamID uuid.UUID, a *repository.Appointment) (string, error) {
	if cur := a.CurrentStage(); cur != "" {
		stage, err := s.teams.Stage(ctx, teamID, cur)
		if err != nil {
			return "", err
		}
		if stage != nil && domain.Classify(stage.StageID, stage.Label) == domain.ClassClose {
			return stage.StageID, nil
		}
	}

	stage, err := s.teams.Stage(ctx, teamID, "won")
	if err != nil {
		return "", err
	}
	if stage == nil {
		return "", apperr.Consistency("team has no won stage configured")
	}
	return stage.StageID, nil
}

// closeCommissions computes the close-time commission rows from the cash
// collected. A closer whose team role is offer_owner earns no commission.
func (s *Service) closeCommissions(ctx context.Context, teamID uuid.UUID, a *repository.Appointment, settings *teamsrepo.Settings, ccCollected int64) ([]repository.Commission, error) {
	if ccCollected <= 0 {
		return nil, nil
	}

	var rows []repository.Commission
	if a.SetterID != nil {
		rows = append(rows, repository.Commission{
			TeamID:        teamID,
			AppointmentID: a.ID,
			UserID:        *a.SetterID,
			UserName:      derefOr(a.SetterName, ""),
			Role:          teamsrepo.RoleSetter,
			Amount:        commissionAmount(ccCollected, settings.SetterCommissionPct),
			Source:        repository.CommissionSourceDealClose,
		})
	}

	closerRole, err := s.teams.MemberRole(ctx, teamID, *a.CloserID)
	if err != nil {
		return nil, err
	}
	if closerRole != teamsrepo.RoleOfferOwner {
		rows = append(rows, repository.Commission{
			TeamID:        teamID,
			AppointmentID: a.ID,
			UserID:        *a.CloserID,
			UserName:      derefOr(a.CloserName, ""),
			Role:          teamsrepo.RoleCloser,
			Amount:        commissionAmount(ccCollected, settings.CloserCommissionPct),
			Source:        repository.CommissionSourceDealClose,
		})
	}

	return rows, nil
}

func commissionAmount(base int64, pct float64) int64 {
	return int64(math.Round(float64(base) * pct / 100))
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func describeClose(leadName string) string {
	return "Closed deal for " + leadName
}

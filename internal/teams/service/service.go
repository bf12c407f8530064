package service

import (
	"context"

	"salesops_backend/internal/teams/repository"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// defaultStages is the fixed seed set applied lazily per team on first access.
// The synthetic "appointments_booked" bucket is not a stage: appointments with
// a NULL pipeline_stage live there.
var defaultStages = []repository.Stage{
	{StageID: "confirmed", Label: "Confirmed", Color: "#38bdf8", OrderIndex: 1},
	{StageID: "showed", Label: "Showed", Color: "#4ade80", OrderIndex: 2},
	{StageID: "deposit", Label: "Deposit Collected", Color: "#fbbf24", OrderIndex: 3},
	{StageID: "won", Label: "Closed Won", Color: "#22c55e", OrderIndex: 4},
	{StageID: "lost", Label: "Closed Lost", Color: "#f87171", OrderIndex: 5},
	{StageID: "no_show", Label: "No Show", Color: "#a78bfa", OrderIndex: 6, IsDefault: true},
	{StageID: "canceled", Label: "Canceled", Color: "#94a3b8", OrderIndex: 7},
	{StageID: "rescheduled", Label: "Rescheduled", Color: "#f472b6", OrderIndex: 8},
}

// stageIDRenames maps legacy stage ids shipped by earlier seeds to their
// canonical ids. Applied idempotently alongside seeding.
var stageIDRenames = map[string]string{
	"closed_won":  "won",
	"closed_lost": "lost",
	"cancelled":   "canceled",
}

// retiredStageIDs lists stage ids that were dropped entirely; their
// appointments fall back to the booked bucket.
var retiredStageIDs = []string{"follow_up_queue"}

// Service provides team configuration for the pipeline and task engines.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new teams service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Settings returns the team settings, seeding defaults on first access.
func (s *Service) Settings(ctx context.Context, teamID uuid.UUID) (*repository.Settings, error) {
	return s.repo.GetSettings(ctx, teamID)
}

// UpdateSettings replaces the team settings.
func (s *Service) UpdateSettings(ctx context.Context, settings *repository.Settings) error {
	return s.repo.UpdateSettings(ctx, settings)
}

// MemberRole returns the actor's role within the team.
func (s *Service) MemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	return s.repo.GetMemberRole(ctx, teamID, userID)
}

// Stages returns the team's stage set, lazily seeding and migrating it first.
func (s *Service) Stages(ctx context.Context, teamID uuid.UUID) ([]repository.Stage, error) {
	if err := s.EnsureStages(ctx, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListStages(ctx, teamID)
}

// Stage resolves a single stage definition after ensuring the set exists.
// Returns nil when the stage id is unknown for the team.
func (s *Service) Stage(ctx context.Context, teamID uuid.UUID, stageID string) (*repository.Stage, error) {
	if err := s.EnsureStages(ctx, teamID); err != nil {
		return nil, err
	}
	return s.repo.GetStage(ctx, teamID, stageID)
}

// EnsureStages seeds the default stage set and applies identity corrections.
// Every step is idempotent; running it on each access is safe.
func (s *Service) EnsureStages(ctx context.Context, teamID uuid.UUID) error {
	if err := s.repo.SeedStages(ctx, teamID, defaultStages); err != nil {
		return err
	}

	for legacy, canonical := range stageIDRenames {
		if err := s.repo.RenameStageID(ctx, teamID, legacy, canonical); err != nil {
			return err
		}
	}

	for _, retired := range retiredStageIDs {
		if err := s.repo.RetireStageID(ctx, teamID, retired); err != nil {
			return err
		}
	}

	return nil
}

// NextAssignee selects the next rotation member for task assignment, or nil
// when nobody is eligible. Selection stamps last_assigned_at atomically.
func (s *Service) NextAssignee(ctx context.Context, teamID uuid.UUID) (*repository.Member, error) {
	return s.repo.ClaimNextRotationMember(ctx, teamID)
}

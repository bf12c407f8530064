package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings represents the team configuration consulted by the engines.
type Settings struct {
	TeamID                     uuid.UUID `db:"team_id"`
	SetterCommissionPct        float64   `db:"setter_commission_pct"`
	CloserCommissionPct        float64   `db:"closer_commission_pct"`
	AutoReturnMinutes          int       `db:"auto_return_minutes"`
	AllowSetterPipelineUpdates bool      `db:"allow_setter_pipeline_updates"`
}

// Member represents a team membership row.
type Member struct {
	TeamID         uuid.UUID  `db:"team_id"`
	UserID         uuid.UUID  `db:"user_id"`
	Name           string     `db:"name"`
	Role           string     `db:"role"`
	InRotation     bool       `db:"in_rotation"`
	LastAssignedAt *time.Time `db:"last_assigned_at"`
}

// Stage represents a configured pipeline stage for a team.
type Stage struct {
	ID         uuid.UUID `db:"id"`
	TeamID     uuid.UUID `db:"team_id"`
	StageID    string    `db:"stage_id"`
	Label      string    `db:"label"`
	Color      string    `db:"color"`
	OrderIndex int       `db:"order_index"`
	IsDefault  bool      `db:"is_default"`
}

// Member roles.
const (
	RoleSetter     = "setter"
	RoleCloser     = "closer"
	RoleOfferOwner = "offer_owner"
	RoleAdmin      = "admin"
)

const settingsNotFoundMsg = "team settings not found"

// Repository provides database operations for team configuration.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new teams repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSettings retrieves the team settings row, inserting defaults on first access.
func (r *Repository) GetSettings(ctx context.Context, teamID uuid.UUID) (*Settings, error) {
	var s Settings
	query := `SELECT team_id, setter_commission_pct, closer_commission_pct, auto_return_minutes, allow_setter_pipeline_updates
		FROM team_settings WHERE team_id = $1`

	err := r.pool.QueryRow(ctx, query, teamID).Scan(
		&s.TeamID, &s.SetterCommissionPct, &s.CloserCommissionPct, &s.AutoReturnMinutes, &s.AllowSetterPipelineUpdates,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.insertDefaultSettings(ctx, teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team settings: %w", err)
	}

	return &s, nil
}

func (r *Repository) insertDefaultSettings(ctx context.Context, teamID uuid.UUID) (*Settings, error) {
	s := Settings{
		TeamID:                     teamID,
		SetterCommissionPct:        5,
		CloserCommissionPct:        10,
		AutoReturnMinutes:          30,
		AllowSetterPipelineUpdates: false,
	}

	query := `INSERT INTO team_settings (team_id, setter_commission_pct, closer_commission_pct, auto_return_minutes, allow_setter_pipeline_updates)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query,
		s.TeamID, s.SetterCommissionPct, s.CloserCommissionPct, s.AutoReturnMinutes, s.AllowSetterPipelineUpdates,
	); err != nil {
		return nil, fmt.Errorf("failed to seed team settings: %w", err)
	}

	return &s, nil
}

// UpdateSettings replaces the team settings row.
func (r *Repository) UpdateSettings(ctx context.Context, s *Settings) error {
	query := `UPDATE team_settings SET
			setter_commission_pct = $2,
			closer_commission_pct = $3,
			auto_return_minutes = $4,
			allow_setter_pipeline_updates = $5
		WHERE team_id = $1`

	result, err := r.pool.Exec(ctx, query,
		s.TeamID, s.SetterCommissionPct, s.CloserCommissionPct, s.AutoReturnMinutes, s.AllowSetterPipelineUpdates,
	)
	if err != nil {
		return fmt.Errorf("failed to update team settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(settingsNotFoundMsg)
	}

	return nil
}

// GetMemberRole returns the member's role within the team.
func (r *Repository) GetMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	var role string
	query := `SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, teamID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("team member not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}

	return role, nil
}

// ClaimNextRotationMember selects the least-recently-assigned member flagged
// in_rotation and stamps last_assigned_at in the same statement, so two
// concurrent assignments cannot pick the same member.
func (r *Repository) ClaimNextRotationMember(ctx context.Context, teamID uuid.UUID) (*Member, error) {
	query := `WITH next_member AS (
			SELECT tm.team_id, tm.user_id
			FROM team_members tm
			WHERE tm.team_id = $1 AND tm.in_rotation = TRUE
			ORDER BY tm.last_assigned_at ASC NULLS FIRST, tm.user_id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE team_members tm
		SET last_assigned_at = now()
		FROM next_member nm
		JOIN users u ON u.id = nm.user_id
		WHERE tm.team_id = nm.team_id AND tm.user_id = nm.user_id
		RETURNING tm.team_id, tm.user_id, u.name, tm.role, tm.in_rotation, tm.last_assigned_at`

	var m Member
	err := r.pool.QueryRow(ctx, query, teamID).Scan(
		&m.TeamID, &m.UserID, &m.Name, &m.Role, &m.InRotation, &m.LastAssignedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // nobody eligible; task stays pending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim rotation member: %w", err)
	}

	return &m, nil
}

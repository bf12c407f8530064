package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListStages returns the team's stage set ordered by order_index.
func (r *Repository) ListStages(ctx context.Context, teamID uuid.UUID) ([]Stage, error) {
	query := `SELECT id, team_id, stage_id, label, color, order_index, is_default
		FROM pipeline_stages WHERE team_id = $1 ORDER BY order_index ASC`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline stages: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.TeamID, &s.StageID, &s.Label, &s.Color, &s.OrderIndex, &s.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline stage: %w", err)
		}
		stages = append(stages, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return stages, nil
}

// GetStage returns one stage definition by its team-scoped stage_id.
func (r *Repository) GetStage(ctx context.Context, teamID uuid.UUID, stageID string) (*Stage, error) {
	var s Stage
	query := `SELECT id, team_id, stage_id, label, color, order_index, is_default
		FROM pipeline_stages WHERE team_id = $1 AND stage_id = $2`

	err := r.pool.QueryRow(ctx, query, teamID, stageID).Scan(
		&s.ID, &s.TeamID, &s.StageID, &s.Label, &s.Color, &s.OrderIndex, &s.IsDefault,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline stage: %w", err)
	}

	return &s, nil
}

// SeedStages inserts the provided stage set for a team, skipping stage ids
// that already exist. Safe to run on every first access.
func (r *Repository) SeedStages(ctx context.Context, teamID uuid.UUID, stages []Stage) error {
	for _, s := range stages {
		query := `INSERT INTO pipeline_stages (id, team_id, stage_id, label, color, order_index, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (team_id, stage_id) DO NOTHING`

		if _, err := r.pool.Exec(ctx, query,
			uuid.New(), teamID, s.StageID, s.Label, s.Color, s.OrderIndex, s.IsDefault,
		); err != nil {
			return fmt.Errorf("failed to seed pipeline stage %s: %w", s.StageID, err)
		}
	}

	return nil
}

// RenameStageID migrates a legacy stage id to its canonical id. When the
// canonical id already exists the legacy row is removed and appointments are
// repointed, keeping the migration idempotent under retries.
func (r *Repository) RenameStageID(ctx context.Context, teamID uuid.UUID, legacyID, canonicalID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pipeline_stages WHERE team_id = $1 AND stage_id = $2)`,
		teamID, canonicalID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check canonical stage: %w", err)
	}

	if exists {
		if _, err := tx.Exec(ctx,
			`DELETE FROM pipeline_stages WHERE team_id = $1 AND stage_id = $2`,
			teamID, legacyID,
		); err != nil {
			return fmt.Errorf("failed to drop legacy stage: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`UPDATE pipeline_stages SET stage_id = $3 WHERE team_id = $1 AND stage_id = $2`,
			teamID, legacyID, canonicalID,
		); err != nil {
			return fmt.Errorf("failed to rename stage: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE appointments SET pipeline_stage = $3 WHERE team_id = $1 AND pipeline_stage = $2`,
		teamID, legacyID, canonicalID,
	); err != nil {
		return fmt.Errorf("failed to repoint appointments: %w", err)
	}

	return tx.Commit(ctx)
}

// RetireStageID deletes a deprecated stage and moves its appointments back to
// the default booked bucket (pipeline_stage = NULL).
func (r *Repository) RetireStageID(ctx context.Context, teamID uuid.UUID, stageID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE appointments SET pipeline_stage = NULL WHERE team_id = $1 AND pipeline_stage = $2`,
		teamID, stageID,
	); err != nil {
		return fmt.Errorf("failed to reassign appointments to default: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM pipeline_stages WHERE team_id = $1 AND stage_id = $2`,
		teamID, stageID,
	); err != nil {
		return fmt.Errorf("failed to retire stage: %w", err)
	}

	return tx.Commit(ctx)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Columns a narrow undo may restore. Anything else in a pre-image is a bug
// upstream and gets rejected rather than written blind.
var undoableColumns = map[string]bool{
	"pipeline_stage":  true,
	"status":          true,
	"retarget_date":   true,
	"retarget_reason": true,
}

// ApplyUndoNarrow restores pre-image columns on the appointment, guarded by
// the updated_at captured when the undone action was tracked. A mismatch means
// someone touched the row since, and the undo is refused.
func (r *Repository) ApplyUndoNarrow(ctx context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error {
	set := "updated_at = now()"
	args := []interface{}{id, teamID, expectedUpdatedAt}
	for col, val := range previous {
		if !undoableColumns[col] {
			return apperr.Consistency(fmt.Sprintf("column %q is not undoable", col))
		}
		args = append(args, val)
		set += fmt.Sprintf(", %s = $%d", col, len(args))
	}

	query := `UPDATE appointments SET ` + set + `
		WHERE id = $1 AND team_id = $2 AND updated_at = $3`

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply undo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.undoMiss(ctx, id, teamID)
	}

	return nil
}

// ApplyUndoWide reverses a deal close in one transaction: dependent commission
// and recurring-schedule rows are removed by appointment id, financials are
// zeroed, and the stage and status pre-image is restored. The updated_at guard
// works the same as the narrow path.
func (r *Repository) ApplyUndoWide(ctx context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin undo transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	prevStage, _ := previous["pipeline_stage"]
	prevStatus, ok := previous["status"]
	if !ok {
		prevStatus = StatusNew
	}

	query := `UPDATE appointments SET
			pipeline_stage = $4,
			status = $5,
			cc_collected = 0,
			mrr_amount = 0,
			mrr_months = 0,
			product_name = NULL,
			total_revenue = 0,
			updated_at = now()
		WHERE id = $1 AND team_id = $2 AND updated_at = $3`

	result, err := tx.Exec(ctx, query, id, teamID, expectedUpdatedAt, prevStage, prevStatus)
	if err != nil {
		return fmt.Errorf("failed to revert deal close: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.undoMiss(ctx, id, teamID)
	}

	// Dependent rows go by foreign key, never by lead-name matching.
	if _, err := tx.Exec(ctx, `DELETE FROM commissions WHERE appointment_id = $1 AND team_id = $2`, id, teamID); err != nil {
		return fmt.Errorf("failed to delete commissions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM mrr_followup_tasks WHERE schedule_id IN (
			SELECT id FROM mrr_schedules WHERE appointment_id = $1 AND team_id = $2
		)`, id, teamID); err != nil {
		return fmt.Errorf("failed to delete follow-up tasks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM mrr_schedules WHERE appointment_id = $1 AND team_id = $2`, id, teamID); err != nil {
		return fmt.Errorf("failed to delete recurring schedule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit undo transaction: %w", err)
	}

	return nil
}

// undoMiss turns a zero-row conditional update into the right error: the row
// either vanished or moved on since the action was tracked.
func (r *Repository) undoMiss(ctx context.Context, id, teamID uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1 AND team_id = $2)`,
		id, teamID,
	).Scan(&exists)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("failed to check appointment: %w", err)
	}
	if !exists {
		return apperr.NotFound(appointmentNotFoundMsg)
	}
	return apperr.Conflict(apperr.CodeUndoConflict, "record changed since the action was taken")
}

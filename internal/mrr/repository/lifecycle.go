package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommissionRow is one commission earned on a confirmed payment.
type CommissionRow struct {
	UserID   uuid.UUID
	UserName string
	Role     string
	Amount   int64
}

// ConfirmParams carries a payment confirmation into the transaction.
type ConfirmParams struct {
	TaskID      uuid.UUID
	TeamID      uuid.UUID
	ActorID     uuid.UUID
	Notes       *string
	Commissions []CommissionRow
}

// ConfirmResult reports what the confirmation transaction did.
type ConfirmResult struct {
	Schedule  *Schedule
	Task      *FollowUpTask
	Completed bool
}

// ConfirmPayment runs the whole payment confirmation in one transaction: the
// task flips to confirmed, the parent appointment's cash collected grows by
// the monthly amount, commission rows are written, and the schedule either
// advances a month or completes. The schedule row is locked first so
// concurrent confirms serialize.
func (r *Repository) ConfirmPayment(ctx context.Context, p ConfirmParams) (*ConfirmResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin confirm transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sched, err := scanSchedule(tx.QueryRow(ctx, `SELECT `+prefixed(scheduleColumns, "s")+`
		FROM mrr_schedules s
		JOIN mrr_followup_tasks t ON t.schedule_id = s.id
		WHERE t.id = $1 AND s.team_id = $2
		FOR UPDATE OF s`, p.TaskID, p.TeamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Conflict(apperr.CodeNoActiveTask, "no due payment task found")
		}
		return nil, fmt.Errorf("failed to lock schedule: %w", err)
	}

	task, err := scanFollowUp(tx.QueryRow(ctx, `SELECT `+followUpColumns+`
		FROM mrr_followup_tasks WHERE id = $1 FOR UPDATE`, p.TaskID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock follow-up task: %w", err)
	}

	if task.Status == TaskConfirmed {
		return nil, apperr.Consistency("payment task is already confirmed")
	}
	if task.Status != TaskDue {
		return nil, apperr.Conflict(apperr.CodeNoActiveTask, "payment task is not due")
	}
	if sched.ConfirmedCount >= sched.TotalMonths {
		return nil, apperr.Consistency("confirmed payments would exceed contracted months")
	}

	task, err = scanFollowUp(tx.QueryRow(ctx, `UPDATE mrr_followup_tasks SET
			status = 'confirmed',
			completed_at = now(),
			completed_by = $2,
			notes = COALESCE($3, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING `+followUpColumns, p.TaskID, p.ActorID, p.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to confirm task: %w", err)
	}

	result, err := tx.Exec(ctx, `UPDATE appointments SET
			cc_collected = cc_collected + $3,
			updated_at = now()
		WHERE id = $1 AND team_id = $2`,
		sched.AppointmentID, p.TeamID, sched.MRRAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to update collected cash: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperr.Consistency("schedule references a missing appointment")
	}

	for _, c := range p.Commissions {
		_, err := tx.Exec(ctx, `INSERT INTO commissions (
				id, team_id, appointment_id, user_id, user_name, role, amount, source, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 'mrr_payment', now())`,
			uuid.New(), p.TeamID, sched.AppointmentID, c.UserID, c.UserName, c.Role, c.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert commission: %w", err)
		}
	}

	sched.ConfirmedCount++
	completed := sched.ConfirmedCount >= sched.TotalMonths
	if completed {
		sched, err = scanSchedule(tx.QueryRow(ctx, `UPDATE mrr_schedules SET
				confirmed_count = confirmed_count + 1,
				status = 'completed',
				updated_at = now()
			WHERE id = $1
			RETURNING `+scheduleColumns, sched.ID))
		if err != nil {
			return nil, fmt.Errorf("failed to complete schedule: %w", err)
		}
	} else {
		nextRenewal := sched.NextRenewalDate.AddDate(0, 1, 0)
		sched, err = scanSchedule(tx.QueryRow(ctx, `UPDATE mrr_schedules SET
				confirmed_count = confirmed_count + 1,
				next_renewal_date = $2,
				updated_at = now()
			WHERE id = $1
			RETURNING `+scheduleColumns, sched.ID, nextRenewal))
		if err != nil {
			return nil, fmt.Errorf("failed to advance schedule: %w", err)
		}
		if err := insertDueTask(ctx, tx, sched.ID, nextRenewal); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit confirm transaction: %w", err)
	}

	return &ConfirmResult{Schedule: sched, Task: task, Completed: completed}, nil
}

// Pause parks the schedule: no due task remains active until reactivation.
func (r *Repository) Pause(ctx context.Context, id, teamID uuid.UUID) (*Schedule, error) {
	return r.flipStatus(ctx, id, teamID, StatusPaused, TaskPaused)
}

// Cancel ends the schedule. Already-confirmed tasks are left untouched.
func (r *Repository) Cancel(ctx context.Context, id, teamID uuid.UUID) (*Schedule, error) {
	return r.flipStatus(ctx, id, teamID, StatusCanceled, TaskCanceled)
}

func (r *Repository) flipStatus(ctx context.Context, id, teamID uuid.UUID, scheduleStatus, taskStatus string) (*Schedule, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sched, err := scanSchedule(tx.QueryRow(ctx, `UPDATE mrr_schedules SET
			status = $3, updated_at = now()
		WHERE id = $1 AND team_id = $2
		RETURNING `+scheduleColumns, id, teamID, scheduleStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(scheduleNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to update schedule status: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE mrr_followup_tasks SET status = $2, updated_at = now()
		WHERE schedule_id = $1 AND status = 'due'`, id, taskStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update due tasks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return sched, nil
}

// Reactivate resumes a paused schedule at the given renewal date. Exactly one
// task becomes due: the earliest paused one gets its due date rewritten, and
// a fresh task is created only when none is paused. Other paused tasks stay
// paused until later renewals.
func (r *Repository) Reactivate(ctx context.Context, id, teamID uuid.UUID, nextRenewal time.Time) (*Schedule, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sched, err := scanSchedule(tx.QueryRow(ctx, `UPDATE mrr_schedules SET
			status = 'active', next_renewal_date = $3, updated_at = now()
		WHERE id = $1 AND team_id = $2
		RETURNING `+scheduleColumns, id, teamID, nextRenewal))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(scheduleNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to reactivate schedule: %w", err)
	}

	result, err := tx.Exec(ctx, `UPDATE mrr_followup_tasks SET
			status = 'due', due_date = $2, updated_at = now()
		WHERE id = (
			SELECT id FROM mrr_followup_tasks
			WHERE schedule_id = $1 AND status = 'paused'
			ORDER BY due_date ASC
			LIMIT 1
		)`, id, nextRenewal)
	if err != nil {
		return nil, fmt.Errorf("failed to reactivate task: %w", err)
	}
	if result.RowsAffected() == 0 {
		if err := insertDueTask(ctx, tx, id, nextRenewal); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return sched, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReturnedTask is one task the sweep reclaimed, with its previous holder for
// the audit trail.
type ReturnedTask struct {
	TaskID     uuid.UUID
	TeamID     uuid.UUID
	PrevHolder uuid.UUID
}

// autoReturnSweepQuery reclaims claimed tasks past their auto-return
// deadline. SKIP LOCKED keeps concurrent sweep runs from double-returning,
// which also makes the sweep idempotent under at-least-once scheduling.
const autoReturnSweepQuery = `WITH expired AS (
		SELECT id, team_id, assigned_to FROM confirmation_tasks
		WHERE status = 'claimed' AND auto_return_at IS NOT NULL AND auto_return_at < $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE confirmation_tasks t SET
		status = 'pending',
		assigned_to = NULL,
		assigned_to_name = NULL,
		claimed_manually = false,
		assigned_at = NULL,
		auto_return_at = NULL,
		updated_at = now()
	FROM expired
	WHERE t.id = expired.id
	RETURNING t.id, t.team_id, expired.assigned_to`

// SweepAutoReturn requeues all timed-out claimed tasks and reports which ones
// it reclaimed.
func (r *Repository) SweepAutoReturn(ctx context.Context, now time.Time) ([]ReturnedTask, error) {
	rows, err := r.pool.Query(ctx, autoReturnSweepQuery, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep timed-out tasks: %w", err)
	}
	defer rows.Close()

	var out []ReturnedTask
	for rows.Next() {
		var rt ReturnedTask
		if err := rows.Scan(&rt.TaskID, &rt.TeamID, &rt.PrevHolder); err != nil {
			return nil, fmt.Errorf("failed to scan returned task: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// AwaitingTask pairs a parked task with the authoritative appointment fields
// the watcher re-derives state from.
type AwaitingTask struct {
	Task              Task
	AppointmentStatus string
	SuccessorID       *uuid.UUID
	ScheduledAt       time.Time
}

// ListAwaitingReschedule joins parked tasks with their appointment rows. The
// watcher trusts only these row values, never notification payloads, so
// missed or duplicate notifications cannot corrupt task state.
func (r *Repository) ListAwaitingReschedule(ctx context.Context) ([]AwaitingTask, error) {
	query := `SELECT ` + prefixedTaskColumns("t") + `,
			a.status, a.rescheduled_to_id, a.scheduled_at
		FROM confirmation_tasks t
		JOIN appointments a ON a.id = t.appointment_id
		WHERE t.status = 'awaiting_reschedule'
		ORDER BY t.updated_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list awaiting tasks: %w", err)
	}
	defer rows.Close()

	var out []AwaitingTask
	for rows.Next() {
		var at AwaitingTask
		t := &at.Task
		err := rows.Scan(
			&t.ID, &t.AppointmentID, &t.TeamID, &t.TaskType, &t.Status,
			&t.AssignedTo, &t.AssignedToName, &t.ClaimedManually, &t.AssignedAt, &t.DueAt, &t.AutoReturnAt,
			&t.CompletedAt, &t.CompletedBy, &t.Outcome, &t.RescheduleDate, &t.RescheduleNotes,
			&t.FollowUpDate, &t.FollowUpReason, &t.CreatedAt, &t.UpdatedAt,
			&at.AppointmentStatus, &at.SuccessorID, &at.ScheduledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan awaiting task: %w", err)
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func prefixedTaskColumns(alias string) string {
	cols := []string{
		"id", "appointment_id", "team_id", "task_type", "status",
		"assigned_to", "assigned_to_name", "claimed_manually", "assigned_at", "due_at", "auto_return_at",
		"completed_at", "completed_by", "outcome", "reschedule_date", "reschedule_notes",
		"follow_up_date", "follow_up_reason", "created_at", "updated_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}

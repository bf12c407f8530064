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

// Task types.
const (
	TypeCallConfirmation = "call_confirmation"
	TypeFollowUp         = "follow_up"
	TypeReschedule       = "reschedule"
)

// Task statuses.
const (
	StatusPending            = "pending"
	StatusClaimed            = "claimed"
	StatusAwaitingReschedule = "awaiting_reschedule"
	StatusCompleted          = "completed"
)

// Completion outcomes.
const (
	OutcomeConfirmed   = "confirmed"
	OutcomeNoShow      = "no_show"
	OutcomeRescheduled = "rescheduled"
	// OutcomeSuperseded marks tasks closed by cleanup when the appointment
	// reached a terminal status through another task.
	OutcomeSuperseded = "superseded"
)

// Task represents a confirmation task row.
type Task struct {
	ID              uuid.UUID  `db:"id"`
	AppointmentID   uuid.UUID  `db:"appointment_id"`
	TeamID          uuid.UUID  `db:"team_id"`
	TaskType        string     `db:"task_type"`
	Status          string     `db:"status"`
	AssignedTo      *uuid.UUID `db:"assigned_to"`
	AssignedToName  *string    `db:"assigned_to_name"`
	ClaimedManually bool       `db:"claimed_manually"`
	AssignedAt      *time.Time `db:"assigned_at"`
	DueAt           time.Time  `db:"due_at"`
	AutoReturnAt    *time.Time `db:"auto_return_at"`
	CompletedAt     *time.Time `db:"completed_at"`
	CompletedBy     *uuid.UUID `db:"completed_by"`
	Outcome         *string    `db:"outcome"`
	RescheduleDate  *time.Time `db:"reschedule_date"`
	RescheduleNotes *string    `db:"reschedule_notes"`
	FollowUpDate    *time.Time `db:"follow_up_date"`
	FollowUpReason  *string    `db:"follow_up_reason"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

const taskColumns = `id, appointment_id, team_id, task_type, status,
	assigned_to, assigned_to_name, claimed_manually, assigned_at, due_at, auto_return_at,
	completed_at, completed_by, outcome, reschedule_date, reschedule_notes,
	follow_up_date, follow_up_reason, created_at, updated_at`

const taskNotFoundMsg = "task not found"

// Repository provides database operations for confirmation tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new tasks repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.AppointmentID, &t.TeamID, &t.TaskType, &t.Status,
		&t.AssignedTo, &t.AssignedToName, &t.ClaimedManually, &t.AssignedAt, &t.DueAt, &t.AutoReturnAt,
		&t.CompletedAt, &t.CompletedBy, &t.Outcome, &t.RescheduleDate, &t.RescheduleNotes,
		&t.FollowUpDate, &t.FollowUpReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateIfNoneOpen inserts a task unless an open task of the same type
// already exists for the appointment. Returns the task and whether a row was
// inserted, making task creation idempotent per (appointment, type).
func (r *Repository) CreateIfNoneOpen(ctx context.Context, t *Task) (bool, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}

	query := `INSERT INTO confirmation_tasks (
			id, appointment_id, team_id, task_type, status,
			assigned_to, assigned_to_name, claimed_manually, assigned_at, due_at, auto_return_at,
			reschedule_date, reschedule_notes, follow_up_date, follow_up_reason,
			created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now()
		WHERE NOT EXISTS (
			SELECT 1 FROM confirmation_tasks
			WHERE appointment_id = $2 AND task_type = $4 AND status <> 'completed'
		)`

	result, err := r.pool.Exec(ctx, query,
		t.ID, t.AppointmentID, t.TeamID, t.TaskType, t.Status,
		t.AssignedTo, t.AssignedToName, t.ClaimedManually, t.AssignedAt, t.DueAt, t.AutoReturnAt,
		t.RescheduleDate, t.RescheduleNotes, t.FollowUpDate, t.FollowUpReason,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create task: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetByID retrieves a task scoped to its team.
func (r *Repository) GetByID(ctx context.Context, id, teamID uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM confirmation_tasks WHERE id = $1 AND team_id = $2`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(taskNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return t, nil
}

// ListQueue returns the team's unassigned pending tasks ordered by due date.
func (r *Repository) ListQueue(ctx context.Context, teamID uuid.UUID) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM confirmation_tasks
		WHERE team_id = $1 AND status = 'pending' AND assigned_to IS NULL
		ORDER BY due_at ASC`

	return r.listTasks(ctx, query, teamID)
}

// ListMine returns a member's open tasks ordered by due date.
func (r *Repository) ListMine(ctx context.Context, teamID, userID uuid.UUID) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM confirmation_tasks
		WHERE team_id = $1 AND assigned_to = $2 AND status <> 'completed'
		ORDER BY due_at ASC`

	return r.listTasks(ctx, query, teamID, userID)
}

// ListByAppointment returns all tasks for an appointment, newest first.
func (r *Repository) ListByAppointment(ctx context.Context, appointmentID, teamID uuid.UUID) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM confirmation_tasks
		WHERE appointment_id = $1 AND team_id = $2
		ORDER BY created_at DESC`

	return r.listTasks(ctx, query, appointmentID, teamID)
}

func (r *Repository) listTasks(ctx context.Context, query string, args ...interface{}) ([]Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Claim assigns the task to the actor. The conditional update makes the claim
// race-safe: a task someone else holds is refused with already_claimed.
func (r *Repository) Claim(ctx context.Context, id, teamID, userID uuid.UUID, userName string, autoReturnAt time.Time) (*Task, error) {
	query := `UPDATE confirmation_tasks SET
			assigned_to = $3,
			assigned_to_name = $4,
			claimed_manually = true,
			assigned_at = now(),
			auto_return_at = $5,
			status = 'claimed',
			updated_at = now()
		WHERE id = $1 AND team_id = $2
			AND status IN ('pending', 'claimed')
			AND (assigned_to IS NULL OR assigned_to = $3)
		RETURNING ` + taskColumns

	t, err := scanTask(r.pool.QueryRow(ctx, query, id, teamID, userID, userName, autoReturnAt))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	// Zero rows: either the task is gone, completed, or held by someone else.
	existing, lookupErr := r.GetByID(ctx, id, teamID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing.Status == StatusCompleted {
		return nil, apperr.Conflict(apperr.CodeAlreadyClaimed, "task is already completed")
	}
	return nil, apperr.Conflict(apperr.CodeAlreadyClaimed, "task is already claimed by another member")
}

// Assign hands the task to a rotation-selected member without the manual
// claim flag.
func (r *Repository) Assign(ctx context.Context, id, teamID, userID uuid.UUID, userName string, autoReturnAt time.Time) error {
	query := `UPDATE confirmation_tasks SET
			assigned_to = $3,
			assigned_to_name = $4,
			claimed_manually = false,
			assigned_at = now(),
			auto_return_at = $5,
			status = 'claimed',
			updated_at = now()
		WHERE id = $1 AND team_id = $2 AND status = 'pending' AND assigned_to IS NULL`

	result, err := r.pool.Exec(ctx, query, id, teamID, userID, userName, autoReturnAt)
	if err != nil {
		return fmt.Errorf("failed to assign task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict(apperr.CodeAlreadyClaimed, "task is no longer available for assignment")
	}

	return nil
}

// Complete marks the task done with its outcome.
func (r *Repository) Complete(ctx context.Context, id, teamID, actorID uuid.UUID, outcome string, rescheduleDate *time.Time, notes *string) (*Task, error) {
	query := `UPDATE confirmation_tasks SET
			status = 'completed',
			outcome = $4,
			completed_at = now(),
			completed_by = $3,
			reschedule_date = COALESCE($5, reschedule_date),
			reschedule_notes = COALESCE($6, reschedule_notes),
			updated_at = now()
		WHERE id = $1 AND team_id = $2 AND status <> 'completed'
		RETURNING ` + taskColumns

	t, err := scanTask(r.pool.QueryRow(ctx, query, id, teamID, actorID, outcome, rescheduleDate, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, lookupErr := r.GetByID(ctx, id, teamID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing.Status == StatusCompleted {
				return nil, apperr.Consistency("task is already completed")
			}
			return nil, apperr.NotFound(taskNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	return t, nil
}

// CloseOpenForAppointment completes every other open task for the appointment
// with the superseded outcome. A terminal appointment carries no pending
// confirmation obligations.
func (r *Repository) CloseOpenForAppointment(ctx context.Context, appointmentID, teamID uuid.UUID, exceptTaskID uuid.UUID) (int64, error) {
	query := `UPDATE confirmation_tasks SET
			status = 'completed',
			outcome = 'superseded',
			completed_at = now(),
			updated_at = now()
		WHERE appointment_id = $1 AND team_id = $2 AND id <> $3 AND status <> 'completed'`

	result, err := r.pool.Exec(ctx, query, appointmentID, teamID, exceptTaskID)
	if err != nil {
		return 0, fmt.Errorf("failed to close open tasks: %w", err)
	}

	return result.RowsAffected(), nil
}

// MarkAwaitingReschedule parks the appointment's open confirmation and
// reschedule tasks until the external reschedule completes.
func (r *Repository) MarkAwaitingReschedule(ctx context.Context, appointmentID, teamID uuid.UUID) error {
	query := `UPDATE confirmation_tasks SET
			status = 'awaiting_reschedule',
			updated_at = now()
		WHERE appointment_id = $1 AND team_id = $2
			AND task_type IN ('call_confirmation', 'reschedule')
			AND status IN ('pending', 'claimed')`

	if _, err := r.pool.Exec(ctx, query, appointmentID, teamID); err != nil {
		return fmt.Errorf("failed to mark tasks awaiting reschedule: %w", err)
	}

	return nil
}

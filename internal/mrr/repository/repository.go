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

// Schedule statuses.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// Follow-up task statuses.
const (
	TaskDue       = "due"
	TaskConfirmed = "confirmed"
	TaskPaused    = "paused"
	TaskCanceled  = "canceled"
)

// Schedule represents a recurring revenue schedule tied to a closed deal.
type Schedule struct {
	ID              uuid.UUID  `db:"id"`
	AppointmentID   uuid.UUID  `db:"appointment_id"`
	TeamID          uuid.UUID  `db:"team_id"`
	ClientName      string     `db:"client_name"`
	ClientEmail     string     `db:"client_email"`
	MRRAmount       int64      `db:"mrr_amount"`
	TotalMonths     int        `db:"total_months"`
	ConfirmedCount  int        `db:"confirmed_count"`
	FirstChargeDate time.Time  `db:"first_charge_date"`
	NextRenewalDate time.Time  `db:"next_renewal_date"`
	Status          string     `db:"status"`
	AssignedTo      *uuid.UUID `db:"assigned_to"`
	Notes           *string    `db:"notes"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// FollowUpTask represents one monthly obligation on a schedule.
type FollowUpTask struct {
	ID          uuid.UUID  `db:"id"`
	ScheduleID  uuid.UUID  `db:"schedule_id"`
	DueDate     time.Time  `db:"due_date"`
	Status      string     `db:"status"`
	CompletedAt *time.Time `db:"completed_at"`
	CompletedBy *uuid.UUID `db:"completed_by"`
	Notes       *string    `db:"notes"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const scheduleColumns = `id, appointment_id, team_id, client_name, client_email,
	mrr_amount, total_months, confirmed_count, first_charge_date, next_renewal_date,
	status, assigned_to, notes, created_at, updated_at`

const followUpColumns = `id, schedule_id, due_date, status, completed_at, completed_by, notes, created_at, updated_at`

const scheduleNotFoundMsg = "recurring schedule not found"

// Repository provides database operations for recurring revenue schedules.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new mrr repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(
		&s.ID, &s.AppointmentID, &s.TeamID, &s.ClientName, &s.ClientEmail,
		&s.MRRAmount, &s.TotalMonths, &s.ConfirmedCount, &s.FirstChargeDate, &s.NextRenewalDate,
		&s.Status, &s.AssignedTo, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanFollowUp(row pgx.Row) (*FollowUpTask, error) {
	var t FollowUpTask
	err := row.Scan(&t.ID, &t.ScheduleID, &t.DueDate, &t.Status, &t.CompletedAt, &t.CompletedBy, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateScheduleInTx inserts a schedule with its first due task inside the
// caller's transaction. next_renewal_date starts at the first charge date and
// the first obligation is due then.
func (r *Repository) CreateScheduleInTx(ctx context.Context, tx pgx.Tx, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	s.NextRenewalDate = s.FirstChargeDate

	_, err := tx.Exec(ctx, `INSERT INTO mrr_schedules (
			id, appointment_id, team_id, client_name, client_email,
			mrr_amount, total_months, confirmed_count, first_charge_date, next_renewal_date,
			status, assigned_to, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8, $9, $10, $11, now(), now())`,
		s.ID, s.AppointmentID, s.TeamID, s.ClientName, s.ClientEmail,
		s.MRRAmount, s.TotalMonths, s.FirstChargeDate,
		s.Status, s.AssignedTo, s.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	if err := insertDueTask(ctx, tx, s.ID, s.FirstChargeDate); err != nil {
		return err
	}

	return nil
}

func insertDueTask(ctx context.Context, tx pgx.Tx, scheduleID uuid.UUID, dueDate time.Time) error {
	_, err := tx.Exec(ctx, `INSERT INTO mrr_followup_tasks (id, schedule_id, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'due', now(), now())`,
		uuid.New(), scheduleID, dueDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create due task: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule scoped to its team.
func (r *Repository) GetSchedule(ctx context.Context, id, teamID uuid.UUID) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM mrr_schedules WHERE id = $1 AND team_id = $2`

	s, err := scanSchedule(r.pool.QueryRow(ctx, query, id, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(scheduleNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return s, nil
}

// GetScheduleByTask resolves the schedule owning a follow-up task.
func (r *Repository) GetScheduleByTask(ctx context.Context, taskID, teamID uuid.UUID) (*Schedule, error) {
	query := `SELECT ` + prefixed(scheduleColumns, "s") + `
		FROM mrr_schedules s
		JOIN mrr_followup_tasks t ON t.schedule_id = s.id
		WHERE t.id = $1 AND s.team_id = $2`

	s, err := scanSchedule(r.pool.QueryRow(ctx, query, taskID, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(scheduleNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to resolve schedule by task: %w", err)
	}

	return s, nil
}

// ListSchedules returns the team's schedules, newest first.
func (r *Repository) ListSchedules(ctx context.Context, teamID uuid.UUID) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM mrr_schedules
		WHERE team_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListTasks returns a schedule's follow-up tasks in due-date order.
func (r *Repository) ListTasks(ctx context.Context, scheduleID uuid.UUID) ([]FollowUpTask, error) {
	query := `SELECT ` + followUpColumns + ` FROM mrr_followup_tasks
		WHERE schedule_id = $1 ORDER BY due_date ASC`

	rows, err := r.pool.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up tasks: %w", err)
	}
	defer rows.Close()

	var out []FollowUpTask
	for rows.Next() {
		t, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow-up task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DueRenewal is one obligation whose due date has arrived, for the renewal
// dispatcher.
type DueRenewal struct {
	TaskID     uuid.UUID
	ScheduleID uuid.UUID
	TeamID     uuid.UUID
	ClientName string
	AssignedTo *uuid.UUID
	DueDate    time.Time
}

// ListDueRenewals returns due tasks on active schedules whose date has
// arrived.
func (r *Repository) ListDueRenewals(ctx context.Context, asOf time.Time) ([]DueRenewal, error) {
	query := `SELECT t.id, s.id, s.team_id, s.client_name, s.assigned_to, t.due_date
		FROM mrr_followup_tasks t
		JOIN mrr_schedules s ON s.id = t.schedule_id
		WHERE t.status = 'due' AND t.due_date <= $1 AND s.status = 'active'
		ORDER BY t.due_date ASC`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due renewals: %w", err)
	}
	defer rows.Close()

	var out []DueRenewal
	for rows.Next() {
		var d DueRenewal
		if err := rows.Scan(&d.TaskID, &d.ScheduleID, &d.TeamID, &d.ClientName, &d.AssignedTo, &d.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan due renewal: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func prefixed(columns, alias string) string {
	out := ""
	for i, c := range splitColumns(columns) {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}

func splitColumns(columns string) []string {
	var out []string
	cur := ""
	for _, r := range columns {
		switch r {
		case ',':
			out = append(out, cur)
			cur = ""
		case ' ', '\n', '\t':
			// skip whitespace between columns
		default:
			cur += string(r)
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

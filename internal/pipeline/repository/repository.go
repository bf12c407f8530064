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

// Appointment statuses.
const (
	StatusNew         = "new"
	StatusConfirmed   = "confirmed"
	StatusShowed      = "showed"
	StatusNoShow      = "no_show"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
	StatusClosed      = "closed"
)

// Appointment represents the appointment database model. Monetary fields are
// integer cents.
type Appointment struct {
	ID               uuid.UUID  `db:"id"`
	TeamID           uuid.UUID  `db:"team_id"`
	LeadName         string     `db:"lead_name"`
	LeadEmail        string     `db:"lead_email"`
	LeadPhone        *string    `db:"lead_phone"`
	ScheduledAt      time.Time  `db:"scheduled_at"`
	SetterID         *uuid.UUID `db:"setter_id"`
	SetterName       *string    `db:"setter_name"`
	CloserID         *uuid.UUID `db:"closer_id"`
	CloserName       *string    `db:"closer_name"`
	PipelineStage    *string    `db:"pipeline_stage"`
	Status           string     `db:"status"`
	CCCollected      int64      `db:"cc_collected"`
	MRRAmount        int64      `db:"mrr_amount"`
	MRRMonths        int        `db:"mrr_months"`
	ProductName      *string    `db:"product_name"`
	TotalRevenue     int64      `db:"total_revenue"`
	RescheduledFrom  *uuid.UUID `db:"rescheduled_from_id"`
	RescheduledTo    *uuid.UUID `db:"rescheduled_to_id"`
	RescheduleCount  int        `db:"reschedule_count"`
	RetargetDate     *time.Time `db:"retarget_date"`
	RetargetReason   *string    `db:"retarget_reason"`
	InviteeReference *string    `db:"invitee_reference"`
	RescheduleURL    *string    `db:"reschedule_url"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// CurrentStage returns the stage id or the synthetic booked bucket for NULL.
func (a *Appointment) CurrentStage() string {
	if a.PipelineStage == nil || *a.PipelineStage == "" {
		return ""
	}
	return *a.PipelineStage
}

const appointmentColumns = `id, team_id, lead_name, lead_email, lead_phone, scheduled_at,
	setter_id, setter_name, closer_id, closer_name, pipeline_stage, status,
	cc_collected, mrr_amount, mrr_months, product_name, total_revenue,
	rescheduled_from_id, rescheduled_to_id, reschedule_count,
	retarget_date, retarget_reason, invitee_reference, reschedule_url,
	created_at, updated_at`

const appointmentNotFoundMsg = "appointment not found"

// Repository provides database operations for appointments and the pipeline
// state machine.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new pipeline repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.TeamID, &a.LeadName, &a.LeadEmail, &a.LeadPhone, &a.ScheduledAt,
		&a.SetterID, &a.SetterName, &a.CloserID, &a.CloserName, &a.PipelineStage, &a.Status,
		&a.CCCollected, &a.MRRAmount, &a.MRRMonths, &a.ProductName, &a.TotalRevenue,
		&a.RescheduledFrom, &a.RescheduledTo, &a.RescheduleCount,
		&a.RetargetDate, &a.RetargetReason, &a.InviteeReference, &a.RescheduleURL,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new appointment in the booked bucket.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusNew
	}

	query := `INSERT INTO appointments (
			id, team_id, lead_name, lead_email, lead_phone, scheduled_at,
			setter_id, setter_name, closer_id, closer_name, pipeline_stage, status,
			cc_collected, mrr_amount, mrr_months, product_name, total_revenue,
			rescheduled_from_id, rescheduled_to_id, reschedule_count,
			retarget_date, retarget_reason, invitee_reference, reschedule_url,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.TeamID, a.LeadName, a.LeadEmail, a.LeadPhone, a.ScheduledAt,
		a.SetterID, a.SetterName, a.CloserID, a.CloserName, a.PipelineStage, a.Status,
		a.CCCollected, a.MRRAmount, a.MRRMonths, a.ProductName, a.TotalRevenue,
		a.RescheduledFrom, a.RescheduledTo, a.RescheduleCount,
		a.RetargetDate, a.RetargetReason, a.InviteeReference, a.RescheduleURL,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// GetByID retrieves an appointment scoped to its team.
func (r *Repository) GetByID(ctx context.Context, id, teamID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND team_id = $2`

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id, teamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return a, nil
}

// Retarget carries the follow-up fields a move writes together with the
// stage.
type Retarget struct {
	Date   time.Time
	Reason string
}

// UpdateStage writes the pipeline stage, and the retarget fields when a
// follow-up move supplies them, in a single statement. It returns the new
// updated_at, which callers hand to the undo ledger as the optimistic version
// of the row; writing everything at once keeps that version current.
func (r *Repository) UpdateStage(ctx context.Context, id, teamID uuid.UUID, stage *string, retarget *Retarget) (time.Time, error) {
	var updatedAt time.Time
	query := `UPDATE appointments SET pipeline_stage = $3, updated_at = now()
		WHERE id = $1 AND team_id = $2
		RETURNING updated_at`
	args := []interface{}{id, teamID, stage}
	if retarget != nil {
		query = `UPDATE appointments SET pipeline_stage = $3, retarget_date = $4,
				retarget_reason = $5, updated_at = now()
			WHERE id = $1 AND team_id = $2
			RETURNING updated_at`
		args = append(args, retarget.Date, retarget.Reason)
	}

	err := r.pool.QueryRow(ctx, query, args...).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, apperr.NotFound(appointmentNotFoundMsg)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update pipeline stage: %w", err)
	}

	return updatedAt, nil
}

// AssignCloser sets the closer on an appointment.
func (r *Repository) AssignCloser(ctx context.Context, id, teamID, closerID uuid.UUID, closerName string) error {
	query := `UPDATE appointments SET closer_id = $3, closer_name = $4, updated_at = now()
		WHERE id = $1 AND team_id = $2`

	result, err := r.pool.Exec(ctx, query, id, teamID, closerID, closerName)
	if err != nil {
		return fmt.Errorf("failed to assign closer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	return nil
}

// SetRescheduleURL caches a fetched reschedule link on the appointment.
func (r *Repository) SetRescheduleURL(ctx context.Context, id, teamID uuid.UUID, url string) error {
	query := `UPDATE appointments SET reschedule_url = $3, updated_at = now()
		WHERE id = $1 AND team_id = $2`

	result, err := r.pool.Exec(ctx, query, id, teamID, url)
	if err != nil {
		return fmt.Errorf("failed to cache reschedule url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	return nil
}

// UpdateStatus writes the appointment status.
func (r *Repository) UpdateStatus(ctx context.Context, id, teamID uuid.UUID, status string) error {
	query := `UPDATE appointments SET status = $3, updated_at = now()
		WHERE id = $1 AND team_id = $2`

	result, err := r.pool.Exec(ctx, query, id, teamID, status)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	return nil
}

// StageGroup is one bucket of the board read model.
type StageGroup struct {
	Stage        string
	Appointments []Appointment
}

// ListByStage returns all non-deleted appointments for the team grouped by
// stage. Appointments without a stage land in the booked bucket, and
// rescheduled appointments additionally appear there for visibility.
func (r *Repository) ListByStage(ctx context.Context, teamID uuid.UUID) (map[string][]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE team_id = $1
		ORDER BY scheduled_at ASC`

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	groups := make(map[string][]Appointment)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}

		stage := a.CurrentStage()
		if stage == "" {
			groups["appointments_booked"] = append(groups["appointments_booked"], *a)
			continue
		}

		groups[stage] = append(groups[stage], *a)
		if a.Status == StatusRescheduled {
			groups["appointments_booked"] = append(groups["appointments_booked"], *a)
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return groups, nil
}

// Delete removes an appointment and cascades to dependent schedules and tasks.
// Admin-only; normal flows never delete.
func (r *Repository) Delete(ctx context.Context, id, teamID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1 AND team_id = $2`, id, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	return nil
}

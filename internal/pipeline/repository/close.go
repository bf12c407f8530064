package repository

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxHook runs extra writes inside the close-deal transaction so dependent
// records (recurring schedules, first follow-up task) commit or roll back with
// the deal itself.
type TxHook func(ctx context.Context, tx pgx.Tx) error

// CloseDealParams carries the financial snapshot recorded at close time.
type CloseDealParams struct {
	AppointmentID uuid.UUID
	TeamID        uuid.UUID
	TargetStage   string
	CloserID      uuid.UUID
	CloserName    string
	CCCollected   int64
	MRRAmount     int64
	MRRMonths     int
	ProductName   *string
	TotalRevenue  int64
	Commissions   []Commission
}

// Commission is one earned commission row written during close or payment
// confirmation.
type Commission struct {
	ID            uuid.UUID
	TeamID        uuid.UUID
	AppointmentID uuid.UUID
	UserID        uuid.UUID
	UserName      string
	Role          string
	Amount        int64
	Source        string
	CreatedAt     time.Time
}

// Commission sources.
const (
	CommissionSourceDealClose  = "deal_close"
	CommissionSourceMRRPayment = "mrr_payment"
)

// closeDealQuery flips the appointment to closed with its financial snapshot.
// The status guard is the optimistic check that makes a concurrent second
// close lose instead of double-applying.
const closeDealQuery = `UPDATE appointments SET
		status = 'closed',
		pipeline_stage = $3,
		closer_id = $4,
		closer_name = $5,
		cc_collected = $6,
		mrr_amount = $7,
		mrr_months = $8,
		product_name = $9,
		total_revenue = $10,
		updated_at = now()
	WHERE id = $1 AND team_id = $2 AND status <> 'closed'
	RETURNING ` + appointmentColumns

// CloseDeal performs the whole close in one transaction: flips the appointment
// to closed with its financials, writes commission rows, then runs the hooks.
// A concurrent close loses on the status guard and gets already_closed.
func (r *Repository) CloseDeal(ctx context.Context, p CloseDealParams, hooks ...TxHook) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin close transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAppointment(tx.QueryRow(ctx, closeDealQuery,
		p.AppointmentID, p.TeamID, p.TargetStage, p.CloserID, p.CloserName,
		p.CCCollected, p.MRRAmount, p.MRRMonths, p.ProductName, p.TotalRevenue,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			// Either the row is missing or it is already closed; disambiguate
			// so the caller can surface the right error.
			var status string
			lookupErr := tx.QueryRow(ctx,
				`SELECT status FROM appointments WHERE id = $1 AND team_id = $2`,
				p.AppointmentID, p.TeamID,
			).Scan(&status)
			if lookupErr == pgx.ErrNoRows {
				return nil, apperr.NotFound(appointmentNotFoundMsg)
			}
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to check appointment status: %w", lookupErr)
			}
			return nil, apperr.Conflict(apperr.CodeAlreadyClosed, "deal is already closed")
		}
		return nil, fmt.Errorf("failed to close deal: %w", err)
	}

	if err := insertCommissions(ctx, tx, p.Commissions); err != nil {
		return nil, err
	}

	for _, hook := range hooks {
		if err := hook(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit close transaction: %w", err)
	}

	return a, nil
}

func insertCommissions(ctx context.Context, tx pgx.Tx, commissions []Commission) error {
	for i := range commissions {
		c := &commissions[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		_, err := tx.Exec(ctx, `INSERT INTO commissions (
				id, team_id, appointment_id, user_id, user_name, role, amount, source, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			c.ID, c.TeamID, c.AppointmentID, c.UserID, c.UserName, c.Role, c.Amount, c.Source,
		)
		if err != nil {
			return fmt.Errorf("failed to insert commission: %w", err)
		}
	}
	return nil
}

// ListCommissions returns commission rows for an appointment, newest first.
func (r *Repository) ListCommissions(ctx context.Context, appointmentID, teamID uuid.UUID) ([]Commission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, team_id, appointment_id, user_id, user_name, role, amount, source, created_at
		FROM commissions
		WHERE appointment_id = $1 AND team_id = $2
		ORDER BY created_at DESC`, appointmentID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		var c Commission
		if err := rows.Scan(&c.ID, &c.TeamID, &c.AppointmentID, &c.UserID, &c.UserName, &c.Role, &c.Amount, &c.Source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commission: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

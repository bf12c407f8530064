package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents one append-only activity log row. Entries are never
// updated or deleted in normal operation.
type Entry struct {
	ID            uuid.UUID  `db:"id"`
	TeamID        uuid.UUID  `db:"team_id"`
	AppointmentID *uuid.UUID `db:"appointment_id"`
	ActorID       uuid.UUID  `db:"actor_id"`
	ActorName     string     `db:"actor_name"`
	ActionType    string     `db:"action_type"`
	Note          string     `db:"note"`
	CreatedAt     time.Time  `db:"created_at"`
}

// Action types recorded by the engines.
const (
	ActionStageMoved       = "stage_moved"
	ActionDealClosed       = "deal_closed"
	ActionDealUndone       = "deal_undone"
	ActionStageUndone      = "stage_undone"
	ActionTaskAssigned     = "task_assigned"
	ActionTaskCompleted    = "task_completed"
	ActionTaskAutoReturned = "task_auto_returned"
	ActionPaymentConfirmed = "payment_confirmed"
	ActionSchedulePaused   = "schedule_paused"
	ActionScheduleCanceled = "schedule_canceled"
	ActionScheduleResumed  = "schedule_resumed"
)

// Repository provides database operations for the activity log.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new activity repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a new log entry.
func (r *Repository) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `INSERT INTO activity_log (id, team_id, appointment_id, actor_id, actor_name, action_type, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.TeamID, e.AppointmentID, e.ActorID, e.ActorName, e.ActionType, e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	return nil
}

// ListByAppointment returns the newest-first timeline for one appointment.
func (r *Repository) ListByAppointment(ctx context.Context, teamID, appointmentID uuid.UUID, limit, offset int) ([]Entry, error) {
	query := `SELECT id, team_id, appointment_id, actor_id, actor_name, action_type, note, created_at
		FROM activity_log
		WHERE team_id = $1 AND appointment_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	return r.list(ctx, query, teamID, appointmentID, limit, offset)
}

// ListByTeam returns the newest-first timeline for the whole team.
func (r *Repository) ListByTeam(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]Entry, error) {
	query := `SELECT id, team_id, appointment_id, actor_id, actor_name, action_type, note, created_at
		FROM activity_log
		WHERE team_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, teamID, limit, offset)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TeamID, &e.AppointmentID, &e.ActorID, &e.ActorName, &e.ActionType, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}

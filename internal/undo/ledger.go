// Package undo implements the session-scoped compensating-action ledger.
// One action is tracked per session at a time; tracking a new action replaces
// the previous one, and actions expire after a fixed grace window.
package undo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/redis/go-redis/v9"
)

// Action is the compensating pre-image of a single mutation. It is never
// persisted in the datastore: the slot lives in redis with the grace-window
// TTL, so an abandoned session cleans itself up.
type Action struct {
	Table          string                 `json:"table"`
	RecordID       string                 `json:"recordId"`
	PreviousValues map[string]interface{} `json:"previousValues"`
	Description    string                 `json:"description"`
	// RecordVersion is the row's updated_at at track time. The undo write is
	// conditional on it, so a record someone else touched since is refused.
	RecordVersion time.Time `json:"recordVersion"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Ledger is the single-slot undo tracker keyed by session.
type Ledger struct {
	rdb         *redis.Client
	graceWindow time.Duration
}

// NewLedger creates a ledger with the given grace window.
func NewLedger(rdb *redis.Client, graceWindow time.Duration) *Ledger {
	return &Ledger{rdb: rdb, graceWindow: graceWindow}
}

// GraceWindow returns the configured undo window.
func (l *Ledger) GraceWindow() time.Duration {
	return l.graceWindow
}

func key(sessionID string) string {
	return "undo:" + sessionID
}

// Track stores the action in the session slot, replacing any previous action.
func (l *Ledger) Track(ctx context.Context, sessionID string, action Action) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode undo action: %w", err)
	}

	if err := l.rdb.Set(ctx, key(sessionID), data, l.graceWindow).Err(); err != nil {
		return fmt.Errorf("failed to track undo action: %w", err)
	}

	return nil
}

// Peek returns the tracked action without consuming it, or an undo_expired
// error when the slot is empty or past the grace window.
func (l *Ledger) Peek(ctx context.Context, sessionID string) (*Action, error) {
	data, err := l.rdb.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.Gone(apperr.CodeUndoExpired, "nothing to undo")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read undo slot: %w", err)
	}

	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("failed to decode undo action: %w", err)
	}

	return &action, nil
}

// Take atomically consumes the tracked action. After a successful take the
// slot is cleared, so an undo can apply at most once.
func (l *Ledger) Take(ctx context.Context, sessionID string) (*Action, error) {
	data, err := l.rdb.GetDel(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.Gone(apperr.CodeUndoExpired, "nothing to undo")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take undo slot: %w", err)
	}

	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("failed to decode undo action: %w", err)
	}

	return &action, nil
}

// Clear drops the session slot. Used when a later mutation invalidates the
// tracked pre-image.
func (l *Ledger) Clear(ctx context.Context, sessionID string) error {
	if err := l.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear undo slot: %w", err)
	}
	return nil
}

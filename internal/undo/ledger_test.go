package undo

import (
	"context"
	"testing"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLedger(t *testing.T, window time.Duration) (*Ledger, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLedger(rdb, window), mr
}

func TestTrackAndTakeRestoresAction(t *testing.T) {
	ledger, _ := newTestLedger(t, 45*time.Second)
	ctx := context.Background()

	action := Action{
		Table:    "appointments",
		RecordID: "a1",
		PreviousValues: map[string]interface{}{
			"pipeline_stage": "confirmed",
			"cc_collected":   float64(0),
		},
		Description: "Moved Jane Doe to Closed Won",
	}

	if err := ledger.Track(ctx, "session-1", action); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	got, err := ledger.Take(ctx, "session-1")
	if err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if got.Table != "appointments" || got.RecordID != "a1" {
		t.Fatalf("unexpected action: %+v", got)
	}
	if got.PreviousValues["pipeline_stage"] != "confirmed" {
		t.Fatalf("expected tracked stage to round-trip, got %v", got.PreviousValues["pipeline_stage"])
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}
}

func TestTakeConsumesSlot(t *testing.T) {
	ledger, _ := newTestLedger(t, 45*time.Second)
	ctx := context.Background()

	if err := ledger.Track(ctx, "s", Action{Table: "appointments", RecordID: "a1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	if _, err := ledger.Take(ctx, "s"); err != nil {
		t.Fatalf("first take failed: %v", err)
	}

	_, err := ledger.Take(ctx, "s")
	if !apperr.IsCode(err, apperr.CodeUndoExpired) {
		t.Fatalf("expected undo_expired after slot consumed, got %v", err)
	}
}

func TestTrackReplacesPreviousAction(t *testing.T) {
	ledger, _ := newTestLedger(t, 45*time.Second)
	ctx := context.Background()

	if err := ledger.Track(ctx, "s", Action{Table: "appointments", RecordID: "a1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if err := ledger.Track(ctx, "s", Action{Table: "appointments", RecordID: "a2"}); err != nil {
		t.Fatalf("second track failed: %v", err)
	}

	got, err := ledger.Take(ctx, "s")
	if err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if got.RecordID != "a2" {
		t.Fatalf("expected single-slot replace, got record %s", got.RecordID)
	}
}

func TestExpiredSlotReportsExpired(t *testing.T) {
	ledger, mr := newTestLedger(t, 30*time.Second)
	ctx := context.Background()

	if err := ledger.Track(ctx, "s", Action{Table: "appointments", RecordID: "a1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}

	mr.FastForward(31 * time.Second)

	_, err := ledger.Peek(ctx, "s")
	if !apperr.IsCode(err, apperr.CodeUndoExpired) {
		t.Fatalf("expected undo_expired past grace window, got %v", err)
	}
}

func TestClearDropsSlot(t *testing.T) {
	ledger, _ := newTestLedger(t, 45*time.Second)
	ctx := context.Background()

	if err := ledger.Track(ctx, "s", Action{Table: "appointments", RecordID: "a1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if err := ledger.Clear(ctx, "s"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	_, err := ledger.Peek(ctx, "s")
	if !apperr.IsCode(err, apperr.CodeUndoExpired) {
		t.Fatalf("expected empty slot after clear, got %v", err)
	}
}

package repository

import "testing"

// Keys written into undo pre-images upstream. If this set and the whitelist
// drift apart, narrow undo rejects its own pre-image.
var trackedPreImageColumns = []string{"pipeline_stage", "status", "retarget_date", "retarget_reason"}

func TestUndoableColumnsCoverTrackedPreImage(t *testing.T) {
	for _, col := range trackedPreImageColumns {
		if !undoableColumns[col] {
			t.Fatalf("tracked pre-image column %q is not undoable", col)
		}
	}
	if len(undoableColumns) != len(trackedPreImageColumns) {
		t.Fatalf("undoable column whitelist has %d entries, tracked pre-image has %d", len(undoableColumns), len(trackedPreImageColumns))
	}
}

package service

import (
	"testing"
	"time"

	"salesops_backend/internal/pipeline/repository"
)

func TestPreImageCapturesRestorableFields(t *testing.T) {
	stage := "won"
	reason := "went dark"
	date := time.Now()
	a := &repository.Appointment{
		Status:         repository.StatusShowed,
		PipelineStage:  &stage,
		RetargetDate:   &date,
		RetargetReason: &reason,
	}

	img := preImage(a)

	for _, key := range []string{"pipeline_stage", "status", "retarget_date", "retarget_reason"} {
		if _, ok := img[key]; !ok {
			t.Fatalf("pre-image missing %q", key)
		}
	}
	if img["status"] != repository.StatusShowed {
		t.Fatalf("pre-image status = %v, want %q", img["status"], repository.StatusShowed)
	}
	if got := img["pipeline_stage"].(*string); got == nil || *got != "won" {
		t.Fatalf("pre-image stage = %v, want won", got)
	}
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/mrr/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeScheduleStore mimics the repository's lifecycle contract in memory:
// confirming advances or completes, pausing parks the due task, reactivating
// revives at most one.
type fakeScheduleStore struct {
	schedules map[uuid.UUID]*repository.Schedule
	tasks     map[uuid.UUID]*repository.FollowUpTask
	confirms  []repository.ConfirmParams
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		schedules: make(map[uuid.UUID]*repository.Schedule),
		tasks:     make(map[uuid.UUID]*repository.FollowUpTask),
	}
}

func (f *fakeScheduleStore) addSchedule(s *repository.Schedule) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = repository.StatusActive
	}
	s.NextRenewalDate = s.FirstChargeDate
	f.schedules[s.ID] = s
	f.addDueTask(s.ID, s.FirstChargeDate)
}

func (f *fakeScheduleStore) addDueTask(scheduleID uuid.UUID, due time.Time) *repository.FollowUpTask {
	task := &repository.FollowUpTask{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		DueDate:    due,
		Status:     repository.TaskDue,
	}
	f.tasks[task.ID] = task
	return task
}

func (f *fakeScheduleStore) dueTasks(scheduleID uuid.UUID) []*repository.FollowUpTask {
	var out []*repository.FollowUpTask
	for _, task := range f.tasks {
		if task.ScheduleID == scheduleID && task.Status == repository.TaskDue {
			out = append(out, task)
		}
	}
	return out
}

func (f *fakeScheduleStore) CreateScheduleInTx(_ context.Context, _ pgx.Tx, s *repository.Schedule) error {
	f.addSchedule(s)
	return nil
}

func (f *fakeScheduleStore) GetSchedule(_ context.Context, id, teamID uuid.UUID) (*repository.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TeamID != teamID {
		return nil, apperr.NotFound("recurring schedule not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleStore) GetScheduleByTask(_ context.Context, taskID, teamID uuid.UUID) (*repository.Schedule, error) {
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, apperr.NotFound("recurring schedule not found")
	}
	s, ok := f.schedules[task.ScheduleID]
	if !ok || s.TeamID != teamID {
		return nil, apperr.NotFound("recurring schedule not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleStore) ListSchedules(_ context.Context, teamID uuid.UUID) ([]repository.Schedule, error) {
	var out []repository.Schedule
	for _, s := range f.schedules {
		if s.TeamID == teamID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) ListTasks(_ context.Context, scheduleID uuid.UUID) ([]repository.FollowUpTask, error) {
	var out []repository.FollowUpTask
	for _, task := range f.tasks {
		if task.ScheduleID == scheduleID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) ListDueRenewals(_ context.Context, asOf time.Time) ([]repository.DueRenewal, error) {
	var out []repository.DueRenewal
	for _, task := range f.tasks {
		s := f.schedules[task.ScheduleID]
		if task.Status == repository.TaskDue && !task.DueDate.After(asOf) && s.Status == repository.StatusActive {
			out = append(out, repository.DueRenewal{
				TaskID:     task.ID,
				ScheduleID: s.ID,
				TeamID:     s.TeamID,
				ClientName: s.ClientName,
				AssignedTo: s.AssignedTo,
				DueDate:    task.DueDate,
			})
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) ConfirmPayment(_ context.Context, p repository.ConfirmParams) (*repository.ConfirmResult, error) {
	task, ok := f.tasks[p.TaskID]
	if !ok {
		return nil, apperr.Conflict(apperr.CodeNoActiveTask, "no due payment task found")
	}
	s := f.schedules[task.ScheduleID]
	if s == nil || s.TeamID != p.TeamID {
		return nil, apperr.Conflict(apperr.CodeNoActiveTask, "no due payment task found")
	}
	if task.Status == repository.TaskConfirmed {
		return nil, apperr.Consistency("payment task is already confirmed")
	}
	if task.Status != repository.TaskDue {
		return nil, apperr.Conflict(apperr.CodeNoActiveTask, "payment task is not due")
	}
	if s.ConfirmedCount >= s.TotalMonths {
		return nil, apperr.Consistency("confirmed payments would exceed contracted months")
	}

	f.confirms = append(f.confirms, p)
	now := time.Now()
	task.Status = repository.TaskConfirmed
	task.CompletedAt = &now
	task.CompletedBy = &p.ActorID

	s.ConfirmedCount++
	completed := s.ConfirmedCount >= s.TotalMonths
	if completed {
		s.Status = repository.StatusCompleted
	} else {
		s.NextRenewalDate = s.NextRenewalDate.AddDate(0, 1, 0)
		f.addDueTask(s.ID, s.NextRenewalDate)
	}

	schedCopy := *s
	taskCopy := *task
	return &repository.ConfirmResult{Schedule: &schedCopy, Task: &taskCopy, Completed: completed}, nil
}

func (f *fakeScheduleStore) Pause(_ context.Context, id, teamID uuid.UUID) (*repository.Schedule, error) {
	return f.flip(id, teamID, repository.StatusPaused, repository.TaskPaused)
}

func (f *fakeScheduleStore) Cancel(_ context.Context, id, teamID uuid.UUID) (*repository.Schedule, error) {
	return f.flip(id, teamID, repository.StatusCanceled, repository.TaskCanceled)
}

func (f *fakeScheduleStore) flip(id, teamID uuid.UUID, schedStatus, taskStatus string) (*repository.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TeamID != teamID {
		return nil, apperr.NotFound("recurring schedule not found")
	}
	s.Status = schedStatus
	for _, task := range f.tasks {
		if task.ScheduleID == id && task.Status == repository.TaskDue {
			task.Status = taskStatus
		}
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleStore) Reactivate(_ context.Context, id, teamID uuid.UUID, nextRenewal time.Time) (*repository.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TeamID != teamID {
		return nil, apperr.NotFound("recurring schedule not found")
	}
	s.Status = repository.StatusActive
	s.NextRenewalDate = nextRenewal

	var earliest *repository.FollowUpTask
	for _, task := range f.tasks {
		if task.ScheduleID == id && task.Status == repository.TaskPaused {
			if earliest == nil || task.DueDate.Before(earliest.DueDate) {
				earliest = task
			}
		}
	}
	if earliest != nil {
		earliest.Status = repository.TaskDue
		earliest.DueDate = nextRenewal
	} else {
		f.addDueTask(id, nextRenewal)
	}

	cp := *s
	return &cp, nil
}

type fakeTeamPort struct {
	settings teamsrepo.Settings
	roles    map[uuid.UUID]string
}

func (f *fakeTeamPort) Settings(_ context.Context, _ uuid.UUID) (*teamsrepo.Settings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeTeamPort) MemberRole(_ context.Context, _, userID uuid.UUID) (string, error) {
	if role, ok := f.roles[userID]; ok {
		return role, nil
	}
	return teamsrepo.RoleCloser, nil
}

type fakePartiesPort struct {
	parties Parties
}

func (f *fakePartiesPort) Parties(_ context.Context, _, _ uuid.UUID) (*Parties, error) {
	p := f.parties
	return &p, nil
}

type fakeActivitySink struct {
	entries int
}

func (f *fakeActivitySink) Record(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _, _, _ string) error {
	f.entries++
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

func newTestScheduler(t *testing.T) (*Service, *fakeScheduleStore, *recordingBus) {
	t.Helper()

	store := newFakeScheduleStore()
	setterID, closerID := uuid.New(), uuid.New()
	teams := &fakeTeamPort{
		settings: teamsrepo.Settings{SetterCommissionPct: 5, CloserCommissionPct: 10},
		roles:    map[uuid.UUID]string{},
	}
	parties := &fakePartiesPort{parties: Parties{
		SetterID:   &setterID,
		SetterName: "Sanne",
		CloserID:   &closerID,
		CloserName: "Pieter",
	}}
	bus := &recordingBus{}

	svc := NewService(store, teams, parties, &fakeActivitySink{}, bus, logger.New("development"))
	return svc, store, bus
}

func dueTaskID(t *testing.T, store *fakeScheduleStore, scheduleID uuid.UUID) uuid.UUID {
	t.Helper()
	due := store.dueTasks(scheduleID)
	if len(due) != 1 {
		t.Fatalf("due tasks = %d, want exactly 1", len(due))
	}
	return due[0].ID
}

func TestConfirmPaymentAdvancesAndCompletesSchedule(t *testing.T) {
	svc, store, bus := newTestScheduler(t)
	ctx := context.Background()
	teamID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Pieter"}

	firstCharge := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	sched := &repository.Schedule{
		AppointmentID:   uuid.New(),
		TeamID:          teamID,
		ClientName:      "Jansen BV",
		MRRAmount:       9_900,
		TotalMonths:     3,
		FirstChargeDate: firstCharge,
	}
	store.addSchedule(sched)

	for month := 1; month <= 3; month++ {
		result, err := svc.ConfirmPayment(ctx, teamID, actor, dueTaskID(t, store, sched.ID), nil)
		if err != nil {
			t.Fatalf("confirm %d failed: %v", month, err)
		}
		if result.Schedule.ConfirmedCount != month {
			t.Fatalf("confirmed count = %d, want %d", result.Schedule.ConfirmedCount, month)
		}
		if month < 3 {
			if result.Completed {
				t.Fatalf("schedule completed after %d of 3 confirmations", month)
			}
			wantNext := firstCharge.AddDate(0, month, 0)
			if !result.Schedule.NextRenewalDate.Equal(wantNext) {
				t.Fatalf("next renewal = %v, want %v", result.Schedule.NextRenewalDate, wantNext)
			}
		}
	}

	if store.schedules[sched.ID].Status != repository.StatusCompleted {
		t.Fatalf("schedule status = %q, want completed", store.schedules[sched.ID].Status)
	}
	if due := store.dueTasks(sched.ID); len(due) != 0 {
		t.Fatalf("due tasks after completion = %d, want 0", len(due))
	}

	// Each month pays setter and closer from the monthly amount.
	if len(store.confirms) != 3 {
		t.Fatalf("confirm transactions = %d, want 3", len(store.confirms))
	}
	rows := store.confirms[0].Commissions
	if len(rows) != 2 || rows[0].Amount != 495 || rows[1].Amount != 990 {
		t.Fatalf("unexpected commission rows: %+v", rows)
	}

	var sawCompleted bool
	for _, e := range bus.published() {
		if _, ok := e.(events.MRRScheduleCompleted); ok {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Fatal("expected a schedule-completed event after the final confirmation")
	}
}

func TestConfirmAfterCompletionReportsNoActiveTask(t *testing.T) {
	svc, store, _ := newTestScheduler(t)
	ctx := context.Background()
	teamID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Pieter"}

	sched := &repository.Schedule{
		AppointmentID:   uuid.New(),
		TeamID:          teamID,
		ClientName:      "Jansen BV",
		MRRAmount:       9_900,
		TotalMonths:     1,
		FirstChargeDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	store.addSchedule(sched)

	lastTask := dueTaskID(t, store, sched.ID)
	if _, err := svc.ConfirmPayment(ctx, teamID, actor, lastTask, nil); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if _, err := svc.ConfirmPayment(ctx, teamID, actor, uuid.New(), nil); !apperr.IsCode(err, apperr.CodeNoActiveTask) {
		t.Fatalf("expected no_active_task for an unknown task, got %v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, teamID, actor, lastTask, nil); !apperr.IsCode(err, apperr.CodeConsistencyViolation) {
		t.Fatalf("expected consistency violation re-confirming the final month, got %v", err)
	}
}

func TestPauseThenReactivateLeavesSingleDueTask(t *testing.T) {
	svc, store, _ := newTestScheduler(t)
	ctx := context.Background()
	teamID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Pieter"}

	sched := &repository.Schedule{
		AppointmentID:   uuid.New(),
		TeamID:          teamID,
		ClientName:      "Jansen BV",
		MRRAmount:       9_900,
		TotalMonths:     6,
		FirstChargeDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	store.addSchedule(sched)

	paused, err := svc.Pause(ctx, teamID, actor, sched.ID)
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.Status != repository.StatusPaused {
		t.Fatalf("status = %q, want paused", paused.Status)
	}
	if due := store.dueTasks(sched.ID); len(due) != 0 {
		t.Fatalf("due tasks while paused = %d, want 0", len(due))
	}

	nextRenewal := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	resumed, err := svc.Reactivate(ctx, teamID, actor, sched.ID, nextRenewal)
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if resumed.Status != repository.StatusActive {
		t.Fatalf("status = %q, want active", resumed.Status)
	}

	due := store.dueTasks(sched.ID)
	if len(due) != 1 {
		t.Fatalf("due tasks after reactivation = %d, want exactly 1", len(due))
	}
	if !due[0].DueDate.Equal(nextRenewal) {
		t.Fatalf("due date = %v, want %v", due[0].DueDate, nextRenewal)
	}
}

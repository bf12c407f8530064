package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/pipeline/repository"
	teamsrepo "salesops_backend/internal/teams/repository"
	"salesops_backend/internal/undo"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// fakeStore is an in-memory Store that mimics the repository contract,
// including the optimistic updated_at guard on undo writes.
type fakeStore struct {
	appointments map[uuid.UUID]*repository.Appointment
	version      time.Time
	closeCalls   []repository.CloseDealParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: make(map[uuid.UUID]*repository.Appointment),
		version:      time.Unix(1_700_000_000, 0).UTC(),
	}
}

func (f *fakeStore) bump() time.Time {
	f.version = f.version.Add(time.Second)
	return f.version
}

func (f *fakeStore) add(a *repository.Appointment) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = f.version
	f.appointments[a.ID] = a
}

func (f *fakeStore) row(id uuid.UUID) *repository.Appointment {
	return f.appointments[id]
}

func (f *fakeStore) Create(_ context.Context, a *repository.Appointment) error {
	f.add(a)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id, teamID uuid.UUID) (*repository.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpdateStage(_ context.Context, id, teamID uuid.UUID, stage *string, retarget *repository.Retarget) (time.Time, error) {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return time.Time{}, apperr.NotFound("appointment not found")
	}
	a.PipelineStage = stage
	if retarget != nil {
		date := retarget.Date
		reason := retarget.Reason
		a.RetargetDate = &date
		a.RetargetReason = &reason
	}
	a.UpdatedAt = f.bump()
	return a.UpdatedAt, nil
}

func (f *fakeStore) AssignCloser(_ context.Context, id, teamID, closerID uuid.UUID, closerName string) error {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return apperr.NotFound("appointment not found")
	}
	a.CloserID = &closerID
	a.CloserName = &closerName
	a.UpdatedAt = f.bump()
	return nil
}

func (f *fakeStore) SetRescheduleURL(_ context.Context, id, teamID uuid.UUID, url string) error {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return apperr.NotFound("appointment not found")
	}
	a.RescheduleURL = &url
	a.UpdatedAt = f.bump()
	return nil
}

func (f *fakeStore) ListByStage(_ context.Context, _ uuid.UUID) (map[string][]repository.Appointment, error) {
	return map[string][]repository.Appointment{}, nil
}

func (f *fakeStore) ListCommissions(_ context.Context, _, _ uuid.UUID) ([]repository.Commission, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, id, _ uuid.UUID) error {
	delete(f.appointments, id)
	return nil
}

func (f *fakeStore) CloseDeal(ctx context.Context, p repository.CloseDealParams, hooks ...repository.TxHook) (*repository.Appointment, error) {
	a, ok := f.appointments[p.AppointmentID]
	if !ok || a.TeamID != p.TeamID {
		return nil, apperr.NotFound("appointment not found")
	}
	if a.Status == repository.StatusClosed {
		return nil, apperr.Conflict(apperr.CodeAlreadyClosed, "deal is already closed")
	}
	f.closeCalls = append(f.closeCalls, p)

	stage := p.TargetStage
	a.PipelineStage = &stage
	a.Status = repository.StatusClosed
	a.CCCollected = p.CCCollected
	a.MRRAmount = p.MRRAmount
	a.MRRMonths = p.MRRMonths
	a.ProductName = p.ProductName
	a.TotalRevenue = p.TotalRevenue
	a.UpdatedAt = f.bump()

	for _, hook := range hooks {
		if err := hook(ctx, nil); err != nil {
			return nil, err
		}
	}

	cp := *a
	return &cp, nil
}

func (f *fakeStore) ApplyUndoNarrow(_ context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return apperr.NotFound("appointment not found")
	}
	if !a.UpdatedAt.Equal(expectedUpdatedAt) {
		return apperr.Conflict(apperr.CodeUndoConflict, "record changed since the action was taken")
	}
	f.restorePreImage(a, previous)
	a.UpdatedAt = f.bump()
	return nil
}

func (f *fakeStore) ApplyUndoWide(_ context.Context, id, teamID uuid.UUID, previous map[string]interface{}, expectedUpdatedAt time.Time) error {
	a, ok := f.appointments[id]
	if !ok || a.TeamID != teamID {
		return apperr.NotFound("appointment not found")
	}
	if !a.UpdatedAt.Equal(expectedUpdatedAt) {
		return apperr.Conflict(apperr.CodeUndoConflict, "record changed since the action was taken")
	}
	f.restorePreImage(a, previous)
	a.CCCollected = 0
	a.MRRAmount = 0
	a.MRRMonths = 0
	a.ProductName = nil
	a.TotalRevenue = 0
	a.UpdatedAt = f.bump()
	return nil
}

// restorePreImage applies ledger values, which arrive JSON-decoded: pointer
// columns come back as nil or string.
func (f *fakeStore) restorePreImage(a *repository.Appointment, previous map[string]interface{}) {
	if v, ok := previous["pipeline_stage"].(string); ok {
		a.PipelineStage = &v
	} else {
		a.PipelineStage = nil
	}
	if v, ok := previous["status"].(string); ok {
		a.Status = v
	}
	if previous["retarget_date"] == nil {
		a.RetargetDate = nil
	}
	if previous["retarget_reason"] == nil {
		a.RetargetReason = nil
	}
}

type fakeTeamPort struct {
	stages   map[string]teamsrepo.Stage
	roles    map[uuid.UUID]string
	settings teamsrepo.Settings
}

func (f *fakeTeamPort) Settings(_ context.Context, _ uuid.UUID) (*teamsrepo.Settings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeTeamPort) Stage(_ context.Context, _ uuid.UUID, stageID string) (*teamsrepo.Stage, error) {
	st, ok := f.stages[stageID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (f *fakeTeamPort) Stages(_ context.Context, _ uuid.UUID) ([]teamsrepo.Stage, error) {
	var out []teamsrepo.Stage
	for _, st := range f.stages {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeTeamPort) MemberRole(_ context.Context, _, userID uuid.UUID) (string, error) {
	if role, ok := f.roles[userID]; ok {
		return role, nil
	}
	return teamsrepo.RoleCloser, nil
}

type fakeTaskPort struct {
	confirmations int
	followUps     int
	awaiting      int
}

func (f *fakeTaskPort) EnsureCallConfirmation(_ context.Context, _, _ uuid.UUID, _ time.Time) error {
	f.confirmations++
	return nil
}

func (f *fakeTaskPort) CreateFollowUpTask(_ context.Context, _, _ uuid.UUID, _ time.Time, _ string) error {
	f.followUps++
	return nil
}

func (f *fakeTaskPort) MarkAwaitingReschedule(_ context.Context, _, _ uuid.UUID) error {
	f.awaiting++
	return nil
}

type fakeSchedulePort struct {
	hooks int
}

func (f *fakeSchedulePort) CreateOnCloseHook(_ *repository.Appointment, _ int64, _ int, _ time.Time) repository.TxHook {
	f.hooks++
	return func(context.Context, pgx.Tx) error { return nil }
}

type fakeCalendarPort struct {
	url string
}

func (f *fakeCalendarPort) FetchRescheduleLink(_ context.Context, _, _ string) (string, error) {
	return f.url, nil
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

func newTestPipelineService(t *testing.T) (*Service, *fakeStore, *fakeTaskPort) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ledger := undo.NewLedger(rdb, 45*time.Second)

	store := newFakeStore()
	teams := &fakeTeamPort{
		stages: map[string]teamsrepo.Stage{
			"won":       {StageID: "won", Label: "Closed Won"},
			"no_show":   {StageID: "no_show", Label: "No Show"},
			"contacted": {StageID: "contacted", Label: "Contacted"},
		},
		roles:    map[uuid.UUID]string{},
		settings: teamsrepo.Settings{SetterCommissionPct: 5, CloserCommissionPct: 10},
	}
	tasks := &fakeTaskPort{}

	svc := NewService(store, teams, tasks, &fakeSchedulePort{}, &fakeCalendarPort{url: "https://cal.example/r"},
		&fakeActivitySink{}, ledger, &recordingBus{}, logger.New("development"), "cal-token")
	return svc, store, tasks
}

func TestMoveIntoCloseStageRequiresCloser(t *testing.T) {
	svc, store, _ := newTestPipelineService(t)
	teamID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Sanne", SessionID: "sess-1"}

	a := &repository.Appointment{TeamID: teamID, LeadName: "Jansen BV", Status: repository.StatusNew}
	store.add(a)

	_, err := svc.RequestMove(context.Background(), teamID, actor, a.ID, "won", nil)
	if !apperr.IsCode(err, apperr.CodeMissingCloser) {
		t.Fatalf("expected missing_closer, got %v", err)
	}
}

func TestFollowUpMoveLeavesUndoApplicable(t *testing.T) {
	svc, store, tasks := newTestPipelineService(t)
	ctx := context.Background()
	teamID := uuid.New()
	actor := Actor{ID: uuid.New(), Name: "Sanne", SessionID: "sess-1"}

	a := &repository.Appointment{TeamID: teamID, LeadName: "Jansen BV", Status: repository.StatusNew}
	store.add(a)

	date := time.Now().Add(72 * time.Hour)
	result, err := svc.RequestMove(ctx, teamID, actor, a.ID, "no_show", &MoveExtra{FollowUpDate: &date, Reason: "went dark"})
	if err != nil {
		t.Fatalf("follow-up move failed: %v", err)
	}
	if result.Outcome != OutcomeCommitted {
		t.Fatalf("outcome = %q, want committed", result.Outcome)
	}
	if store.row(a.ID).RetargetDate == nil || store.row(a.ID).RetargetReason == nil {
		t.Fatal("expected retarget fields written with the stage")
	}
	if tasks.followUps != 1 {
		t.Fatalf("follow-up tasks created = %d, want 1", tasks.followUps)
	}

	undone, err := svc.Undo(ctx, teamID, actor, true)
	if err != nil {
		t.Fatalf("undo inside the grace window failed: %v", err)
	}
	if undone.CurrentStage() != "" {
		t.Fatalf("stage after undo = %q, want booked bucket", undone.CurrentStage())
	}
	if undone.RetargetDate != nil || undone.RetargetReason != nil {
		t.Fatal("expected retarget fields restored to their pre-move state")
	}
}

func TestCloseDealTwiceReturnsAlreadyClosed(t *testing.T) {
	svc, store, _ := newTestPipelineService(t)
	ctx := context.Background()
	teamID := uuid.New()
	setterID, closerID := uuid.New(), uuid.New()
	setterName, closerName := "Sanne", "Pieter"
	actor := Actor{ID: closerID, Name: closerName, SessionID: "sess-1"}

	a := &repository.Appointment{
		TeamID:     teamID,
		LeadName:   "Jansen BV",
		Status:     repository.StatusNew,
		SetterID:   &setterID,
		SetterName: &setterName,
		CloserID:   &closerID,
		CloserName: &closerName,
	}
	store.add(a)

	closed, err := svc.CloseDeal(ctx, teamID, actor, a.ID, CloseDealInput{CCCollected: 100_000})
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != repository.StatusClosed {
		t.Fatalf("status = %q, want closed", closed.Status)
	}
	if len(store.closeCalls) != 1 || len(store.closeCalls[0].Commissions) != 2 {
		t.Fatalf("expected one close with setter and closer commissions, got %+v", store.closeCalls)
	}
	if got := store.closeCalls[0].Commissions[0].Amount; got != 5_000 {
		t.Fatalf("setter commission = %d, want 5000", got)
	}
	if got := store.closeCalls[0].Commissions[1].Amount; got != 10_000 {
		t.Fatalf("closer commission = %d, want 10000", got)
	}

	_, err = svc.CloseDeal(ctx, teamID, actor, a.ID, CloseDealInput{CCCollected: 100_000})
	if !apperr.IsCode(err, apperr.CodeAlreadyClosed) {
		t.Fatalf("expected already_closed on second close, got %v", err)
	}
}

package notification

import (
	"context"
	"testing"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	taskAssigned int
	renewalDue   int
	dealClosed   int
	lastTo       string
	lastAmount   int64
}

func (r *recordingSender) SendTaskAssignedEmail(ctx context.Context, toEmail, assigneeName, leadName, taskType string) error {
	r.taskAssigned++
	r.lastTo = toEmail
	return nil
}

func (r *recordingSender) SendRenewalDueEmail(ctx context.Context, toEmail, clientName string, amountCents int64, dueDate string) error {
	r.renewalDue++
	r.lastTo = toEmail
	r.lastAmount = amountCents
	return nil
}

func (r *recordingSender) SendDealClosedEmail(ctx context.Context, toEmail, closerName, leadName string, totalCents int64) error {
	r.dealClosed++
	r.lastTo = toEmail
	r.lastAmount = totalCents
	return nil
}

func (r *recordingSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

type stubReaders struct{}

func (stubReaders) UserContact(ctx context.Context, userID uuid.UUID) (string, string, error) {
	return "Robin Closer", "robin@example.test", nil
}

func (stubReaders) LeadName(ctx context.Context, appointmentID, teamID uuid.UUID) (string, error) {
	return "Jan Jansen", nil
}

func (stubReaders) ScheduleSummary(ctx context.Context, scheduleID, teamID uuid.UUID) (string, int64, error) {
	return "Jan Jansen", 9900, nil
}

func newTestModule(sender *recordingSender) *Module {
	readers := stubReaders{}
	return New(sender, readers, readers, readers, logger.New("development"))
}

func TestHandleTaskAssignedSendsToAssignee(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.TaskAssigned{
		TeamID:        uuid.New(),
		TaskID:        uuid.New(),
		AppointmentID: uuid.New(),
		TaskType:      "call_confirmation",
		AssigneeID:    uuid.New(),
		DueAt:         time.Now().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sender.taskAssigned != 1 {
		t.Fatalf("expected 1 task assigned mail, got %d", sender.taskAssigned)
	}
	if sender.lastTo != "robin@example.test" {
		t.Errorf("sent to %q, want assignee address", sender.lastTo)
	}
}

func TestHandleDealClosedIncludesRecurringRevenue(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.DealClosed{
		TeamID:        uuid.New(),
		AppointmentID: uuid.New(),
		LeadName:      "Jan Jansen",
		CloserID:      uuid.New(),
		CashCollected: 100_000,
		MRRAmount:     9_900,
		MRRMonths:     12,
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sender.dealClosed != 1 {
		t.Fatalf("expected 1 deal closed mail, got %d", sender.dealClosed)
	}
	if want := int64(100_000 + 9_900*12); sender.lastAmount != want {
		t.Errorf("total = %d, want %d", sender.lastAmount, want)
	}
}

func TestHandleRenewalDueSkipsUnassigned(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.MRRRenewalDue{
		TeamID:     uuid.New(),
		ScheduleID: uuid.New(),
		TaskID:     uuid.New(),
		DueDate:    time.Now(),
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sender.renewalDue != 0 {
		t.Fatalf("expected no renewal mail for unassigned schedule, got %d", sender.renewalDue)
	}
}

func TestHandleRenewalDueSendsToAssignee(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModule(sender)

	assignee := uuid.New()
	err := m.Handle(context.Background(), events.MRRRenewalDue{
		TeamID:     uuid.New(),
		ScheduleID: uuid.New(),
		TaskID:     uuid.New(),
		DueDate:    time.Now(),
		AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if sender.renewalDue != 1 {
		t.Fatalf("expected 1 renewal mail, got %d", sender.renewalDue)
	}
	if sender.lastAmount != 9900 {
		t.Errorf("amount = %d, want 9900", sender.lastAmount)
	}
}

package events

import (
	"time"

	"github.com/google/uuid"
)

// Event name constants. Subscribers use these when registering handlers.
const (
	EventStageMoved             = "pipeline.stage_moved"
	EventDealClosed             = "pipeline.deal_closed"
	EventTaskAssigned           = "tasks.assigned"
	EventTaskAutoReturned       = "tasks.auto_returned"
	EventTaskCompleted          = "tasks.completed"
	EventAppointmentResched     = "appointments.rescheduled"
	EventMRRPaymentConfirmed    = "mrr.payment_confirmed"
	EventMRRRenewalDue          = "mrr.renewal_due"
	EventMRRScheduleCompleted   = "mrr.schedule_completed"
	EventMRRScheduleReactivated = "mrr.schedule_reactivated"
)

// StageMoved is published after a pipeline stage write commits.
type StageMoved struct {
	BaseEvent
	TeamID        uuid.UUID
	AppointmentID uuid.UUID
	FromStage     string
	ToStage       string
	ActorID       uuid.UUID
	ActorName     string
}

func (e StageMoved) EventName() string { return EventStageMoved }

// DealClosed is published after a close transaction commits.
type DealClosed struct {
	BaseEvent
	TeamID        uuid.UUID
	AppointmentID uuid.UUID
	LeadName      string
	CloserID      uuid.UUID
	CashCollected int64
	MRRAmount     int64
	MRRMonths     int
	ProductName   string
}

func (e DealClosed) EventName() string { return EventDealClosed }

// TaskAssigned is published when a confirmation task gets an assignee,
// either through rotation or a manual claim.
type TaskAssigned struct {
	BaseEvent
	TeamID        uuid.UUID
	TaskID        uuid.UUID
	AppointmentID uuid.UUID
	TaskType      string
	AssigneeID    uuid.UUID
	DueAt         time.Time
}

func (e TaskAssigned) EventName() string { return EventTaskAssigned }

// TaskAutoReturned is published when the sweep reclaims a timed-out task.
type TaskAutoReturned struct {
	BaseEvent
	TeamID     uuid.UUID
	TaskID     uuid.UUID
	PrevHolder uuid.UUID
}

func (e TaskAutoReturned) EventName() string { return EventTaskAutoReturned }

// TaskCompleted is published when a confirmation task reaches completed.
type TaskCompleted struct {
	BaseEvent
	TeamID        uuid.UUID
	TaskID        uuid.UUID
	AppointmentID uuid.UUID
	Outcome       string
	ActorID       uuid.UUID
}

func (e TaskCompleted) EventName() string { return EventTaskCompleted }

// AppointmentRescheduled is published when the watcher observes an external
// reschedule completion on the authoritative appointment row.
type AppointmentRescheduled struct {
	BaseEvent
	TeamID         uuid.UUID
	AppointmentID  uuid.UUID
	SuccessorID    *uuid.UUID
	RescheduleDate *time.Time
}

func (e AppointmentRescheduled) EventName() string { return EventAppointmentResched }

// MRRPaymentConfirmed is published after a ConfirmPayment transaction commits.
type MRRPaymentConfirmed struct {
	BaseEvent
	TeamID         uuid.UUID
	ScheduleID     uuid.UUID
	AppointmentID  uuid.UUID
	TaskID         uuid.UUID
	Amount         int64
	ConfirmedCount int
	TotalMonths    int
}

func (e MRRPaymentConfirmed) EventName() string { return EventMRRPaymentConfirmed }

// MRRRenewalDue is published by the scheduler when a renewal obligation
// reaches its due date.
type MRRRenewalDue struct {
	BaseEvent
	TeamID     uuid.UUID
	ScheduleID uuid.UUID
	TaskID     uuid.UUID
	DueDate    time.Time
	AssigneeID *uuid.UUID
}

func (e MRRRenewalDue) EventName() string { return EventMRRRenewalDue }

// MRRScheduleCompleted is published when the final contracted month confirms.
type MRRScheduleCompleted struct {
	BaseEvent
	TeamID        uuid.UUID
	ScheduleID    uuid.UUID
	AppointmentID uuid.UUID
}

func (e MRRScheduleCompleted) EventName() string { return EventMRRScheduleCompleted }

// MRRScheduleReactivated is published when a paused schedule resumes.
type MRRScheduleReactivated struct {
	BaseEvent
	TeamID      uuid.UUID
	ScheduleID  uuid.UUID
	NextRenewal time.Time
}

func (e MRRScheduleReactivated) EventName() string { return EventMRRScheduleReactivated }

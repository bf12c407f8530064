// Package notification turns domain events into outbound emails. Domain
// modules publish events and stay unaware of delivery; this module owns the
// mapping from event to recipient and template.
package notification

import (
	"context"
	"fmt"

	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// UserContactReader resolves a user's name and email address.
type UserContactReader interface {
	UserContact(ctx context.Context, userID uuid.UUID) (name, emailAddr string, err error)
}

// LeadReader resolves the lead name behind an appointment.
type LeadReader interface {
	LeadName(ctx context.Context, appointmentID, teamID uuid.UUID) (string, error)
}

// ScheduleReader resolves the client and amount behind a renewal schedule.
type ScheduleReader interface {
	ScheduleSummary(ctx context.Context, scheduleID, teamID uuid.UUID) (clientName string, amountCents int64, err error)
}

// Module subscribes to domain events and delivers notification emails.
type Module struct {
	sender    email.Sender
	users     UserContactReader
	leads     LeadReader
	schedules ScheduleReader
	log       *logger.Logger
}

func New(sender email.Sender, users UserContactReader, leads LeadReader, schedules ScheduleReader, log *logger.Logger) *Module {
	return &Module{
		sender:    sender,
		users:     users,
		leads:     leads,
		schedules: schedules,
		log:       log,
	}
}

// RegisterHandlers subscribes the module to the events it emails about.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.EventTaskAssigned, m)
	bus.Subscribe(events.EventDealClosed, m)
	bus.Subscribe(events.EventMRRRenewalDue, m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.TaskAssigned:
		return m.handleTaskAssigned(ctx, e)
	case events.DealClosed:
		return m.handleDealClosed(ctx, e)
	case events.MRRRenewalDue:
		return m.handleRenewalDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleTaskAssigned(ctx context.Context, e events.TaskAssigned) error {
	name, addr, err := m.users.UserContact(ctx, e.AssigneeID)
	if err != nil {
		return fmt.Errorf("failed to resolve assignee contact: %w", err)
	}
	if addr == "" {
		return nil
	}

	leadName, err := m.leads.LeadName(ctx, e.AppointmentID, e.TeamID)
	if err != nil {
		m.log.Warn("task assigned mail without lead name", "appointmentId", e.AppointmentID.String(), "error", err)
		leadName = "onbekende lead"
	}

	return m.sender.SendTaskAssignedEmail(ctx, addr, name, leadName, e.TaskType)
}

func (m *Module) handleDealClosed(ctx context.Context, e events.DealClosed) error {
	name, addr, err := m.users.UserContact(ctx, e.CloserID)
	if err != nil {
		return fmt.Errorf("failed to resolve closer contact: %w", err)
	}
	if addr == "" {
		return nil
	}

	total := e.CashCollected + e.MRRAmount*int64(e.MRRMonths)
	return m.sender.SendDealClosedEmail(ctx, addr, name, e.LeadName, total)
}

func (m *Module) handleRenewalDue(ctx context.Context, e events.MRRRenewalDue) error {
	if e.AssigneeID == nil {
		return nil
	}

	_, addr, err := m.users.UserContact(ctx, *e.AssigneeID)
	if err != nil {
		return fmt.Errorf("failed to resolve renewal assignee contact: %w", err)
	}
	if addr == "" {
		return nil
	}

	clientName, amount, err := m.schedules.ScheduleSummary(ctx, e.ScheduleID, e.TeamID)
	if err != nil {
		return fmt.Errorf("failed to resolve schedule summary: %w", err)
	}

	return m.sender.SendRenewalDueEmail(ctx, addr, clientName, amount, e.DueDate.Format("02-01-2006"))
}

var _ events.Handler = (*Module)(nil)

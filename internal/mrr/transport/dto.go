// Package transport defines the request and response DTOs for the mrr
// module.
package transport

import (
	"time"

	"salesops_backend/internal/mrr/repository"

	"github.com/google/uuid"
)

// ConfirmPaymentRequest confirms the due obligation behind a follow-up task.
type ConfirmPaymentRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// ReactivateRequest resumes a paused schedule.
type ReactivateRequest struct {
	NextRenewalDate time.Time `json:"nextRenewalDate" validate:"required"`
}

// ScheduleResponse is the wire shape of a recurring schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	AppointmentID   uuid.UUID  `json:"appointmentId"`
	TeamID          uuid.UUID  `json:"teamId"`
	ClientName      string     `json:"clientName"`
	ClientEmail     string     `json:"clientEmail"`
	MRRAmount       int64      `json:"mrrAmount"`
	TotalMonths     int        `json:"totalMonths"`
	ConfirmedCount  int        `json:"confirmedCount"`
	FirstChargeDate time.Time  `json:"firstChargeDate"`
	NextRenewalDate time.Time  `json:"nextRenewalDate"`
	Status          string     `json:"status"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToScheduleResponse maps the database model to the wire shape.
func ToScheduleResponse(s *repository.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		AppointmentID:   s.AppointmentID,
		TeamID:          s.TeamID,
		ClientName:      s.ClientName,
		ClientEmail:     s.ClientEmail,
		MRRAmount:       s.MRRAmount,
		TotalMonths:     s.TotalMonths,
		ConfirmedCount:  s.ConfirmedCount,
		FirstChargeDate: s.FirstChargeDate,
		NextRenewalDate: s.NextRenewalDate,
		Status:          s.Status,
		AssignedTo:      s.AssignedTo,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
	}
}

// FollowUpTaskResponse is the wire shape of one monthly obligation.
type FollowUpTaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	ScheduleID  uuid.UUID  `json:"scheduleId"`
	DueDate     time.Time  `json:"dueDate"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *uuid.UUID `json:"completedBy,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// ToFollowUpTaskResponses maps a slice of follow-up tasks.
func ToFollowUpTaskResponses(tasks []repository.FollowUpTask) []FollowUpTaskResponse {
	out := make([]FollowUpTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FollowUpTaskResponse{
			ID:          t.ID,
			ScheduleID:  t.ScheduleID,
			DueDate:     t.DueDate,
			Status:      t.Status,
			CompletedAt: t.CompletedAt,
			CompletedBy: t.CompletedBy,
			Notes:       t.Notes,
		})
	}
	return out
}

// ConfirmResponse reports a confirmed payment.
type ConfirmResponse struct {
	Schedule  ScheduleResponse `json:"schedule"`
	Completed bool             `json:"completed"`
}

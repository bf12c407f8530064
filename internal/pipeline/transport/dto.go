// Package transport defines the request and response DTOs for the pipeline
// module.
package transport

import (
	"time"

	"salesops_backend/internal/pipeline/repository"
	"salesops_backend/internal/pipeline/service"

	"github.com/google/uuid"
)

// CreateAppointmentRequest books a new appointment.
type CreateAppointmentRequest struct {
	LeadName         string    `json:"leadName" validate:"required,min=1,max=200"`
	LeadEmail        string    `json:"leadEmail" validate:"required,email"`
	LeadPhone        string    `json:"leadPhone" validate:"omitempty,max=32"`
	ScheduledAt      time.Time `json:"scheduledAt" validate:"required"`
	InviteeReference string    `json:"inviteeReference" validate:"omitempty,max=200"`
}

// MoveRequest asks for a stage transition, optionally carrying the payload a
// prior needs_follow_up response demanded.
type MoveRequest struct {
	TargetStage  string     `json:"targetStage" validate:"required,max=100"`
	FollowUpDate *time.Time `json:"followUpDate"`
	Reason       string     `json:"reason" validate:"omitempty,max=1000"`
	SkipFollowUp bool       `json:"skipFollowUp"`
	HasExtra     bool       `json:"hasExtra"`
}

// AssignCloserRequest sets the closer ahead of a close/deposit move.
type AssignCloserRequest struct {
	CloserID   uuid.UUID `json:"closerId" validate:"required"`
	CloserName string    `json:"closerName" validate:"required,min=1,max=200"`
}

// CloseDealRequest carries the deal-closing dialog payload. Amounts in cents.
type CloseDealRequest struct {
	CCCollected     int64      `json:"ccCollected" validate:"min=0"`
	MRRAmount       int64      `json:"mrrAmount" validate:"min=0"`
	MRRMonths       int        `json:"mrrMonths" validate:"min=0,max=120"`
	ProductName     string     `json:"productName" validate:"omitempty,max=200"`
	Notes           string     `json:"notes" validate:"omitempty,max=2000"`
	FirstChargeDate *time.Time `json:"firstChargeDate"`
}

// UndoRequest confirms the irreversible undo.
type UndoRequest struct {
	Confirm bool `json:"confirm"`
}

// AppointmentResponse is the wire shape of an appointment.
type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	TeamID          uuid.UUID  `json:"teamId"`
	LeadName        string     `json:"leadName"`
	LeadEmail       string     `json:"leadEmail"`
	LeadPhone       *string    `json:"leadPhone,omitempty"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	SetterID        *uuid.UUID `json:"setterId,omitempty"`
	SetterName      *string    `json:"setterName,omitempty"`
	CloserID        *uuid.UUID `json:"closerId,omitempty"`
	CloserName      *string    `json:"closerName,omitempty"`
	PipelineStage   *string    `json:"pipelineStage"`
	Status          string     `json:"status"`
	CCCollected     int64      `json:"ccCollected"`
	MRRAmount       int64      `json:"mrrAmount"`
	MRRMonths       int        `json:"mrrMonths"`
	ProductName     *string    `json:"productName,omitempty"`
	TotalRevenue    int64      `json:"totalRevenue"`
	RescheduleCount int        `json:"rescheduleCount"`
	RetargetDate    *time.Time `json:"retargetDate,omitempty"`
	RetargetReason  *string    `json:"retargetReason,omitempty"`
	RescheduleURL   *string    `json:"rescheduleUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ToAppointmentResponse maps the database model to the wire shape.
func ToAppointmentResponse(a *repository.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		TeamID:          a.TeamID,
		LeadName:        a.LeadName,
		LeadEmail:       a.LeadEmail,
		LeadPhone:       a.LeadPhone,
		ScheduledAt:     a.ScheduledAt,
		SetterID:        a.SetterID,
		SetterName:      a.SetterName,
		CloserID:        a.CloserID,
		CloserName:      a.CloserName,
		PipelineStage:   a.PipelineStage,
		Status:          a.Status,
		CCCollected:     a.CCCollected,
		MRRAmount:       a.MRRAmount,
		MRRMonths:       a.MRRMonths,
		ProductName:     a.ProductName,
		TotalRevenue:    a.TotalRevenue,
		RescheduleCount: a.RescheduleCount,
		RetargetDate:    a.RetargetDate,
		RetargetReason:  a.RetargetReason,
		RescheduleURL:   a.RescheduleURL,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// MoveResponse is the wire shape of a move result.
type MoveResponse struct {
	Outcome       service.MoveOutcome  `json:"outcome"`
	RescheduleURL string               `json:"rescheduleUrl,omitempty"`
	Appointment   *AppointmentResponse `json:"appointment,omitempty"`
}

// BoardColumnResponse is one ordered column of the board.
type BoardColumnResponse struct {
	StageID      string                `json:"stageId"`
	Label        string                `json:"label"`
	Color        string                `json:"color"`
	Appointments []AppointmentResponse `json:"appointments"`
}

// CommissionResponse is one commission row.
type CommissionResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	UserID        uuid.UUID `json:"userId"`
	UserName      string    `json:"userName"`
	Role          string    `json:"role"`
	Amount        int64     `json:"amount"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Package transport defines the request and response DTOs for the tasks
// module.
package transport

import (
	"time"

	"salesops_backend/internal/tasks/repository"

	"github.com/google/uuid"
)

// CompleteRequest finishes a task with an outcome.
type CompleteRequest struct {
	Outcome        string     `json:"outcome" validate:"required,oneof=confirmed no_show rescheduled"`
	RescheduleDate *time.Time `json:"rescheduleDate"`
	Notes          string     `json:"notes" validate:"omitempty,max=2000"`
}

// TaskResponse is the wire shape of a confirmation task.
type TaskResponse struct {
	ID              uuid.UUID  `json:"id"`
	AppointmentID   uuid.UUID  `json:"appointmentId"`
	TeamID          uuid.UUID  `json:"teamId"`
	TaskType        string     `json:"taskType"`
	Status          string     `json:"status"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	AssignedToName  *string    `json:"assignedToName,omitempty"`
	ClaimedManually bool       `json:"claimedManually"`
	DueAt           time.Time  `json:"dueAt"`
	AutoReturnAt    *time.Time `json:"autoReturnAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Outcome         *string    `json:"outcome,omitempty"`
	RescheduleDate  *time.Time `json:"rescheduleDate,omitempty"`
	FollowUpDate    *time.Time `json:"followUpDate,omitempty"`
	FollowUpReason  *string    `json:"followUpReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToTaskResponse maps the database model to the wire shape.
func ToTaskResponse(t *repository.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		AppointmentID:   t.AppointmentID,
		TeamID:          t.TeamID,
		TaskType:        t.TaskType,
		Status:          t.Status,
		AssignedTo:      t.AssignedTo,
		AssignedToName:  t.AssignedToName,
		ClaimedManually: t.ClaimedManually,
		DueAt:           t.DueAt,
		AutoReturnAt:    t.AutoReturnAt,
		CompletedAt:     t.CompletedAt,
		Outcome:         t.Outcome,
		RescheduleDate:  t.RescheduleDate,
		FollowUpDate:    t.FollowUpDate,
		FollowUpReason:  t.FollowUpReason,
		CreatedAt:       t.CreatedAt,
	}
}

// ToTaskResponses maps a slice of tasks.
func ToTaskResponses(tasks []repository.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, ToTaskResponse(&tasks[i]))
	}
	return out
}

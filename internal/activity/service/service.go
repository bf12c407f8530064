package service

import (
	"context"

	"salesops_backend/internal/activity/repository"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service provides the append-only audit sink used by every engine, plus the
// timeline read model consumed by the UI.
type Service struct {
	repo *repository.Repository
}

// New creates a new activity service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry. Engines call this after each committed mutation.
func (s *Service) Record(ctx context.Context, e *repository.Entry) error {
	return s.repo.Append(ctx, e)
}

// AppointmentTimeline returns the newest-first entries for one appointment.
func (s *Service) AppointmentTimeline(ctx context.Context, teamID, appointmentID uuid.UUID, limit, offset int) ([]repository.Entry, error) {
	return s.repo.ListByAppointment(ctx, teamID, appointmentID, clampLimit(limit), maxInt(offset, 0))
}

// TeamTimeline returns the newest-first entries for the whole team.
func (s *Service) TeamTimeline(ctx context.Context, teamID uuid.UUID, limit, offset int) ([]repository.Entry, error) {
	return s.repo.ListByTeam(ctx, teamID, clampLimit(limit), maxInt(offset, 0))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

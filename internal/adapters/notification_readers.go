package adapters

import (
	"context"

	authrepo "salesops_backend/internal/auth/repository"
	mrrrepo "salesops_backend/internal/mrr/repository"
	"salesops_backend/internal/notification"
	pipelinerepo "salesops_backend/internal/pipeline/repository"

	"github.com/google/uuid"
)

// NotificationReaders implements the notification module's lookup ports over
// the auth, pipeline, and mrr stores.
type NotificationReaders struct {
	users     *authrepo.Repository
	pipeline  *pipelinerepo.Repository
	schedules *mrrrepo.Repository
}

func NewNotificationReaders(users *authrepo.Repository, pipeline *pipelinerepo.Repository, schedules *mrrrepo.Repository) *NotificationReaders {
	return &NotificationReaders{users: users, pipeline: pipeline, schedules: schedules}
}

func (n *NotificationReaders) UserContact(ctx context.Context, userID uuid.UUID) (string, string, error) {
	user, err := n.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.Name, user.Email, nil
}

func (n *NotificationReaders) LeadName(ctx context.Context, appointmentID, teamID uuid.UUID) (string, error) {
	a, err := n.pipeline.GetByID(ctx, appointmentID, teamID)
	if err != nil {
		return "", err
	}
	return a.LeadName, nil
}

func (n *NotificationReaders) ScheduleSummary(ctx context.Context, scheduleID, teamID uuid.UUID) (string, int64, error) {
	s, err := n.schedules.GetSchedule(ctx, scheduleID, teamID)
	if err != nil {
		return "", 0, err
	}
	return s.ClientName, s.MRRAmount, nil
}

var _ notification.UserContactReader = (*NotificationReaders)(nil)
var _ notification.LeadReader = (*NotificationReaders)(nil)
var _ notification.ScheduleReader = (*NotificationReaders)(nil)

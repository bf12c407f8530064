// Package mrr provides the recurring revenue scheduler module.
package mrr

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/mrr/handler"
	"salesops_backend/internal/mrr/repository"
	"salesops_backend/internal/mrr/service"
	"salesops_backend/platform/events"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the mrr domain module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates a new mrr module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, teams service.TeamPort, appointments service.AppointmentPort, activity service.ActivityPort, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, teams, appointments, activity, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc}
}

// Service exposes the mrr service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "mrr"
}

// RegisterRoutes registers the module's routes under /api/v1/mrr.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	mrr := ctx.Protected.Group("/mrr")
	m.handler.RegisterRoutes(mrr)
}

var _ apphttp.Module = (*Module)(nil)

// Package tasks provides the confirmation task engine module.
package tasks

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/tasks/handler"
	"salesops_backend/internal/tasks/repository"
	"salesops_backend/internal/tasks/service"
	"salesops_backend/platform/events"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the tasks domain module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates a new tasks module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, teams service.TeamPort, appointments service.AppointmentPort, activity service.ActivityPort, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, teams, appointments, activity, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc}
}

// Service exposes the tasks service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "tasks"
}

// RegisterRoutes registers the module's routes under /api/v1/tasks.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tasks := ctx.Protected.Group("/tasks")
	m.handler.RegisterRoutes(tasks)
}

var _ apphttp.Module = (*Module)(nil)

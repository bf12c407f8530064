// Package pipeline provides the stage transition engine module.
package pipeline

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/pipeline/handler"
	"salesops_backend/internal/pipeline/repository"
	"salesops_backend/internal/pipeline/service"
	"salesops_backend/internal/undo"
	"salesops_backend/platform/events"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the pipeline domain module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// Deps are the cross-module collaborators the pipeline engine drives.
type Deps struct {
	Teams         service.TeamPort
	Tasks         service.TaskPort
	Schedules     service.SchedulePort
	Calendar      service.CalendarPort
	Activity      service.ActivityPort
	Ledger        *undo.Ledger
	CalendarToken string
}

// NewModule creates a new pipeline module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, deps Deps, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, deps.Teams, deps.Tasks, deps.Schedules, deps.Calendar, deps.Activity, deps.Ledger, bus, log, deps.CalendarToken)
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc}
}

// Service exposes the pipeline service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "pipeline"
}

// RegisterRoutes registers the module's routes under /api/v1/pipeline.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pipeline := ctx.Protected.Group("/pipeline")
	m.handler.RegisterRoutes(pipeline)
}

var _ apphttp.Module = (*Module)(nil)

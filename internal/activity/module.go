// Package activity provides the append-only activity log module.
package activity

import (
	"salesops_backend/internal/activity/handler"
	"salesops_backend/internal/activity/repository"
	"salesops_backend/internal/activity/service"
	apphttp "salesops_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the activity log module
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates a new activity module with all dependencies wired
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc)

	return &Module{
		handler: h,
		svc:     svc,
	}
}

// Service exposes the activity service so other engines can record entries.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "activity"
}

// RegisterRoutes registers the module's routes under /api/v1/activity
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	activity := ctx.Protected.Group("/activity")
	m.handler.RegisterRoutes(activity)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

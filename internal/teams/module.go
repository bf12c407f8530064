// Package teams provides the team configuration domain module.
package teams

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/teams/handler"
	"salesops_backend/internal/teams/repository"
	"salesops_backend/internal/teams/service"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the teams domain module
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates a new teams module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		svc:     svc,
	}
}

// Service exposes the teams service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "teams"
}

// RegisterRoutes registers the module's routes under /api/v1/teams
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	teams := ctx.Protected.Group("/teams")
	m.handler.RegisterRoutes(teams)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

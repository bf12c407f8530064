package handler

import (
	"net/http"

	"salesops_backend/internal/teams/repository"
	"salesops_backend/internal/teams/service"
	"salesops_backend/internal/teams/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for team configuration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new teams handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// mustGetTeamID extracts the team ID from identity and returns it.
func mustGetTeamID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	teamID := identity.TeamID()
	if teamID == nil {
		httpkit.Error(c, http.StatusBadRequest, "team ID is required", nil)
		return uuid.UUID{}, false
	}
	return *teamID, true
}

// RegisterRoutes registers the team configuration routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stages", h.ListStages)
	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.UpdateSettings)
}

// ListStages handles GET /api/v1/teams/stages
func (h *Handler) ListStages(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	teamID, ok := mustGetTeamID(c, identity)
	if !ok {
		return
	}

	stages, err := h.svc.Stages(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.StageResponse, 0, len(stages))
	for _, s := range stages {
		resp = append(resp, transport.StageResponse{
			StageID:    s.StageID,
			Label:      s.Label,
			Color:      s.Color,
			OrderIndex: s.OrderIndex,
			IsDefault:  s.IsDefault,
		})
	}

	httpkit.OK(c, resp)
}

// GetSettings handles GET /api/v1/teams/settings
func (h *Handler) GetSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	teamID, ok := mustGetTeamID(c, identity)
	if !ok {
		return
	}

	settings, err := h.svc.Settings(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SettingsResponse{
		SetterCommissionPct:        settings.SetterCommissionPct,
		CloserCommissionPct:        settings.CloserCommissionPct,
		AutoReturnMinutes:          settings.AutoReturnMinutes,
		AllowSetterPipelineUpdates: settings.AllowSetterPipelineUpdates,
	})
}

// UpdateSettings handles PUT /api/v1/teams/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	teamID, ok := mustGetTeamID(c, identity)
	if !ok {
		return
	}

	err := h.svc.UpdateSettings(c.Request.Context(), &repository.Settings{
		TeamID:                     teamID,
		SetterCommissionPct:        req.SetterCommissionPct,
		CloserCommissionPct:        req.CloserCommissionPct,
		AutoReturnMinutes:          req.AutoReturnMinutes,
		AllowSetterPipelineUpdates: req.AllowSetterPipelineUpdates,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

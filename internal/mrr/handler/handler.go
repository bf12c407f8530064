package handler

import (
	"net/http"

	"salesops_backend/internal/mrr/service"
	"salesops_backend/internal/mrr/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for recurring revenue schedules.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new mrr handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the mrr routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/schedules", h.List)
	rg.GET("/schedules/:id", h.Get)
	rg.GET("/schedules/:id/tasks", h.Tasks)
	rg.POST("/schedules/:id/pause", h.Pause)
	rg.POST("/schedules/:id/cancel", h.Cancel)
	rg.POST("/schedules/:id/reactivate", h.Reactivate)
	rg.POST("/tasks/:id/confirm", h.ConfirmPayment)
}

func requestScope(c *gin.Context) (uuid.UUID, service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, service.Actor{}, false
	}
	teamID := identity.TeamID()
	if teamID == nil {
		httpkit.Error(c, http.StatusBadRequest, "team ID is required", nil)
		return uuid.UUID{}, service.Actor{}, false
	}
	return *teamID, service.Actor{ID: identity.UserID(), Name: identity.Name()}, true
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+what+" id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// List handles GET /api/v1/mrr/schedules
func (h *Handler) List(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}

	schedules, err := h.svc.List(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		resp = append(resp, transport.ToScheduleResponse(&schedules[i]))
	}

	httpkit.OK(c, resp)
}

// Get handles GET /api/v1/mrr/schedules/:id
func (h *Handler) Get(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "schedule")
	if !ok {
		return
	}

	sched, err := h.svc.Get(c.Request.Context(), id, teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScheduleResponse(sched))
}

// Tasks handles GET /api/v1/mrr/schedules/:id/tasks
func (h *Handler) Tasks(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "schedule")
	if !ok {
		return
	}

	tasks, err := h.svc.Tasks(c.Request.Context(), id, teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpTaskResponses(tasks))
}

// Pause handles POST /api/v1/mrr/schedules/:id/pause
func (h *Handler) Pause(c *gin.Context) {
	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "schedule")
	if !ok {
		return
	}

	sched, err := h.svc.Pause(c.Request.Context(), teamID, actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScheduleResponse(sched))
}

// Cancel handles POST /api/v1/mrr/schedules/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "schedule")
	if !ok {
		return
	}

	sched, err := h.svc.Cancel(c.Request.Context(), teamID, actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScheduleResponse(sched))
}

// Reactivate handles POST /api/v1/mrr/schedules/:id/reactivate
func (h *Handler) Reactivate(c *gin.Context) {
	var req transport.ReactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "schedule")
	if !ok {
		return
	}

	sched, err := h.svc.Reactivate(c.Request.Context(), teamID, actor, id, req.NextRenewalDate)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScheduleResponse(sched))
}

// ConfirmPayment handles POST /api/v1/mrr/tasks/:id/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req transport.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "task")
	if !ok {
		return
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	result, err := h.svc.ConfirmPayment(c.Request.Context(), teamID, actor, id, notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ConfirmResponse{
		Schedule:  transport.ToScheduleResponse(result.Schedule),
		Completed: result.Completed,
	})
}

package handler

import (
	"net/http"

	"salesops_backend/internal/tasks/service"
	"salesops_backend/internal/tasks/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for confirmation tasks.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new tasks handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the task routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/queue", h.Queue)
	rg.GET("/mine", h.Mine)
	rg.GET("/appointments/:id", h.ByAppointment)
	rg.POST("/:id/claim", h.Claim)
	rg.POST("/:id/complete", h.Complete)
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

func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid task id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// Queue handles GET /api/v1/tasks/queue
func (h *Handler) Queue(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}

	tasks, err := h.svc.Queue(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTaskResponses(tasks))
}

// Mine handles GET /api/v1/tasks/mine
func (h *Handler) Mine(c *gin.Context) {
	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}

	tasks, err := h.svc.Mine(c.Request.Context(), teamID, actor.ID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTaskResponses(tasks))
}

// ByAppointment handles GET /api/v1/tasks/appointments/:id
func (h *Handler) ByAppointment(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id", nil)
		return
	}

	tasks, err := h.svc.ByAppointment(c.Request.Context(), id, teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTaskResponses(tasks))
}

// Claim handles POST /api/v1/tasks/:id/claim
func (h *Handler) Claim(c *gin.Context) {
	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	t, err := h.svc.Claim(c.Request.Context(), teamID, actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTaskResponse(t))
}

// Complete handles POST /api/v1/tasks/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	var req transport.CompleteRequest
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
	id, ok := taskID(c)
	if !ok {
		return
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	t, err := h.svc.Complete(c.Request.Context(), teamID, actor, id, req.Outcome, req.RescheduleDate, notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTaskResponse(t))
}

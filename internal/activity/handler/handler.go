package handler

import (
	"net/http"
	"strconv"
	"time"

	"salesops_backend/internal/activity/repository"
	"salesops_backend/internal/activity/service"
	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for activity timelines.
type Handler struct {
	svc *service.Service
}

// New creates a new activity handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// EntryResponse is the response body for one timeline entry.
type EntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointmentId,omitempty"`
	ActorName     string     `json:"actorName"`
	ActionType    string     `json:"actionType"`
	Note          string     `json:"note"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// RegisterRoutes registers the activity routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.TeamTimeline)
	rg.GET("/appointments/:id", h.AppointmentTimeline)
}

// TeamTimeline handles GET /api/v1/activity
func (h *Handler) TeamTimeline(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	teamID := identity.TeamID()
	if teamID == nil {
		httpkit.Error(c, http.StatusBadRequest, "team ID is required", nil)
		return
	}

	limit, offset := pagination(c)
	entries, err := h.svc.TeamTimeline(c.Request.Context(), *teamID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponses(entries))
}

// AppointmentTimeline handles GET /api/v1/activity/appointments/:id
func (h *Handler) AppointmentTimeline(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	teamID := identity.TeamID()
	if teamID == nil {
		httpkit.Error(c, http.StatusBadRequest, "team ID is required", nil)
		return
	}

	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id", nil)
		return
	}

	limit, offset := pagination(c)
	entries, err := h.svc.AppointmentTimeline(c.Request.Context(), *teamID, appointmentID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponses(entries))
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

func toResponses(entries []repository.Entry) []EntryResponse {
	resp := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, EntryResponse{
			ID:            e.ID,
			AppointmentID: e.AppointmentID,
			ActorName:     e.ActorName,
			ActionType:    e.ActionType,
			Note:          e.Note,
			CreatedAt:     e.CreatedAt,
		})
	}
	return resp
}

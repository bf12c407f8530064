package handler

import (
	"net/http"

	"salesops_backend/internal/pipeline/service"
	"salesops_backend/internal/pipeline/transport"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid appointment id"
)

// Handler handles HTTP requests for the pipeline.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new pipeline handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the pipeline routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/board", h.Board)
	rg.POST("/appointments", h.CreateAppointment)
	rg.GET("/appointments/:id", h.GetAppointment)
	rg.POST("/appointments/:id/move", h.Move)
	rg.POST("/appointments/:id/closer", h.AssignCloser)
	rg.POST("/appointments/:id/close", h.CloseDeal)
	rg.GET("/appointments/:id/commissions", h.Commissions)
	rg.DELETE("/appointments/:id", h.DeleteAppointment)
	rg.GET("/undo", h.PreviewUndo)
	rg.POST("/undo", h.Undo)
}

// requestScope resolves identity, team, and actor for a request.
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
	actor := service.Actor{
		ID:        identity.UserID(),
		Name:      identity.Name(),
		SessionID: identity.UserID().String(),
	}
	return *teamID, actor, true
}

func appointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// Board handles GET /api/v1/pipeline/board
func (h *Handler) Board(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}

	columns, err := h.svc.Board(c.Request.Context(), teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.BoardColumnResponse, 0, len(columns))
	for _, col := range columns {
		out := transport.BoardColumnResponse{
			StageID:      col.StageID,
			Label:        col.Label,
			Color:        col.Color,
			Appointments: make([]transport.AppointmentResponse, 0, len(col.Appointments)),
		}
		for i := range col.Appointments {
			out.Appointments = append(out.Appointments, transport.ToAppointmentResponse(&col.Appointments[i]))
		}
		resp = append(resp, out)
	}

	httpkit.OK(c, resp)
}

// CreateAppointment handles POST /api/v1/pipeline/appointments
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req transport.CreateAppointmentRequest
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

	a, err := h.svc.CreateAppointment(c.Request.Context(), teamID, actor, service.CreateAppointmentInput{
		LeadName:         req.LeadName,
		LeadEmail:        req.LeadEmail,
		LeadPhone:        req.LeadPhone,
		ScheduledAt:      req.ScheduledAt,
		InviteeReference: req.InviteeReference,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAppointmentResponse(a))
}

// GetAppointment handles GET /api/v1/pipeline/appointments/:id
func (h *Handler) GetAppointment(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id, teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(a))
}

// Move handles POST /api/v1/pipeline/appointments/:id/move
func (h *Handler) Move(c *gin.Context) {
	var req transport.MoveRequest
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
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var extra *service.MoveExtra
	if req.HasExtra {
		extra = &service.MoveExtra{
			FollowUpDate: req.FollowUpDate,
			Reason:       req.Reason,
			SkipFollowUp: req.SkipFollowUp,
		}
	}

	result, err := h.svc.RequestMove(c.Request.Context(), teamID, actor, id, req.TargetStage, extra)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.MoveResponse{Outcome: result.Outcome, RescheduleURL: result.RescheduleURL}
	if result.Appointment != nil {
		a := transport.ToAppointmentResponse(result.Appointment)
		resp.Appointment = &a
	}

	httpkit.OK(c, resp)
}

// AssignCloser handles POST /api/v1/pipeline/appointments/:id/closer
func (h *Handler) AssignCloser(c *gin.Context) {
	var req transport.AssignCloserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	err := h.svc.AssignCloser(c.Request.Context(), id, teamID, req.CloserID, req.CloserName)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// CloseDeal handles POST /api/v1/pipeline/appointments/:id/close
func (h *Handler) CloseDeal(c *gin.Context) {
	var req transport.CloseDealRequest
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
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	a, err := h.svc.CloseDeal(c.Request.Context(), teamID, actor, id, service.CloseDealInput{
		CCCollected:     req.CCCollected,
		MRRAmount:       req.MRRAmount,
		MRRMonths:       req.MRRMonths,
		ProductName:     req.ProductName,
		Notes:           req.Notes,
		FirstChargeDate: req.FirstChargeDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(a))
}

// Commissions handles GET /api/v1/pipeline/appointments/:id/commissions
func (h *Handler) Commissions(c *gin.Context) {
	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	rows, err := h.svc.Commissions(c.Request.Context(), id, teamID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.CommissionResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, transport.CommissionResponse{
			ID:            r.ID,
			AppointmentID: r.AppointmentID,
			UserID:        r.UserID,
			UserName:      r.UserName,
			Role:          r.Role,
			Amount:        r.Amount,
			Source:        r.Source,
			CreatedAt:     r.CreatedAt,
		})
	}

	httpkit.OK(c, resp)
}

// DeleteAppointment handles DELETE /api/v1/pipeline/appointments/:id
func (h *Handler) DeleteAppointment(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if !identity.HasRole("admin") {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	teamID, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, teamID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// PreviewUndo handles GET /api/v1/pipeline/undo
func (h *Handler) PreviewUndo(c *gin.Context) {
	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}

	preview, err := h.svc.PreviewUndo(c.Request.Context(), teamID, actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, preview)
}

// Undo handles POST /api/v1/pipeline/undo
func (h *Handler) Undo(c *gin.Context) {
	var req transport.UndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	teamID, actor, ok := requestScope(c)
	if !ok {
		return
	}

	a, err := h.svc.Undo(c.Request.Context(), teamID, actor, req.Confirm)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(a))
}

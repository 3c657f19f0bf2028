package requests

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// StatusUpdateRequest is the body for PATCH /users/:userId/events/:eventId/requests.
type StatusUpdateRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required,min=1,dive,uuid"`
	Status     string   `json:"status" binding:"required,oneof=CONFIRMED REJECTED"`
}

// Handler handles participation request endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a participation request handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /users/:userId/requests?eventId=.
func (h *Handler) Create(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	eventID, err := uuid.Parse(c.Query("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid or missing eventId")
		return
	}

	view, err := h.svc.Add(c.Request.Context(), userID, eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, view)
}

// List handles GET /users/:userId/requests.
func (h *Handler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	list, err := h.svc.ListByRequester(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Cancel handles PATCH /users/:userId/requests/:requestId/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	view, err := h.svc.Cancel(c.Request.Context(), userID, requestID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, view)
}

// ListForEvent handles GET /users/:userId/events/:eventId/requests.
func (h *Handler) ListForEvent(c *gin.Context) {
	userID, eventID, ok := ownerParams(c)
	if !ok {
		return
	}

	list, err := h.svc.ListForEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// ChangeStatus handles PATCH /users/:userId/events/:eventId/requests.
func (h *Handler) ChangeStatus(c *gin.Context) {
	userID, eventID, ok := ownerParams(c)
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.RequestIDs))
	for _, s := range req.RequestIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid request id: "+s)
			return
		}
		ids = append(ids, id)
	}

	result, err := h.svc.ChangeStatus(c.Request.Context(), userID, eventID, ids, models.RequestStatus(req.Status))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func ownerParams(c *gin.Context) (userID, eventID uuid.UUID, ok bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, uuid.Nil, false
	}
	eventID, err = uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, eventID, true
}

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/stats"
	"github.com/gatherly/backend/pkg/response"
)

// HitRecorder records page views of public endpoints, best-effort.
type HitRecorder interface {
	Hit(ctx context.Context, uri, ip string)
}

// LocationDTO is the lat/lon pair in event payloads.
type LocationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewEventRequest is the body for POST /users/:userId/events.
type NewEventRequest struct {
	Title             string       `json:"title" binding:"required,min=3,max=120"`
	Annotation        string       `json:"annotation" binding:"required,min=20,max=2000"`
	Description       string       `json:"description" binding:"required,min=20,max=7000"`
	Category          string       `json:"category" binding:"required,uuid"`
	EventDate         string       `json:"event_date" binding:"required"`
	Location          *LocationDTO `json:"location" binding:"required"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participant_limit" binding:"omitempty,gte=0"`
	RequestModeration *bool        `json:"request_moderation"`
}

// UpdateEventRequest is the merge-patch body for owner and admin updates.
// Absent fields stay untouched.
type UpdateEventRequest struct {
	Title             *string      `json:"title" binding:"omitempty,min=3,max=120"`
	Annotation        *string      `json:"annotation" binding:"omitempty,min=20,max=2000"`
	Description       *string      `json:"description" binding:"omitempty,min=20,max=7000"`
	Category          *string      `json:"category" binding:"omitempty,uuid"`
	EventDate         *string      `json:"event_date"`
	Location          *LocationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participant_limit" binding:"omitempty,gte=0"`
	RequestModeration *bool        `json:"request_moderation"`
	StateAction       string       `json:"state_action" binding:"omitempty,oneof=SEND_TO_REVIEW CANCEL_REVIEW PUBLISH_EVENT REJECT_EVENT"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	hits   HitRecorder
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, hits HitRecorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, hits: hits, logger: logger}
}

// PublicList handles GET /events. Records a hit for the listing path.
func (h *Handler) PublicList(c *gin.Context) {
	h.hits.Hit(c.Request.Context(), "/events", stats.ResolveIP(c.Request))

	q := PublicQuery{Text: c.Query("text")}
	var err error
	if q.CategoryIDs, err = parseUUIDList(c.QueryArray("categories")); err != nil {
		response.BadRequest(c, "invalid categories")
		return
	}
	if q.Paid, err = parseBoolPtr(c.Query("paid")); err != nil {
		response.BadRequest(c, "invalid paid")
		return
	}
	if q.RangeStart, err = parseTimePtr(c.Query("rangeStart")); err != nil {
		response.BadRequest(c, "invalid rangeStart")
		return
	}
	if q.RangeEnd, err = parseTimePtr(c.Query("rangeEnd")); err != nil {
		response.BadRequest(c, "invalid rangeEnd")
		return
	}
	q.OnlyAvailable = c.Query("onlyAvailable") == "true"
	q.Sort = c.DefaultQuery("sort", SortEventDate)
	if q.Sort != SortEventDate && q.Sort != SortViews {
		response.BadRequest(c, "invalid sort: "+q.Sort)
		return
	}
	if q.From, q.Size, err = parsePage(c); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	list, err := h.svc.PublicSearch(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// PublicGet handles GET /events/:eventId. Records a hit for the event path.
func (h *Handler) PublicGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	h.hits.Hit(c.Request.Context(), EventURI(id), stats.ResolveIP(c.Request))

	full, err := h.svc.PublicGet(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, full)
}

// Create handles POST /users/:userId/events.
func (h *Handler) Create(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req NewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	catID, err := uuid.Parse(req.Category)
	if err != nil {
		response.BadRequest(c, "invalid category")
		return
	}
	eventDate, err := time.Parse(DateTimeLayout, req.EventDate)
	if err != nil {
		response.BadRequest(c, "invalid event_date")
		return
	}

	in := NewEventInput{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		CategoryID:        catID,
		EventDate:         eventDate,
		Location:          models.Location{Lat: req.Location.Lat, Lon: req.Location.Lon},
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: req.RequestModeration,
	}
	full, err := h.svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, full)
}

// ListOwn handles GET /users/:userId/events.
func (h *Handler) ListOwn(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	from, size, err := parsePage(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	list, err := h.svc.ListByOwner(c.Request.Context(), userID, from, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// GetOwn handles GET /users/:userId/events/:eventId.
func (h *Handler) GetOwn(c *gin.Context) {
	userID, eventID, ok := h.ownerParams(c)
	if !ok {
		return
	}
	full, err := h.svc.GetByOwner(c.Request.Context(), userID, eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, full)
}

// UpdateOwn handles PATCH /users/:userId/events/:eventId.
func (h *Handler) UpdateOwn(c *gin.Context) {
	userID, eventID, ok := h.ownerParams(c)
	if !ok {
		return
	}
	in, ok := h.bindUpdate(c, ActionSendToReview, ActionCancelReview)
	if !ok {
		return
	}
	full, err := h.svc.UpdateByOwner(c.Request.Context(), userID, eventID, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, full)
}

// AdminSearch handles GET /admin/events.
func (h *Handler) AdminSearch(c *gin.Context) {
	var q AdminQuery
	var err error
	if q.InitiatorIDs, err = parseUUIDList(c.QueryArray("users")); err != nil {
		response.BadRequest(c, "invalid users")
		return
	}
	if q.States, err = parseStates(c.QueryArray("states")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if q.CategoryIDs, err = parseUUIDList(c.QueryArray("categories")); err != nil {
		response.BadRequest(c, "invalid categories")
		return
	}
	if q.RangeStart, err = parseTimePtr(c.Query("rangeStart")); err != nil {
		response.BadRequest(c, "invalid rangeStart")
		return
	}
	if q.RangeEnd, err = parseTimePtr(c.Query("rangeEnd")); err != nil {
		response.BadRequest(c, "invalid rangeEnd")
		return
	}
	if q.From, q.Size, err = parsePage(c); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	list, err := h.svc.AdminSearch(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// AdminUpdate handles PATCH /admin/events/:eventId.
func (h *Handler) AdminUpdate(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	in, ok := h.bindUpdate(c, ActionPublish, ActionReject)
	if !ok {
		return
	}
	full, err := h.svc.AdminUpdate(c.Request.Context(), eventID, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, full)
}

func (h *Handler) ownerParams(c *gin.Context) (userID, eventID uuid.UUID, ok bool) {
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

// bindUpdate parses the merge-patch body and restricts the state action to
// those the caller's authority allows.
func (h *Handler) bindUpdate(c *gin.Context, allowedActions ...string) (UpdateEventInput, bool) {
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return UpdateEventInput{}, false
	}

	in := UpdateEventInput{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: req.RequestModeration,
		StateAction:       req.StateAction,
	}
	if req.StateAction != "" {
		allowed := false
		for _, a := range allowedActions {
			if req.StateAction == a {
				allowed = true
				break
			}
		}
		if !allowed {
			response.BadRequest(c, "invalid state_action: "+req.StateAction)
			return UpdateEventInput{}, false
		}
	}
	if req.Category != nil {
		catID, err := uuid.Parse(*req.Category)
		if err != nil {
			response.BadRequest(c, "invalid category")
			return UpdateEventInput{}, false
		}
		in.CategoryID = &catID
	}
	if req.EventDate != nil {
		t, err := time.Parse(DateTimeLayout, *req.EventDate)
		if err != nil {
			response.BadRequest(c, "invalid event_date")
			return UpdateEventInput{}, false
		}
		in.EventDate = &t
	}
	if req.Location != nil {
		in.Location = &models.Location{Lat: req.Location.Lat, Lon: req.Location.Lon}
	}
	return in, true
}

// parseUUIDList accepts repeated params and comma-separated values.
func parseUUIDList(raw []string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, chunk := range raw {
		for _, s := range strings.Split(chunk, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func parseStates(raw []string) ([]models.EventState, error) {
	var out []models.EventState
	for _, chunk := range raw {
		for _, s := range strings.Split(chunk, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			st, ok := models.ParseEventState(s)
			if !ok {
				return nil, fmt.Errorf("unknown state: %s", s)
			}
			out = append(out, st)
		}
	}
	return out, nil
}

func parseBoolPtr(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parsePage(c *gin.Context) (from, size int, err error) {
	from, err = strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		return 0, 0, errors.New("invalid from")
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		return 0, 0, errors.New("invalid size")
	}
	return from, size, nil
}

package compilations

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// EventEnricher renders the events of a compilation in stored order.
type EventEnricher interface {
	ShortsByIDs(ctx context.Context, ids []uuid.UUID) ([]events.EventShort, error)
}

// NewCompilationRequest is the body for POST /admin/compilations.
type NewCompilationRequest struct {
	Title  string   `json:"title" binding:"required,min=1,max=50"`
	Pinned bool     `json:"pinned"`
	Events []string `json:"events" binding:"omitempty,dive,uuid"`
}

// UpdateCompilationRequest is the merge-patch body for compilation updates.
type UpdateCompilationRequest struct {
	Title  *string   `json:"title" binding:"omitempty,min=1,max=50"`
	Pinned *bool     `json:"pinned"`
	Events *[]string `json:"events" binding:"omitempty,dive,uuid"`
}

// CompilationView is the external representation of a compilation.
type CompilationView struct {
	ID     uuid.UUID           `json:"id"`
	Title  string              `json:"title"`
	Pinned bool                `json:"pinned"`
	Events []events.EventShort `json:"events"`
}

// Handler handles compilation endpoints.
type Handler struct {
	repo     *Repository
	enricher EventEnricher
	logger   *zap.Logger
}

// NewHandler creates a compilation handler.
func NewHandler(repo *Repository, enricher EventEnricher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, enricher: enricher, logger: logger}
}

// Create handles POST /admin/compilations.
func (h *Handler) Create(c *gin.Context) {
	var req NewCompilationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventIDs, err := parseIDs(req.Events)
	if err != nil {
		response.BadRequest(c, "invalid events")
		return
	}

	comp := models.Compilation{Title: req.Title, Pinned: req.Pinned, EventIDs: eventIDs}
	if err := h.repo.Create(c.Request.Context(), &comp); err != nil {
		response.FromError(c, err)
		return
	}
	view, err := h.view(c.Request.Context(), &comp)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, view)
}

// Update handles PATCH /admin/compilations/:compId.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("compId"))
	if err != nil {
		response.BadRequest(c, "invalid compilation id")
		return
	}
	var req UpdateCompilationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	comp, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if req.Title != nil {
		comp.Title = *req.Title
	}
	if req.Pinned != nil {
		comp.Pinned = *req.Pinned
	}
	if req.Events != nil {
		eventIDs, err := parseIDs(*req.Events)
		if err != nil {
			response.BadRequest(c, "invalid events")
			return
		}
		comp.EventIDs = eventIDs
	}

	if err := h.repo.Update(c.Request.Context(), comp); err != nil {
		response.FromError(c, err)
		return
	}
	view, err := h.view(c.Request.Context(), comp)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, view)
}

// Delete handles DELETE /admin/compilations/:compId.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("compId"))
	if err != nil {
		response.BadRequest(c, "invalid compilation id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// List handles GET /compilations?pinned&from&size.
func (h *Handler) List(c *gin.Context) {
	var pinned *bool
	if s := c.Query("pinned"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			response.BadRequest(c, "invalid pinned")
			return
		}
		pinned = &v
	}
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		response.BadRequest(c, "invalid from")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		response.BadRequest(c, "invalid size")
		return
	}

	comps, err := h.repo.List(c.Request.Context(), pinned, from, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	views := make([]CompilationView, 0, len(comps))
	for _, comp := range comps {
		v, err := h.view(c.Request.Context(), comp)
		if err != nil {
			response.FromError(c, err)
			return
		}
		views = append(views, *v)
	}
	response.OK(c, views)
}

// Get handles GET /compilations/:compId.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("compId"))
	if err != nil {
		response.BadRequest(c, "invalid compilation id")
		return
	}
	comp, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	view, err := h.view(c.Request.Context(), comp)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, view)
}

func (h *Handler) view(ctx context.Context, comp *models.Compilation) (*CompilationView, error) {
	shorts, err := h.enricher.ShortsByIDs(ctx, comp.EventIDs)
	if err != nil {
		return nil, err
	}
	return &CompilationView{
		ID:     comp.ID,
		Title:  comp.Title,
		Pinned: comp.Pinned,
		Events: shorts,
	}, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

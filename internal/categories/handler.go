package categories

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// CategoryRequest is the body for category create and update.
type CategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

// Handler handles category endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a category handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /admin/categories.
func (h *Handler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	cat := models.Category{Name: req.Name}
	if err := h.repo.Create(c.Request.Context(), &cat); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, cat)
}

// Update handles PATCH /admin/categories/:catId.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("catId"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	cat := models.Category{ID: id, Name: req.Name}
	if err := h.repo.Update(c.Request.Context(), &cat); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, cat)
}

// Delete handles DELETE /admin/categories/:catId.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("catId"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// List handles GET /categories.
func (h *Handler) List(c *gin.Context) {
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

	list, err := h.repo.List(c.Request.Context(), from, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /categories/:catId.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("catId"))
	if err != nil {
		response.BadRequest(c, "invalid category id")
		return
	}
	cat, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, cat)
}

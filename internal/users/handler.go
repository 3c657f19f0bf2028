package users

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// NewUserRequest is the body for POST /admin/users.
type NewUserRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=250"`
	Email string `json:"email" binding:"required,email,min=6,max=254"`
}

// Handler handles admin user endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a user handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /admin/users.
func (h *Handler) Create(c *gin.Context) {
	var req NewUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	u := models.User{Name: req.Name, Email: req.Email}
	if err := h.repo.Create(c.Request.Context(), &u); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, u)
}

// List handles GET /admin/users?ids&from&size.
func (h *Handler) List(c *gin.Context) {
	var ids []uuid.UUID
	for _, chunk := range c.QueryArray("ids") {
		for _, s := range strings.Split(chunk, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := uuid.Parse(s)
			if err != nil {
				response.BadRequest(c, "invalid ids")
				return
			}
			ids = append(ids, id)
		}
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

	list, err := h.repo.List(c.Request.Context(), ids, from, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /admin/users/:userId.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

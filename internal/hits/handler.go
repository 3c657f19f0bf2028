package hits

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// DateTimeLayout is the timestamp format of the collector API.
const DateTimeLayout = "2006-01-02 15:04:05"

// HitRequest is the body for POST /hit.
type HitRequest struct {
	App       string `json:"app" binding:"required"`
	URI       string `json:"uri" binding:"required"`
	IP        string `json:"ip" binding:"required"`
	Timestamp string `json:"timestamp" binding:"required"`
}

// HitStore is the persistence surface the handler needs.
type HitStore interface {
	Insert(ctx context.Context, app, uri, ip string, ts time.Time) error
	Stats(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]models.ViewStats, error)
}

// Handler handles hit collection and view statistics endpoints.
type Handler struct {
	store  HitStore
	logger *zap.Logger
}

// NewHandler creates a collector handler.
func NewHandler(store HitStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Record handles POST /hit.
func (h *Handler) Record(c *gin.Context) {
	var req HitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ts, err := time.Parse(DateTimeLayout, req.Timestamp)
	if err != nil {
		response.BadRequest(c, "invalid timestamp")
		return
	}

	if err := h.store.Insert(c.Request.Context(), req.App, req.URI, req.IP, ts); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, req)
}

// Stats handles GET /stats?start&end&uris&unique.
func (h *Handler) Stats(c *gin.Context) {
	start, err := time.Parse(DateTimeLayout, c.Query("start"))
	if err != nil {
		response.BadRequest(c, "invalid or missing start")
		return
	}
	end, err := time.Parse(DateTimeLayout, c.Query("end"))
	if err != nil {
		response.BadRequest(c, "invalid or missing end")
		return
	}
	if start.After(end) {
		response.BadRequest(c, "start must not be after end")
		return
	}

	var uris []string
	for _, chunk := range c.QueryArray("uris") {
		for _, u := range strings.Split(chunk, ",") {
			if u = strings.TrimSpace(u); u != "" {
				uris = append(uris, u)
			}
		}
	}
	unique := c.Query("unique") == "true"

	stats, err := h.store.Stats(c.Request.Context(), start, end, uris, unique)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, stats)
}

package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediapull/internal/domain"
	"mediapull/internal/metrics"
	"mediapull/internal/progress"
	"mediapull/internal/repository"
)

// Handler exposes the read-only status API served while a pull runs: live
// transfer progress, recent batch history and prometheus metrics. There are
// no mutation endpoints; downloads are driven by the CLI, never over HTTP.
type Handler struct {
	registry *progress.Registry
	history  repository.BatchRepository
	metrics  *metrics.Collector
}

func NewHandler(registry *progress.Registry, history repository.BatchRepository, collector *metrics.Collector) *Handler {
	return &Handler{
		registry: registry,
		history:  history,
		metrics:  collector,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/progress", h.listProgress)
		api.GET("/batches", h.listBatches)
		api.GET("/batches/:id/downloads", h.listDownloads)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Gatherer(), promhttp.HandlerOpts{})))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) listProgress(c *gin.Context) {
	entries := h.registry.Snapshot()
	resp := make([]ProgressResponse, len(entries))
	for i := range entries {
		resp[i] = progressToResponse(entries[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listBatches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	batches, err := h.history.ListBatches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]BatchResponse, len(batches))
	for i := range batches {
		resp[i] = batchToResponse(batches[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listDownloads(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	downloads, err := h.history.ListDownloads(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]DownloadResponse, len(downloads))
	for i := range downloads {
		resp[i] = downloadToResponse(downloads[i])
	}
	c.JSON(http.StatusOK, resp)
}

type ProgressResponse struct {
	TaskID   string   `json:"task_id"`
	Filename string   `json:"filename"`
	Bytes    int64    `json:"bytes"`
	Total    int64    `json:"total"`
	Percent  *float64 `json:"percent,omitempty"`
	Status   string   `json:"status"`
}

type BatchResponse struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	ElapsedMS int64     `json:"elapsed_ms"`
	StartedAt time.Time `json:"started_at"`
}

type DownloadResponse struct {
	ID             int64  `json:"id"`
	TaskID         string `json:"task_id"`
	Version        string `json:"version"`
	Component      string `json:"component"`
	Representation string `json:"representation"`
	Filename       string `json:"filename"`
	Success        bool   `json:"success"`
	Size           int64  `json:"size"`
	Path           string `json:"path"`
	Reason         string `json:"reason,omitempty"`
}

func progressToResponse(p domain.TransferProgress) ProgressResponse {
	resp := ProgressResponse{
		TaskID:   p.TaskID.String(),
		Filename: p.Filename,
		Bytes:    p.Bytes,
		Total:    p.Total,
		Status:   string(p.Status),
	}
	// percent stays absent while the total size is unknown
	if percent, ok := p.Percent(); ok {
		resp.Percent = &percent
	}
	return resp
}

func batchToResponse(b domain.BatchRecord) BatchResponse {
	return BatchResponse{
		ID:        b.ID,
		Label:     b.Label,
		Attempted: b.Attempted,
		Succeeded: b.Succeeded,
		Failed:    b.Failed,
		ElapsedMS: b.Elapsed.Milliseconds(),
		StartedAt: b.StartedAt,
	}
}

func downloadToResponse(d domain.DownloadRecord) DownloadResponse {
	return DownloadResponse{
		ID:             d.ID,
		TaskID:         d.TaskID,
		Version:        d.Version,
		Component:      d.Component,
		Representation: d.Representation,
		Filename:       d.Filename,
		Success:        d.Success,
		Size:           d.Size,
		Path:           d.Path,
		Reason:         d.Reason,
	}
}

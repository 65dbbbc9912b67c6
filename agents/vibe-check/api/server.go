package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	vibecheck "vibecheck/agents/vibe-check"
	"vibecheck/shared/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// VideoAnalyzer is the pipeline behind POST /api/videos/analyze.
// *vibecheck.Orchestrator implements it.
type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, rawURL string, opts vibecheck.Options) (*vibecheck.AnalyzeResponse, error)
}

type AnalyzeRequest struct {
	URL     string `json:"url" binding:"required,max=2048"`
	Refresh bool   `json:"refresh"`
}

type Handler struct {
	analyzer VideoAnalyzer
}

func NewHandler(analyzer VideoAnalyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

// NewRouter builds the HTTP API: the analyze endpoint plus /health and
// /status backed by monitor.
func NewRouter(analyzer VideoAnalyzer, monitor *monitoring.Monitor) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog())

	monitoring.NewHealthServer(monitor).Register(r)

	h := NewHandler(analyzer)
	videos := r.Group("/api/videos")
	videos.POST("/analyze", h.Analyze)

	return r
}

func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			err = fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		Error(c, err)
		return
	}

	resp, err := h.analyzer.AnalyzeVideo(c.Request.Context(), req.URL, vibecheck.Options{Refresh: req.Refresh})
	if err != nil {
		Error(c, err)
		return
	}

	slog.Debug("analysis served", "video_id", resp.Video.ID, "cached", resp.Cached, "request_id", c.GetString(RequestIDKey))
	c.JSON(http.StatusOK, resp)
}

// Package api exposes the moderation service over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/modfox/moderation-pipeline/moderator"
)

type moderateRequest struct {
	Text string `json:"text"`
}

type moderateResponse struct {
	Flagged bool               `json:"flagged"`
	Score   float64            `json:"score"`
	Labels  map[string]float64 `json:"labels"`
	Cached  bool               `json:"cached"`
}

// NewRouter builds the gin engine serving /health, /moderate and /metrics.
func NewRouter(svc *moderator.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/moderate", func(c *gin.Context) {
		handleModerate(c, svc, c.Query("text"))
	})

	router.POST("/moderate", func(c *gin.Context) {
		var req moderateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		handleModerate(c, svc, req.Text)
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Metrics())
	})

	return router
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func handleModerate(c *gin.Context, svc *moderator.Service, text string) {
	start := time.Now()

	res, err := svc.Moderate(c.Request.Context(), text)
	latencyMS := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		if errors.Is(err, moderator.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		slog.Error("moderation failed",
			"request_id", c.GetString("request_id"),
			"route", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "classification failed"})
		return
	}

	// One line per request; text length only, never the text itself.
	slog.Info("moderation request",
		"request_id", c.GetString("request_id"),
		"route", c.FullPath(),
		"method", c.Request.Method,
		"cached", res.Cached,
		"flagged", res.Flagged,
		"latency_ms", latencyMS,
		"text_len", len(text),
	)

	c.JSON(http.StatusOK, moderateResponse{
		Flagged: res.Flagged,
		Score:   res.Score,
		Labels:  res.Labels.Map(),
		Cached:  res.Cached,
	})
}

// Package api exposes the turn orchestrator over HTTP for chat channels.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/tableside/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// Turner handles one dialog turn.
type Turner interface {
	Turn(ctx context.Context, req orchestrator.Request) orchestrator.Response
}

// Options configures the router.
type Options struct {
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

type handler struct {
	turner Turner
	logger *slog.Logger
}

// NewRouter builds the HTTP routes:
//
//	POST /v1/turns   one dialog turn
//	GET  /healthz    liveness
//	GET  /metrics    Prometheus exposition, when enabled
func NewRouter(turner Turner, opts Options, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	h := &handler{turner: turner, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", h.health)

	v1 := router.Group("/v1")
	{
		v1.POST("/turns", h.turn)
	}

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.Metrics))
	}

	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) turn(c *gin.Context) {
	var req orchestrator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON turn: " + err.Error()})
		return
	}

	// Turn never fails; problems come back as a reply the guest can act on.
	resp := h.turner.Turn(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

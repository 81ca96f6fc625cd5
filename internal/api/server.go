// Package api serves the agent's local diagnostics API. It binds to
// localhost by default and exists for operators and the on-site support
// tooling, not for the fleet backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/core/downloader"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	"github.com/kioskfleet/kiosk-fleet-go/pkg/utils"
)

const (
	defaultLogLines = 100
	maxLogLines     = 1000

	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Status is the agent snapshot returned by GET /api/status.
type Status struct {
	KioskID          string      `json:"kioskId"`
	PosID            string      `json:"posId"`
	KioskNo          int         `json:"kioskNo"`
	DownloadPath     string      `json:"downloadPath"`
	AutoSync         bool        `json:"autoSync"`
	SyncInterval     int         `json:"syncInterval"`
	LastSync         *time.Time  `json:"lastSync"`
	ChannelConnected bool        `json:"channelConnected"`
	Syncing          bool        `json:"syncing"`
	Telemetry        interface{} `json:"telemetry,omitempty"`
}

// Provider is what the API needs from the running agent.
type Provider interface {
	Status(ctx context.Context) (*Status, error)
	Videos(ctx context.Context) ([]fleetapi.VideoAssignment, error)
	TriggerSync() error
	LogTail(lines int) ([]string, error)
}

// Server is the local HTTP server.
type Server struct {
	http   *http.Server
	logger *logrus.Logger
}

// New builds the server with its routes registered.
func New(addr string, provider Provider, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.Default())

	h := &handlers{provider: provider, logger: logger}

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", h.status)
		apiGroup.GET("/videos", h.videos)
		apiGroup.POST("/sync", h.sync)
		apiGroup.GET("/logs", h.logs)
	}

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.WithField("addr", s.http.Addr).Info("local api listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("local api failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("local api request")
	}
}

type handlers struct {
	provider Provider
	logger   *logrus.Logger
}

func (h *handlers) health(c *gin.Context) {
	utils.SendSuccess(c, gin.H{"status": "ok"})
}

func (h *handlers) status(c *gin.Context) {
	st, err := h.provider.Status(c.Request.Context())
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.SendSuccess(c, st)
}

func (h *handlers) videos(c *gin.Context) {
	videos, err := h.provider.Videos(c.Request.Context())
	if err != nil {
		utils.SendError(c, http.StatusBadGateway, err.Error())
		return
	}
	utils.SendSuccess(c, videos)
}

func (h *handlers) sync(c *gin.Context) {
	if err := h.provider.TriggerSync(); err != nil {
		if errors.Is(err, downloader.ErrSyncInProgress) {
			utils.SendError(c, http.StatusConflict, err.Error())
			return
		}
		utils.SendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.SendSuccess(c, gin.H{"triggered": true})
}

func (h *handlers) logs(c *gin.Context) {
	lines := defaultLogLines
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.SendError(c, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		lines = n
	}
	if lines > maxLogLines {
		lines = maxLogLines
	}

	tail, err := h.provider.LogTail(lines)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.SendSuccess(c, gin.H{"lines": tail})
}

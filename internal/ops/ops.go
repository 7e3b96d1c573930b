// Package ops serves the health, readiness and metrics endpoints.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/servicebot/core/buildinfo"
	"github.com/m3rciful/servicebot/core/logger"
)

const (
	component    = "ops"
	probeTimeout = 5 * time.Second
)

// Prober checks a dependency. Probe returns nil when it is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Server exposes /healthz, /readyz and /metrics.
type Server struct {
	engine *gin.Engine
	probe  Prober
	gather prometheus.Gatherer
	srv    *http.Server
}

// NewServer builds the gin engine. probe and gather may be nil: /readyz then
// always answers ok and /metrics is not mounted.
func NewServer(probe Prober, gather prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())
	s := &Server{engine: r, probe: probe, gather: gather}
	s.registerRoutes()
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/readyz", s.readyz)
	if s.gather != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{})))
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version, "commit": buildinfo.Commit})
}

func (s *Server) readyz(c *gin.Context) {
	if s.probe == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()
	if err := s.probe.Probe(ctx); err != nil {
		logger.Warn(ctx, component, "ops.readyz",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start listens on addr in the background. An empty addr disables the
// server.
func (s *Server) Start(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	s.srv = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info(ctx, component, "ops.listen", slog.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, component, "ops.listen",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), component, "ops.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("code", c.Writer.Status()),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
	}
}

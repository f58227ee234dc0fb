// Package opsserver serves liveness, readiness and Prometheus metrics.
package opsserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/obslog"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

type Server struct {
	addr   string
	checks map[string]Check
	engine *gin.Engine
	logger *zap.Logger
}

// New builds the router. checks are run by /readyz; a failing one makes the
// endpoint answer 503.
func New(addr string, checks map[string]Check) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{addr: addr, checks: checks, engine: gin.New(), logger: obslog.Named("ops")}
	s.engine.Use(gin.Recovery(), requestLog(s.logger), Metrics())
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.engine.GET("/readyz", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	status := http.StatusOK
	result := gin.H{}
	for _, n := range names {
		if err := s.checks[n](ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[n] = err.Error()
			continue
		}
		result[n] = "ok"
	}
	c.JSON(status, result)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("ops_listen", zap.String("addr", s.addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}

func requestLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" {
			return
		}
		logger.Debug("ops_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

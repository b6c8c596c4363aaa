// Package api exposes the risk engine over HTTP: portfolio composition,
// on-demand analysis and risk queries, Prometheus metrics and a websocket
// stream of completed reports.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/empirical-ra/riskengine/config"
	"github.com/empirical-ra/riskengine/internal/engine"
	"github.com/empirical-ra/riskengine/internal/portfolio"
	"github.com/empirical-ra/riskengine/internal/stream"
	"github.com/empirical-ra/riskengine/pkg/metrics"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Server serves the HTTP API over one portfolio and engine
type Server struct {
	cfg       config.ServerConfig
	portfolio *portfolio.Portfolio
	engine    *engine.Engine
	hub       *stream.Hub
	recorder  *metrics.Recorder
	router    *gin.Engine
	http      *http.Server
	log       *logger.Logger
}

// NewServer wires routes and middleware. hub must already be running.
func NewServer(cfg config.ServerConfig, p *portfolio.Portfolio, eng *engine.Engine, hub *stream.Hub, recorder *metrics.Recorder) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:       cfg,
		portfolio: p,
		engine:    eng,
		hub:       hub,
		recorder:  recorder,
		router:    gin.New(),
		log:       logger.GetLogger("api.server"),
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(RecoveryMiddleware())
	s.router.Use(LoggingMiddleware())
	if s.recorder != nil {
		s.router.Use(MetricsMiddleware(s.recorder))
	}
	if s.cfg.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateBurst))
	}

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/api/v1")
	v1.GET("/portfolio", s.handlePortfolio)
	v1.GET("/analysis", s.handleAnalysis)
	v1.GET("/performance", s.handlePerformance)

	riskGroup := v1.Group("/risk")
	riskGroup.GET("/var", s.handleVaR)
	riskGroup.GET("/cvar", s.handleCVaR)
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.log.Infof("HTTP API listening on %s", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s.log.Info("HTTP API shutting down")
	return s.http.Shutdown(ctx)
}

// Router exposes the handler tree, primarily for tests
func (s *Server) Router() http.Handler {
	return s.router
}

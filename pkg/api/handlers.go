package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/empirical-ra/riskengine/internal/risk"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePortfolio returns the current portfolio composition
func (s *Server) handlePortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"assets":  s.portfolio.Assets(),
		"weights": s.portfolio.GetWeights(),
		"valid":   s.portfolio.ValidateComposition(),
	})
}

// handleAnalysis serves the most recent full report, running a fresh
// analysis when none exists or ?refresh=true is passed
func (s *Server) handleAnalysis(c *gin.Context) {
	refresh := c.Query("refresh") == "true"
	if !refresh {
		if report := s.hub.Latest(); report != nil {
			c.JSON(http.StatusOK, report)
			return
		}
	}

	report, err := s.engine.Run(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	if err := s.hub.Publish(report); err != nil {
		s.log.Warnw("report broadcast failed", "error", err)
	}
	c.JSON(http.StatusOK, report)
}

// handleVaR serves one method's VaR at an ad-hoc confidence and horizon set
func (s *Server) handleVaR(c *gin.Context) {
	stats, ok := s.riskQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"method":     stats.Method,
		"confidence": stats.Confidence,
		"var":        stats.VaR,
		"horizons":   stats.Horizons,
		"breaches":   len(stats.Breaches),
	})
}

// handleCVaR serves the expected shortfall beyond the same method's VaR
func (s *Server) handleCVaR(c *gin.Context) {
	stats, ok := s.riskQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"method":     stats.Method,
		"confidence": stats.Confidence,
		"var":        stats.VaR,
		"cvar":       stats.CVaR,
	})
}

// handlePerformance serves just the performance section of a fresh report
func (s *Server) handlePerformance(c *gin.Context) {
	report := s.hub.Latest()
	if report == nil {
		var err error
		report, err = s.engine.Run(c.Request.Context())
		if err != nil {
			s.renderError(c, err)
			return
		}
		if err := s.hub.Publish(report); err != nil {
			s.log.Warnw("report broadcast failed", "error", err)
		}
	}
	if report.Performance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "performance section unavailable: " + report.Errors["performance"],
		})
		return
	}
	c.JSON(http.StatusOK, report.Performance)
}

// riskQuery parses method/confidence/horizon parameters and evaluates them.
// Writes the error response itself when parsing or evaluation fails.
func (s *Server) riskQuery(c *gin.Context) (*models.RiskStats, bool) {
	method := risk.Method(c.DefaultQuery("method", string(risk.MethodHistorical)))
	switch method {
	case risk.MethodHistorical, risk.MethodParametric, risk.MethodMonteCarlo:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown method " + string(method)})
		return nil, false
	}

	confidence := risk.DefaultConfidence
	if raw := c.Query("confidence"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confidence must be a number"})
			return nil, false
		}
		confidence = parsed
	}

	var horizons []int
	if raw := c.Query("horizon"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil || h < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive integer"})
			return nil, false
		}
		horizons = []int{h}
	}

	stats, err := s.engine.RiskFor(c.Request.Context(), method, confidence, horizons)
	if err != nil {
		s.renderError(c, err)
		return nil, false
	}
	return stats, true
}

// renderError maps the error taxonomy onto HTTP status codes
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidConfidence,
		errors.ErrorTypeInvalidWeights,
		errors.ErrorTypeUnsupportedFrequency:
		status = http.StatusBadRequest
	case errors.ErrorTypeEmptyPortfolio,
		errors.ErrorTypeNoPriceData,
		errors.ErrorTypeInsufficientData,
		errors.ErrorTypeBenchmarkRequired,
		errors.ErrorTypeWeightMismatch:
		status = http.StatusUnprocessableEntity
	case errors.ErrorTypeNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

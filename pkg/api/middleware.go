package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/empirical-ra/riskengine/pkg/metrics"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
	"github.com/empirical-ra/riskengine/pkg/utils/ratelimit"
)

// LoggingMiddleware logs request information
func LoggingMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.middleware")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Infof("%s %s [%d] %v", method, path, c.Writer.Status(), time.Since(start))
	}
}

// MetricsMiddleware records request counts and latency per route
func MetricsMiddleware(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.APIRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// RecoveryMiddleware converts panics into 500 responses
func RecoveryMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.recovery")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic recovered: %v", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": fmt.Sprintf("internal server error: %v", r),
				})
			}
		}()
		c.Next()
	}
}

// RateLimitMiddleware rejects requests beyond the configured rate with 429
func RateLimitMiddleware(rate float64, burst int) gin.HandlerFunc {
	log := logger.GetLogger("api.ratelimit")
	bucket := ratelimit.NewTokenBucket(rate, burst)

	return func(c *gin.Context) {
		if !bucket.Allow() {
			log.Warnf("rate limit exceeded for %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

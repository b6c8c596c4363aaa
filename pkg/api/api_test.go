package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empirical-ra/riskengine/config"
	"github.com/empirical-ra/riskengine/internal/engine"
	"github.com/empirical-ra/riskengine/internal/portfolio"
	"github.com/empirical-ra/riskengine/internal/risk"
	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/internal/stream"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	n := 260
	times := make([]time.Time, 0, n)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for len(times) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			times = append(times, day)
		}
		day = day.AddDate(0, 0, 1)
	}

	prices := func(drift, amp, phase float64) *series.Series {
		values := make([]float64, n)
		level := 100.0
		for i := range values {
			level *= 1 + drift + amp*math.Sin(float64(i)*0.9+phase)
			values[i] = level
		}
		s, err := series.New(times, values)
		require.NoError(t, err)
		return s
	}

	p := portfolio.New()
	p.AddAsset(portfolio.NewAsset("ALFA", "ALFA", prices(0.0004, 0.01, 0)), 0.6)
	p.AddAsset(portfolio.NewAsset("BETA", "BETA", prices(0.0002, 0.02, 1.3)), 0.4)

	eng := engine.New(p, engine.Config{
		Frequency: series.Daily,
		Methods:   []risk.Method{risk.MethodHistorical, risk.MethodParametric},
	}, nil)

	hub := stream.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return NewServer(config.ServerConfig{Addr: ":0"}, p, eng, hub, nil)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := get(t, testServer(t), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPortfolioEndpoint(t *testing.T) {
	w := get(t, testServer(t), "/api/v1/portfolio")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Assets  []string           `json:"assets"`
		Weights map[string]float64 `json:"weights"`
		Valid   bool               `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"ALFA", "BETA"}, body.Assets)
	assert.InDelta(t, 0.6, body.Weights["ALFA"], 1e-12)
	assert.True(t, body.Valid)
}

func TestAnalysisEndpoint(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "/api/v1/analysis")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Confidence float64                    `json:"confidence"`
		Risk       map[string]json.RawMessage `json:"risk"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0.95, body.Confidence)
	assert.Contains(t, body.Risk, "historical")
	assert.Contains(t, body.Risk, "parametric")
}

func TestVaREndpoint(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "/api/v1/risk/var?method=parametric&confidence=0.99&horizon=5")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Method     string                        `json:"method"`
		Confidence float64                       `json:"confidence"`
		VaR        map[string]float64            `json:"var"`
		Horizons   map[string]map[string]float64 `json:"horizons"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "parametric", body.Method)
	assert.Equal(t, 0.99, body.Confidence)
	assert.Greater(t, body.VaR["portfolio"], 0.0)
	assert.InDelta(t, body.VaR["portfolio"]*math.Sqrt(5), body.Horizons["5"]["portfolio"], 1e-9)
}

func TestCVaREndpoint(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "/api/v1/risk/cvar?confidence=0.9")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		VaR  map[string]float64 `json:"var"`
		CVaR map[string]float64 `json:"cvar"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.GreaterOrEqual(t, body.CVaR["portfolio"]+1e-9, body.VaR["portfolio"])
}

func TestRiskEndpointValidation(t *testing.T) {
	s := testServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/risk/var?method=gaussian").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/risk/var?confidence=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/risk/var?horizon=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/risk/var?confidence=1.5").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(0.001, 2))
	router.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

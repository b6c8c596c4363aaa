package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empirical-ra/riskengine/internal/portfolio"
	"github.com/empirical-ra/riskengine/internal/risk"
	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
)

func tradingDays(start time.Time, n int) []time.Time {
	times := make([]time.Time, 0, n)
	t := start
	for len(times) < n {
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			times = append(times, t)
		}
		t = t.AddDate(0, 0, 1)
	}
	return times
}

func testPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	n := 260
	times := tradingDays(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), n)

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
	return p
}

func TestEngineRunAllSections(t *testing.T) {
	p := testPortfolio(t)
	eng := New(p, Config{
		Frequency:  series.Daily,
		Confidence: 0.95,
		Horizons:   []int{1, 5, 10},
		Methods:    []risk.Method{risk.MethodHistorical, risk.MethodParametric},
	}, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	require.NotNil(t, report.Returns)
	require.NotNil(t, report.Volatility)
	require.NotNil(t, report.Correlation)
	require.NotNil(t, report.Performance)
	require.Len(t, report.Risk, 2)

	for method, stats := range report.Risk {
		assert.Equal(t, method, stats.Method)
		assert.Greater(t, stats.VaR[models.PortfolioKey], 0.0, method)
		assert.GreaterOrEqual(t, stats.CVaR[models.PortfolioKey]+1e-9, stats.VaR[models.PortfolioKey], method)
		require.Len(t, stats.Horizons, 3)
		assert.InDelta(t,
			stats.VaR[models.PortfolioKey]*math.Sqrt(5),
			stats.Horizons[5][models.PortfolioKey], 1e-12)
	}
	assert.Contains(t, report.Risk["historical"].VaR, "ALFA")
	assert.Contains(t, report.Risk["historical"].VaR, "BETA")
}

func TestEngineMonteCarloUsesCovariance(t *testing.T) {
	p := testPortfolio(t)
	eng := New(p, Config{
		Frequency:   series.Daily,
		Confidence:  0.95,
		Methods:     []risk.Method{risk.MethodMonteCarlo},
		Simulations: 50_000,
	}, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	stats := report.Risk["monte_carlo"]
	require.NotNil(t, stats)
	assert.Greater(t, stats.VaR[models.PortfolioKey], 0.0)
}

func TestEngineSectionFailureIsolated(t *testing.T) {
	p := testPortfolio(t)
	eng := New(p, Config{
		Frequency: series.Daily,
		Methods:   []risk.Method{risk.MethodHistorical, risk.Method("bogus")},
	}, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, report.Returns)
	assert.NotNil(t, report.Risk["historical"])
	assert.NotContains(t, report.Risk, "bogus")
	assert.Contains(t, report.Errors, "risk.bogus")
}

func TestEngineBenchmarkSection(t *testing.T) {
	p := testPortfolio(t)
	returns, err := p.Returns(series.Daily)
	require.NoError(t, err)

	eng := New(p, Config{
		Frequency:       series.Daily,
		Methods:         []risk.Method{risk.MethodHistorical},
		Benchmark:       returns,
		BenchmarkTicker: "BENCH",
	}, nil)

	report, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Errors)

	require.NotNil(t, report.Benchmark)
	assert.Equal(t, "BENCH", report.Benchmark.Ticker)
	require.NotNil(t, report.Performance.Beta)
	assert.InDelta(t, 1.0, report.Performance.Beta[models.PortfolioKey], 1e-9)
}

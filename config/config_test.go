package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 0.95, cfg.Analysis.ConfidenceLevel)
	assert.Equal(t, 10000, cfg.Analysis.MonteCarloSimulations)
	assert.Equal(t, []int{1, 5, 10, 21}, cfg.Analysis.TimeHorizons)
	assert.Equal(t, "daily", cfg.Analysis.Frequency)
	assert.Empty(t, cfg.Kafka.Brokers)

	start, err := cfg.StartDate()
	require.NoError(t, err)
	end, err := cfg.EndDate()
	require.NoError(t, err)
	assert.True(t, start.Before(end))
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RISK_ANALYSIS_CONFIDENCE_LEVEL", "0.99")
	t.Setenv("RISK_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.99, cfg.Analysis.ConfidenceLevel)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
analysis:
  confidence_level: 0.9
  portfolio_assets:
    ALFA: 0.5
    BETA: 0.5
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Analysis.ConfidenceLevel)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.InDelta(t, 0.5, cfg.Analysis.PortfolioAssets["ALFA"], 1e-12)
	// Unset file keys keep their defaults.
	assert.Equal(t, 10000, cfg.Analysis.MonteCarloSimulations)
}

func TestLoadNormalizesTickerCase(t *testing.T) {
	// viper lowercases nested map keys; Load must hand back the uppercase
	// tickers the data and portfolio layers key by.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
analysis:
  benchmark_ticker: spy
  portfolio_assets:
    alfa: 0.6
    Beta: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Analysis.PortfolioAssets, 2)
	assert.InDelta(t, 0.6, cfg.Analysis.PortfolioAssets["ALFA"], 1e-12)
	assert.InDelta(t, 0.4, cfg.Analysis.PortfolioAssets["BETA"], 1e-12)
	assert.Equal(t, "SPY", cfg.Analysis.BenchmarkTicker)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Analysis.PortfolioAssets = map[string]float64{"ALFA": 0.7, "BETA": 0.7}
	assert.True(t, errors.Is(cfg.Validate(), errors.ErrInvalidWeights))

	cfg = base()
	cfg.Analysis.PortfolioAssets = map[string]float64{}
	assert.True(t, errors.Is(cfg.Validate(), errors.ErrInvalidWeights))

	cfg = base()
	cfg.Analysis.ConfidenceLevel = 1.2
	assert.True(t, errors.Is(cfg.Validate(), errors.ErrInvalidConfidence))

	cfg = base()
	cfg.Analysis.InitialValue = -100
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.StartDate = "not-a-date"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.TimeHorizons = []int{5, 0}
	assert.Error(t, cfg.Validate())
}

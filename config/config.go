// Package config loads engine configuration from YAML with environment
// overrides (RISK_ prefix, dots replaced by underscores).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

const dateLayout = "2006-01-02"

// Config is the root configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Data        DataConfig     `mapstructure:"data"`
	Server      ServerConfig   `mapstructure:"server"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Report      ReportConfig   `mapstructure:"report"`
}

// AnalysisConfig parameterizes one analysis run
type AnalysisConfig struct {
	StartDate             string             `mapstructure:"start_date"`
	EndDate               string             `mapstructure:"end_date"`
	PortfolioAssets       map[string]float64 `mapstructure:"portfolio_assets"`
	InitialValue          float64            `mapstructure:"initial_value"`
	BaseCurrency          string             `mapstructure:"base_currency"`
	Frequency             string             `mapstructure:"frequency"`
	RiskFreeRate          float64            `mapstructure:"risk_free_rate"`
	ConfidenceLevel       float64            `mapstructure:"confidence_level"`
	TimeHorizons          []int              `mapstructure:"time_horizons"`
	MonteCarloSimulations int                `mapstructure:"monte_carlo_simulations"`
	RollingWindow         int                `mapstructure:"rolling_window"`
	BenchmarkTicker       string             `mapstructure:"benchmark_ticker"`
	RerunInterval         time.Duration      `mapstructure:"rerun_interval"`
}

// DataConfig configures the price data layer
type DataConfig struct {
	CacheDir        string `mapstructure:"cache_dir"`
	MissingStrategy string `mapstructure:"missing_strategy"`
	GeneratorSeed   uint64 `mapstructure:"generator_seed"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

// KafkaConfig configures the report publisher. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ReportConfig configures export output
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Charts    bool   `mapstructure:"charts"`
}

// Load reads configuration from the given file (optional), the working
// directory and the environment, in ascending precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	// viper lowercases nested map keys, so tickers arriving through YAML or
	// defaults would no longer match the case used everywhere downstream.
	// Tickers are uppercase by convention; normalize here, once.
	cfg.Analysis.PortfolioAssets = uppercaseTickers(cfg.Analysis.PortfolioAssets)
	cfg.Analysis.BenchmarkTicker = strings.ToUpper(cfg.Analysis.BenchmarkTicker)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func uppercaseTickers(assets map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(assets))
	for ticker, weight := range assets {
		out[strings.ToUpper(ticker)] = weight
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("analysis.start_date", "2022-01-01")
	v.SetDefault("analysis.end_date", "2023-12-31")
	v.SetDefault("analysis.portfolio_assets", map[string]float64{
		"AAA": 0.4,
		"BBB": 0.35,
		"CCC": 0.25,
	})
	v.SetDefault("analysis.initial_value", 1_000_000.0)
	v.SetDefault("analysis.base_currency", "USD")
	v.SetDefault("analysis.frequency", "daily")
	v.SetDefault("analysis.risk_free_rate", 0.0)
	v.SetDefault("analysis.confidence_level", 0.95)
	v.SetDefault("analysis.time_horizons", []int{1, 5, 10, 21})
	v.SetDefault("analysis.monte_carlo_simulations", 10000)
	v.SetDefault("analysis.rolling_window", 21)
	v.SetDefault("analysis.rerun_interval", time.Duration(0))

	v.SetDefault("data.cache_dir", "data/cache")
	v.SetDefault("data.missing_strategy", "fail")
	v.SetDefault("data.generator_seed", 42)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "risk.reports")

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.charts", true)
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	a := c.Analysis
	if len(a.PortfolioAssets) == 0 {
		return errors.InvalidWeights("analysis.portfolio_assets must not be empty")
	}
	var total float64
	for ticker, w := range a.PortfolioAssets {
		if w < 0 {
			return errors.Wrapf(errors.ErrInvalidWeights, "weight for %s is negative", ticker)
		}
		total += w
	}
	if total < 1-1e-6 || total > 1+1e-6 {
		return errors.Wrapf(errors.ErrInvalidWeights, "portfolio weights must sum to 1.0, got %.8f", total)
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return errors.Wrapf(errors.ErrInvalidConfidence, "analysis.confidence_level must be in (0, 1), got %g", a.ConfidenceLevel)
	}
	if a.InitialValue <= 0 {
		return errors.Newf("analysis.initial_value must be positive, got %g", a.InitialValue)
	}
	if a.MonteCarloSimulations <= 0 {
		return errors.Newf("analysis.monte_carlo_simulations must be positive, got %d", a.MonteCarloSimulations)
	}
	for _, h := range a.TimeHorizons {
		if h < 1 {
			return errors.Newf("analysis.time_horizons entries must be at least 1, got %d", h)
		}
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if _, err := c.EndDate(); err != nil {
		return err
	}
	return nil
}

// StartDate parses analysis.start_date
func (c *Config) StartDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Analysis.StartDate)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "analysis.start_date")
	}
	return t, nil
}

// EndDate parses analysis.end_date
func (c *Config) EndDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, c.Analysis.EndDate)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "analysis.end_date")
	}
	return t, nil
}

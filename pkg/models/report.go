package models

import "time"

// PortfolioKey is the reserved metric key for whole-portfolio figures.
// Asset identifiers share the metric namespace with this sentinel, so asset
// names must not collide with it.
const PortfolioKey = "portfolio"

// MetricResult maps an asset identifier (or PortfolioKey) to a scalar metric
type MetricResult map[string]float64

// DistributionStats describes the shape of an empirical return distribution
type DistributionStats struct {
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	P05            float64 `json:"p05"`
	P50            float64 `json:"p50"`
	P95            float64 `json:"p95"`
}

// ReturnStats is the output of the return analyzer
type ReturnStats struct {
	Mean           MetricResult                 `json:"mean"`
	AnnualizedMean MetricResult                 `json:"annualized_mean"`
	Distribution   map[string]DistributionStats `json:"distribution"`
}

// VolatilityStats is the output of the volatility analyzer
type VolatilityStats struct {
	StdDev             MetricResult `json:"std_dev"`
	Variance           MetricResult `json:"variance"`
	AnnualizedVariance MetricResult `json:"annualized_variance"`
	DownsideDeviation  MetricResult `json:"downside_deviation"`
}

// Matrix is a labeled square matrix over asset identifiers
type Matrix struct {
	Assets []string    `json:"assets"`
	Values [][]float64 `json:"values"`
}

// At returns the entry for a pair of asset identifiers
func (m Matrix) At(a, b string) (float64, bool) {
	ai, bi := -1, -1
	for i, name := range m.Assets {
		if name == a {
			ai = i
		}
		if name == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return 0, false
	}
	return m.Values[ai][bi], true
}

// CorrelationStats is the output of the correlation analyzer
type CorrelationStats struct {
	Correlation Matrix `json:"correlation"`
	Covariance  Matrix `json:"covariance"`
}

// PerformanceStats is the output of the performance analyzer. Benchmark-
// dependent metrics are nil when no benchmark was supplied.
type PerformanceStats struct {
	Sharpe           MetricResult `json:"sharpe"`
	Sortino          MetricResult `json:"sortino"`
	MaxDrawdown      MetricResult `json:"max_drawdown"`
	Beta             MetricResult `json:"beta,omitempty"`
	Alpha            MetricResult `json:"alpha,omitempty"`
	Treynor          MetricResult `json:"treynor,omitempty"`
	InformationRatio MetricResult `json:"information_ratio,omitempty"`
}

// RiskStats holds VaR and CVaR figures for one calculation method
type RiskStats struct {
	Method     string               `json:"method"`
	Confidence float64              `json:"confidence"`
	VaR        MetricResult         `json:"var"`
	CVaR       MetricResult         `json:"cvar"`
	Horizons   map[int]MetricResult `json:"horizons,omitempty"`
	Breaches   []time.Time          `json:"breaches,omitempty"`
}

// BenchmarkStats summarizes the benchmark return series
type BenchmarkStats struct {
	Ticker     string  `json:"ticker"`
	Mean       float64 `json:"mean"`
	Volatility float64 `json:"volatility"`
}

// AnalysisReport aggregates every analyzer's output for one run. Sections are
// nil when the corresponding analyzer failed; Errors records why, keyed by
// section name, so one failing analyzer never hides the rest.
type AnalysisReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Frequency   string                `json:"frequency"`
	Confidence  float64               `json:"confidence"`
	Returns     *ReturnStats          `json:"returns,omitempty"`
	Volatility  *VolatilityStats      `json:"volatility,omitempty"`
	Correlation *CorrelationStats     `json:"correlation,omitempty"`
	Performance *PerformanceStats     `json:"performance,omitempty"`
	Risk        map[string]*RiskStats `json:"risk,omitempty"`
	Benchmark   *BenchmarkStats       `json:"benchmark,omitempty"`
	Errors      map[string]string     `json:"errors,omitempty"`
}

package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// PerformanceAnalyzer derives risk-adjusted performance metrics from asset
// and portfolio return series, with an optional benchmark. No annualization
// is baked into the ratios; the caller decides the periodicity of the inputs.
type PerformanceAnalyzer struct {
	riskFree  float64
	benchmark *series.Series
	log       *logger.Logger
}

// NewPerformanceAnalyzer creates a performance analyzer. benchmark may be nil,
// in which case benchmark-dependent metrics fail with BenchmarkRequired.
func NewPerformanceAnalyzer(riskFree float64, benchmark *series.Series) *PerformanceAnalyzer {
	return &PerformanceAnalyzer{
		riskFree:  riskFree,
		benchmark: benchmark,
		log:       logger.GetLogger("analysis.performance"),
	}
}

// Calculate produces every performance metric the inputs allow. Benchmark-
// dependent metrics are left nil when no benchmark is configured; that is a
// degraded result, not a failure, so the remaining metrics still compute.
func (a *PerformanceAnalyzer) Calculate(frame *series.Frame) (*models.PerformanceStats, error) {
	stats := &models.PerformanceStats{
		Sharpe:      a.SharpeRatio(frame),
		Sortino:     a.SortinoRatio(frame, 0),
		MaxDrawdown: a.MaxDrawdown(frame),
	}

	beta, err := a.Beta(frame)
	if err != nil {
		if errors.Is(err, errors.ErrBenchmarkRequired) {
			a.log.Debug("no benchmark configured, skipping beta, alpha, treynor and information ratio")
			return stats, nil
		}
		return nil, err
	}
	stats.Beta = beta

	if stats.Alpha, err = a.Alpha(frame); err != nil {
		return nil, err
	}
	if stats.Treynor, err = a.TreynorRatio(frame); err != nil {
		return nil, err
	}
	if stats.InformationRatio, err = a.InformationRatio(frame); err != nil {
		return nil, err
	}
	return stats, nil
}

// SharpeRatio returns mean excess return over the standard deviation of
// excess return, per column
func (a *PerformanceAnalyzer) SharpeRatio(frame *series.Frame) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		excess := make([]float64, len(col))
		for i, r := range col {
			excess[i] = r - a.riskFree
		}
		out[name] = stat.Mean(excess, nil) / stat.StdDev(excess, nil)
	}
	return out
}

// SortinoRatio returns mean excess return over the downside deviation below
// the target, per column
func (a *PerformanceAnalyzer) SortinoRatio(frame *series.Frame, target float64) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		downside := downsideDeviation(col, target)
		out[name] = (stat.Mean(col, nil) - a.riskFree) / downside
	}
	return out
}

// Beta returns covariance(column, benchmark) over variance(benchmark) per
// column, computed on the dates common to both series
func (a *PerformanceAnalyzer) Beta(frame *series.Frame) (models.MetricResult, error) {
	if a.benchmark == nil || a.benchmark.Len() == 0 {
		return nil, errors.BenchmarkRequired("beta requires a benchmark return series")
	}
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.ColumnSeries(name)
		av, bv := series.InnerJoin(col, a.benchmark)
		if len(av) < 2 {
			return nil, errors.InsufficientData("no overlap between " + name + " and benchmark")
		}
		out[name] = stat.Covariance(av, bv, nil) / stat.Variance(bv, nil)
	}
	return out, nil
}

// Alpha returns the CAPM alpha per column: mean(column) minus the CAPM-
// implied return. Propagates any beta failure.
func (a *PerformanceAnalyzer) Alpha(frame *series.Frame) (models.MetricResult, error) {
	betas, err := a.Beta(frame)
	if err != nil {
		return nil, err
	}
	benchMean := stat.Mean(a.benchmark.Values(), nil)
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = stat.Mean(col, nil) - (a.riskFree + betas[name]*(benchMean-a.riskFree))
	}
	return out, nil
}

// TreynorRatio returns mean excess return over beta, per column
func (a *PerformanceAnalyzer) TreynorRatio(frame *series.Frame) (models.MetricResult, error) {
	betas, err := a.Beta(frame)
	if err != nil {
		return nil, err
	}
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = (stat.Mean(col, nil) - a.riskFree) / betas[name]
	}
	return out, nil
}

// InformationRatio returns mean active return over the standard deviation of
// active return, per column. Dates with no benchmark observation contribute
// zero active return.
func (a *PerformanceAnalyzer) InformationRatio(frame *series.Frame) (models.MetricResult, error) {
	if a.benchmark == nil || a.benchmark.Len() == 0 {
		return nil, errors.BenchmarkRequired("information ratio requires a benchmark return series")
	}
	out := make(models.MetricResult, len(frame.Names()))
	times := frame.Times()
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		active := make([]float64, len(col))
		for i, r := range col {
			if b, ok := a.benchmark.ValueAt(times[i]); ok {
				active[i] = r - b
			}
		}
		out[name] = stat.Mean(active, nil) / stat.StdDev(active, nil)
	}
	return out, nil
}

// MaxDrawdown returns the deepest peak-to-trough decline of the cumulative
// wealth curve built from each column, starting at 1. Reported as a negative
// number, consistently across assets and portfolio.
func (a *PerformanceAnalyzer) MaxDrawdown(frame *series.Frame) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = maxDrawdown(col)
	}
	return out
}

func maxDrawdown(returns []float64) float64 {
	wealth := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := (wealth - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

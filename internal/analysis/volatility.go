package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// VolatilityAnalyzer derives dispersion measures from a return frame
type VolatilityAnalyzer struct {
	freq series.Frequency
	log  *logger.Logger
}

// NewVolatilityAnalyzer creates a volatility analyzer for the given frequency
func NewVolatilityAnalyzer(freq series.Frequency) (*VolatilityAnalyzer, error) {
	if _, err := series.PeriodsPerYear(freq); err != nil {
		return nil, err
	}
	return &VolatilityAnalyzer{freq: freq, log: logger.GetLogger("analysis.volatility")}, nil
}

// Calculate produces standard deviation, variance, annualized variance and
// downside deviation (target 0) for every column
func (a *VolatilityAnalyzer) Calculate(frame *series.Frame) (*models.VolatilityStats, error) {
	stdDev := a.StdDev(frame)
	variance := a.Variance(frame)
	annualized := make(models.MetricResult, len(variance))
	for name, v := range variance {
		av, err := annualize(v, a.freq)
		if err != nil {
			return nil, err
		}
		annualized[name] = av
	}
	return &models.VolatilityStats{
		StdDev:             stdDev,
		Variance:           variance,
		AnnualizedVariance: annualized,
		DownsideDeviation:  a.DownsideDeviation(frame, 0),
	}, nil
}

// StdDev returns the sample standard deviation per column
func (a *VolatilityAnalyzer) StdDev(frame *series.Frame) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = stat.StdDev(col, nil)
	}
	return out
}

// Variance returns the sample variance per column
func (a *VolatilityAnalyzer) Variance(frame *series.Frame) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = stat.Variance(col, nil)
	}
	return out
}

// RollingVolatility returns the trailing-window standard deviation per
// column. The first window-1 points of each column are omitted.
func (a *VolatilityAnalyzer) RollingVolatility(frame *series.Frame, window int) (map[string]*series.Series, error) {
	out := make(map[string]*series.Series, len(frame.Names()))
	for _, name := range frame.Names() {
		s, _ := frame.ColumnSeries(name)
		rolled, err := s.RollingStd(window)
		if err != nil {
			return nil, err
		}
		out[name] = rolled
	}
	return out, nil
}

// DownsideDeviation returns the root-mean-square shortfall below the target
// return per column. Observations above the target contribute zero, so this
// is not a plain standard deviation of the losses.
func (a *VolatilityAnalyzer) DownsideDeviation(frame *series.Frame, target float64) models.MetricResult {
	out := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		out[name] = downsideDeviation(col, target)
	}
	return out
}

func downsideDeviation(returns []float64, target float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sq float64
	for _, r := range returns {
		if d := r - target; d < 0 {
			sq += d * d
		}
	}
	return math.Sqrt(sq / float64(len(returns)))
}

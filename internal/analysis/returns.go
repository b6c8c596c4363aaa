package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// ReturnAnalyzer derives per-column return statistics from a return frame
type ReturnAnalyzer struct {
	freq series.Frequency
	log  *logger.Logger
}

// NewReturnAnalyzer creates a return analyzer for the given frequency
func NewReturnAnalyzer(freq series.Frequency) (*ReturnAnalyzer, error) {
	if _, err := series.PeriodsPerYear(freq); err != nil {
		return nil, err
	}
	return &ReturnAnalyzer{freq: freq, log: logger.GetLogger("analysis.returns")}, nil
}

// Calculate produces mean returns and distribution shape for every column
func (a *ReturnAnalyzer) Calculate(frame *series.Frame) (*models.ReturnStats, error) {
	means := a.MeanReturns(frame)
	annualized := make(models.MetricResult, len(means))
	for name, mean := range means {
		v, err := annualize(mean, a.freq)
		if err != nil {
			return nil, err
		}
		annualized[name] = v
	}
	dist, err := a.DistributionStats(frame)
	if err != nil {
		return nil, err
	}
	return &models.ReturnStats{
		Mean:           means,
		AnnualizedMean: annualized,
		Distribution:   dist,
	}, nil
}

// MeanReturns returns the arithmetic mean return per column
func (a *ReturnAnalyzer) MeanReturns(frame *series.Frame) models.MetricResult {
	means := make(models.MetricResult, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		means[name] = stat.Mean(col, nil)
	}
	return means
}

// DistributionStats returns skewness, excess kurtosis and the 5th/50th/95th
// empirical percentiles per column
func (a *ReturnAnalyzer) DistributionStats(frame *series.Frame) (map[string]models.DistributionStats, error) {
	stats := make(map[string]models.DistributionStats, len(frame.Names()))
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		p05, err := series.Quantile(col, 0.05)
		if err != nil {
			return nil, err
		}
		p50, err := series.Quantile(col, 0.50)
		if err != nil {
			return nil, err
		}
		p95, err := series.Quantile(col, 0.95)
		if err != nil {
			return nil, err
		}
		stats[name] = models.DistributionStats{
			Skewness:       stat.Skew(col, nil),
			ExcessKurtosis: stat.ExKurtosis(col, nil),
			P05:            p05,
			P50:            p50,
			P95:            p95,
		}
	}
	return stats, nil
}

package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// CorrelationAnalyzer derives pairwise correlation and covariance matrices
// from a return frame
type CorrelationAnalyzer struct {
	log *logger.Logger
}

// NewCorrelationAnalyzer creates a correlation analyzer
func NewCorrelationAnalyzer() *CorrelationAnalyzer {
	return &CorrelationAnalyzer{log: logger.GetLogger("analysis.correlation")}
}

// Calculate produces both matrices in one pass
func (a *CorrelationAnalyzer) Calculate(frame *series.Frame) (*models.CorrelationStats, error) {
	return &models.CorrelationStats{
		Correlation: a.CorrelationMatrix(frame),
		Covariance:  a.CovarianceMatrix(frame),
	}, nil
}

// CorrelationMatrix returns the Pearson correlation matrix over the frame's
// columns. Symmetric with a unit diagonal by construction.
func (a *CorrelationAnalyzer) CorrelationMatrix(frame *series.Frame) models.Matrix {
	names := frame.Names()
	values := make([][]float64, len(names))
	for i := range names {
		values[i] = make([]float64, len(names))
		values[i][i] = 1.0
	}
	for i := 0; i < len(names); i++ {
		x, _ := frame.Column(names[i])
		for j := i + 1; j < len(names); j++ {
			y, _ := frame.Column(names[j])
			c := stat.Correlation(x, y, nil)
			values[i][j] = c
			values[j][i] = c
		}
	}
	return models.Matrix{Assets: names, Values: values}
}

// CovarianceMatrix returns the sample covariance matrix over the frame's
// columns
func (a *CorrelationAnalyzer) CovarianceMatrix(frame *series.Frame) models.Matrix {
	names := frame.Names()
	values := make([][]float64, len(names))
	for i := range names {
		values[i] = make([]float64, len(names))
	}
	for i := 0; i < len(names); i++ {
		x, _ := frame.Column(names[i])
		values[i][i] = stat.Variance(x, nil)
		for j := i + 1; j < len(names); j++ {
			y, _ := frame.Column(names[j])
			c := stat.Covariance(x, y, nil)
			values[i][j] = c
			values[j][i] = c
		}
	}
	return models.Matrix{Assets: names, Values: values}
}

// PairCorrelation returns the correlation between two named columns
func (a *CorrelationAnalyzer) PairCorrelation(frame *series.Frame, first, second string) (float64, error) {
	x, ok := frame.Column(first)
	if !ok {
		return 0, errNoColumn(first)
	}
	y, ok := frame.Column(second)
	if !ok {
		return 0, errNoColumn(second)
	}
	return stat.Correlation(x, y, nil), nil
}

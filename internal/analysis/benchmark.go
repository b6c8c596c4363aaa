package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// BenchmarkStats summarizes a benchmark return series
func BenchmarkStats(ticker string, returns *series.Series) (*models.BenchmarkStats, error) {
	if returns == nil || returns.Len() == 0 {
		return nil, errors.BenchmarkRequired("benchmark returns are not loaded")
	}
	values := returns.Values()
	return &models.BenchmarkStats{
		Ticker:     ticker,
		Mean:       stat.Mean(values, nil),
		Volatility: stat.StdDev(values, nil),
	}, nil
}

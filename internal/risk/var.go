// Package risk implements the Value-at-Risk family: historical simulation,
// parametric (Gaussian) and Monte Carlo VaR, plus Conditional VaR composed on
// top of any of them. Loss magnitudes are reported as positive numbers; each
// calculator negates the underlying quantile before storing it.
package risk

import (
	"context"
	"math"
	"time"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// Method names the VaR calculation strategies
type Method string

const (
	MethodHistorical Method = "historical"
	MethodParametric Method = "parametric"
	MethodMonteCarlo Method = "monte_carlo"
)

// DefaultConfidence is the conventional confidence level
const DefaultConfidence = 0.95

// Calculator is the common contract for all VaR strategies. Implementations
// are interchangeable; CVaR composes with any of them. The context matters
// only for Monte Carlo, the one strategy with unbounded cost, but is part of
// the contract so strategies stay swappable.
type Calculator interface {
	// VaR returns the loss magnitude at the given confidence per asset,
	// with the whole-portfolio figure under models.PortfolioKey.
	VaR(ctx context.Context, confidence float64) (models.MetricResult, error)
}

// ValidateConfidence rejects confidence levels outside the open interval (0, 1)
func ValidateConfidence(confidence float64) error {
	if confidence <= 0 || confidence >= 1 {
		return errors.Wrapf(errors.ErrInvalidConfidence, "confidence level must be in (0, 1), got %g", confidence)
	}
	return nil
}

// ScaleToHorizon scales a single-period VaR magnitude to an N-period horizon
// with the square-root-of-time rule. The rule assumes i.i.d. normal
// innovations; it is a conventional approximation, not exact for arbitrary
// frequency and distribution combinations.
func ScaleToHorizon(singlePeriod float64, periods int) float64 {
	return math.Abs(singlePeriod) * math.Sqrt(float64(periods))
}

// ForHorizons evaluates a calculator once at its base confidence and scales
// every entry to each requested horizon
func ForHorizons(ctx context.Context, calc Calculator, confidence float64, horizons []int) (map[int]models.MetricResult, error) {
	base, err := calc.VaR(ctx, confidence)
	if err != nil {
		return nil, err
	}
	scaled := make(map[int]models.MetricResult, len(horizons))
	for _, horizon := range horizons {
		entry := make(models.MetricResult, len(base))
		for key, v := range base {
			entry[key] = ScaleToHorizon(v, horizon)
		}
		scaled[horizon] = entry
	}
	return scaled, nil
}

// Breaches returns the dates on which the realized return was at or below
// the negated VaR magnitude. Back-testing and visualization input; never
// feeds back into the VaR estimate itself.
func Breaches(returns *series.Series, varMagnitude float64) []time.Time {
	threshold := -math.Abs(varMagnitude)
	var breaches []time.Time
	for i, v := range returns.Values() {
		if v <= threshold {
			breaches = append(breaches, returns.Times()[i])
		}
	}
	return breaches
}

package risk

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// CVaR computes Conditional Value at Risk, the expected loss given that the
// loss exceeds VaR. It composes on any Calculator for the threshold and then
// averages the observed returns at or below that threshold, so the tail
// average is always empirical even when the threshold is parametric or
// simulated.
type CVaR struct {
	calc      Calculator
	portfolio *series.Series
	assets    *series.Frame
	log       *logger.Logger
}

// NewCVaR creates a CVaR calculator using calc for the VaR threshold. A nil
// calc falls back to historical simulation on the same series.
func NewCVaR(calc Calculator, portfolio *series.Series, assets *series.Frame) *CVaR {
	if calc == nil {
		calc = NewHistorical(portfolio, assets)
	}
	return &CVaR{
		calc:      calc,
		portfolio: portfolio,
		assets:    assets,
		log:       logger.GetLogger("risk.cvar"),
	}
}

// Calculate returns both the VaR threshold and the CVaR tail average per key
func (c *CVaR) Calculate(ctx context.Context, confidence float64) (varResult, cvarResult models.MetricResult, err error) {
	varResult, err = c.calc.VaR(ctx, confidence)
	if err != nil {
		return nil, nil, err
	}

	cvarResult = make(models.MetricResult, len(varResult))
	cvarResult[models.PortfolioKey] = tailAverage(c.portfolio.Values(), varResult[models.PortfolioKey])
	if c.assets != nil {
		for _, name := range c.assets.Names() {
			if name == models.PortfolioKey {
				continue
			}
			threshold, ok := varResult[name]
			if !ok {
				continue
			}
			col, _ := c.assets.Column(name)
			cvarResult[name] = tailAverage(col, threshold)
		}
	}
	return varResult, cvarResult, nil
}

// VaR satisfies Calculator by reporting the tail average, so CVaR can be
// scaled across horizons with the same machinery as the point estimates.
func (c *CVaR) VaR(ctx context.Context, confidence float64) (models.MetricResult, error) {
	_, cvarResult, err := c.Calculate(ctx, confidence)
	return cvarResult, err
}

// tailAverage is the negated mean of the returns at or below the negated
// VaR magnitude. An empty tail, possible when a parametric or simulated
// threshold exceeds the worst observed return, clamps to the VaR magnitude
// so the expected shortfall never reports below the loss it conditions on.
func tailAverage(returns []float64, varMagnitude float64) float64 {
	threshold := -math.Abs(varMagnitude)
	var tail []float64
	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return math.Abs(varMagnitude)
	}
	return -stat.Mean(tail, nil)
}

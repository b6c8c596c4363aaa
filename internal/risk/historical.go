package risk

import (
	"context"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Historical computes VaR by historical simulation: the negated lower
// empirical quantile of the observed returns. No distributional assumption.
// The sample must be long enough that the tail quantile rank is meaningful;
// one observation is the formal minimum, a year of history the practical one.
type Historical struct {
	portfolio *series.Series
	assets    *series.Frame
	log       *logger.Logger
}

// NewHistorical creates a historical-simulation calculator. assets may be
// nil, in which case only the portfolio figure is produced.
func NewHistorical(portfolio *series.Series, assets *series.Frame) *Historical {
	return &Historical{
		portfolio: portfolio,
		assets:    assets,
		log:       logger.GetLogger("risk.historical"),
	}
}

// VaR returns the historical loss magnitude at the given confidence
func (h *Historical) VaR(_ context.Context, confidence float64) (models.MetricResult, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return nil, err
	}

	result := make(models.MetricResult)
	q, err := series.Quantile(h.portfolio.Values(), 1-confidence)
	if err != nil {
		return nil, err
	}
	result[models.PortfolioKey] = -q

	if h.assets != nil {
		for _, name := range h.assets.Names() {
			if name == models.PortfolioKey {
				continue
			}
			col, _ := h.assets.Column(name)
			q, err := series.Quantile(col, 1-confidence)
			if err != nil {
				return nil, err
			}
			result[name] = -q
		}
	}
	return result, nil
}

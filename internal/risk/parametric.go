package risk

import (
	"context"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Parametric computes VaR under a normality assumption:
// magnitude = -(mean + z*std) with z the standard-normal quantile at
// (1-confidence), a negative value for confidence above 0.5. Mean and
// standard deviation default to the sample estimates; explicit overrides
// support counterfactual or forward-looking inputs. A zero standard
// deviation yields a VaR of 0 rather than a degenerate quantile.
type Parametric struct {
	portfolio *series.Series
	assets    *series.Frame
	mean      *float64
	std       *float64
	log       *logger.Logger
}

// ParametricOption configures a Parametric calculator
type ParametricOption func(*Parametric)

// WithMean overrides the sample mean of the portfolio series. An explicit
// option rather than a zero-sentinel, so a genuinely-zero mean stays
// expressible.
func WithMean(mean float64) ParametricOption {
	return func(p *Parametric) { p.mean = &mean }
}

// WithStd overrides the sample standard deviation of the portfolio series
func WithStd(std float64) ParametricOption {
	return func(p *Parametric) { p.std = &std }
}

// NewParametric creates a Gaussian VaR calculator. assets may be nil.
func NewParametric(portfolio *series.Series, assets *series.Frame, opts ...ParametricOption) *Parametric {
	p := &Parametric{
		portfolio: portfolio,
		assets:    assets,
		log:       logger.GetLogger("risk.parametric"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// VaR returns the Gaussian loss magnitude at the given confidence
func (p *Parametric) VaR(_ context.Context, confidence float64) (models.MetricResult, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	z := distuv.UnitNormal.Quantile(1 - confidence)

	values := p.portfolio.Values()
	mean := stat.Mean(values, nil)
	if p.mean != nil {
		mean = *p.mean
	}
	std := stat.StdDev(values, nil)
	if p.std != nil {
		std = *p.std
	}

	result := models.MetricResult{models.PortfolioKey: gaussianVaR(mean, std, z)}
	if p.assets != nil {
		for _, name := range p.assets.Names() {
			if name == models.PortfolioKey {
				continue
			}
			col, _ := p.assets.Column(name)
			result[name] = gaussianVaR(stat.Mean(col, nil), stat.StdDev(col, nil), z)
		}
	}
	return result, nil
}

func gaussianVaR(mean, std, z float64) float64 {
	if std == 0 {
		return 0
	}
	return -(mean + z*std)
}

package portfolio

import (
	"math"
	"sync"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// WeightTolerance is the absolute tolerance within which weights must sum to 1.0
const WeightTolerance = 1e-6

// Portfolio maps asset identifiers to price histories and nominal weights.
// The joined price table is cached and rebuilt whenever the composition
// changes; there is no finer-grained invalidation.
type Portfolio struct {
	mu      sync.RWMutex
	assets  map[string]*Asset
	weights map[string]float64
	frame   *series.Frame
	log     *logger.Logger
}

// New creates an empty portfolio
func New() *Portfolio {
	return &Portfolio{
		assets:  make(map[string]*Asset),
		weights: make(map[string]float64),
		log:     logger.GetLogger("portfolio"),
	}
}

// AddAsset registers an asset with a nominal weight. The running weight sum
// is not validated here; validation is deferred to SetWeights or
// ValidateComposition.
func (p *Portfolio) AddAsset(asset *Asset, weight float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assets[asset.Name] = asset
	p.weights[asset.Name] = weight
	p.frame = nil
}

// SetWeights replaces the weight mapping atomically. The mapping must be
// non-empty, non-negative, and sum to 1.0 within WeightTolerance.
func (p *Portfolio) SetWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return errors.InvalidWeights("weights cannot be empty")
	}
	var total float64
	for name, w := range weights {
		if w < 0 {
			return errors.InvalidWeights("weight for " + name + " is negative")
		}
		total += w
	}
	if math.Abs(total-1.0) > WeightTolerance {
		return errors.Wrapf(errors.ErrInvalidWeights, "weights must sum to 1.0, got %.8f", total)
	}

	replacement := make(map[string]float64, len(weights))
	for name, w := range weights {
		replacement[name] = w
	}

	p.mu.Lock()
	p.weights = replacement
	p.frame = nil
	p.mu.Unlock()
	return nil
}

// GetWeights returns a copy of the current weight mapping
func (p *Portfolio) GetWeights() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	weights := make(map[string]float64, len(p.weights))
	for name, w := range p.weights {
		weights[name] = w
	}
	return weights
}

// Assets returns the asset identifiers currently registered
func (p *Portfolio) Assets() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.assets))
	for name := range p.assets {
		names = append(names, name)
	}
	return names
}

// PriceFrame inner-joins every asset's price series on timestamp, dropping
// rows where any asset is missing a value. The result is cached until the
// composition changes.
func (p *Portfolio) PriceFrame() (*series.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priceFrameLocked()
}

func (p *Portfolio) priceFrameLocked() (*series.Frame, error) {
	if p.frame != nil {
		return p.frame, nil
	}
	if len(p.assets) == 0 {
		return nil, errors.EmptyPortfolio("no assets in portfolio")
	}
	columns := make(map[string]*series.Series, len(p.assets))
	for name, asset := range p.assets {
		if asset.Prices == nil || asset.Prices.Len() == 0 {
			p.log.Warnf("asset %s has no price data, excluded from join", name)
			continue
		}
		columns[name] = asset.Prices
	}
	if len(columns) == 0 {
		return nil, errors.NoPriceData("no assets with price data")
	}
	frame, err := series.NewFrame(columns)
	if err != nil {
		return nil, err
	}
	p.frame = frame
	return frame, nil
}

// Prices builds the weighted portfolio price series: each asset's price
// column scaled by its weight, summed row-wise. Weights are renormalized
// over the assets that actually have priced columns, so a reduced subset
// still sums to 1.0.
func (p *Portfolio) Prices() (*series.Series, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, err := p.priceFrameLocked()
	if err != nil {
		return nil, err
	}

	aligned := make(map[string]float64)
	var total float64
	for _, name := range frame.Names() {
		if w, ok := p.weights[name]; ok {
			aligned[name] = w
			total += w
		}
	}
	if len(aligned) == 0 {
		return nil, errors.WeightMismatch("no asset in the price table matches a weight key")
	}
	if total <= 0 {
		return nil, errors.InvalidWeights("matched weights sum to zero")
	}
	for name := range aligned {
		aligned[name] /= total
	}

	return frame.WeightedSum(aligned)
}

// Returns computes portfolio returns from the weighted price series at the
// requested frequency
func (p *Portfolio) Returns(freq series.Frequency) (*series.Series, error) {
	prices, err := p.Prices()
	if err != nil {
		return nil, err
	}
	return prices.Returns(freq)
}

// ReturnFrame computes per-asset returns on the joined price table and
// appends the portfolio return column under models.PortfolioKey.
func (p *Portfolio) ReturnFrame(freq series.Frequency) (*series.Frame, error) {
	frame, err := p.PriceFrame()
	if err != nil {
		return nil, err
	}
	assetReturns, err := frame.Returns(freq)
	if err != nil {
		return nil, err
	}
	portfolioReturns, err := p.Returns(freq)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]*series.Series, len(assetReturns.Names())+1)
	for _, name := range assetReturns.Names() {
		s, _ := assetReturns.ColumnSeries(name)
		columns[name] = s
	}
	columns[models.PortfolioKey] = portfolioReturns
	return series.NewFrame(columns)
}

// ValidateComposition reports whether assets and weights are both present and
// the weights sum to 1.0 within tolerance. Pre-flight check only; never errors.
func (p *Portfolio) ValidateComposition() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.assets) == 0 || len(p.weights) == 0 {
		return false
	}
	var total float64
	for _, w := range p.weights {
		total += w
	}
	return math.Abs(total-1.0) <= WeightTolerance
}

package portfolio

import (
	"math"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// Asset holds one instrument's price history and optional dividend stream.
// Price series are produced by the data layer and never mutated here; a
// re-fetch replaces the whole series.
type Asset struct {
	Name      string
	Ticker    string
	Prices    *series.Series
	Dividends *series.Series
}

// NewAsset creates an asset with the given price history
func NewAsset(name, ticker string, prices *series.Series) *Asset {
	return &Asset{Name: name, Ticker: ticker, Prices: prices}
}

// AdjustedPrices returns prices with dividends folded back in, aligning the
// dividend stream to the price index and treating missing entries as zero.
// Identity when no dividends are present.
func (a *Asset) AdjustedPrices() (*series.Series, error) {
	if a.Prices == nil || a.Prices.Len() == 0 {
		return nil, errors.NoPriceData("prices not loaded for " + a.Name)
	}
	if a.Dividends == nil || a.Dividends.Len() == 0 {
		return a.Prices, nil
	}
	return a.Prices.AddAligned(a.Dividends), nil
}

// Returns computes simple returns on the dividend-adjusted price series at
// the requested frequency
func (a *Asset) Returns(freq series.Frequency) (*series.Series, error) {
	prices, err := a.AdjustedPrices()
	if err != nil {
		return nil, err
	}
	return prices.Returns(freq)
}

// Validate reports whether the asset has a usable, gap-free price history
func (a *Asset) Validate() bool {
	if a.Prices == nil || a.Prices.Len() == 0 {
		return false
	}
	for _, v := range a.Prices.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Package data supplies price histories to the portfolio layer: a synthetic
// generator for self-contained runs and a manager that caches fetched series
// on disk as CSV.
package data

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// AssetClass selects the drift and volatility profile of generated prices
type AssetClass string

const (
	ClassStock     AssetClass = "stock"
	ClassFX        AssetClass = "fx"
	ClassCommodity AssetClass = "commodity"
)

// classProfile returns annualized drift and volatility typical of the class
func classProfile(class AssetClass) (drift, vol float64, err error) {
	switch class {
	case ClassStock:
		return 0.08, 0.20, nil
	case ClassFX:
		return 0.00, 0.10, nil
	case ClassCommodity:
		return 0.03, 0.30, nil
	default:
		return 0, 0, errors.Newf("unknown asset class %q", class)
	}
}

// Generator produces geometric-Brownian-motion price paths on a business-day
// calendar. The same seed and ticker always produce the same path, so test
// fixtures and demo portfolios stay reproducible across runs.
type Generator struct {
	seed uint64
	log  *logger.Logger
}

// NewGenerator creates a generator with the given base seed
func NewGenerator(seed uint64) *Generator {
	return &Generator{seed: seed, log: logger.GetLogger("data.generator")}
}

// Prices generates a daily price series for one ticker between start and end
// inclusive, weekends excluded.
func (g *Generator) Prices(ticker string, class AssetClass, initial float64, start, end time.Time) (*series.Series, error) {
	if initial <= 0 {
		return nil, errors.Newf("initial price must be positive, got %g", initial)
	}
	if end.Before(start) {
		return nil, errors.Newf("end date %s precedes start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	drift, vol, err := classProfile(class)
	if err != nil {
		return nil, err
	}

	days := businessDays(start, end)
	if len(days) == 0 {
		return nil, errors.InsufficientData("date range contains no business days")
	}

	dt := 1.0 / 252.0
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(g.seed ^ hashTicker(ticker))}

	values := make([]float64, len(days))
	level := initial
	for i := range values {
		values[i] = level
		level *= math.Exp((drift-0.5*vol*vol)*dt + vol*math.Sqrt(dt)*dist.Rand())
	}
	g.log.Debugw("generated price path",
		"ticker", ticker, "class", class, "observations", len(days))
	return series.New(days, values)
}

// businessDays lists the weekdays between start and end inclusive, at UTC
// midnight
func businessDays(start, end time.Time) []time.Time {
	var days []time.Time
	t := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !t.After(last) {
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, t)
		}
		t = t.AddDate(0, 0, 1)
	}
	return days
}

// hashTicker folds a ticker into a seed offset (FNV-1a) so each ticker gets
// an independent path from the same base seed
func hashTicker(ticker string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < len(ticker); i++ {
		h ^= uint64(ticker[i])
		h *= prime
	}
	return h
}

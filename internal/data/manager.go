package data

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// MissingStrategy controls how gaps in a loaded series are handled
type MissingStrategy string

const (
	// MissingFail rejects any series containing NaN values
	MissingFail MissingStrategy = "fail"
	// MissingDrop removes observations with NaN values
	MissingDrop MissingStrategy = "drop"
	// MissingForwardFill carries the last seen value forward; leading NaNs
	// are dropped since there is nothing to carry
	MissingForwardFill MissingStrategy = "ffill"
)

const csvTimeLayout = "2006-01-02"

// Manager is an in-memory price registry with a CSV cache directory. Fetch
// checks memory, then disk, then the fallback source, writing newly fetched
// series through to both layers.
type Manager struct {
	mu       sync.RWMutex
	cacheDir string
	strategy MissingStrategy
	prices   map[string]*series.Series
	log      *logger.Logger
}

// NewManager creates a manager caching under cacheDir. An empty cacheDir
// disables the disk layer.
func NewManager(cacheDir string, strategy MissingStrategy) *Manager {
	if strategy == "" {
		strategy = MissingFail
	}
	return &Manager{
		cacheDir: cacheDir,
		strategy: strategy,
		prices:   make(map[string]*series.Series),
		log:      logger.GetLogger("data.manager"),
	}
}

// Source produces a price series for a ticker when neither cache layer has it
type Source func(ticker string) (*series.Series, error)

// Fetch returns the price series for a ticker, consulting memory, the CSV
// cache and finally source in that order.
func (m *Manager) Fetch(ticker string, source Source) (*series.Series, error) {
	m.mu.RLock()
	cached, ok := m.prices[ticker]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if m.cacheDir != "" {
		if s, err := m.loadCSV(ticker); err == nil {
			m.put(ticker, s)
			return s, nil
		} else if !os.IsNotExist(err) {
			m.log.Warnw("cache read failed, falling through to source",
				"ticker", ticker, "error", err)
		}
	}

	if source == nil {
		return nil, errors.NoPriceData("no cached data and no source for " + ticker)
	}
	fetched, err := source(ticker)
	if err != nil {
		return nil, errors.Wrap(err, "source fetch failed for "+ticker)
	}
	cleaned, err := m.applyStrategy(ticker, fetched)
	if err != nil {
		return nil, err
	}
	m.put(ticker, cleaned)
	if m.cacheDir != "" {
		if err := m.saveCSV(ticker, cleaned); err != nil {
			m.log.Warnw("cache write failed", "ticker", ticker, "error", err)
		}
	}
	return cleaned, nil
}

// Register stores a series directly, bypassing cache and source
func (m *Manager) Register(ticker string, s *series.Series) error {
	cleaned, err := m.applyStrategy(ticker, s)
	if err != nil {
		return err
	}
	m.put(ticker, cleaned)
	return nil
}

// Tickers lists the tickers currently held in memory, sorted
func (m *Manager) Tickers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tickers := make([]string, 0, len(m.prices))
	for t := range m.prices {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

func (m *Manager) put(ticker string, s *series.Series) {
	m.mu.Lock()
	m.prices[ticker] = s
	m.mu.Unlock()
}

// applyStrategy validates a series and resolves NaN gaps per the configured
// missing-data strategy. Non-finite non-NaN values and non-positive prices
// always fail; they indicate a corrupt source rather than a gap.
func (m *Manager) applyStrategy(ticker string, s *series.Series) (*series.Series, error) {
	if s == nil || s.Len() == 0 {
		return nil, errors.NoPriceData("empty series for " + ticker)
	}

	times := s.Times()
	values := s.Values()
	keptTimes := make([]time.Time, 0, len(times))
	keptValues := make([]float64, 0, len(values))
	var last float64
	var seen bool

	for i, v := range values {
		switch {
		case math.IsInf(v, 0):
			return nil, errors.NoPriceData("non-finite price for " + ticker)
		case math.IsNaN(v):
			switch m.strategy {
			case MissingFail:
				return nil, errors.NoPriceData("missing price for " + ticker + " at " + times[i].Format(csvTimeLayout))
			case MissingDrop:
				continue
			case MissingForwardFill:
				if !seen {
					continue
				}
				v = last
			default:
				return nil, errors.Newf("unknown missing-data strategy %q", m.strategy)
			}
		case v <= 0:
			return nil, errors.NoPriceData("non-positive price for " + ticker)
		}
		last, seen = v, true
		keptTimes = append(keptTimes, times[i])
		keptValues = append(keptValues, v)
	}
	if len(keptValues) == 0 {
		return nil, errors.NoPriceData("no usable observations for " + ticker)
	}
	return series.New(keptTimes, keptValues)
}

func (m *Manager) cachePath(ticker string) string {
	return filepath.Join(m.cacheDir, ticker+".csv")
}

func (m *Manager) loadCSV(ticker string) (*series.Series, error) {
	f, err := os.Open(m.cachePath(ticker))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "malformed cache file for "+ticker)
	}
	if len(rows) < 2 {
		return nil, errors.NoPriceData("cache file for " + ticker + " has no data rows")
	}

	times := make([]time.Time, 0, len(rows)-1)
	values := make([]float64, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != 2 {
			return nil, errors.Newf("cache row for %s has %d fields, want 2", ticker, len(row))
		}
		t, err := time.Parse(csvTimeLayout, row[0])
		if err != nil {
			return nil, errors.Wrap(err, "bad date in cache for "+ticker)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, errors.Wrap(err, "bad price in cache for "+ticker)
		}
		times = append(times, t)
		values = append(values, v)
	}

	s, err := series.New(times, values)
	if err != nil {
		return nil, err
	}
	return m.applyStrategy(ticker, s)
}

func (m *Manager) saveCSV(ticker string, s *series.Series) error {
	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(m.cacheDir, ticker+".csv.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "price"}); err != nil {
		f.Close()
		return err
	}
	times := s.Times()
	for i, v := range s.Values() {
		row := []string{times[i].Format(csvTimeLayout), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), m.cachePath(ticker))
}

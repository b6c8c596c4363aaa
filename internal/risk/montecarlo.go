package risk

import (
	"context"
	"runtime"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
	"github.com/empirical-ra/riskengine/pkg/utils/pools"
)

// DefaultSimulations is the simulation count used when none is configured
const DefaultSimulations = 10000

// MonteCarlo estimates VaR by sampling simulated returns and reading the
// empirical quantile of the sample. Without a covariance matrix it draws
// from a univariate normal fitted to the portfolio series. With one it
// draws correlated asset returns from a multivariate normal and aggregates
// them by portfolio weight, which preserves cross-asset diversification in
// the simulated loss distribution.
type MonteCarlo struct {
	portfolio   *series.Series
	assets      *series.Frame
	simulations int
	cov         *mat.SymDense
	covAssets   []string
	weights     map[string]float64
	seed        *uint64
	pool        *pools.Float64Slice
	log         *logger.Logger
}

// MonteCarloOption configures a MonteCarlo calculator
type MonteCarloOption func(*MonteCarlo)

// WithSimulations sets the number of simulated return draws
func WithSimulations(n int) MonteCarloOption {
	return func(m *MonteCarlo) {
		if n > 0 {
			m.simulations = n
		}
	}
}

// WithCovariance switches the calculator to the correlated multivariate
// path. assets names the rows and columns of cov in order.
func WithCovariance(assets []string, cov *mat.SymDense) MonteCarloOption {
	return func(m *MonteCarlo) {
		m.cov = cov
		m.covAssets = assets
	}
}

// WithWeights sets the portfolio weights used to aggregate correlated asset
// draws. Assets absent from the map receive equal weight.
func WithWeights(weights map[string]float64) MonteCarloOption {
	return func(m *MonteCarlo) { m.weights = weights }
}

// WithSeed fixes the random source for reproducible runs
func WithSeed(seed uint64) MonteCarloOption {
	return func(m *MonteCarlo) { m.seed = &seed }
}

// NewMonteCarlo creates a simulation-based VaR calculator. assets may be nil.
func NewMonteCarlo(portfolio *series.Series, assets *series.Frame, opts ...MonteCarloOption) *MonteCarlo {
	m := &MonteCarlo{
		portfolio:   portfolio,
		assets:      assets,
		simulations: DefaultSimulations,
		pool:        pools.NewFloat64Slice(DefaultSimulations),
		log:         logger.GetLogger("risk.montecarlo"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// VaR returns the simulated loss magnitude at the given confidence
func (m *MonteCarlo) VaR(ctx context.Context, confidence float64) (models.MetricResult, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return nil, err
	}

	var (
		simulated []float64
		err       error
	)
	if m.cov != nil {
		simulated, err = m.simulateCorrelated(ctx)
	} else {
		simulated, err = m.simulateUnivariate(ctx, m.portfolio.Values())
	}
	if err != nil {
		return nil, err
	}
	defer m.pool.Put(simulated)

	q, err := series.Quantile(simulated, 1-confidence)
	if err != nil {
		return nil, err
	}
	result := models.MetricResult{models.PortfolioKey: -q}

	// Per-asset figures always come from marginal univariate simulations;
	// the covariance matrix only shapes the aggregate portfolio draw.
	if m.assets != nil {
		for _, name := range m.assets.Names() {
			if name == models.PortfolioKey {
				continue
			}
			col, _ := m.assets.Column(name)
			sim, simErr := m.simulateUnivariate(ctx, col)
			if simErr != nil {
				return nil, simErr
			}
			aq, qErr := series.Quantile(sim, 1-confidence)
			m.pool.Put(sim)
			if qErr != nil {
				return nil, qErr
			}
			result[name] = -aq
		}
	}
	return result, nil
}

// simulateUnivariate draws m.simulations samples from a normal fitted to
// the observed values, splitting the work across workers with independent
// random sources.
func (m *MonteCarlo) simulateUnivariate(ctx context.Context, observed []float64) ([]float64, error) {
	if len(observed) < 2 {
		return nil, errors.InsufficientData("at least two returns are required to fit a simulation model")
	}
	mean := stat.Mean(observed, nil)
	std := stat.StdDev(observed, nil)

	out := m.pool.Get(m.simulations)
	workers := workerCount(m.simulations)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := shard(m.simulations, workers, w)
		src := rand.NewSource(m.workerSeed(w))
		g.Go(func() error {
			dist := distuv.Normal{Mu: mean, Sigma: std, Src: src}
			for i := lo; i < hi; i++ {
				if i%4096 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				out[i] = dist.Rand()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.pool.Put(out)
		return nil, err
	}
	return out, nil
}

// simulateCorrelated draws correlated asset returns from a multivariate
// normal and collapses each draw to a portfolio return by weight.
func (m *MonteCarlo) simulateCorrelated(ctx context.Context) ([]float64, error) {
	if m.assets == nil {
		return nil, errors.InsufficientData("correlated simulation requires asset return columns")
	}
	n := len(m.covAssets)
	if n == 0 || m.cov == nil {
		return nil, errors.InsufficientData("covariance matrix is empty")
	}

	means := make([]float64, n)
	for i, name := range m.covAssets {
		col, ok := m.assets.Column(name)
		if !ok {
			return nil, errors.NoPriceData("no return column for asset " + name)
		}
		means[i] = stat.Mean(col, nil)
	}
	weights := m.resolveWeights()

	out := m.pool.Get(m.simulations)
	workers := workerCount(m.simulations)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := shard(m.simulations, workers, w)
		src := rand.NewSource(m.workerSeed(w))
		g.Go(func() error {
			dist, ok := distmv.NewNormal(means, m.cov, src)
			if !ok {
				return errors.InsufficientData("covariance matrix is not positive definite")
			}
			draw := make([]float64, n)
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				dist.Rand(draw)
				total := 0.0
				for j, r := range draw {
					total += weights[j] * r
				}
				out[i] = total
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.pool.Put(out)
		return nil, err
	}
	return out, nil
}

// resolveWeights maps configured weights onto the covariance asset order,
// falling back to equal weights when none are configured.
func (m *MonteCarlo) resolveWeights() []float64 {
	n := len(m.covAssets)
	weights := make([]float64, n)
	if len(m.weights) == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights
	}
	for i, name := range m.covAssets {
		weights[i] = m.weights[name]
	}
	return weights
}

func (m *MonteCarlo) workerSeed(worker int) uint64 {
	if m.seed != nil {
		return *m.seed + uint64(worker)
	}
	return rand.Uint64()
}

func workerCount(simulations int) int {
	workers := runtime.GOMAXPROCS(0)
	if workers > simulations {
		workers = simulations
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// shard returns the half-open range [lo, hi) of simulation indices owned by
// worker w out of n workers.
func shard(total, workers, w int) (int, int) {
	per := total / workers
	rem := total % workers
	lo := w*per + min(w, rem)
	hi := lo + per
	if w < rem {
		hi++
	}
	return lo, hi
}

// CovarianceFromFrame builds the sample covariance matrix of the frame's
// asset columns, excluding the aggregate portfolio column. The returned
// asset order matches the matrix rows.
func CovarianceFromFrame(frame *series.Frame) ([]string, *mat.SymDense, error) {
	var names []string
	for _, name := range frame.Names() {
		if name == models.PortfolioKey {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nil, errors.InsufficientData("frame has no asset columns")
	}

	rows := frame.Len()
	data := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		col, _ := frame.Column(name)
		data.SetCol(j, col)
	}
	cov := mat.NewSymDense(len(names), nil)
	stat.CovarianceMatrix(cov, data, nil)
	return names, cov, nil
}

package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

func tradingDays(start time.Time, n int) []time.Time {
	times := make([]time.Time, 0, n)
	t := start
	for len(times) < n {
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			times = append(times, t)
		}
		t = t.AddDate(0, 0, 1)
	}
	return times
}

func testSeries(t *testing.T, values []float64) *series.Series {
	t.Helper()
	s, err := series.New(tradingDays(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), len(values)), values)
	require.NoError(t, err)
	return s
}

func normalReturns(n int, mean, std float64, seed uint64) []float64 {
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: rand.NewSource(seed)}
	values := make([]float64, n)
	for i := range values {
		values[i] = dist.Rand()
	}
	return values
}

func TestHistoricalVaRLowerQuantile(t *testing.T) {
	// At 80% confidence on five returns the 20th-percentile rank falls on
	// the worst observation, -0.02, so the reported magnitude is 0.02.
	s := testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005})
	calc := NewHistorical(s, nil)

	result, err := calc.VaR(context.Background(), 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, result[models.PortfolioKey], 1e-12)
}

func TestHistoricalVaRPermutationInvariant(t *testing.T) {
	a := testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005})
	b := testSeries(t, []float64{-0.02, 0.005, 0.01, -0.01, 0.015})

	ra, err := NewHistorical(a, nil).VaR(context.Background(), 0.8)
	require.NoError(t, err)
	rb, err := NewHistorical(b, nil).VaR(context.Background(), 0.8)
	require.NoError(t, err)
	assert.Equal(t, ra[models.PortfolioKey], rb[models.PortfolioKey])
}

func TestHistoricalVaRPerAsset(t *testing.T) {
	cols := map[string]*series.Series{
		"a": testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005}),
		"b": testSeries(t, []float64{0.02, -0.05, 0.01, -0.03, 0.0}),
	}
	frame, err := series.NewFrame(cols)
	require.NoError(t, err)

	result, err := NewHistorical(cols["a"], frame).VaR(context.Background(), 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, result["a"], 1e-12)
	assert.InDelta(t, 0.05, result["b"], 1e-12)
}

func TestValidateConfidence(t *testing.T) {
	for _, confidence := range []float64{0, 1, -0.5, 1.5} {
		err := ValidateConfidence(confidence)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfidence), "confidence %g", confidence)
	}
	assert.NoError(t, ValidateConfidence(0.95))

	_, err := NewHistorical(testSeries(t, []float64{0.01, -0.01}), nil).VaR(context.Background(), 1.2)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfidence))
}

func TestParametricVaRMatchesClosedForm(t *testing.T) {
	calc := NewParametric(testSeries(t, []float64{0.01, -0.01}), nil,
		WithMean(0.0005), WithStd(0.01))

	result, err := calc.VaR(context.Background(), 0.95)
	require.NoError(t, err)

	z := distuv.UnitNormal.Quantile(0.05)
	assert.InDelta(t, -(0.0005 + z*0.01), result[models.PortfolioKey], 1e-12)
}

func TestParametricVaRZeroStd(t *testing.T) {
	// A constant return series has zero dispersion; the Gaussian quantile
	// degenerates and the loss magnitude is defined as zero.
	calc := NewParametric(testSeries(t, []float64{0.001, 0.001, 0.001, 0.001}), nil)

	result, err := calc.VaR(context.Background(), 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result[models.PortfolioKey])
}

func TestMonteCarloConvergesToParametric(t *testing.T) {
	if testing.Short() {
		t.Skip("convergence test draws one million samples")
	}
	observed := testSeries(t, normalReturns(2500, 0.0, 0.01, 42))

	parametric, err := NewParametric(observed, nil).VaR(context.Background(), 0.95)
	require.NoError(t, err)

	mc := NewMonteCarlo(observed, nil, WithSimulations(1_000_000), WithSeed(7))
	simulated, err := mc.VaR(context.Background(), 0.95)
	require.NoError(t, err)

	// Standard error of the 5% sample quantile at this size is about 2e-5,
	// far inside the tolerance.
	assert.InDelta(t, parametric[models.PortfolioKey], simulated[models.PortfolioKey], 0.001)
}

func TestMonteCarloDeterministicWithSeed(t *testing.T) {
	observed := testSeries(t, normalReturns(500, 0.0005, 0.012, 9))

	first, err := NewMonteCarlo(observed, nil, WithSimulations(20_000), WithSeed(21)).
		VaR(context.Background(), 0.95)
	require.NoError(t, err)
	second, err := NewMonteCarlo(observed, nil, WithSimulations(20_000), WithSeed(21)).
		VaR(context.Background(), 0.95)
	require.NoError(t, err)

	assert.Equal(t, first[models.PortfolioKey], second[models.PortfolioKey])
}

func TestMonteCarloCorrelated(t *testing.T) {
	cols := map[string]*series.Series{
		"a": testSeries(t, normalReturns(1000, 0.0, 0.01, 1)),
		"b": testSeries(t, normalReturns(1000, 0.0, 0.02, 2)),
	}
	frame, err := series.NewFrame(cols)
	require.NoError(t, err)

	names, cov, err := CovarianceFromFrame(frame)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)

	mc := NewMonteCarlo(cols["a"], frame,
		WithCovariance(names, cov),
		WithWeights(map[string]float64{"a": 0.5, "b": 0.5}),
		WithSimulations(200_000),
		WithSeed(3))
	result, err := mc.VaR(context.Background(), 0.95)
	require.NoError(t, err)

	// Diversified 50/50 VaR must sit between the half-scaled VaR of the
	// safer asset alone and the sum of the half-scaled standalone figures.
	v := result[models.PortfolioKey]
	assert.Greater(t, v, 0.5*0.01*1.6)
	assert.Less(t, v, 0.5*(0.01+0.02)*1.7)

	// The correlated path still reports every asset, from its marginal
	// univariate simulation.
	require.Contains(t, result, "a")
	require.Contains(t, result, "b")
	assert.Less(t, result["a"], result["b"])
}

func TestMonteCarloCancellation(t *testing.T) {
	observed := testSeries(t, normalReturns(500, 0.0, 0.01, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMonteCarlo(observed, nil, WithSimulations(1_000_000)).VaR(ctx, 0.95)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMonteCarloInsufficientData(t *testing.T) {
	_, err := NewMonteCarlo(testSeries(t, []float64{0.01}), nil).VaR(context.Background(), 0.95)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestCVaRAtLeastVaR(t *testing.T) {
	observed := testSeries(t, normalReturns(2500, 0.0002, 0.011, 17))
	cvar := NewCVaR(nil, observed, nil)

	varResult, cvarResult, err := cvar.Calculate(context.Background(), 0.95)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cvarResult[models.PortfolioKey]+0.01, varResult[models.PortfolioKey])
	assert.Greater(t, cvarResult[models.PortfolioKey], 0.0)
}

func TestCVaRTailAverage(t *testing.T) {
	// VaR at 80% confidence is 0.02; the tail at or below -0.02 is the
	// single observation -0.02, so CVaR equals it.
	s := testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005})

	varResult, cvarResult, err := NewCVaR(nil, s, nil).Calculate(context.Background(), 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, varResult[models.PortfolioKey], 1e-12)
	assert.InDelta(t, 0.02, cvarResult[models.PortfolioKey], 1e-12)
}

func TestCVaREmptyTail(t *testing.T) {
	// A parametric threshold far beyond the worst observation leaves an
	// empty tail. The expected shortfall clamps to the VaR magnitude so it
	// never drops below the loss it conditions on.
	s := testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005})
	calc := NewParametric(s, nil, WithMean(0), WithStd(0.5))

	varResult, cvarResult, err := NewCVaR(calc, s, nil).Calculate(context.Background(), 0.99)
	require.NoError(t, err)
	require.Greater(t, varResult[models.PortfolioKey], 0.02)
	assert.Equal(t, varResult[models.PortfolioKey], cvarResult[models.PortfolioKey])
}

func TestCVaRNeverBelowVaRAcrossMethods(t *testing.T) {
	observed := testSeries(t, normalReturns(300, 0.0002, 0.011, 23))

	calcs := map[string]Calculator{
		"historical": NewHistorical(observed, nil),
		"parametric": NewParametric(observed, nil),
		"montecarlo": NewMonteCarlo(observed, nil, WithSeed(9)),
	}
	for name, calc := range calcs {
		varResult, cvarResult, err := NewCVaR(calc, observed, nil).Calculate(context.Background(), 0.99)
		require.NoError(t, err, name)
		assert.GreaterOrEqual(t, cvarResult[models.PortfolioKey]+1e-9, varResult[models.PortfolioKey], name)
	}
}

func TestScaleToHorizon(t *testing.T) {
	assert.InDelta(t, 0.02*math.Sqrt(10), ScaleToHorizon(0.02, 10), 1e-12)
	assert.InDelta(t, 0.02, ScaleToHorizon(-0.02, 1), 1e-12)
}

func TestForHorizons(t *testing.T) {
	s := testSeries(t, []float64{0.01, -0.02, 0.015, -0.01, 0.005})

	scaled, err := ForHorizons(context.Background(), NewHistorical(s, nil), 0.8, []int{1, 5, 10})
	require.NoError(t, err)
	require.Len(t, scaled, 3)
	assert.InDelta(t, 0.02, scaled[1][models.PortfolioKey], 1e-12)
	assert.InDelta(t, 0.02*math.Sqrt(5), scaled[5][models.PortfolioKey], 1e-12)
	assert.InDelta(t, 0.02*math.Sqrt(10), scaled[10][models.PortfolioKey], 1e-12)
}

func TestBreaches(t *testing.T) {
	s := testSeries(t, []float64{0.01, -0.03, 0.015, -0.02, 0.005})

	breaches := Breaches(s, 0.02)
	require.Len(t, breaches, 2)
	assert.Equal(t, s.Times()[1], breaches[0])
	assert.Equal(t, s.Times()[3], breaches[1])

	assert.Empty(t, Breaches(s, 0.05))
}

// Package engine orchestrates a full analysis run: one return frame, every
// analyzer over it, one aggregate report. Analyzers are pure and share no
// mutable state, so they run concurrently; a failing section is recorded in
// the report's error map and never aborts the others.
package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/empirical-ra/riskengine/internal/analysis"
	"github.com/empirical-ra/riskengine/internal/portfolio"
	"github.com/empirical-ra/riskengine/internal/risk"
	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/metrics"
	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Config carries the analysis parameters for one engine
type Config struct {
	Frequency       series.Frequency
	Confidence      float64
	Horizons        []int
	Methods         []risk.Method
	Simulations     int
	RiskFreeRate    float64
	Benchmark       *series.Series
	BenchmarkTicker string
}

// Engine runs the full analyzer suite over a portfolio
type Engine struct {
	portfolio *portfolio.Portfolio
	cfg       Config
	recorder  *metrics.Recorder
	log       *logger.Logger
}

// New creates an engine. recorder may be nil when metrics are not wanted.
func New(p *portfolio.Portfolio, cfg Config, recorder *metrics.Recorder) *Engine {
	if cfg.Confidence == 0 {
		cfg.Confidence = risk.DefaultConfidence
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []risk.Method{risk.MethodHistorical, risk.MethodParametric, risk.MethodMonteCarlo}
	}
	return &Engine{
		portfolio: p,
		cfg:       cfg,
		recorder:  recorder,
		log:       logger.GetLogger("engine"),
	}
}

// Run executes every analyzer concurrently and aggregates their output.
// Run itself errs only when no return frame could be built at all; section
// failures land in report.Errors.
func (e *Engine) Run(ctx context.Context) (*models.AnalysisReport, error) {
	started := time.Now()
	frame, err := e.portfolio.ReturnFrame(e.cfg.Frequency)
	if err != nil {
		e.log.Errorw("return frame construction failed", "error", err)
		if e.recorder != nil {
			e.recorder.AnalysisCompleted("error", time.Since(started))
		}
		return nil, err
	}

	report := &models.AnalysisReport{
		GeneratedAt: started.UTC(),
		Frequency:   string(e.cfg.Frequency),
		Confidence:  e.cfg.Confidence,
		Risk:        make(map[string]*models.RiskStats),
		Errors:      make(map[string]string),
	}
	var mu sync.Mutex
	fail := func(section string, err error) {
		e.log.Warnw("section failed", "section", section, "error", err)
		mu.Lock()
		report.Errors[section] = err.Error()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		analyzer, err := analysis.NewReturnAnalyzer(e.cfg.Frequency)
		if err == nil {
			var stats *models.ReturnStats
			if stats, err = analyzer.Calculate(frame); err == nil {
				mu.Lock()
				report.Returns = stats
				mu.Unlock()
				return nil
			}
		}
		fail("returns", err)
		return nil
	})

	g.Go(func() error {
		analyzer, err := analysis.NewVolatilityAnalyzer(e.cfg.Frequency)
		if err == nil {
			var stats *models.VolatilityStats
			if stats, err = analyzer.Calculate(frame); err == nil {
				mu.Lock()
				report.Volatility = stats
				mu.Unlock()
				return nil
			}
		}
		fail("volatility", err)
		return nil
	})

	g.Go(func() error {
		stats, err := analysis.NewCorrelationAnalyzer().Calculate(frame)
		if err != nil {
			fail("correlation", err)
			return nil
		}
		mu.Lock()
		report.Correlation = stats
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		analyzer := analysis.NewPerformanceAnalyzer(e.cfg.RiskFreeRate, e.cfg.Benchmark)
		stats, err := analyzer.Calculate(frame)
		if err != nil {
			fail("performance", err)
			return nil
		}
		mu.Lock()
		report.Performance = stats
		mu.Unlock()
		return nil
	})

	if e.cfg.Benchmark != nil {
		g.Go(func() error {
			stats, err := analysis.BenchmarkStats(e.cfg.BenchmarkTicker, e.cfg.Benchmark)
			if err != nil {
				fail("benchmark", err)
				return nil
			}
			mu.Lock()
			report.Benchmark = stats
			mu.Unlock()
			return nil
		})
	}

	for _, method := range e.cfg.Methods {
		method := method
		g.Go(func() error {
			stats, err := e.riskSection(gctx, frame, method)
			if err != nil {
				fail("risk."+string(method), err)
				return nil
			}
			mu.Lock()
			report.Risk[string(method)] = stats
			mu.Unlock()
			if e.recorder != nil {
				e.recorder.RiskFigures(string(method),
					stats.VaR[models.PortfolioKey], stats.CVaR[models.PortfolioKey])
			}
			return nil
		})
	}

	g.Wait()

	status := "ok"
	if len(report.Errors) > 0 {
		status = "partial"
	}
	if e.recorder != nil {
		e.recorder.AnalysisCompleted(status, time.Since(started))
	}
	e.log.Infow("analysis run complete",
		"status", status,
		"sections_failed", len(report.Errors),
		"elapsed", time.Since(started))
	return report, nil
}

// riskSection builds VaR, CVaR, horizon scalings and breach dates for one
// calculation method at the configured confidence.
func (e *Engine) riskSection(ctx context.Context, frame *series.Frame, method risk.Method) (*models.RiskStats, error) {
	return e.riskStats(ctx, frame, method, e.cfg.Confidence, e.cfg.Horizons)
}

// RiskFor evaluates one method at an ad-hoc confidence and horizon set,
// rebuilding the return frame. Serves on-demand queries; scheduled runs go
// through Run.
func (e *Engine) RiskFor(ctx context.Context, method risk.Method, confidence float64, horizons []int) (*models.RiskStats, error) {
	frame, err := e.portfolio.ReturnFrame(e.cfg.Frequency)
	if err != nil {
		return nil, err
	}
	return e.riskStats(ctx, frame, method, confidence, horizons)
}

func (e *Engine) riskStats(ctx context.Context, frame *series.Frame, method risk.Method, confidence float64, horizons []int) (*models.RiskStats, error) {
	portfolioReturns, ok := frame.ColumnSeries(models.PortfolioKey)
	if !ok {
		return nil, errors.NoPriceData("return frame has no portfolio column")
	}

	calc, err := e.calculator(method, portfolioReturns, frame)
	if err != nil {
		return nil, err
	}

	varResult, cvarResult, err := risk.NewCVaR(calc, portfolioReturns, frame).Calculate(ctx, confidence)
	if err != nil {
		return nil, err
	}

	stats := &models.RiskStats{
		Method:     string(method),
		Confidence: confidence,
		VaR:        varResult,
		CVaR:       cvarResult,
		Breaches:   risk.Breaches(portfolioReturns, varResult[models.PortfolioKey]),
	}
	if len(horizons) > 0 {
		scaled, err := risk.ForHorizons(ctx, calc, confidence, horizons)
		if err != nil {
			return nil, err
		}
		stats.Horizons = scaled
	}
	return stats, nil
}

func (e *Engine) calculator(method risk.Method, portfolioReturns *series.Series, frame *series.Frame) (risk.Calculator, error) {
	switch method {
	case risk.MethodHistorical:
		return risk.NewHistorical(portfolioReturns, frame), nil
	case risk.MethodParametric:
		return risk.NewParametric(portfolioReturns, frame), nil
	case risk.MethodMonteCarlo:
		opts := []risk.MonteCarloOption{risk.WithSimulations(e.cfg.Simulations)}
		if names, cov, err := risk.CovarianceFromFrame(frame); err == nil && len(names) > 1 {
			opts = append(opts,
				risk.WithCovariance(names, cov),
				risk.WithWeights(e.portfolio.GetWeights()))
		}
		return risk.NewMonteCarlo(portfolioReturns, frame, opts...), nil
	default:
		return nil, errors.Newf("unknown risk method %q", method)
	}
}
